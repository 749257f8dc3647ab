package barrier

const (
	errFmtKernelRelease = "invalid kernel release version '%s'"
	errSyncfs           = "syncfs on data directory"
)
