package capture

const (
	errFmtLength     = "%s: input length %d, expected %d"
	errFmtFamily     = "unknown address family %d"
	errFmtNameLength = "dns name length %d exceeds %d"
	errFmtOpen       = "opening pinned map '%s'"
)
