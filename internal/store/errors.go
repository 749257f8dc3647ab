package store

const (
	errFmtVersion      = "invalid snapshot version '%s': %s"
	errFmtIncompatible = "snapshot version %s is not compatible with format version %s"

	errCreateTemp = "creating temporary file"
	errEncode     = "encoding snapshot"
	errWrite      = "writing temporary file"
	errRename     = "replacing snapshot file"
)
