package sysctl

const (
	errFmtSysctlGet = "getting sysctl %s"
	errFmtSysctlSet = "setting sysctl %s"
)
