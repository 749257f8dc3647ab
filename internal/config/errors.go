package config

const (
	errFmtNegative    = "%s must not be negative"
	errFmtNotPositive = "%s must be positive"
)
