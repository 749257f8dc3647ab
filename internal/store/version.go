package store

import (
	"fmt"

	"github.com/blang/semver"
)

// FormatVersion is the version of the snapshot format written by all stores.
const FormatVersion = "1.0.0"

// Snapshots within this range can be loaded by the running version.
var compatible = semver.MustParseRange(">=1.0.0 <2.0.0")

// CheckVersion returns an error if a snapshot of version v cannot be loaded.
func CheckVersion(v string) error {

	sv, err := semver.Parse(v)
	if err != nil {
		return fmt.Errorf(errFmtVersion, v, err)
	}

	if !compatible(sv) {
		return fmt.Errorf(errFmtIncompatible, v, FormatVersion)
	}

	return nil
}
