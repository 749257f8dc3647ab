// Package config decodes the structured sections of the bandix
// configuration and prepares the host for capture.
package config

import (
	"github.com/pkg/errors"

	"github.com/ti-mo/bandix/internal/sysctl"
)

// Sysctls are required for the capture of connection byte counters.
var Sysctls = map[string]string{
	"net.netfilter.nf_conntrack_acct": "1",
}

// Init sets up the host to make bandix function. With manage set,
// required sysctls are applied. Otherwise, they are only checked.
func Init(manage bool) error {

	if !manage {
		sysctl.Check(Sysctls)
		return nil
	}

	if err := sysctl.Apply(Sysctls, true); err != nil {
		return errors.Wrap(err, "applying sysctls")
	}

	return nil
}
