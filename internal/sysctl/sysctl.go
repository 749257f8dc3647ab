// Package sysctl manages the kernel parameters bandix depends on.
package sysctl

import (
	"sort"

	"github.com/pkg/errors"

	sysctl "github.com/lorenzosaino/go-sysctl"
	log "github.com/sirupsen/logrus"
)

// getter and setter are swapped out in tests.
var (
	get = sysctl.Get
	set = sysctl.Set
)

// Apply sets a given map of sysctls on the machine.
func Apply(ctls map[string]string, verbose bool) error {

	for _, ctl := range sortedKeys(ctls) {
		v := ctls[ctl]

		cur, err := get(ctl)
		if err != nil {
			return errors.Wrapf(err, errFmtSysctlGet, ctl)
		}

		if cur != v {
			err = set(ctl, v)
			if err != nil {
				return errors.Wrapf(err, errFmtSysctlSet, ctl)
			}

			if verbose {
				log.Infof("Applied sysctl %s=%s", ctl, v)
			}
		}
	}

	return nil
}

// Check logs a warning for every sysctl that is not set to its wanted value.
// Returns the names of the mismatched sysctls.
func Check(ctls map[string]string) []string {

	var warned []string

	for _, ctl := range sortedKeys(ctls) {
		cur, err := get(ctl)
		if err != nil {
			log.Debugf("Reading sysctl %s: %s", ctl, err)
			continue
		}

		if cur != ctls[ctl] {
			log.Warnf("sysctl %s is %s (required %s)", ctl, cur, ctls[ctl])
			warned = append(warned, ctl)
		}
	}

	if len(warned) != 0 {
		log.Warn("Enable sysctl_manage or set the sysctls above, connection byte counters stay at zero without them.")
	}

	return warned
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
