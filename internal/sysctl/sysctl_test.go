package sysctl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fake(t *testing.T, vals map[string]string) {
	t.Helper()

	oget, oset := get, set
	t.Cleanup(func() { get, set = oget, oset })

	get = func(name string) (string, error) {
		v, ok := vals[name]
		if !ok {
			return "", errors.New("no such sysctl")
		}
		return v, nil
	}
	set = func(name, value string) error {
		vals[name] = value
		return nil
	}
}

func TestApply(t *testing.T) {
	vals := map[string]string{"net.netfilter.nf_conntrack_acct": "0"}
	fake(t, vals)

	require.NoError(t, Apply(map[string]string{"net.netfilter.nf_conntrack_acct": "1"}, false))
	assert.Equal(t, "1", vals["net.netfilter.nf_conntrack_acct"])

	assert.Error(t, Apply(map[string]string{"net.missing": "1"}, false))
}

func TestCheck(t *testing.T) {
	fake(t, map[string]string{"a": "1", "b": "0"})

	assert.Equal(t, []string{"b"}, Check(map[string]string{"a": "1", "b": "1", "c": "1"}))
}
