package hostname

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leases = `1700000000 aa:bb:cc:dd:ee:01 192.168.1.10 laptop 01:aa:bb:cc:dd:ee:01
1700000000 AA:BB:CC:DD:EE:02 192.168.1.11 * *
garbage
1700000000 aa:bb:cc:dd:ee:03 192.168.1.12 phone *
`

func TestParse(t *testing.T) {
	names, err := parse(strings.NewReader(leases))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"aa:bb:cc:dd:ee:01": "laptop",
		"192.168.1.10":      "laptop",
		"aa:bb:cc:dd:ee:03": "phone",
		"192.168.1.12":      "phone",
	}, names)
}

func TestLeasesLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhcp.leases")
	require.NoError(t, os.WriteFile(path, []byte(leases), 0644))

	l := NewLeases(path)
	assert.Equal(t, "laptop", l.Lookup("AA:BB:CC:DD:EE:01"))
	assert.Equal(t, "phone", l.Lookup("192.168.1.12"))
	assert.Equal(t, "", l.Lookup("192.168.1.11"))

	// Rewrite the file with a newer mtime, the resolver must pick it up.
	require.NoError(t, os.WriteFile(path, []byte("1 aa:bb:cc:dd:ee:01 192.168.1.10 desktop *\n"), 0644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	assert.Equal(t, "desktop", l.Lookup("192.168.1.10"))
	assert.Equal(t, "", l.Lookup("192.168.1.12"))
}

func TestLeasesMissingFile(t *testing.T) {
	l := NewLeases(filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, "", l.Lookup("192.168.1.10"))
	assert.Equal(t, "", Nop{}.Lookup("192.168.1.10"))
}
