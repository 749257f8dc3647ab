// Package hostname resolves device identifiers to human-readable names
// using a DHCP leases file as written by dnsmasq or odhcpd, or the
// kernel neighbor table.
package hostname

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Resolver looks up hostnames for MAC or IP addresses.
type Resolver interface {
	Lookup(device string) string
}

// Nop is a Resolver that never knows a name.
type Nop struct{}

// Lookup always returns an empty string.
func (Nop) Lookup(string) string { return "" }

// Leases resolves devices from a leases file. The file is re-read when its
// modification time changes.
type Leases struct {
	path string

	mu    sync.Mutex
	mtime time.Time
	names map[string]string
}

// NewLeases returns a Leases resolver reading from path.
func NewLeases(path string) *Leases {
	return &Leases{
		path:  path,
		names: make(map[string]string),
	}
}

// Lookup returns the hostname of the device with the given MAC or IP
// address, or an empty string if it is unknown.
func (l *Leases) Lookup(device string) string {

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.refresh(); err != nil {
		log.WithField("file", l.path).Debugf("Reading leases: %s", err)
	}

	return l.names[strings.ToLower(device)]
}

// refresh reloads the leases file if it changed since the last read.
// Must be called with mu held.
func (l *Leases) refresh() error {

	fi, err := os.Stat(l.path)
	if err != nil {
		return err
	}

	if fi.ModTime().Equal(l.mtime) {
		return nil
	}

	f, err := os.Open(l.path)
	if err != nil {
		return err
	}
	defer f.Close()

	names, err := parse(f)
	if err != nil {
		return errors.Wrap(err, "parsing leases file")
	}

	l.names = names
	l.mtime = fi.ModTime()

	return nil
}

// parse reads lines of the format '<expiry> <mac> <ip> <hostname> <client-id>'
// and indexes hostnames by both MAC and IP address. Unnamed leases ('*')
// are skipped.
func parse(r io.Reader) (map[string]string, error) {

	out := make(map[string]string)

	s := bufio.NewScanner(r)
	for s.Scan() {
		f := strings.Fields(s.Text())
		if len(f) < 4 {
			continue
		}

		name := f[3]
		if name == "*" {
			continue
		}

		out[strings.ToLower(f[1])] = name
		out[f[2]] = name
	}

	return out, s.Err()
}
