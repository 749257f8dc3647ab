// Package capture feeds the domain stores from eBPF maps pinned by the
// kernel-side capture programs.
package capture

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/cilium/ebpf"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ti-mo/bandix/internal/store"
	"github.com/ti-mo/bandix/internal/store/connection"
	"github.com/ti-mo/bandix/internal/store/dns"
	"github.com/ti-mo/bandix/internal/store/traffic"
)

// An Adapter moves samples from a kernel map into a store.
type Adapter interface {
	Name() string

	// Run feeds the adapter's store until ctx is cancelled.
	Run(ctx context.Context) error

	// Close releases the adapter's map.
	Close() error
}

// Config holds the pinned map paths and stores of the capture adapters.
// Adapters with an empty path or nil store are not started.
type Config struct {
	PollInterval time.Duration

	TrafficMap    string
	ConnectionMap string
	DNSRingbuf    string

	Traffic    *traffic.Store
	Connection *connection.Store
	DNS        *dns.Store

	// Samples are only recorded while the gate is enabled.
	Gate store.Gate
}

// Open opens all configured adapters. Adapters whose map is not pinned
// are skipped with a warning.
func Open(cfg Config) ([]Adapter, error) {

	var out []Adapter
	g := store.GateOrOpen(cfg.Gate)

	add := func(path string, open func() (Adapter, error)) error {
		if path == "" {
			return nil
		}

		a, err := open()
		if errors.Is(err, fs.ErrNotExist) {
			log.WithField("path", path).Warn("Pinned map not found, capture adapter disabled")
			return nil
		}
		if err != nil {
			return err
		}

		log.WithField("path", path).Infof("Opened %s capture adapter", a.Name())
		out = append(out, a)
		return nil
	}

	if cfg.Traffic != nil {
		if err := add(cfg.TrafficMap, func() (Adapter, error) {
			return OpenTraffic(cfg.TrafficMap, cfg.Traffic, g, cfg.PollInterval)
		}); err != nil {
			closeAll(out)
			return nil, err
		}
	}

	if cfg.Connection != nil {
		if err := add(cfg.ConnectionMap, func() (Adapter, error) {
			return OpenConnection(cfg.ConnectionMap, cfg.Connection, g, cfg.PollInterval)
		}); err != nil {
			closeAll(out)
			return nil, err
		}
	}

	if cfg.DNS != nil {
		if err := add(cfg.DNSRingbuf, func() (Adapter, error) {
			return OpenDNS(cfg.DNSRingbuf, cfg.DNS, g)
		}); err != nil {
			closeAll(out)
			return nil, err
		}
	}

	return out, nil
}

// Run runs all adapters until ctx is cancelled or one of them fails,
// then closes them.
func Run(ctx context.Context, adapters []Adapter) error {

	defer closeAll(adapters)

	eg, ctx := errgroup.WithContext(ctx)
	for _, a := range adapters {
		a := a
		eg.Go(func() error { return a.Run(ctx) })
	}

	return eg.Wait()
}

func closeAll(adapters []Adapter) {
	for _, a := range adapters {
		if err := a.Close(); err != nil {
			log.Warnf("Closing %s capture adapter: %s", a.Name(), err)
		}
	}
}

// loadPinned opens a map pinned in bpffs. Ring buffers must be opened
// writable to advance their consumer position.
func loadPinned(path string, readOnly bool) (*ebpf.Map, error) {
	return ebpf.LoadPinnedMap(path, &ebpf.LoadPinOptions{ReadOnly: readOnly})
}

// poll calls fn every interval until ctx is cancelled or the gate is
// disabled. Errors returned by fn are logged.
func poll(ctx context.Context, name string, interval time.Duration, g store.Gate, fn func() error) error {

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}

		if !g.Enabled() {
			log.Debugf("Capture disabled, stopping %s poller", name)
			return nil
		}

		if err := fn(); err != nil {
			log.Errorf("Polling %s map: %s", name, err)
		}
	}
}
