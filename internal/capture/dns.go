package capture

import (
	"context"
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/ringbuf"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ti-mo/bandix/internal/store"
	"github.com/ti-mo/bandix/internal/store/dns"
	"github.com/ti-mo/bandix/pkg/boottime"
)

// DNSReader reads DNS events from a ring buffer into the dns store.
type DNSReader struct {
	m    *ebpf.Map
	r    *ringbuf.Reader
	s    *dns.Store
	gate store.Gate
}

// OpenDNS opens the DNS ring buffer pinned at path.
func OpenDNS(path string, s *dns.Store, g store.Gate) (*DNSReader, error) {

	m, err := loadPinned(path, false)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf(errFmtOpen, path))
	}

	r, err := ringbuf.NewReader(m)
	if err != nil {
		m.Close()
		return nil, errors.Wrap(err, "creating ring buffer reader")
	}

	return &DNSReader{m: m, r: r, s: s, gate: g}, nil
}

// Name returns the name of the adapter.
func (d *DNSReader) Name() string {
	return dns.Name
}

// Run reads events until ctx is cancelled or capture is disabled.
func (d *DNSReader) Run(ctx context.Context) error {

	// Unblock Read when ctx is done.
	stop := context.AfterFunc(ctx, func() { _ = d.r.Close() })
	defer stop()

	for {
		rec, err := d.r.Read()
		if err != nil {
			// Reader closed, gracefully exit the read loop.
			if errors.Is(err, ringbuf.ErrClosed) {
				return nil
			}
			return errors.Wrap(err, "reading dns ring buffer")
		}

		if !d.gate.Enabled() {
			log.Debug("Capture disabled, stopping dns reader")
			return nil
		}

		d.handle(rec.RawSample)
	}
}

func (d *DNSReader) handle(b []byte) {

	var e dnsEvent
	if err := e.UnmarshalBinary(b); err != nil {
		log.Debugf("Dropping dns event: %s", err)
		return
	}

	d.s.Record(dns.Event{
		Client:   e.Client.String(),
		Name:     e.Name,
		Type:     e.Type,
		Response: e.Response,
		Rcode:    e.Rcode,
		Time:     boottime.Absolute(e.Timestamp),
	})
}

// Close releases the reader and the ring buffer.
func (d *DNSReader) Close() error {
	// Closing an already closed reader is a no-op.
	if err := d.r.Close(); err != nil {
		return err
	}
	return d.m.Close()
}
