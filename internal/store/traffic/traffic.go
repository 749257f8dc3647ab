// Package traffic implements the per-device bandwidth store.
package traffic

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/ti-mo/bandix/internal/sinks/types"
	"github.com/ti-mo/bandix/internal/store"
	"github.com/ti-mo/bandix/pkg/hostname"
)

const (
	// Name of the store.
	Name = "traffic"

	// FileName of the store's snapshot in the data directory.
	FileName = "traffic.json"
)

// Direction of traffic as seen from the device.
type Direction uint8

// Traffic directions.
const (
	Rx Direction = iota
	Tx
)

// Counters are the accumulated totals of a single device.
type Counters struct {
	RxBytes   uint64
	TxBytes   uint64
	RxPackets uint64
	TxPackets uint64

	FirstSeen time.Time
	LastSeen  time.Time
}

// Device is the persisted representation of a device's Counters.
type Device struct {
	Device     string    `json:"device" yaml:"device"`
	Hostname   string    `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	RxBytes    uint64    `json:"rx_bytes" yaml:"rx_bytes"`
	TxBytes    uint64    `json:"tx_bytes" yaml:"tx_bytes"`
	RxPackets  uint64    `json:"rx_packets" yaml:"rx_packets"`
	TxPackets  uint64    `json:"tx_packets" yaml:"tx_packets"`
	TotalBytes uint64    `json:"total_bytes" yaml:"total_bytes"`
	FirstSeen  time.Time `json:"first_seen" yaml:"first_seen"`
	LastSeen   time.Time `json:"last_seen" yaml:"last_seen"`
}

// Snapshot is the on-disk format of the traffic store.
type Snapshot struct {
	store.Header `yaml:",inline"`
	Devices      []Device `json:"devices" yaml:"devices"`
}

// Config holds the parameters of a traffic Store.
type Config struct {
	// Directory the snapshot file is written to.
	Dir string
	// Capture gate consulted before accepting samples. Optional.
	Gate store.Gate
	// Resolver used to label devices with hostnames. Optional.
	Resolver hostname.Resolver
}

// Store accumulates per-device traffic counters.
type Store struct {
	path     string
	gate     store.Gate
	resolver hostname.Resolver

	mu      sync.Mutex
	devices map[string]*Counters

	// Samples rejected because the capture gate was closed.
	dropped atomic.Uint64

	// Last successfully persisted snapshot.
	lastMu sync.Mutex
	last   *Snapshot
}

// New returns an empty traffic Store. Call Load to restore persisted counters.
func New(cfg Config) *Store {

	r := cfg.Resolver
	if r == nil {
		r = hostname.Nop{}
	}

	return &Store{
		path:     filepath.Join(cfg.Dir, FileName),
		gate:     store.GateOrOpen(cfg.Gate),
		resolver: r,
		devices:  make(map[string]*Counters),
	}
}

// Name returns the name of the store.
func (s *Store) Name() string {
	return Name
}

// Path returns the location of the store's snapshot file.
func (s *Store) Path() string {
	return s.path
}

// Record adds a single sample of traffic for device in the given direction.
// Returns false if the sample was rejected because capture is disabled.
func (s *Store) Record(device string, dir Direction, bytes, packets uint64) bool {
	c := Counters{}
	switch dir {
	case Rx:
		c.RxBytes, c.RxPackets = bytes, packets
	case Tx:
		c.TxBytes, c.TxPackets = bytes, packets
	}
	return s.Add(device, c, time.Now())
}

// Add adds the rx/tx values of delta to the counters of device, seen at t.
// Returns false if the delta was rejected because capture is disabled.
func (s *Store) Add(device string, delta Counters, t time.Time) bool {

	s.mu.Lock()
	defer s.mu.Unlock()

	// Checked under the lock so no sample can land after a final snapshot.
	if !s.gate.Enabled() {
		s.dropped.Add(1)
		return false
	}

	c, ok := s.devices[device]
	if !ok {
		c = &Counters{FirstSeen: t}
		s.devices[device] = c
	}

	c.RxBytes += delta.RxBytes
	c.TxBytes += delta.TxBytes
	c.RxPackets += delta.RxPackets
	c.TxPackets += delta.TxPackets
	if t.Before(c.FirstSeen) {
		c.FirstSeen = t
	}
	if t.After(c.LastSeen) {
		c.LastSeen = t
	}

	return true
}

// Get returns a copy of the counters of device.
func (s *Store) Get(device string) (Counters, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.devices[device]
	if !ok {
		return Counters{}, false
	}
	return *c, true
}

// Len returns the amount of devices in the store.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}

// Dropped returns the amount of samples rejected since capture was disabled.
func (s *Store) Dropped() uint64 {
	return s.dropped.Load()
}

// Devices returns the current counters of all devices, sorted by device.
func (s *Store) Devices() []Device {
	return s.snapshot()
}

// snapshot copies the store's counters into a sorted list of Devices.
// Only holds the lock while copying.
func (s *Store) snapshot() []Device {

	s.mu.Lock()
	out := make([]Device, 0, len(s.devices))
	for k, c := range s.devices {
		out = append(out, Device{
			Device:     k,
			RxBytes:    c.RxBytes,
			TxBytes:    c.TxBytes,
			RxPackets:  c.RxPackets,
			TxPackets:  c.TxPackets,
			TotalBytes: c.RxBytes + c.TxBytes,
			FirstSeen:  c.FirstSeen,
			LastSeen:   c.LastSeen,
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Device < out[j].Device })

	return out
}

// Flush writes a snapshot of all device counters to the store's file.
func (s *Store) Flush(ctx context.Context) error {

	devs := s.snapshot()

	// Hostname lookups may hit the disk, keep them outside the lock.
	for i := range devs {
		devs[i].Hostname = s.resolver.Lookup(devs[i].Device)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := &Snapshot{
		Header:  store.NewHeader(Name, time.Now()),
		Devices: devs,
	}

	err := store.WriteFile(s.path, 0644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	})
	if err != nil {
		return errors.Wrap(err, "writing traffic snapshot")
	}

	s.lastMu.Lock()
	s.last = snap
	s.lastMu.Unlock()

	return nil
}

// Load restores the store's counters from its snapshot file, if present.
// Loaded counters are added to any counters already in memory.
func (s *Store) Load() error {

	snap, found, err := Read(s.path)
	if err != nil || !found {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range snap.Devices {
		c, ok := s.devices[d.Device]
		if !ok {
			c = &Counters{FirstSeen: d.FirstSeen}
			s.devices[d.Device] = c
		}
		c.RxBytes += d.RxBytes
		c.TxBytes += d.TxBytes
		c.RxPackets += d.RxPackets
		c.TxPackets += d.TxPackets
		if d.FirstSeen.Before(c.FirstSeen) {
			c.FirstSeen = d.FirstSeen
		}
		if d.LastSeen.After(c.LastSeen) {
			c.LastSeen = d.LastSeen
		}
	}

	return nil
}

// Read decodes the traffic snapshot at path. Returns false if it does not exist.
func Read(path string) (*Snapshot, bool, error) {

	var snap Snapshot
	found, err := store.ReadFile(path, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&snap)
	})
	if err != nil || !found {
		return nil, found, err
	}

	if err := store.CheckVersion(snap.Version); err != nil {
		return nil, true, err
	}

	return &snap, true, nil
}

// Points returns one sink point per device of the last persisted snapshot.
func (s *Store) Points() []types.Point {

	s.lastMu.Lock()
	snap := s.last
	s.lastMu.Unlock()

	if snap == nil {
		return nil
	}

	out := make([]types.Point, 0, len(snap.Devices))
	for _, d := range snap.Devices {
		tags := map[string]string{"device": d.Device}
		if d.Hostname != "" {
			tags["hostname"] = d.Hostname
		}

		out = append(out, types.Point{
			Measurement: Name,
			Tags:        tags,
			Fields: map[string]interface{}{
				"rx_bytes":    d.RxBytes,
				"tx_bytes":    d.TxBytes,
				"rx_packets":  d.RxPackets,
				"tx_packets":  d.TxPackets,
				"total_bytes": d.TotalBytes,
			},
			Time: snap.UpdatedAt,
		})
	}

	return out
}
