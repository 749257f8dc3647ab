// Package store holds the contract shared by the domain stores: in-memory
// aggregates that are periodically snapshotted and written to disk.
package store

import (
	"context"
	"time"

	"github.com/ti-mo/bandix/internal/sinks/types"
)

// A Store is an in-memory aggregate of one telemetry domain.
type Store interface {

	// Name of the store, used in logs, metrics and sink points.
	Name() string

	// Flush snapshots the store's in-memory state and atomically replaces
	// its backing file. Must be safe to call while the store is being
	// written to. On error, the in-memory state is left untouched.
	Flush(ctx context.Context) error

	// Len returns the amount of entries currently held in memory.
	Len() int

	// Points returns sink points describing the last successful flush.
	Points() []types.Point
}

// Dropper is implemented by stores that count samples rejected because
// capture was disabled.
type Dropper interface {
	Dropped() uint64
}

// Evicter is implemented by stores with a size limit that count entries
// evicted to make room for new ones.
type Evicter interface {
	Evicted() uint64
}

// Gate tells a store whether it is still allowed to accept new samples.
type Gate interface {
	Enabled() bool
}

// open is a Gate that is always enabled, used when no Gate is configured.
type open struct{}

func (open) Enabled() bool { return true }

// GateOrOpen returns g, or a Gate that is always enabled if g is nil.
func GateOrOpen(g Gate) Gate {
	if g == nil {
		return open{}
	}
	return g
}

// Header is the common header of all persisted snapshots.
type Header struct {
	// Format version of the snapshot file.
	Version string `json:"version" yaml:"version"`
	// Name of the store that wrote the snapshot.
	Store string `json:"store" yaml:"store"`
	// Time the snapshot was taken.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewHeader returns a Header for the named store at the current format version.
func NewHeader(name string, t time.Time) Header {
	return Header{
		Version:   FormatVersion,
		Store:     name,
		UpdatedAt: t.UTC(),
	}
}
