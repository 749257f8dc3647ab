// Package pipeline implements the flush pipeline: it serializes flush
// attempts, flushes the registered stores in order and hands their
// snapshots to the export sinks.
package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/ti-mo/bandix/internal/sinks"
	"github.com/ti-mo/bandix/internal/store"
	"github.com/ti-mo/bandix/pkg/barrier"
	"github.com/ti-mo/bandix/pkg/gate"
)

// Kind is the trigger of a flush.
type Kind uint8

// Flush kinds.
const (
	KindPeriodic Kind = iota
	KindManual
	KindFinal
)

func (k Kind) String() string {
	switch k {
	case KindPeriodic:
		return "periodic"
	case KindManual:
		return "manual"
	case KindFinal:
		return "final"
	}
	return "unknown"
}

// Config holds the parameters of a Pipeline.
type Config struct {
	// Data directory the stores write to, synced by the final flush.
	DataDir string

	// Capture gate disabled by the final flush. A new Gate is created if nil.
	Gate *gate.Gate

	// Registerer the pipeline's metrics are added to. Optional.
	Registerer prometheus.Registerer

	// Durability barrier run by the final flush, defaults to barrier.Sync.
	Barrier func(dir string) (barrier.Mode, error)
}

// Pipeline is a structure representing the bandix flush pipeline.
type Pipeline struct {
	stats Stats

	dataDir string
	gate    *gate.Gate
	barrier func(string) (barrier.Mode, error)
	metrics *metrics

	mu     sync.RWMutex
	stores []store.Store
	sinks  []sinks.Sink

	// One-slot semaphore, held for the duration of a flush.
	sem chan struct{}

	finalStarted atomic.Bool
	finalDone    chan struct{}
	finalErr     error
}

// New creates a new Pipeline. The given stores are flushed in order.
func New(cfg Config, stores ...store.Store) (*Pipeline, error) {

	if cfg.Gate == nil {
		cfg.Gate = gate.New()
	}
	if cfg.Barrier == nil {
		cfg.Barrier = barrier.Sync
	}

	p := &Pipeline{
		dataDir:   cfg.DataDir,
		gate:      cfg.Gate,
		barrier:   cfg.Barrier,
		metrics:   newMetrics(),
		sem:       make(chan struct{}, 1),
		finalDone: make(chan struct{}),
	}

	p.metrics.stores = &storeCollector{stores: p.Stores}

	if cfg.Registerer != nil {
		if err := p.metrics.register(cfg.Registerer); err != nil {
			return nil, errors.Wrap(err, "registering pipeline metrics")
		}
	}

	if p.gate.Enabled() {
		p.metrics.capture.Set(1)
	}

	for _, s := range stores {
		p.RegisterStore(s)
	}

	return p, nil
}

// Gate returns the pipeline's capture gate.
func (p *Pipeline) Gate() *gate.Gate {
	return p.gate
}

// RegisterStore appends a store to the flush order of the pipeline.
func (p *Pipeline) RegisterStore(s store.Store) {

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stores = append(p.stores, s)
	p.metrics.entries.WithLabelValues(s.Name()).Set(float64(s.Len()))

	log.Debugf("Registered store '%s' to pipeline", s.Name())
}

// RegisterSink registers an export sink to the pipeline.
// Points of successfully flushed stores are pushed to the sink.
func (p *Pipeline) RegisterSink(s sinks.Sink) error {

	// Make sure the sink is initialized before using.
	if !s.IsInit() {
		return errSinkNotInit
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.sinks = append(p.sinks, s)

	log.Infof("Registered sink '%s' to pipeline", s.Name())

	return nil
}

// Stores returns the stores registered to the pipeline in flush order.
func (p *Pipeline) Stores() []store.Store {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]store.Store(nil), p.stores...)
}

// Sinks returns the export sinks registered to the pipeline.
func (p *Pipeline) Sinks() []sinks.Sink {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]sinks.Sink(nil), p.sinks...)
}

// Stats returns a snapshot of the pipeline's statistics.
func (p *Pipeline) Stats() Stats {
	s := p.stats.Get()
	s.Running = len(p.sem) != 0
	s.CaptureEnabled = p.gate.Enabled()
	s.ShuttingDown = p.finalStarted.Load()
	return s
}
