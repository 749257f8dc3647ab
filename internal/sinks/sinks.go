package sinks

import (
	"fmt"

	"github.com/ti-mo/bandix/internal/sinks/dummy"
	"github.com/ti-mo/bandix/internal/sinks/elasticsearch"
	"github.com/ti-mo/bandix/internal/sinks/influxdb"
	"github.com/ti-mo/bandix/internal/sinks/stdout"
	"github.com/ti-mo/bandix/internal/sinks/types"
)

// A Sink represents a timeseries database or other destination
// that receives the points of flushed stores.
type Sink interface {

	// Initialize the sink with the given configuration.
	Init(types.SinkConfig) error

	// Check whether or not the sink is initialized.
	IsInit() bool

	// Get the sink's name.
	Name() string

	// Returns true if the sink wants to receive points of the named store.
	WantStore(string) bool

	// Push the points of a flushed store to the sink driver.
	// Implementation must be thread-safe and must not block.
	Push(store string, pts []types.Point)

	// Get a snapshot copy of the sink's performance statistics.
	Stats() types.SinkStatsData
}

// New returns a new, initialized Sink based on the type of
// the given SinkConfig.
func New(cfg types.SinkConfig) (Sink, error) {

	var sink Sink

	switch cfg.Type {
	// InfluxDB driver handles UDP and TCP modes internally.
	case types.InfluxUDP, types.InfluxHTTP:
		idb := influxdb.New()
		if err := idb.Init(cfg); err != nil {
			return nil, err
		}
		sink = &idb
	case types.Elastic:
		es := elasticsearch.New()
		if err := es.Init(cfg); err != nil {
			return nil, err
		}
		sink = &es
	// stdout driver can write to either stdout or stderr.
	case types.StdOut, types.StdErr:
		std := stdout.New()
		if err := std.Init(cfg); err != nil {
			return nil, err
		}
		sink = &std
	case types.Dummy:
		d := dummy.New()
		_ = d.Init(cfg)
		sink = &d
	default:
		return nil, fmt.Errorf("sink type '%s' not implemented", cfg.Type)
	}

	return sink, nil
}
