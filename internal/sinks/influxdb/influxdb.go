package influxdb

import (
	"sync"

	influx "github.com/influxdata/influxdb/client/v2"
	log "github.com/sirupsen/logrus"

	"github.com/ti-mo/bandix/internal/sinks/types"
)

const (
	defaultBatchSize = 128
)

// InfluxSink is an export sink implementing an InfluxDB client.
type InfluxSink struct {

	// Sink had Init() called on it successfully.
	init bool

	// Sink's configuration object.
	config types.SinkConfig

	// Influx driver client handle.
	client influx.Client

	// Channel the network workers receive influx batches on.
	sendChan chan influx.BatchPoints

	// Data point batch.
	batchMu sync.Mutex
	batch   influx.BatchPoints

	// Sink stats.
	stats types.SinkStats
}

// New returns a new InfluxDB export sink.
func New() InfluxSink {
	return InfluxSink{}
}

// Init initializes the InfluxDB export sink.
func (s *InfluxSink) Init(sc types.SinkConfig) error {

	// Validate / sanitize input.
	if sc.Name == "" {
		return errEmptySinkName
	}
	if sc.Address == "" {
		return errEmptySinkAddress
	}
	if sc.BatchSize == 0 {
		sc.BatchSize = defaultBatchSize
	}

	var c influx.Client
	var err error

	switch sc.Type {
	case types.InfluxUDP:
		// Construct InfluxDB UDP configuration and client.
		conf := influx.UDPConfig{
			Addr:        sc.Address,
			PayloadSize: int(sc.UDPPayloadSize),
		}

		c, err = influx.NewUDPClient(conf)
		if err != nil {
			return err
		}
	case types.InfluxHTTP:
		if sc.Database == "" {
			return errEmptySinkDatabase
		}

		// Construct InfluxDB HTTP configuration and client.
		conf := influx.HTTPConfig{
			Addr:     sc.Address,
			Username: sc.Username,
			Password: sc.Password,
			Timeout:  sc.Timeout,
		}

		c, err = influx.NewHTTPClient(conf)
		if err != nil {
			return err
		}
	default:
		return errInvalidSinkType
	}

	// Make a buffered channel for sendworkers.
	s.sendChan = make(chan influx.BatchPoints, 64)

	s.config = sc // config
	s.newBatch()  // initial empty batch
	s.client = c  // client handle

	go s.sendWorker()
	go s.tickWorker()

	// Mark the sink as initialized.
	s.init = true

	return nil
}

// Push the points of a flushed store into the batch of the InfluxDB sink.
// Batches are sent by the sink's workers once full or on the next tick.
func (s *InfluxSink) Push(store string, pts []types.Point) {

	for _, p := range pts {
		pt, err := toInflux(p)
		if err != nil {
			log.WithField("sink", s.config.Name).Warnf("Dropping %s point: %s", store, err)
			s.stats.IncrPointsDropped(1)
			continue
		}

		s.addBatchPoint(pt)
		s.stats.IncrPointsPushed(1)
	}
}

// toInflux converts a Point into an InfluxDB client point.
func toInflux(p types.Point) (*influx.Point, error) {

	// https://github.com/influxdata/influxdb/issues/7801
	// The InfluxDB wire protocol and Go client supports uints and will mark them as such,
	// though 1.x servers have this behind a build flag. Only send signed ints.
	fields := make(map[string]interface{}, len(p.Fields))
	for k, v := range p.Fields {
		if u, ok := v.(uint64); ok {
			fields[k] = int64(u)
			continue
		}
		fields[k] = v
	}

	return influx.NewPoint(p.Measurement, p.Tags, fields, p.Time)
}

// Name gets the name of the InfluxDB export sink.
func (s *InfluxSink) Name() string {
	return s.config.Name
}

// IsInit checks if the InfluxDB export sink was successfully initialized.
func (s *InfluxSink) IsInit() bool {
	return s.init
}

// WantStore returns true if the sink was configured to receive the store.
func (s *InfluxSink) WantStore(name string) bool {
	return s.config.WantStore(name)
}

// Stats returns the InfluxDB export sink's statistics structure.
func (s *InfluxSink) Stats() types.SinkStatsData {
	return s.stats.Get()
}
