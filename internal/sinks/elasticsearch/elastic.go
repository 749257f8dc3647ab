package elasticsearch

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	elastic "github.com/olivere/elastic/v7"
	log "github.com/sirupsen/logrus"

	"github.com/ti-mo/bandix/internal/sinks/types"
)

// ElasticSink is an export sink implementing an elasticsearch client.
// Every flushed snapshot entry is archived as a document in a daily index.
type ElasticSink struct {

	// Sink had Init() called on it successfully.
	init bool

	// Sink's configuration object.
	config types.SinkConfig

	// Hostname of the machine, added to all documents.
	hostname string

	// elastic driver client handle.
	client *elastic.Client

	// Channel the send workers receive batches on.
	sendChan chan batch

	// Data point batch.
	batchMu sync.Mutex
	batch   batch

	// Sink stats.
	stats types.SinkStats
}

// New returns a new ElasticSearch export sink.
func New() ElasticSink {
	return ElasticSink{}
}

// Init initializes the ElasticSearch export sink.
func (s *ElasticSink) Init(sc types.SinkConfig) error {

	if sc.Name == "" {
		return errEmptySinkName
	}
	if sc.Address == "" {
		sc.Address = "http://localhost:9200"
	}
	if sc.Database == "" {
		sc.Database = "bandix"
	}
	if sc.BatchSize == 0 {
		sc.BatchSize = 2048
	}
	if sc.Shards == 0 {
		sc.Shards = 1
	}

	opts := configureElastic(sc)

	// Create a database client.
	client, err := elastic.NewClient(opts...)
	if err != nil {
		return err
	}

	// Obtain information about the cluster.
	ping, _, err := client.Ping(strings.Split(sc.Address, ",")[0]).Do(context.Background())
	if err != nil {
		return err
	}

	log.WithField("sink", sc.Name).
		Debugf("Connected to elasticsearch cluster '%s' version %s using client version %s",
			ping.ClusterName, ping.Version.Number, elastic.Version)

	s.config = sc
	s.client = client
	s.hostname, _ = os.Hostname()

	if err := s.installSettings(sc.Database, sc.Shards, sc.Replicas); err != nil {
		return err
	}
	if err := s.installMappings(sc.Database); err != nil {
		return err
	}

	// Start workers.
	s.sendChan = make(chan batch, 64)
	s.newBatch() // initial empty batch

	go s.sendWorker()
	go s.tickWorker(time.Second * 5)

	// Mark the sink as initialized.
	s.init = true

	return nil
}

// Push the points of a flushed store into the buffer of the ElasticSearch sink.
func (s *ElasticSink) Push(store string, pts []types.Point) {
	for _, p := range pts {
		s.addBatchEvent(newEvent(s.config.Database, s.hostname, p))
		s.stats.IncrPointsPushed(1)
	}
}

// IsInit returns true if the ElasticSearch export sink was successfully initialized.
func (s *ElasticSink) IsInit() bool {
	return s.init
}

// Name returns the ElasticSearch sink's name.
func (s *ElasticSink) Name() string {
	return s.config.Name
}

// Stats returns the ElasticSearch export sink's statistics structure.
func (s *ElasticSink) Stats() types.SinkStatsData {
	return s.stats.Get()
}

// WantStore returns true if the elastic sink is configured to receive the store.
func (s *ElasticSink) WantStore(name string) bool {
	return s.config.WantStore(name)
}
