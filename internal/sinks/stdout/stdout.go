package stdout

import (
	"bufio"
	"io"
	"os"

	"github.com/ti-mo/bandix/internal/sinks/types"
)

// StdOut is an export sink writing to standard output/error.
type StdOut struct {

	// Sink had Init() called on it successfully.
	init bool

	// Sink's configuration object.
	config types.SinkConfig

	// Sink stats.
	stats types.SinkStats

	// Internal buffered point channel. BatchSize configuration parameter
	// is used as the buffer size of the channel.
	points chan types.Point

	// Destination of the sink's output, chosen by Init if unset.
	out io.Writer

	// Stdout/err writer.
	writer *bufio.Writer
}

// New returns a new StdOut.
func New() StdOut {
	return StdOut{}
}

// Init initializes the StdOut sink.
func (s *StdOut) Init(sc types.SinkConfig) error {

	// Validate / sanitize input.
	if sc.Name == "" {
		return errEmptySinkName
	}
	if sc.BatchSize == 0 {
		sc.BatchSize = 2048
	}

	if s.out == nil {
		switch sc.Type {
		case types.StdOut:
			s.out = os.Stdout
		case types.StdErr:
			s.out = os.Stderr
		default:
			return errInvalidSinkType
		}
	}

	s.writer = bufio.NewWriter(s.out)
	s.points = make(chan types.Point, sc.BatchSize)
	s.config = sc

	go s.outWorker()

	// Mark the sink as initialized.
	s.init = true

	return nil
}

// Push the points of a flushed store into the buffer of the StdOut sink.
func (s *StdOut) Push(store string, pts []types.Point) {
	for _, p := range pts {
		// Non-blocking send on point channel.
		select {
		case s.points <- p:
			s.stats.IncrPointsPushed(1)
		default:
			s.stats.IncrPointsDropped(1)
		}
	}
	s.stats.SetBatchLength(len(s.points))
}

// Name gets the name of the StdOut.
func (s *StdOut) Name() string {
	return s.config.Name
}

// IsInit checks if the StdOut was successfully initialized.
func (s *StdOut) IsInit() bool {
	return s.init
}

// WantStore returns true if the StdOut was configured to receive the store.
func (s *StdOut) WantStore(name string) bool {
	return s.config.WantStore(name)
}

// Stats returns the StdOut's statistics structure.
func (s *StdOut) Stats() types.SinkStatsData {
	return s.stats.Get()
}
