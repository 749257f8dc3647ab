package dummy

import (
	"github.com/ti-mo/bandix/internal/sinks/types"
)

// Dummy is an export sink that does nothing. At all.
type Dummy struct {

	// Sink had Init() called on it successfully.
	init bool

	// Sink's configuration object.
	config types.SinkConfig

	stats types.SinkStats
}

// New returns a new Dummy.
func New() Dummy {
	return Dummy{}
}

// Init initializes the Dummy sink.
func (d *Dummy) Init(sc types.SinkConfig) error {
	d.config = sc
	d.init = true
	return nil
}

// Push sends a store's points into the abyss.
func (d *Dummy) Push(store string, pts []types.Point) {
	d.stats.IncrPointsPushed(len(pts))
	d.stats.IncrPointsDropped(len(pts))
}

// Name gets the name of the Dummy.
func (d *Dummy) Name() string {
	return d.config.Name
}

// IsInit checks if the Dummy was successfully initialized.
func (d *Dummy) IsInit() bool {
	return d.init
}

// WantStore returns true if the Dummy was configured to receive the store.
func (d *Dummy) WantStore(name string) bool {
	return d.config.WantStore(name)
}

// Stats returns the Dummy's statistics structure.
func (d *Dummy) Stats() types.SinkStatsData {
	return d.stats.Get()
}
