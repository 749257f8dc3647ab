package elasticsearch

import (
	"github.com/ti-mo/bandix/internal/sinks/types"
)

// event is a single document sent to elasticsearch, along with
// the name of the index it is stored in.
type event struct {
	index string
	doc   map[string]interface{}
}

// newEvent flattens a Point into a document. Tags and fields are stored
// on the root level of the document next to the measurement and hostname.
func newEvent(db, hostname string, p types.Point) *event {

	doc := make(map[string]interface{}, len(p.Tags)+len(p.Fields)+3)
	for k, v := range p.Tags {
		doc[k] = v
	}
	for k, v := range p.Fields {
		doc[k] = v
	}

	doc["measurement"] = p.Measurement
	doc["agent"] = hostname
	// Millisecond resolution, date_nanos cannot ingest unix timestamps.
	doc["timestamp"] = p.Time.UnixMilli()

	return &event{
		index: indexName(db, p),
		doc:   doc,
	}
}
