package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Point is a single measurement exported to sinks after a store was flushed.
type Point struct {
	// Name of the measurement, eg. 'traffic'.
	Measurement string
	// Indexed metadata of the point.
	Tags map[string]string
	// Values of the point. Values are uint64, int64, float64 or string.
	Fields map[string]interface{}
	// Time the point describes.
	Time time.Time
}

// String renders the Point in a line protocol-like format with sorted keys,
// eg. 'traffic,device=A total_bytes=60 1700000000000000000'.
func (p Point) String() string {

	var b strings.Builder
	b.WriteString(p.Measurement)

	for _, k := range sortedKeys(p.Tags) {
		fmt.Fprintf(&b, ",%s=%s", k, p.Tags[k])
	}

	fk := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		fk = append(fk, k)
	}
	sort.Strings(fk)

	for i, k := range fk {
		sep := ","
		if i == 0 {
			sep = " "
		}
		fmt.Fprintf(&b, "%s%s=%v", sep, k, p.Fields[k])
	}

	fmt.Fprintf(&b, " %d", p.Time.UnixNano())

	return b.String()
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
