package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPointString(t *testing.T) {
	p := Point{
		Measurement: "traffic",
		Tags:        map[string]string{"hostname": "laptop", "device": "A"},
		Fields:      map[string]interface{}{"tx_bytes": uint64(20), "rx_bytes": uint64(40)},
		Time:        time.Unix(1, 0),
	}

	assert.Equal(t, "traffic,device=A,hostname=laptop rx_bytes=40,tx_bytes=20 1000000000", p.String())
}
