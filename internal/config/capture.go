package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// DefaultCaptureConfig is the default capture configuration.
var DefaultCaptureConfig = CaptureConfig{
	PollInterval:  durationPtr(time.Second),
	TrafficMap:    "/sys/fs/bpf/bandix/traffic",
	ConnectionMap: "/sys/fs/bpf/bandix/connections",
	DNSRingbuf:    "/sys/fs/bpf/bandix/dns_events",
}

// CaptureConfig represents the configuration of the capture adapters.
// Paths point to eBPF maps pinned in bpffs by the capture programs.
// An empty path disables the adapter.
type CaptureConfig struct {
	// Interval at which the counter maps are polled.
	PollInterval *time.Duration `mapstructure:"poll_interval"`

	TrafficMap    string `mapstructure:"traffic_map"`
	ConnectionMap string `mapstructure:"connection_map"`
	DNSRingbuf    string `mapstructure:"dns_ringbuf"`

	// Set when a path was explicitly configured, empty or not.
	set map[string]bool
}

// Default sets the given default values on unset fields of the CaptureConfig.
func (cc *CaptureConfig) Default(def CaptureConfig) {
	if cc.PollInterval == nil {
		cc.PollInterval = def.PollInterval
	}
	if !cc.set["traffic_map"] {
		cc.TrafficMap = def.TrafficMap
	}
	if !cc.set["connection_map"] {
		cc.ConnectionMap = def.ConnectionMap
	}
	if !cc.set["dns_ringbuf"] {
		cc.DNSRingbuf = def.DNSRingbuf
	}
}

// Validate returns an error if the CaptureConfig holds out-of-range values.
// Must be called after Default.
func (cc *CaptureConfig) Validate() error {
	if *cc.PollInterval <= 0 {
		return errors.Errorf(errFmtNotPositive, "capture.poll_interval")
	}
	return nil
}

func (cc *CaptureConfig) String() string {
	return fmt.Sprintf("CaptureConfig{PollInterval: %s, TrafficMap: '%s', ConnectionMap: '%s', DNSRingbuf: '%s'}",
		*cc.PollInterval, cc.TrafficMap, cc.ConnectionMap, cc.DNSRingbuf)
}

// DecodeCaptureConfigMap extracts a CaptureConfig from a string map of
// configuration data as provided by Viper.
func DecodeCaptureConfigMap(cfg map[string]interface{}) (*CaptureConfig, error) {

	var out CaptureConfig
	if err := decode(cfg, &out); err != nil {
		return nil, errors.Wrap(err, "decoding capture configuration")
	}

	out.set = make(map[string]bool)
	for _, k := range []string{"traffic_map", "connection_map", "dns_ringbuf"} {
		if _, ok := cfg[k]; ok {
			out.set[k] = true
		}
	}

	return &out, nil
}
