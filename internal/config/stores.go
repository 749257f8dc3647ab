package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// DefaultStoresConfig is the default store configuration.
var DefaultStoresConfig = StoresConfig{
	Connection: &ConnectionConfig{
		Retention:  durationPtr(24 * time.Hour),
		MaxEntries: intPtr(65536),
	},
	DNS: &DNSConfig{
		MaxEntries: intPtr(16384),
	},
}

// StoresConfig represents the configuration of the domain stores.
type StoresConfig struct {
	Connection *ConnectionConfig `mapstructure:"connection"`
	DNS        *DNSConfig        `mapstructure:"dns"`
}

// ConnectionConfig is the configuration of the connection store.
type ConnectionConfig struct {
	// Flows idle for longer than this are dropped after being persisted.
	Retention *time.Duration `mapstructure:"retention"`
	// Maximum amount of flows held in memory, 0 is unlimited.
	MaxEntries *int `mapstructure:"max_entries"`
}

// DNSConfig is the configuration of the dns store.
type DNSConfig struct {
	// Maximum amount of query signatures held in memory, 0 is unlimited.
	MaxEntries *int `mapstructure:"max_entries"`
}

// Default recursively sets the given default values on the StoresConfig.
// Finds any nil values in the configuration tree and initializes them
// to the given default.
func (sc *StoresConfig) Default(def StoresConfig) {

	if sc.Connection == nil {
		sc.Connection = def.Connection
	} else {
		if sc.Connection.Retention == nil {
			sc.Connection.Retention = def.Connection.Retention
		}
		if sc.Connection.MaxEntries == nil {
			sc.Connection.MaxEntries = def.Connection.MaxEntries
		}
	}

	if sc.DNS == nil {
		sc.DNS = def.DNS
	} else if sc.DNS.MaxEntries == nil {
		sc.DNS.MaxEntries = def.DNS.MaxEntries
	}
}

// Validate returns an error if the StoresConfig holds out-of-range values.
// Must be called after Default.
func (sc *StoresConfig) Validate() error {
	if *sc.Connection.MaxEntries < 0 {
		return errors.Errorf(errFmtNegative, "stores.connection.max_entries")
	}
	if *sc.DNS.MaxEntries < 0 {
		return errors.Errorf(errFmtNegative, "stores.dns.max_entries")
	}
	return nil
}

func (sc *StoresConfig) String() string {
	return fmt.Sprintf("StoresConfig{Connection: [retention:%s, max:%d], DNS: [max:%d]}",
		*sc.Connection.Retention, *sc.Connection.MaxEntries, *sc.DNS.MaxEntries)
}

// DecodeStoresConfigMap extracts a StoresConfig from a string map of
// configuration data as provided by Viper.
func DecodeStoresConfigMap(cfg map[string]interface{}) (*StoresConfig, error) {

	var out StoresConfig
	if err := decode(cfg, &out); err != nil {
		return nil, errors.Wrap(err, "decoding stores configuration")
	}

	return &out, nil
}
