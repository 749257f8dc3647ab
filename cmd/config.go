package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/ti-mo/bandix/internal/config"
	"github.com/ti-mo/bandix/internal/pipeline"
	"github.com/ti-mo/bandix/internal/sinks"
	"github.com/ti-mo/bandix/internal/sinks/types"
)

var (
	// Key names in configuration file.
	cfgDataDir         = "data_dir"
	cfgFlushInterval   = "flush_interval"
	cfgShutdownTimeout = "shutdown_timeout"
	cfgAPIEnabled      = "api_enabled"
	cfgAPIEndpoint     = "api_endpoint"
	cfgMetricsEnabled  = "metrics_enabled"
	cfgSysctlManage    = "sysctl_manage"
	cfgPProfEnabled    = "pprof_enabled"
	cfgPProfEndpoint   = "pprof_endpoint"
	cfgLogFile         = "log_file"
	cfgLogMaxSizeMB    = "log_max_size_mb"
	cfgLogMaxBackups   = "log_max_backups"
	cfgHostnameLeases  = "hostname.leases_file"
	cfgHostnameNeigh   = "hostname.neighbors"

	cfgSinks = "sinks"

	// Store and capture defaults are set in internal/config.
	cfgStores  = "stores"
	cfgCapture = "capture"

	// Default application configuration.
	cfgDefaults = map[string]interface{}{
		// Directory holding the persisted stores.
		cfgDataDir: "/var/lib/bandix",

		// Interval of the periodic flush and deadline of the final flush.
		cfgFlushInterval:   "5m",
		cfgShutdownTimeout: "30s",

		// HTTP management API endpoint.
		cfgAPIEnabled:  true,
		cfgAPIEndpoint: "localhost:8686",

		// Serve Prometheus metrics on the API's /metrics.
		cfgMetricsEnabled: true,

		// Automatically manage Conntrack-related sysctls of the host.
		cfgSysctlManage: true,

		// Run a pprof endpoint during operation. (live profiling)
		cfgPProfEnabled:  false,
		cfgPProfEndpoint: "localhost:6060",

		// Log to stderr unless a file is given.
		cfgLogFile:       "",
		cfgLogMaxSizeMB:  10,
		cfgLogMaxBackups: 3,

		// dnsmasq/odhcpd leases file used to name devices, falling back
		// to their IP address in the neighbor table.
		cfgHostnameLeases: "",
		cfgHostnameNeigh:  true,
	}
)

func init() {
	// Initialize Viper with configuration defaults.
	for k, v := range cfgDefaults {
		viper.SetDefault(k, v)
	}
}

// initRegisterSinks initializes a list of sinks according to their types
// and registers them to the given pipeline.
func initRegisterSinks(cl []types.SinkConfig, pipe *pipeline.Pipeline) error {

	for _, cfg := range cl {
		// Create and initialize a new sink based on the SinkConfig.
		sink, err := sinks.New(cfg)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("creating sink '%s'", cfg.Name))
		}
		log.Debugf("Created %s sink '%s'", cfg.Type, cfg.Name)

		// Register created sink with pipeline.
		if err := pipe.RegisterSink(sink); err != nil {
			return errors.Wrap(err, fmt.Sprintf("registering sink '%s' to pipeline", cfg.Name))
		}
		log.Debugf("Registered %s sink '%s' to pipeline", cfg.Type, cfg.Name)
	}

	return nil
}

// getConfig parses the store, capture and sink configurations from Viper.
func getConfig() (*config.StoresConfig, *config.CaptureConfig, []types.SinkConfig, error) {

	scfg, err := config.DecodeStoresConfigMap(viper.GetStringMap(cfgStores))
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "decoding store configuration")
	}
	scfg.Default(config.DefaultStoresConfig)
	if err := scfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	log.Info("Using store configuration: ", scfg)

	ccfg, err := config.DecodeCaptureConfigMap(viper.GetStringMap(cfgCapture))
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "decoding capture configuration")
	}
	ccfg.Default(config.DefaultCaptureConfig)
	if err := ccfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	log.Info("Using capture configuration: ", ccfg)

	// Sinks are optional, the stores persist to disk regardless.
	kcfg, err := types.DecodeSinkConfigMap(viper.GetStringMap(cfgSinks))
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "decoding sink configuration")
	}
	// Log as debug, these often contain credentials.
	log.Debugf("Using sink configuration: %+v", kcfg)

	return scfg, ccfg, kcfg, nil
}
