package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/ti-mo/bandix/internal/apiserver"
	"github.com/ti-mo/bandix/internal/capture"
	"github.com/ti-mo/bandix/internal/config"
	"github.com/ti-mo/bandix/internal/pipeline"
	"github.com/ti-mo/bandix/internal/pprof"
	"github.com/ti-mo/bandix/internal/store/connection"
	"github.com/ti-mo/bandix/internal/store/dns"
	"github.com/ti-mo/bandix/internal/store/traffic"
	"github.com/ti-mo/bandix/pkg/gate"
	"github.com/ti-mo/bandix/pkg/hostname"
)

var errFinalFlush = errors.New("final flush failed")

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:          "run",
	Short:        "Capture network telemetry and persist it to the data directory.",
	RunE:         run,
	SilenceUsage: true, // Don't show usage when RunE returns error.
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run(cmd *cobra.Command, args []string) error {

	log.Infoln("Starting", versionStr)

	// Install the signal listener before any flush trigger is started.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sig)

	scfg, ccfg, kcfg, err := getConfig()
	if err != nil {
		return err
	}

	interval := viper.GetDuration(cfgFlushInterval)
	if interval <= 0 {
		return errors.Errorf("%s must be positive, got %s", cfgFlushInterval, interval)
	}
	timeout := viper.GetDuration(cfgShutdownTimeout)
	if timeout <= 0 {
		return errors.Errorf("%s must be positive, got %s", cfgShutdownTimeout, timeout)
	}

	dataDir := viper.GetString(cfgDataDir)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return errors.Wrap(err, "create data directory")
	}

	g := gate.New()

	var resolver hostname.Chain
	if lf := viper.GetString(cfgHostnameLeases); lf != "" {
		resolver = append(resolver, hostname.NewLeases(lf))
	}
	if viper.GetBool(cfgHostnameNeigh) {
		resolver = append(resolver, hostname.NewNeighbors())
	}

	ts := traffic.New(traffic.Config{Dir: dataDir, Gate: g, Resolver: resolver})
	cs := connection.New(connection.Config{
		Dir:        dataDir,
		Gate:       g,
		Retention:  *scfg.Connection.Retention,
		MaxEntries: *scfg.Connection.MaxEntries,
	})
	ds := dns.New(dns.Config{Dir: dataDir, Gate: g, MaxEntries: *scfg.DNS.MaxEntries})

	// Unreadable snapshots are not fatal, the store starts empty and the
	// next flush replaces the file.
	loadStore(ts.Name(), ts.Load)
	loadStore(cs.Name(), cs.Load)
	loadStore(ds.Name(), ds.Load)

	reg := prometheus.NewRegistry()
	var registerer prometheus.Registerer
	if viper.GetBool(cfgMetricsEnabled) {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registerer = reg
	}

	pipe, err := pipeline.New(pipeline.Config{
		DataDir:    dataDir,
		Gate:       g,
		Registerer: registerer,
	}, ts, cs, ds)
	if err != nil {
		return errors.Wrap(err, "create pipeline")
	}

	if err := initRegisterSinks(kcfg, pipe); err != nil {
		return errors.Wrap(err, "initialize and register sinks")
	}

	if err := config.Init(viper.GetBool(cfgSysctlManage)); err != nil {
		log.Warnf("Applying system configuration: %s", err)
	}

	adapters, err := capture.Open(capture.Config{
		PollInterval:  *ccfg.PollInterval,
		TrafficMap:    ccfg.TrafficMap,
		ConnectionMap: ccfg.ConnectionMap,
		DNSRingbuf:    ccfg.DNSRingbuf,
		Traffic:       ts,
		Connection:    cs,
		DNS:           ds,
		Gate:          g,
	})
	if err != nil {
		return errors.Wrap(err, "open capture adapters")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	// Exit codes requested by the API after it performed the final flush.
	exitc := make(chan int, 1)

	eg.Go(func() error {
		return pipe.RunPeriodic(ctx, interval)
	})

	eg.Go(func() error {
		// Lost capture is logged, the stores keep flushing what they hold.
		if err := capture.Run(ctx, adapters); err != nil {
			log.Errorf("Capture stopped: %s", err)
		}
		return nil
	})

	if viper.GetBool(cfgAPIEnabled) {
		acfg := apiserver.Config{
			Addr:       viper.GetString(cfgAPIEndpoint),
			Pipeline:   pipe,
			Traffic:    ts,
			Connection: cs,
			DNS:        ds,
			Exit: func(code int) {
				select {
				case exitc <- code:
				default:
				}
			},
			ShutdownTimeout: timeout,
		}
		if registerer != nil {
			acfg.Gatherer = reg
		}

		srv, err := apiserver.New(acfg)
		if err != nil {
			return errors.Wrap(err, "create API server")
		}
		eg.Go(func() error {
			return errors.Wrap(srv.Run(ctx), "API server")
		})
	}

	if viper.GetBool(cfgPProfEnabled) {
		eg.Go(func() error {
			return errors.Wrap(pprof.ListenAndServe(ctx, viper.GetString(cfgPProfEndpoint)), "pprof")
		})
	}

	var ferr error
	select {
	case s := <-sig:
		log.Infof("Received signal %s, running final flush", s)
		ferr = finalFlush(pipe, timeout, sig)

	case code := <-exitc:
		// The API server already ran the final flush.
		if code != 0 {
			ferr = errFinalFlush
		}

	case <-ctx.Done():
		// A worker failed, persist what was collected before exiting.
		log.Error("Worker failed, running final flush")
		if err := finalFlush(pipe, timeout, sig); err != nil {
			log.Errorf("Final flush: %s", err)
		}
	}

	cancel()
	werr := eg.Wait()

	if ferr != nil {
		log.Errorf("Final flush: %s", ferr)
		return errFinalFlush
	}
	if werr != nil {
		return werr
	}

	log.Info("Data flushed, exiting")

	return nil
}

// finalFlush runs the pipeline's final flush bounded by timeout.
// Signals received in the meantime are ignored.
func finalFlush(pipe *pipeline.Pipeline, timeout time.Duration, sig <-chan os.Signal) error {

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- pipe.FlushFinal(ctx)
	}()

	for {
		select {
		case err := <-done:
			return err
		case s := <-sig:
			log.Warnf("Received signal %s during final flush, ignoring", s)
		case <-ctx.Done():
			// A store stuck in I/O does not observe ctx.
			return errors.Wrap(ctx.Err(), "final flush exceeded shutdown timeout")
		}
	}
}

// loadStore restores a store from disk, logging any failure.
func loadStore(name string, load func() error) {
	if err := load(); err != nil {
		log.WithField("store", name).Errorf("Loading persisted state, starting empty: %s", err)
		return
	}
	log.WithField("store", name).Debug("Loaded persisted state")
}
