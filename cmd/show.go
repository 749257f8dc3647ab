package cmd

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ti-mo/bandix/internal/store/connection"
	"github.com/ti-mo/bandix/internal/store/dns"
	"github.com/ti-mo/bandix/internal/store/traffic"
)

// showCmd represents the show command.
var showCmd = &cobra.Command{
	Use:          "show",
	Short:        "Print the persisted contents of the data directory.",
	RunE:         show,
	SilenceUsage: true,
}

// persisted is the YAML document printed by show.
// Stores without a snapshot file are omitted.
type persisted struct {
	Traffic    *traffic.Snapshot    `yaml:"traffic,omitempty"`
	Connection *connection.Snapshot `yaml:"connection,omitempty"`
	DNS        *dns.Snapshot        `yaml:"dns,omitempty"`
}

func init() {
	showCmd.Flags().String("data-dir", "", "data directory (default data_dir from config)")
	if err := viper.BindPFlag(cfgDataDir, showCmd.Flags().Lookup("data-dir")); err != nil {
		log.Fatalf("Binding data-dir flag: %s", err)
	}

	rootCmd.AddCommand(showCmd)
}

func show(cmd *cobra.Command, args []string) error {

	dir := viper.GetString(cfgDataDir)

	var (
		out persisted
		err error
	)

	if out.Traffic, _, err = traffic.Read(filepath.Join(dir, traffic.FileName)); err != nil {
		return errors.Wrap(err, "reading traffic snapshot")
	}
	if out.Connection, _, err = connection.Read(filepath.Join(dir, connection.FileName)); err != nil {
		return errors.Wrap(err, "reading connection snapshot")
	}
	if out.DNS, _, err = dns.Read(filepath.Join(dir, dns.FileName)); err != nil {
		return errors.Wrap(err, "reading dns snapshot")
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()

	return enc.Encode(out)
}
