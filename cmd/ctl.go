package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Final flushes may take up to shutdown_timeout, leave some slack.
const ctlTimeout = 2 * time.Minute

// ctlCmd represents the ctl command.
var ctlCmd = &cobra.Command{
	Use:   "ctl",
	Short: "Control a running agent through its management API.",
}

var ctlFlushCmd = &cobra.Command{
	Use:          "flush",
	Short:        "Flush all stores to disk.",
	RunE:         ctlCall(http.MethodPost, "/api/flush"),
	SilenceUsage: true,
}

var ctlShutdownCmd = &cobra.Command{
	Use:          "shutdown",
	Short:        "Run the final flush and stop the agent.",
	RunE:         ctlCall(http.MethodPost, "/api/shutdown"),
	SilenceUsage: true,
}

var ctlHealthCmd = &cobra.Command{
	Use:          "health",
	Short:        "Check whether the agent is up.",
	RunE:         ctlCall(http.MethodGet, "/api/health"),
	SilenceUsage: true,
}

func init() {
	ctlCmd.PersistentFlags().String("endpoint", "", "management API address (default api_endpoint from config)")
	if err := viper.BindPFlag(cfgAPIEndpoint, ctlCmd.PersistentFlags().Lookup("endpoint")); err != nil {
		log.Fatalf("Binding endpoint flag: %s", err)
	}

	ctlCmd.AddCommand(ctlFlushCmd, ctlShutdownCmd, ctlHealthCmd)
	rootCmd.AddCommand(ctlCmd)
}

// ctlCall returns a command handler that calls the given API path and
// prints the response.
func ctlCall(method, path string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {

		url := "http://" + viper.GetString(cfgAPIEndpoint) + path

		req, err := http.NewRequestWithContext(cmd.Context(), method, url, nil)
		if err != nil {
			return errors.Wrap(err, "creating request")
		}

		c := &http.Client{Timeout: ctlTimeout}
		resp, err := c.Do(req)
		if err != nil {
			return errors.Wrapf(err, "calling %s", url)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return errors.Wrap(err, "reading response")
		}

		return printResponse(os.Stdout, resp.StatusCode, body)
	}
}

// printResponse writes the API response body to w and returns an error
// if the API reported a failure.
func printResponse(w io.Writer, code int, body []byte) error {

	var r struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return errors.Wrapf(err, "decoding response (HTTP %d)", code)
	}

	fmt.Fprintln(w, string(body))

	if code != http.StatusOK || r.Status == "error" {
		return errors.Errorf("request failed (HTTP %d): %s", code, r.Message)
	}

	return nil
}
