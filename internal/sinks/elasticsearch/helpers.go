package elasticsearch

import (
	"strings"

	"github.com/ti-mo/bandix/internal/sinks/types"

	elastic "github.com/olivere/elastic/v7"
	log "github.com/sirupsen/logrus"
)

func configureElastic(sc types.SinkConfig) []elastic.ClientOptionFunc {

	// Initialize opts with a list of cluster addresses.
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(strings.Split(sc.Address, ",")...),
		// Disable node discovery by default, this interferes with
		// connecting to ES clusters over the internet.
		elastic.SetSniff(false),
	}

	log.WithField("sink", sc.Name).Debugf("Using elasticsearch at address '%s'", sc.Address)

	// Set up basic authentication if configured.
	if sc.Username != "" && sc.Password != "" {
		opts = append(opts, elastic.SetBasicAuth(sc.Username, sc.Password))
		log.WithField("sink", sc.Name).Debug("Configured elasticsearch client with basic authentication")
	}

	if sc.Timeout != 0 {
		opts = append(opts, elastic.SetHealthcheckTimeout(sc.Timeout))
	}

	return opts
}

// indexName returns the daily index the point is stored in, eg. 'bandix-2024.01.31'.
func indexName(db string, p types.Point) string {
	return db + "-" + p.Time.UTC().Format("2006.01.02")
}
