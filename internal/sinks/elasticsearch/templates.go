package elasticsearch

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// installMappings sets up data types for exported fields.
// An index template 'bandix_mappings.<db>' is installed on
// the elasticsearch server for the given db prefix.
func (s *ElasticSink) installMappings(db string) error {

	// Name of the installed index template.
	templateName := fmt.Sprintf("bandix_mappings.%s", db)

	// Using normal (millisecond) date instead of date_nanos.
	// https://github.com/elastic/elasticsearch/issues/43917
	mappings := fmt.Sprintf(`{
		"index_patterns" : ["%s-*"],
		"order": 0,
		"mappings":{
			"properties":{
				"measurement": { "type":"keyword" },
				"agent": { "type":"keyword" },
				"device": { "type":"keyword" },
				"hostname": { "type":"keyword" },
				"rx_bytes": { "type":"long" },
				"tx_bytes": { "type":"long" },
				"total_bytes": { "type":"long" },
				"bytes_orig": { "type":"long" },
				"bytes_ret": { "type":"long" },
				"bytes_total": { "type":"long" },
				"packets_orig": { "type":"long" },
				"packets_ret": { "type":"long" },
				"proto": { "type":"keyword" },
				"src_addr": { "type":"ip" },
				"src_port": { "type":"integer" },
				"dst_addr": { "type":"ip" },
				"dst_port": { "type":"integer" },
				"client": { "type":"keyword" },
				"name": { "type":"keyword" },
				"type": { "type":"keyword" },
				"count": { "type":"long" },
				"timestamp": { "type":"date" }
			}
		}
	}`, db)

	return s.installTemplate(templateName, mappings)
}

// installSettings applies shard and replication configuration for bandix indices.
// An index template 'bandix_settings.<db>' is installed on
// the elasticsearch server for the given db prefix.
func (s *ElasticSink) installSettings(db string, shards, replicas uint16) error {

	// Name of the installed index template.
	templateName := fmt.Sprintf("bandix_settings.%s", db)

	settings := fmt.Sprintf(`{
		"index_patterns" : ["%s-*"],
		"order": 0,
		"settings": {
			"number_of_shards": %d,
			"number_of_replicas": %d
		}
	}`, db, shards, replicas)

	return s.installTemplate(templateName, settings)
}

// installTemplate applies the given template name and body
// to the elasticsearch server.
func (s *ElasticSink) installTemplate(name, body string) error {

	resp, err := s.client.IndexPutTemplate(name).BodyString(body).Do(context.Background())
	if err != nil {
		return err
	}

	if !resp.Acknowledged {
		return errIndexTemplate
	}

	log.WithField("sink", s.config.Name).Debugf("Installed '%s' index template", name)

	return nil
}
