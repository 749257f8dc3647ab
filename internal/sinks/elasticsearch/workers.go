package elasticsearch

import (
	"context"
	"time"

	elastic "github.com/olivere/elastic/v7"
	log "github.com/sirupsen/logrus"
)

// sendWorker receives batches from the sink's send channel
// and uses the elasticsearch client to bulk index them.
func (s *ElasticSink) sendWorker() {

	for b := range s.sendChan {

		// Store the size of the send queue.
		s.stats.SetBatchQueueLength(len(s.sendChan))

		if err := s.send(b); err != nil {
			log.Errorf("Elasticsearch sink '%s': Error sending batch: %s. Batch dropped.", s.config.Name, err)
			s.stats.IncrBatchDropped()
			continue
		}

		s.stats.IncrBatchSent()
	}
}

// send bulk indexes all documents in b.
func (s *ElasticSink) send(b batch) error {

	bulk := s.client.Bulk()
	for _, e := range b {
		bulk.Add(elastic.NewBulkIndexRequest().Index(e.index).Doc(e.doc))
	}

	ctx := context.Background()
	if s.config.Timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	resp, err := bulk.Do(ctx)
	if err != nil {
		return err
	}

	if resp.Errors {
		failed := resp.Failed()
		s.stats.IncrPointsDropped(len(failed))
		log.WithField("sink", s.config.Name).Warnf("%d documents failed to index", len(failed))
	}

	return nil
}

// tickWorker starts a ticker that periodically flushes the active batch.
// If the batch is empty when the ticker fires, no action is taken.
func (s *ElasticSink) tickWorker(interval time.Duration) {

	t := time.NewTicker(interval)
	defer t.Stop()

	for range t.C {

		s.batchMu.Lock()

		// Only flush the batch when it contains points.
		if len(s.batch) != 0 {
			s.flushBatch()
		}

		s.batchMu.Unlock()
	}
}
