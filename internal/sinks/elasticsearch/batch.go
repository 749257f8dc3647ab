package elasticsearch

// batch is a batch of documents.
type batch []*event

// newBatch allocates a new document batch to the sink structure.
func (s *ElasticSink) newBatch() {
	s.batch = make(batch, 0, s.config.BatchSize)
	s.stats.SetBatchLength(0)
}

// addBatchEvent adds the given document to the current batch.
// If the operation causes the batch watermark to be reached,
// the batch is flushed. Do not call while holding batchMu.
func (s *ElasticSink) addBatchEvent(e *event) {

	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	s.batch = append(s.batch, e)

	batchLen := len(s.batch)
	s.stats.SetBatchLength(batchLen)

	// Flush the batch when the watermark is reached.
	if batchLen >= int(s.config.BatchSize) {
		s.flushBatch()
	}
}

// flushBatch sends the current batch to the send worker
// and allocates a new batch into the sink structure.
func (s *ElasticSink) flushBatch() {
	// Non-blocking send on sendChan.
	select {
	case s.sendChan <- s.batch:
		s.stats.SetBatchQueueLength(len(s.sendChan))
	default:
		// Log a dropped batch if no receiver is ready.
		s.stats.IncrBatchDropped()
	}

	s.newBatch()
}
