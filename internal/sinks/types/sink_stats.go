package types

import "sync/atomic"

// SinkStats is an embeddable struct holding a SinkStatsData.
type SinkStats struct {
	data SinkStatsData
}

// SinkStatsData holds performance metrics about the export sink.
type SinkStatsData struct {
	// Amount of points Push()ed into the sink.
	PointsPushed uint64 `json:"points_pushed"`
	// Amount of points that could not be queued by the sink.
	PointsDropped uint64 `json:"points_dropped"`

	// Current batch length of the sink.
	BatchLength uint64 `json:"batch_length"`
	// Amount of batches waiting to be sent.
	BatchQueueLength uint64 `json:"batch_queue_length"`
	// Amount of batches sent.
	BatchesSent uint64 `json:"batches_sent"`
	// Amount of batches failed to be sent.
	BatchesDropped uint64 `json:"batches_dropped"`
}

// IncrPointsPushed atomically increases the sink's pushed counter by n.
func (s *SinkStats) IncrPointsPushed(n int) {
	atomic.AddUint64(&s.data.PointsPushed, uint64(n))
}

// IncrPointsDropped atomically increases the sink's dropped counter by n.
func (s *SinkStats) IncrPointsDropped(n int) {
	atomic.AddUint64(&s.data.PointsDropped, uint64(n))
}

// SetBatchLength sets the length of the current batch.
func (s *SinkStats) SetBatchLength(l int) {
	atomic.StoreUint64(&s.data.BatchLength, uint64(l))
}

// SetBatchQueueLength sets the amount of batches waiting to be sent.
func (s *SinkStats) SetBatchQueueLength(l int) {
	atomic.StoreUint64(&s.data.BatchQueueLength, uint64(l))
}

// IncrBatchDropped atomically increases the sink's dropped batch counter by one.
func (s *SinkStats) IncrBatchDropped() {
	atomic.AddUint64(&s.data.BatchesDropped, 1)
}

// IncrBatchSent atomically increases the sink's sent batch counter by one.
func (s *SinkStats) IncrBatchSent() {
	atomic.AddUint64(&s.data.BatchesSent, 1)
}

// Get returns a non-atomic snapshot of the stats data.
func (s *SinkStats) Get() SinkStatsData {
	return SinkStatsData{
		PointsPushed:     atomic.LoadUint64(&s.data.PointsPushed),
		PointsDropped:    atomic.LoadUint64(&s.data.PointsDropped),
		BatchLength:      atomic.LoadUint64(&s.data.BatchLength),
		BatchQueueLength: atomic.LoadUint64(&s.data.BatchQueueLength),
		BatchesSent:      atomic.LoadUint64(&s.data.BatchesSent),
		BatchesDropped:   atomic.LoadUint64(&s.data.BatchesDropped),
	}
}
