package stdout

import (
	log "github.com/sirupsen/logrus"
)

// outWorker receives points from the sink's point channel
// and prints them to stdout/stderr.
func (s *StdOut) outWorker() {

	for p := range s.points {

		if _, err := s.writer.WriteString(p.String() + "\n"); err != nil {
			s.stats.IncrBatchDropped()
			log.Errorf("StdOut sink '%s': error writing: %s", s.config.Name, err)
			continue
		}

		// Flush once the channel is drained.
		if len(s.points) != 0 {
			continue
		}

		if err := s.writer.Flush(); err != nil {
			s.stats.IncrBatchDropped()
			log.Errorf("StdOut sink '%s': error flushing writer: %s", s.config.Name, err)
			continue
		}

		// Increase 'batches' sent counter.
		s.stats.IncrBatchSent()
	}
}
