package pipeline

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// RunPeriodic calls FlushPeriodic every interval until ctx is cancelled.
// A flush in progress when ctx is cancelled runs to completion.
func (p *Pipeline) RunPeriodic(ctx context.Context, interval time.Duration) error {

	t := time.NewTicker(interval)
	defer t.Stop()

	log.Infof("Flushing stores every %s", interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			// Signals must not abort a running flush.
			if _, err := p.FlushPeriodic(context.WithoutCancel(ctx)); err != nil {
				log.Errorf("Periodic flush: %s", err)
			}
		}
	}
}
