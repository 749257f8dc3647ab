package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ti-mo/bandix/internal/store"
)

// FlushPeriodic flushes all stores unless a flush is already running,
// in which case it returns false without flushing. The skipped flush is
// not queued. Flushes after the final flush started are skipped as well.
func (p *Pipeline) FlushPeriodic(ctx context.Context) (bool, error) {
	return p.tryFlush(ctx, KindPeriodic)
}

// FlushManual is an operator-requested FlushPeriodic.
func (p *Pipeline) FlushManual(ctx context.Context) (bool, error) {
	return p.tryFlush(ctx, KindManual)
}

func (p *Pipeline) tryFlush(ctx context.Context, kind Kind) (bool, error) {

	l := log.WithField("kind", kind)

	if p.finalStarted.Load() {
		l.Debug("Shutting down, skipping flush")
		p.skipped(kind)
		return false, nil
	}

	// Non-blocking acquire.
	select {
	case p.sem <- struct{}{}:
	default:
		l.Info("Flush already in progress, skipping")
		p.skipped(kind)
		return false, nil
	}
	defer p.release()

	p.metrics.running.Set(1)

	if kind == KindManual {
		l.Info("Operator requested flush")
	}

	return true, p.flush(ctx, kind)
}

// FlushFinal disables capture, flushes all stores and runs the durability
// barrier on the data directory. It waits for a running flush to complete,
// bounded by ctx. The final flush runs once per Pipeline: concurrent and
// later calls wait for and return the result of the first.
func (p *Pipeline) FlushFinal(ctx context.Context) (err error) {

	if !p.finalStarted.CompareAndSwap(false, true) {
		log.Info("Final flush already started, waiting for it to complete")
		select {
		case <-p.finalDone:
			return p.finalErr
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for final flush")
		}
	}

	// Waiters must be released no matter how the final flush ends.
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(errFinalPanic, "%v", r)
			log.Errorf("Final flush: %s", err)
		}
		p.finalErr = err
		close(p.finalDone)
	}()

	return p.flushFinal(ctx)
}

func (p *Pipeline) flushFinal(ctx context.Context) error {

	if len(p.sem) != 0 {
		log.Info("Waiting for running flush to complete")
	}

	// Blocking acquire, bounded by ctx.
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for running flush")
	}
	defer p.release()

	p.metrics.running.Set(1)

	if p.gate.Disable() {
		log.Info("Capture disabled")
	}
	p.metrics.capture.Set(0)

	err := p.flush(ctx, KindFinal)

	mode, berr := p.barrier(p.dataDir)
	if berr != nil {
		log.WithField("dir", p.dataDir).Errorf("Durability barrier (%s) failed: %s", mode, berr)
	} else {
		log.WithField("dir", p.dataDir).Infof("Durability barrier complete (%s)", mode)
	}

	return err
}

func (p *Pipeline) release() {
	p.metrics.running.Set(0)
	<-p.sem
}

func (p *Pipeline) skipped(kind Kind) {
	p.stats.incrSkipped()
	p.metrics.flushes.WithLabelValues(kind.String(), "skipped").Inc()
}

// flush flushes all stores in registration order. Must be called while
// holding the semaphore.
func (p *Pipeline) flush(ctx context.Context, kind Kind) error {

	id := uuid.New().String()
	l := log.WithFields(log.Fields{"flush_id": id, "kind": kind})

	stores := p.Stores()
	start := time.Now()

	l.Debugf("Starting flush of %d stores", len(stores))

	var fe *FlushError
	for i, s := range stores {
		sl := l.WithField("store", s.Name())
		sl.Infof("[%d/%d] Flushing %s store", i+1, len(stores), s.Name())

		if err := flushStore(ctx, s); err != nil {
			sl.Errorf("Flushing %s store: %s", s.Name(), err)
			if fe == nil {
				fe = &FlushError{Kind: kind}
			}
			fe.Stores = append(fe.Stores, &StoreError{Store: s.Name(), Err: err})
			continue
		}

		p.metrics.entries.WithLabelValues(s.Name()).Set(float64(s.Len()))
		p.push(s)
	}

	end := time.Now()
	d := end.Sub(start)

	p.stats.incrFlushes(fe != nil, end, d)
	p.metrics.duration.WithLabelValues(kind.String()).Observe(d.Seconds())

	if fe != nil {
		p.metrics.flushes.WithLabelValues(kind.String(), "failed").Inc()
		return fe
	}

	p.metrics.flushes.WithLabelValues(kind.String(), "ok").Inc()
	l.WithField("duration", d).Info("Flush complete")

	return nil
}

// flushStore flushes s, converting a panic into an error.
func flushStore(ctx context.Context, s store.Store) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(errStorePanic, "%v", r)
		}
	}()

	return s.Flush(ctx)
}

// push sends the points of the last snapshot of s to all interested sinks.
func (p *Pipeline) push(s store.Store) {

	sks := p.Sinks()
	if len(sks) == 0 {
		return
	}

	pts := s.Points()
	if len(pts) == 0 {
		return
	}

	for _, sk := range sks {
		if sk.WantStore(s.Name()) {
			sk.Push(s.Name(), pts)
		}
	}
}
