package generate

import (
	"context"
	"time"
)

const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
)

// gate serializes generations: a bounded queue in front of a single in-flight slot.
type gate struct {
	modelID string
	queueCh chan struct{}
	genCh   chan struct{}
	maxWait time.Duration
}

func newGate(modelID string, depth int, maxWait time.Duration) *gate {
	if depth <= 0 {
		depth = defaultMaxQueueDepth
	}
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	return &gate{
		modelID: modelID,
		queueCh: make(chan struct{}, depth),
		genCh:   make(chan struct{}, 1),
		maxWait: maxWait,
	}
}

// acquire reserves a queue slot and then the in-flight slot.
// Returns a release func to be deferred.
func (g *gate) acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	timer := time.NewTimer(g.maxWait)
	defer timer.Stop()
	select {
	case g.queueCh <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		generationRejections.WithLabelValues(g.modelID, "queue_full").Inc()
		return func() {}, tooBusyError{modelID: g.modelID}
	}
	queueDepth.WithLabelValues(g.modelID).Set(float64(len(g.queueCh)))

	acquired := false
	defer func() {
		if !acquired {
			<-g.queueCh
			queueDepth.WithLabelValues(g.modelID).Set(float64(len(g.queueCh)))
		}
	}()
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer2 := time.NewTimer(g.maxWait)
	defer timer2.Stop()
	select {
	case g.genCh <- struct{}{}:
		acquired = true
		return func() {
			<-g.genCh
			<-g.queueCh
			queueDepth.WithLabelValues(g.modelID).Set(float64(len(g.queueCh)))
		}, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer2.C:
		generationRejections.WithLabelValues(g.modelID, "wait_timeout").Inc()
		return func() {}, tooBusyError{modelID: g.modelID}
	}
}
