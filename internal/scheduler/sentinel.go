package scheduler

// sentinelGate enforces spec §4.8 step 4's ordering rule within one
// entity: every positive-priority task must finish before any
// negative-priority task for the same entity starts running. It is
// created lazily, the first time both priority classes are non-empty for
// an entity, and is owned exclusively by the scheduler's single
// event-processing goroutine (no locking required).
type sentinelGate struct {
	ready             chan struct{}
	closed            bool
	remainingPositive int
}

func newSentinelGate(outstandingPositive int) *sentinelGate {
	g := &sentinelGate{
		ready:             make(chan struct{}),
		remainingPositive: outstandingPositive,
	}
	if outstandingPositive == 0 {
		close(g.ready)
		g.closed = true
	}
	return g
}

// positiveFinished records that one positive-priority task under this
// gate reached a terminal outcome, closing the gate once none remain.
func (g *sentinelGate) positiveFinished() {
	if g.closed {
		return
	}
	g.remainingPositive--
	if g.remainingPositive <= 0 {
		close(g.ready)
		g.closed = true
	}
}
