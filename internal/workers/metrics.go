package workers

import (
	"time"
)

// Metrics returns the current pool metrics.
func (p *Pool) Metrics() PoolMetrics {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.metrics
}

// incrementSubmitted increments the submitted task counter.
func (p *Pool) incrementSubmitted() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics.TasksSubmitted++
}

// taskStarted records a task entering a worker and reports the new in-flight count.
func (p *Pool) taskStarted() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight++
	if p.inFlight > p.metrics.MaxInFlight {
		p.metrics.MaxInFlight = p.inFlight
	}
	p.reportInFlight()
}

// taskFinished records the outcome of a task leaving a worker.
func (p *Pool) taskFinished(d time.Duration, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight--
	if failed {
		p.metrics.TasksFailed++
	} else {
		p.metrics.TasksCompleted++
	}
	p.metrics.TotalDuration += d
	p.reportInFlight()
}

// reportInFlight must be called with p.mu held so gauge updates stay ordered.
func (p *Pool) reportInFlight() {
	if p.gauge != nil {
		p.gauge.SetInFlight(p.inFlight)
	}
}
