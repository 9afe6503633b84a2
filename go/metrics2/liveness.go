package metrics2

import (
	"sync"
	"time"
)

const (
	measurementLiveness = "liveness_s"
)

// Liveness keeps a time-since-last-successful-update metric.
//
// The unit of the metric is seconds.
//
// It is used to keep track of periodic processes to make sure that they are
// running successfully. Every liveness metric should have a corresponding
// alert set up that will fire if the time-since-last-successful-update metric
// gets too large.
type Liveness interface {
	// Get returns the current value of the Liveness in seconds.
	Get() int64

	// ManualReset sets the last-successful-update time of the Liveness to
	// a specific value. Useful for tracking processes whose lifetimes are
	// outside of that of the current process, but should not be needed in
	// most cases.
	ManualReset(lastSuccessfulUpdate time.Time)

	// Reset should be called when some work has been successfully
	// completed.
	Reset()
}

// liveness implements Liveness.
type liveness struct {
	lastSuccessfulUpdate time.Time
	m                    Int64Metric
	mtx                  sync.Mutex
}

// NewLiveness implements Client.
func (p *promClient) NewLiveness(name string, tags ...map[string]string) Liveness {
	t := map[string]string{"name": name}
	l := &liveness{
		lastSuccessfulUpdate: time.Now(),
		m:                    p.GetInt64Metric(measurementLiveness, append(tags, t)...),
	}
	l.update()
	go func() {
		for range time.Tick(time.Minute) {
			l.update()
		}
	}()
	return l
}

// updateLocked sets the value of the Liveness. Assumes the caller holds mtx.
func (l *liveness) updateLocked() {
	l.m.Update(int64(time.Since(l.lastSuccessfulUpdate).Seconds()))
}

// update sets the value of the Liveness.
func (l *liveness) update() {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.updateLocked()
}

// Get implements Liveness.
func (l *liveness) Get() int64 {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.m.Get()
}

// ManualReset implements Liveness.
func (l *liveness) ManualReset(lastSuccessfulUpdate time.Time) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.lastSuccessfulUpdate = lastSuccessfulUpdate
	l.updateLocked()
}

// Reset implements Liveness.
func (l *liveness) Reset() {
	l.ManualReset(time.Now())
}

var _ Liveness = (*liveness)(nil)
