package snapshot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.skia.org/fleet/botpolicy/go/config"
	"go.skia.org/fleet/go/metrics2"
	"go.skia.org/fleet/go/skerr"
	"go.skia.org/fleet/go/sklog"
)

// Loader produces a freshly fetched, parsed, but not yet validated
// configuration. Implementations typically read a file or a config service.
type Loader func(ctx context.Context) (*config.Config, error)

// Tracker owns the active snapshot and keeps it up to date.
//
// Readers call Get on every bot connection; the returned snapshot stays
// valid for as long as the caller holds it, even if a newer one is installed
// mid-resolution. Reload cycles are serialized: only one load-and-validate
// runs at a time, and a cycle that fails for any reason leaves the previous
// snapshot authoritative. An invalid configuration push therefore never
// loosens bot policy.
type Tracker struct {
	loader Loader

	// updateMtx serializes Update; current is atomic so Get never blocks.
	updateMtx sync.Mutex
	current   atomic.Pointer[Snapshot]

	reloadSuccess metrics2.Counter
	reloadFailure metrics2.Counter
	reloadLive    metrics2.Liveness
}

// NewTracker returns a Tracker with no snapshot installed. Call Update once
// before serving any bots; Get returns nil until the first successful
// update, and a nil snapshot must be treated as "reject every bot".
func NewTracker(loader Loader) *Tracker {
	return &Tracker{
		loader:        loader,
		reloadSuccess: metrics2.GetCounter("botpolicy_config_reload", map[string]string{"result": "success"}),
		reloadFailure: metrics2.GetCounter("botpolicy_config_reload", map[string]string{"result": "failure"}),
		reloadLive:    metrics2.NewLiveness("botpolicy_config_reload"),
	}
}

// Get returns the active snapshot, or nil if no configuration has ever
// validated successfully.
func (t *Tracker) Get() *Snapshot {
	return t.current.Load()
}

// Update runs one load-and-validate cycle and, on success, atomically swaps
// the new snapshot in. The previous snapshot object is left untouched for
// in-flight readers.
func (t *Tracker) Update(ctx context.Context) error {
	t.updateMtx.Lock()
	defer t.updateMtx.Unlock()

	cfg, err := t.loader(ctx)
	if err != nil {
		t.reloadFailure.Inc(1)
		return skerr.Wrapf(err, "loading bot config")
	}
	s, err := Build(cfg)
	if err != nil {
		t.reloadFailure.Inc(1)
		return skerr.Wrapf(err, "validating bot config")
	}
	t.current.Store(s)
	t.reloadSuccess.Inc(1)
	t.reloadLive.Reset()
	sklog.Infof("Installed bot config snapshot %s: %d bot groups, %d machine types.", s.Revision(), len(s.cfg.BotGroup), len(s.machineTypes))
	return nil
}

// Start reloads the configuration at the given interval until the context
// is cancelled. Failed reloads are logged and retried at the next tick.
func (t *Tracker) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := t.Update(ctx); err != nil {
					sklog.Errorf("Failed to reload bot config: %s", err)
				}
			}
		}
	}()
}
