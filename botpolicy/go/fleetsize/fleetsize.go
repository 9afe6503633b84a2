// Package fleetsize runs the control loop that keeps the leased-machine
// fleet at its scheduled size.
//
// On every tick the controller walks the machine types of the active
// snapshot, computes each one's target size from its schedule and current
// utilization, and forwards the target to the external leasing provider.
// Actually acquiring or releasing leases is the provider's problem.
package fleetsize

import (
	"context"
	"time"

	multierror "github.com/hashicorp/go-multierror"

	"go.skia.org/fleet/botpolicy/go/config"
	"go.skia.org/fleet/botpolicy/go/schedule"
	"go.skia.org/fleet/botpolicy/go/snapshot"
	"go.skia.org/fleet/go/metrics2"
	"go.skia.org/fleet/go/skerr"
	"go.skia.org/fleet/go/sklog"
)

// SnapshotSource provides the active configuration snapshot. Implemented by
// snapshot.Tracker.
type SnapshotSource interface {
	Get() *snapshot.Snapshot
}

// LeaseProvider receives the computed target sizes. Implementations talk to
// the actual machine-leasing service.
type LeaseProvider interface {
	// SetTargetSize requests that the pool for the given machine type be
	// grown or shrunk to size machines.
	SetTargetSize(ctx context.Context, mt *config.MachineType, size int) error
}

// UtilizationSource reports how many machines of a machine type are
// currently in use.
type UtilizationSource interface {
	Utilization(ctx context.Context, machineType string) (int, error)
}

// Controller periodically recomputes and applies target fleet sizes.
type Controller struct {
	source   SnapshotSource
	provider LeaseProvider
	busy     UtilizationSource

	tickLive metrics2.Liveness
}

// NewController returns a Controller. Call Tick directly or Start for a
// periodic loop.
func NewController(source SnapshotSource, provider LeaseProvider, busy UtilizationSource) *Controller {
	return &Controller{
		source:   source,
		provider: provider,
		busy:     busy,
		tickLive: metrics2.NewLiveness("botpolicy_fleetsize_tick"),
	}
}

// Tick recomputes the target size of every machine type in the active
// snapshot and forwards each to the leasing provider. Failures for one
// machine type do not stop the others; all failures are reported together.
func (c *Controller) Tick(ctx context.Context) error {
	s := c.source.Get()
	if s == nil {
		return skerr.Fmt("no validated bot config is available")
	}

	var errs *multierror.Error
	for _, entry := range s.MachineTypes() {
		mt := entry.MachineType
		utilization, err := c.busy.Utilization(ctx, mt.Name)
		if err != nil {
			errs = multierror.Append(errs, skerr.Wrapf(err, "reading utilization of %q", mt.Name))
			continue
		}
		target := schedule.TargetSize(ctx, mt, utilization)
		metrics2.GetInt64Metric("botpolicy_fleetsize_target", map[string]string{"machine_type": mt.Name}).Update(int64(target))
		if err := c.provider.SetTargetSize(ctx, mt, target); err != nil {
			errs = multierror.Append(errs, skerr.Wrapf(err, "setting target size of %q to %d", mt.Name, target))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return err
	}
	c.tickLive.Reset()
	return nil
}

// Start runs Tick at the given interval until the context is cancelled.
// Failed ticks are logged and retried at the next interval.
func (c *Controller) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Tick(ctx); err != nil {
					sklog.Errorf("Fleet size tick failed: %s", err)
				}
			}
		}
	}()
}
