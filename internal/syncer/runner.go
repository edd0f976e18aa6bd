// Package syncer coordinates one incremental synchronization run: session
// lifecycle, window resolution, event retrieval, normalization and delivery.
package syncer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cidatech/attendance-agent/internal/config"
	"github.com/cidatech/attendance-agent/internal/device"
	"github.com/cidatech/attendance-agent/internal/sink"
)

// Runner executes synchronization runs against one device and one sink.
type Runner struct {
	Capability device.Capability
	Config     config.Config
	Sink       sink.Sink

	// FetchTimeout bounds the event stream wait per run. Zero selects the
	// retriever default.
	FetchTimeout time.Duration
}

// Run performs a single synchronization pass. The device session is closed
// on every exit path. Persistence happens only after the retrieval reaches a
// terminal state; a failed persist leaves the watermark untouched so the next
// run re-fetches the same window.
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.Capability == nil || r.Sink == nil {
		return errors.New("syncer: runner is not fully wired")
	}
	runLog := log.With().Str("run_id", uuid.NewString()[:8]).Logger()
	started := time.Now()

	manager := device.NewSessionManager(r.Capability)
	if err := manager.Open(device.Credentials{
		Address:  r.Config.IP,
		User:     r.Config.User,
		Password: r.Config.Password,
		Port:     r.Config.Port,
	}); err != nil {
		return err
	}
	defer manager.Close()

	identity, err := manager.ResolveIdentity(r.Config.Name)
	if err != nil {
		return err
	}
	deviceNow, loc, err := manager.ResolveDeviceTime()
	if err != nil {
		return err
	}
	windowStart, err := WindowStart(ctx, r.Sink, identity, loc)
	if err != nil {
		return err
	}
	runLog.Info().
		Str("model", identity.Model).
		Str("serial", identity.Serial).
		Time("window_start", windowStart).
		Time("window_end", deviceNow).
		Msg("synchronizing attendance events")

	retriever := device.NewRetriever(manager)
	if r.FetchTimeout > 0 {
		retriever.Timeout = r.FetchTimeout
	}
	raw, err := retriever.Fetch(ctx, device.EventCond{
		Major: device.EventMajorACS,
		Minor: device.EventMinorAttendance,
		Start: windowStart,
		End:   deviceNow,
	})
	if err != nil {
		return err
	}

	records := Normalize(raw, identity, loc)
	if len(records) == 0 {
		runLog.Info().Dur("elapsed", time.Since(started)).Msg("no new events")
		return nil
	}
	if err := r.Sink.Persist(ctx, records); err != nil {
		return err
	}
	runLog.Info().
		Int("persisted", len(records)).
		Int("discarded", len(raw)-len(records)).
		Str("sink", r.Sink.Name()).
		Dur("elapsed", time.Since(started)).
		Msg("attendance events persisted")
	return nil
}

// Listen runs synchronization passes on a fixed interval until ctx is
// cancelled. Individual run failures are logged and the loop continues;
// the scheduler-in-front model stays supported by calling Run once instead.
func (r *Runner) Listen(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("syncer: listen interval must be positive")
	}
	log.Info().Dur("interval", interval).Msg("starting continuous sync loop")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := r.Run(ctx); err != nil {
			logRunFailure(log.Logger, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func logRunFailure(logger zerolog.Logger, err error) {
	var timeoutErr *device.TimeoutError
	if errors.As(err, &timeoutErr) {
		logger.Warn().Err(err).Msg("sync run timed out; will retry next interval")
		return
	}
	logger.Error().Err(err).Msg("sync run failed")
}
