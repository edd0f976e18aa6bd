package syncer

import (
	"context"
	"time"

	"github.com/cidatech/attendance-agent/internal/device"
	"github.com/cidatech/attendance-agent/internal/sink"
)

// Device clocks resolve whole seconds, so the next window opens one second
// past the watermark. A device emitting several events within the watermark
// second can lose the later ones across runs; this matches the upstream
// windowing contract and is not corrected here.
const windowAdvance = time.Second

// epochFloor is the window start for a device that has never synced.
func epochFloor(loc *time.Location) time.Time {
	return time.Date(2000, time.January, 1, 0, 0, 0, 0, loc)
}

// WindowStart resolves where the next sync window begins for a device:
// the sink's watermark plus one second, or the fixed epoch floor in the
// device's zone when the device has never synced.
func WindowStart(ctx context.Context, store sink.Sink, identity device.Identity, loc *time.Location) (time.Time, error) {
	last, ok, err := store.LastSyncedTime(ctx, identity.Model, identity.Serial)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return epochFloor(loc), nil
	}
	return last.In(loc).Add(windowAdvance), nil
}
