// Package sink persists normalized attendance events to the configured
// downstream store and answers watermark queries against it.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/cidatech/attendance-agent/internal/config"
)

// Record is one attendance event shaped for persistence.
type Record struct {
	EmployeeID   string
	EventTime    time.Time
	EventType    int
	EventMinor   int
	DeviceModel  string
	DeviceSerial string
	DeviceName   string
}

// Sink defines the contract both storage variants implement.
type Sink interface {
	// LastSyncedTime returns the most recent persisted event time for the
	// device identity; ok is false when the device has never synced.
	LastSyncedTime(ctx context.Context, deviceModel, deviceSerial string) (ts time.Time, ok bool, err error)
	// Persist writes the batch atomically: either every record lands or none.
	Persist(ctx context.Context, records []Record) error
	Close() error
	Name() string
}

// New selects the sink variant from configuration. The choice is made once
// here; sync logic never branches on the sink kind.
func New(cfg config.Config) (Sink, error) {
	switch cfg.SinkKind() {
	case "sqlite":
		return newSQLiteSink(cfg.DBURI)
	case "http":
		return newHTTPSink(cfg.APIURL, cfg.APIKey, nil)
	default:
		return nil, errors.Errorf("sink: unknown kind %q", cfg.SinkKind())
	}
}

// Error reports a failed sink operation. For the HTTP variant StatusCode is
// the response status and Body any parsed error payload; for the database
// variant StatusCode is zero.
type Error struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("sink: %s failed: status %d: %s", e.Op, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("sink: %s failed: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("sink: %s failed: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("sink: %s failed", e.Op)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}
