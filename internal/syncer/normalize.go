package syncer

import (
	"time"

	"github.com/cidatech/attendance-agent/internal/device"
	"github.com/cidatech/attendance-agent/internal/sink"
)

// Normalize shapes raw device records for persistence: empty employee ids
// are dropped, the device identity and site name are attached, and each
// per-record timestamp is converted with the zone resolved at session open.
// A device whose offset changes mid-run (e.g. a DST transition) still gets
// the session-open zone for every record in the run; the upstream protocol
// does not reconcile this and neither do we.
func Normalize(raw []device.RawEvent, identity device.Identity, loc *time.Location) []sink.Record {
	records := make([]sink.Record, 0, len(raw))
	for _, event := range raw {
		if event.EmployeeNo == "" {
			continue
		}
		records = append(records, sink.Record{
			EmployeeID:   event.EmployeeNo,
			EventTime:    event.Time(loc),
			EventType:    int(event.Major),
			EventMinor:   int(event.Minor),
			DeviceModel:  identity.Model,
			DeviceSerial: identity.Serial,
			DeviceName:   identity.DisplayName,
		})
	}
	return records
}
