package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/cidatech/attendance-agent/internal/device"
	"github.com/cidatech/attendance-agent/internal/sink"
)

// memorySink keeps persisted batches in memory and derives the watermark
// from them, like the real variants derive it from stored data.
type memorySink struct {
	mu         sync.Mutex
	records    []sink.Record
	persistErr error
	lastErr    error
}

func (m *memorySink) LastSyncedTime(ctx context.Context, deviceModel, deviceSerial string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastErr != nil {
		return time.Time{}, false, m.lastErr
	}
	var max time.Time
	found := false
	for _, record := range m.records {
		if record.DeviceModel != deviceModel || record.DeviceSerial != deviceSerial {
			continue
		}
		if !found || record.EventTime.After(max) {
			max = record.EventTime
			found = true
		}
	}
	return max, found, nil
}

func (m *memorySink) Persist(ctx context.Context, records []sink.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.persistErr != nil {
		return m.persistErr
	}
	m.records = append(m.records, records...)
	return nil
}

func (m *memorySink) Close() error { return nil }

func (m *memorySink) Name() string { return "memory" }

func (m *memorySink) persisted() []sink.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sink.Record, len(m.records))
	copy(out, m.records)
	return out
}

// fakeCapability serves scripted XML and replays events whose timestamps
// fall inside the queried window, then signals completion.
type fakeCapability struct {
	mu sync.Mutex

	loginErr error
	events   []fakeEvent
	windows  []device.EventCond

	stopCalls int
}

type fakeEvent struct {
	employeeNo string
	at         time.Time
}

const (
	testDeviceXML = `<DeviceInfo><model>DS-1</model><serialNumber>SN123</serialNumber></DeviceInfo>`
	testTimeXML   = `<Time><localTime>2024-06-01T12:00:00</localTime><timeZone>GMT-04:00:00</timeZone></Time>`
)

func (f *fakeCapability) Init() error { return nil }

func (f *fakeCapability) Cleanup() {}

func (f *fakeCapability) Login(address, user, password string, port int) (int, error) {
	if f.loginErr != nil {
		return -1, f.loginErr
	}
	return 1, nil
}

func (f *fakeCapability) Logout(handle int) {}

func (f *fakeCapability) QueryXML(handle int, request string) (string, error) {
	switch request {
	case "GET /ISAPI/System/deviceInfo":
		return testDeviceXML, nil
	case "GET /ISAPI/System/time":
		return testTimeXML, nil
	}
	return "", nil
}

func (f *fakeCapability) StartEventQuery(handle int, cond device.EventCond, cb device.Callback) (int, error) {
	f.mu.Lock()
	f.windows = append(f.windows, cond)
	events := make([]fakeEvent, len(f.events))
	copy(events, f.events)
	f.mu.Unlock()

	go func() {
		for _, event := range events {
			if event.at.Before(cond.Start) || event.at.After(cond.End) {
				continue
			}
			cb(device.CallbackData, device.EncodeRawEvent(device.RawEvent{
				Major:      cond.Major,
				Minor:      cond.Minor,
				EmployeeNo: event.employeeNo,
			}, event.at))
		}
		cb(device.CallbackStatus, []byte{0, 0, 0, 0})
	}()
	return 9, nil
}

func (f *fakeCapability) StopEventQuery(requestHandle int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
}

func (f *fakeCapability) queriedWindows() []device.EventCond {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]device.EventCond, len(f.windows))
	copy(out, f.windows)
	return out
}
