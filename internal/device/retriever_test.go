package device

import (
	"context"
	"testing"
	"time"
)

func openTestSession(t *testing.T, fake *fakeCapability) *SessionManager {
	t.Helper()
	manager := NewSessionManager(fake)
	if err := manager.Open(Credentials{Address: "10.0.0.5", User: "admin", Password: "secret", Port: 8000}); err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(manager.Close)
	return manager
}

func TestFetchCompletedStream(t *testing.T) {
	eventTime := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	fake := &fakeCapability{
		script: func(cb Callback) {
			cb(CallbackData, EncodeRawEvent(RawEvent{Major: EventMajorACS, Minor: EventMinorAttendance, EmployeeNo: "0042"}, eventTime))
			cb(CallbackProgress, nil)
			cb(CallbackData, EncodeRawEvent(RawEvent{Major: EventMajorACS, Minor: EventMinorAttendance, EmployeeNo: ""}, eventTime))
			cb(CallbackStatus, statusPayload(0))
		},
	}
	retriever := NewRetriever(openTestSession(t, fake))
	progress := 0
	retriever.OnProgress = func() { progress++ }

	events, err := retriever.Fetch(context.Background(), EventCond{Major: EventMajorACS, Minor: EventMinorAttendance})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event after empty-id filtering, got %d", len(events))
	}
	if events[0].EmployeeNo != "0042" {
		t.Fatalf("employee no mismatch, got %q", events[0].EmployeeNo)
	}
	if got := events[0].Time(time.UTC); !got.Equal(eventTime) {
		t.Fatalf("event time mismatch, want %v got %v", eventTime, got)
	}
	if progress != 1 {
		t.Fatalf("expected 1 progress notification, got %d", progress)
	}
	if stop, _, _ := fake.counts(); stop != 1 {
		t.Fatalf("expected exactly one StopEventQuery call, got %d", stop)
	}
}

func TestFetchErroredStream(t *testing.T) {
	fake := &fakeCapability{
		script: func(cb Callback) {
			cb(CallbackStatus, statusErrorPayload(2, 5))
		},
	}
	retriever := NewRetriever(openTestSession(t, fake))

	_, err := retriever.Fetch(context.Background(), EventCond{Major: EventMajorACS})
	var transportErr *TransportError
	if !asError(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transportErr.Code != 5 {
		t.Fatalf("expected error code 5, got %d", transportErr.Code)
	}
	if stop, _, _ := fake.counts(); stop != 1 {
		t.Fatalf("expected exactly one StopEventQuery call, got %d", stop)
	}
}

func TestFetchShortStatusPayloadCompletes(t *testing.T) {
	fake := &fakeCapability{
		script: func(cb Callback) {
			cb(CallbackStatus, statusPayload(0))
		},
	}
	retriever := NewRetriever(openTestSession(t, fake))

	events, err := retriever.Fetch(context.Background(), EventCond{Major: EventMajorACS})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected empty batch, got %d events", len(events))
	}
}

func TestFetchTimeoutStillStopsQuery(t *testing.T) {
	fake := &fakeCapability{} // status signal never arrives
	retriever := NewRetriever(openTestSession(t, fake))
	retriever.Timeout = 20 * time.Millisecond

	_, err := retriever.Fetch(context.Background(), EventCond{Major: EventMajorACS})
	var timeoutErr *TimeoutError
	if !asError(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if stop, _, _ := fake.counts(); stop != 1 {
		t.Fatalf("expected exactly one StopEventQuery call, got %d", stop)
	}
}

func TestFetchStartFailure(t *testing.T) {
	fake := &fakeCapability{startErr: &TransportError{Code: -1}}
	retriever := NewRetriever(openTestSession(t, fake))

	_, err := retriever.Fetch(context.Background(), EventCond{Major: EventMajorACS})
	var transportErr *TransportError
	if !asError(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if stop, _, _ := fake.counts(); stop != 0 {
		t.Fatalf("stop must not run when the query never started, got %d calls", stop)
	}
}

func TestFetchContextCancelled(t *testing.T) {
	fake := &fakeCapability{}
	retriever := NewRetriever(openTestSession(t, fake))
	retriever.Timeout = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := retriever.Fetch(ctx, EventCond{Major: EventMajorACS})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if stop, _, _ := fake.counts(); stop != 1 {
		t.Fatalf("expected exactly one StopEventQuery call, got %d", stop)
	}
}

func TestDecodeStatusPayloadLengths(t *testing.T) {
	if _, ok := decodeStatusPayload([]byte{1, 2, 3}); ok {
		t.Fatal("3-byte payload should be rejected")
	}
	signal, ok := decodeStatusPayload(statusPayload(1000))
	if !ok || signal.hasCode {
		t.Fatalf("4-byte payload decoded wrong: %+v ok=%v", signal, ok)
	}
	if signal.status != 1000 {
		t.Fatalf("status mismatch, got %d", signal.status)
	}
	signal, ok = decodeStatusPayload(statusErrorPayload(2, 5))
	if !ok || !signal.hasCode || signal.errCode != 5 {
		t.Fatalf("8-byte payload decoded wrong: %+v ok=%v", signal, ok)
	}
}
