package device

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Event category for access-control attendance records.
const (
	EventMajorACS         = 0x5
	EventMinorAttendance  = 0x26
	DefaultFetchTimeout   = 15 * time.Second
	statusPayloadShort    = 4
	statusPayloadWithCode = 8
)

// Retriever drives one asynchronous event query at a time over an open
// session. A session supports exactly one outstanding request.
type Retriever struct {
	session *SessionManager

	// Timeout bounds the wait for the terminal status callback. Zero means
	// wait until ctx is done (continuous listen use).
	Timeout time.Duration

	// OnProgress, when set, is invoked for each PROGRESS callback.
	OnProgress func()
}

// NewRetriever builds a retriever with the default single-shot timeout.
func NewRetriever(session *SessionManager) *Retriever {
	return &Retriever{session: session, Timeout: DefaultFetchTimeout}
}

type statusSignal struct {
	status  uint32
	errCode uint32
	hasCode bool
}

// Fetch retrieves every event in the window described by cond. It returns
// once the device signals stream completion, the deadline elapses, or ctx is
// cancelled. The native request handle is released on every exit path.
//
// Records with an empty employee number are heartbeat or non-attendance
// entries and are dropped during decoding; they never reach the batch.
func (r *Retriever) Fetch(ctx context.Context, cond EventCond) ([]RawEvent, error) {
	if r == nil || r.session == nil {
		return nil, errors.New("device: retriever has no session")
	}
	if !r.session.Connected() {
		return nil, errors.New("device: fetch on closed session")
	}

	var (
		mu    sync.Mutex
		batch []RawEvent
	)
	done := make(chan statusSignal, 1)
	var once sync.Once

	cb := func(kind CallbackKind, payload []byte) {
		switch kind {
		case CallbackData:
			event, err := DecodeRawEvent(payload)
			if err != nil {
				log.Warn().Err(err).Msg("skipping undecodable event record")
				return
			}
			if event.EmployeeNo == "" {
				return
			}
			mu.Lock()
			batch = append(batch, event)
			mu.Unlock()
		case CallbackStatus:
			signal, ok := decodeStatusPayload(payload)
			if !ok {
				log.Warn().Int("len", len(payload)).Msg("unexpected status payload length")
				return
			}
			once.Do(func() { done <- signal })
		case CallbackProgress:
			if r.OnProgress != nil {
				r.OnProgress()
			}
		}
	}

	requestHandle, err := r.session.cap.StartEventQuery(r.session.Handle(), cond, cb)
	if err != nil {
		return nil, err
	}
	defer r.session.cap.StopEventQuery(requestHandle)

	var deadline <-chan time.Time
	if r.Timeout > 0 {
		timer := time.NewTimer(r.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case signal := <-done:
		if signal.hasCode && signal.errCode != 0 {
			return nil, &TransportError{Code: int(signal.errCode)}
		}
		mu.Lock()
		defer mu.Unlock()
		log.Debug().
			Int("events", len(batch)).
			Uint32("status", signal.status).
			Time("window_start", cond.Start).
			Time("window_end", cond.End).
			Msg("event stream completed")
		return batch, nil
	case <-deadline:
		return nil, &TimeoutError{Deadline: r.Timeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// decodeStatusPayload splits the terminal status callback payload: 4 bytes
// carry a status code only, 8 bytes carry status plus a device error code.
func decodeStatusPayload(payload []byte) (statusSignal, bool) {
	switch len(payload) {
	case statusPayloadShort:
		return statusSignal{status: binary.LittleEndian.Uint32(payload)}, true
	case statusPayloadWithCode:
		return statusSignal{
			status:  binary.LittleEndian.Uint32(payload[:4]),
			errCode: binary.LittleEndian.Uint32(payload[4:]),
			hasCode: true,
		}, true
	default:
		return statusSignal{}, false
	}
}
