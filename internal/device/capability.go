// Package device drives a network access-control device through its vendor
// capability: session lifecycle, time resolution and the asynchronous
// attendance-event retrieval protocol.
package device

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// CallbackKind discriminates the three message types the capability delivers
// while an event query is running.
type CallbackKind int

const (
	// CallbackStatus terminates a query. Payload is 4 bytes (status code) or
	// 8 bytes (status code + device error code), little-endian.
	CallbackStatus CallbackKind = 0
	// CallbackProgress carries no payload of interest.
	CallbackProgress CallbackKind = 1
	// CallbackData carries one fixed-size raw event record.
	CallbackData CallbackKind = 2
)

// Callback receives query messages. The capability invokes it from its own
// thread, concurrently with the caller waiting on the query.
type Callback func(kind CallbackKind, payload []byte)

// EventCond bounds an event query to a category and a time window.
type EventCond struct {
	Major uint32
	Minor uint32
	Start time.Time
	End   time.Time
}

// Capability is the vendor device interface consumed by the agent. Production
// builds back it with the native SDK; tests use fakes.
type Capability interface {
	Init() error
	Cleanup()
	// Login authenticates against the device and returns a session handle.
	// A rejected login returns a *AuthError.
	Login(address, user, password string, port int) (int, error)
	Logout(handle int)
	// QueryXML issues an ISAPI request such as "GET /ISAPI/System/deviceInfo"
	// and returns the raw XML response.
	QueryXML(handle int, request string) (string, error)
	// StartEventQuery begins an asynchronous event retrieval and returns a
	// request handle. A rejected start returns a *TransportError.
	StartEventQuery(handle int, cond EventCond, cb Callback) (int, error)
	StopEventQuery(requestHandle int)
}

// ErrCapabilityUnavailable is returned by NewCapability on builds without the
// vendor SDK linked in.
var ErrCapabilityUnavailable = errors.New("device: vendor SDK capability not available in this build")

// NewCapability constructs the platform device capability. Deployments link a
// vendor SDK binding by overriding this factory; everything else in the agent
// consumes only the Capability interface.
var NewCapability = func() (Capability, error) {
	return nil, ErrCapabilityUnavailable
}

// AuthError reports a login rejected by the device.
type AuthError struct {
	Code    int
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("device: login rejected (code %d)", e.Code)
	}
	return fmt.Sprintf("device: login rejected (code %d): %s", e.Code, e.Message)
}

// TransportError reports an event query that failed to start or that the
// device terminated with a nonzero error code.
type TransportError struct {
	Code    int
	Message string
}

func (e *TransportError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("device: event query failed (code %d)", e.Code)
	}
	return fmt.Sprintf("device: event query failed (code %d): %s", e.Code, e.Message)
}

// TimeoutError reports a query whose status signal never arrived before the
// deadline. Distinct from TransportError so callers can retry with a
// shorter window.
type TimeoutError struct {
	Deadline time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("device: event query timed out after %s", e.Deadline)
}
