package device

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Credentials address a device login.
type Credentials struct {
	Address  string
	User     string
	Password string
	Port     int
}

// Identity is the (model, serial) pair naming a physical device, plus the
// operator-configured display name. Resolved once per session.
type Identity struct {
	Model       string
	Serial      string
	DisplayName string
}

// SessionManager owns at most one live login handle over a capability and
// guarantees capability cleanup on every exit path.
type SessionManager struct {
	cap Capability

	mu        sync.Mutex
	handle    int
	connected bool
}

// NewSessionManager wraps a capability. The manager starts closed.
func NewSessionManager(capability Capability) *SessionManager {
	return &SessionManager{cap: capability}
}

// Open initializes the capability and logs in. A failed login still performs
// capability cleanup before the error returns. Opening an already-open
// manager is rejected.
func (m *SessionManager) Open(creds Credentials) error {
	if m == nil || m.cap == nil {
		return errors.New("device: session manager has no capability")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected {
		return errors.New("device: session already open")
	}
	if err := m.cap.Init(); err != nil {
		return errors.Wrap(err, "device: capability init failed")
	}
	handle, err := m.cap.Login(creds.Address, creds.User, creds.Password, creds.Port)
	if err != nil {
		m.cap.Cleanup()
		return err
	}
	m.handle = handle
	m.connected = true
	log.Debug().Int("handle", handle).Str("address", creds.Address).Msg("device session opened")
	return nil
}

// Close logs out and cleans up the capability. Idempotent: safe to call
// repeatedly or on a never-opened manager.
func (m *SessionManager) Close() {
	if m == nil || m.cap == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return
	}
	m.cap.Logout(m.handle)
	m.cap.Cleanup()
	m.handle = 0
	m.connected = false
	log.Debug().Msg("device session closed")
}

// Handle returns the live login handle. Valid only while open.
func (m *SessionManager) Handle() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// Connected reports whether a login handle is held.
func (m *SessionManager) Connected() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// ResolveIdentity queries the device info endpoint for model and serial
// number and attaches the configured display name.
func (m *SessionManager) ResolveIdentity(displayName string) (Identity, error) {
	if !m.Connected() {
		return Identity{}, errors.New("device: resolve identity on closed session")
	}
	doc, err := m.cap.QueryXML(m.Handle(), "GET /ISAPI/System/deviceInfo")
	if err != nil {
		return Identity{}, errors.Wrap(err, "device: query device info failed")
	}
	values, err := xmlValues(doc, []string{"model", "serialNumber"})
	if err != nil {
		return Identity{}, errors.Wrap(err, "device: parse device info failed")
	}
	identity := Identity{
		Model:       strings.TrimSpace(values[0]),
		Serial:      strings.TrimSpace(values[1]),
		DisplayName: strings.TrimSpace(displayName),
	}
	if identity.Model == "" || identity.Serial == "" {
		return Identity{}, errors.New("device: device info missing model or serial")
	}
	return identity, nil
}
