package device

import (
	"encoding/binary"
	"sync"
)

// fakeCapability scripts device behavior for tests and records call counts.
type fakeCapability struct {
	mu sync.Mutex

	initErr    error
	loginErr   error
	handle     int
	xmlByQuery map[string]string
	xmlErr     error

	startErr error
	// script runs on its own goroutine once StartEventQuery returns, feeding
	// the callback like the capability-owned thread would.
	script func(cb Callback)

	initCalls    int
	cleanupCalls int
	loginCalls   int
	logoutCalls  int
	startCalls   int
	stopCalls    int
}

func (f *fakeCapability) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	return f.initErr
}

func (f *fakeCapability) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanupCalls++
}

func (f *fakeCapability) Login(address, user, password string, port int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	if f.loginErr != nil {
		return -1, f.loginErr
	}
	return f.handle, nil
}

func (f *fakeCapability) Logout(handle int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
}

func (f *fakeCapability) QueryXML(handle int, request string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.xmlErr != nil {
		return "", f.xmlErr
	}
	return f.xmlByQuery[request], nil
}

func (f *fakeCapability) StartEventQuery(handle int, cond EventCond, cb Callback) (int, error) {
	f.mu.Lock()
	f.startCalls++
	script := f.script
	startErr := f.startErr
	f.mu.Unlock()
	if startErr != nil {
		return -1, startErr
	}
	if script != nil {
		go script(cb)
	}
	return 7, nil
}

func (f *fakeCapability) StopEventQuery(requestHandle int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
}

func (f *fakeCapability) counts() (stop, cleanup, logout int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls, f.cleanupCalls, f.logoutCalls
}

func statusPayload(status uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, status)
	return buf
}

func statusErrorPayload(status, errCode uint32) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[:4], status)
	binary.LittleEndian.PutUint32(buf[4:], errCode)
	return buf
}
