package serial

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/servolink/internal/ports"
)

// ErrPortClosed is returned by TestablePort after Close.
var ErrPortClosed = errors.New("serial port closed")

// TestablePort is an in-memory SerialPort. Reads wait up to ReadTimeout for
// queued data and then return 0, nil, like a real port with a timeout.
type TestablePort struct {
	mu   sync.Mutex
	cond *sync.Cond

	chunks [][]byte
	out    bytes.Buffer
	writes [][]byte

	// ReadTimeout bounds each Read when no data is queued.
	ReadTimeout time.Duration

	// WriteErr, if set, is returned by the next Write.
	WriteErr error

	// ShortWrite makes Write report one byte fewer than requested.
	ShortWrite bool

	// ReadErr, if set, is returned by the next Read.
	ReadErr error

	closed     bool
	closeCalls int
}

// NewTestablePort creates a port with a short read timeout.
func NewTestablePort() *TestablePort {
	p := &TestablePort{ReadTimeout: 10 * time.Millisecond}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Feed queues data to be returned by one Read call.
func (p *TestablePort) Feed(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, append([]byte(nil), data...))
	p.cond.Broadcast()
}

// Read returns the next fed chunk, or 0, nil after ReadTimeout.
func (p *TestablePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ReadErr != nil {
		err := p.ReadErr
		p.ReadErr = nil
		return 0, err
	}

	deadline := time.Now().Add(p.ReadTimeout)
	for len(p.chunks) == 0 && !p.closed {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, nil
		}
		timer := time.AfterFunc(remaining, func() {
			p.mu.Lock()
			p.cond.Broadcast()
			p.mu.Unlock()
		})
		p.cond.Wait()
		timer.Stop()
	}
	if p.closed {
		return 0, ErrPortClosed
	}

	n := copy(b, p.chunks[0])
	if n < len(p.chunks[0]) {
		p.chunks[0] = p.chunks[0][n:]
	} else {
		p.chunks = p.chunks[1:]
	}
	return n, nil
}

// Write records b as one write call.
func (p *TestablePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	if p.WriteErr != nil {
		err := p.WriteErr
		p.WriteErr = nil
		return 0, err
	}
	n := len(b)
	if p.ShortWrite && n > 0 {
		n--
	}
	p.out.Write(b[:n])
	p.writes = append(p.writes, append([]byte(nil), b[:n]...))
	return n, nil
}

// Close marks the port closed and wakes blocked readers.
func (p *TestablePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCalls++
	p.closed = true
	p.cond.Broadcast()
	return nil
}

// Written returns everything written so far.
func (p *TestablePort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.out.Bytes()...)
}

// Writes returns each Write call's payload.
func (p *TestablePort) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	copy(out, p.writes)
	return out
}

// CloseCalls returns how many times Close was called.
func (p *TestablePort) CloseCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCalls
}

// MockOpener hands out preconfigured ports and records open calls.
type MockOpener struct {
	mu    sync.Mutex
	ports map[string][]ports.SerialPort
	errs  map[string][]error
	calls []OpenCall
}

// OpenCall records one Open invocation.
type OpenCall struct {
	Path string
	Opts ports.PortOptions
}

// NewMockOpener creates an opener with nothing registered.
func NewMockOpener() *MockOpener {
	return &MockOpener{
		ports: make(map[string][]ports.SerialPort),
		errs:  make(map[string][]error),
	}
}

// Add registers a port returned by the next successful Open(path).
func (m *MockOpener) Add(path string, port ports.SerialPort) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ports[path] = append(m.ports[path], port)
}

// Fail makes the next Open(path) return err. Failures are consumed before ports.
func (m *MockOpener) Fail(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[path] = append(m.errs[path], err)
}

// Open implements ports.PortOpener.
func (m *MockOpener) Open(path string, opts ports.PortOptions) (ports.SerialPort, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, OpenCall{Path: path, Opts: opts})

	if errs := m.errs[path]; len(errs) > 0 {
		m.errs[path] = errs[1:]
		return nil, errs[0]
	}
	list := m.ports[path]
	if len(list) == 0 {
		return nil, errors.New("no such device: " + path)
	}
	m.ports[path] = list[1:]
	return list[0], nil
}

// Calls returns the recorded Open calls.
func (m *MockOpener) Calls() []OpenCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OpenCall, len(m.calls))
	copy(out, m.calls)
	return out
}

var _ ports.PortOpener = (*MockOpener)(nil)
