package obd

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
)

// MockPort implements Porter as a scripted adapter: every written command
// is answered from the canned reply table. It lets the full service run
// without a vehicle attached.
type MockPort struct {
	mu       sync.Mutex
	pending  bytes.Buffer
	dataCond *sync.Cond
	closed   bool
}

// NewMockMux creates a Mux backed by a MockPort.
func NewMockMux() *Mux[*MockPort] {
	return NewMux(NewMockPort())
}

// NewMockPort creates a scripted adapter port.
func NewMockPort() *MockPort {
	p := &MockPort{}
	p.dataCond = sync.NewCond(&p.mu)
	return p
}

// Write answers the command immediately by queueing the canned reply for
// the next Read.
func (p *MockPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("port closed")
	}

	cmd := strings.ToUpper(strings.TrimSpace(string(b)))
	reply, ok := mockReplies[cmd]
	if !ok {
		reply = "OK"
	}
	p.pending.WriteString(reply + "\r>")
	p.dataCond.Signal()
	return len(b), nil
}

// Read blocks until a reply is pending or the port is closed.
func (p *MockPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.closed && p.pending.Len() == 0 {
		p.dataCond.Wait()
	}
	if p.closed {
		return 0, io.EOF
	}
	return p.pending.Read(b)
}

func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.dataCond.Broadcast()
	return nil
}

// mockReplies mimics a warm idling four-cylinder with one stored misfire
// code.
var mockReplies = map[string]string{
	CmdEngineRPM:      "41 0C 0D 00", // 832 rpm
	CmdCoolantTemp:    "41 05 7B",    // 83 C
	CmdBatteryVoltage: "13.9V",
	CmdTroubleCodes:   "43 03 01 00 00 00 00", // P0301
	"ATZ":             "ELM327 v1.5",
	"ATE0":            "OK",
	"ATL0":            "OK",
	"ATH0":            "OK",
	"ATSP0":           "OK",
}

// TestablePort implements Porter with configurable behaviour for testing.
// It provides fine-grained control over reads, writes, and errors.
type TestablePort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set
	ReadError error

	// WriteError is returned by the next Write call if set
	WriteError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// ReadCalls records the number of Read calls
	ReadCalls int

	// WriteCalls records the number of Write calls
	WriteCalls int

	// ReadTimeout is the current read timeout
	ReadTimeout time.Duration

	// BlockReads causes Read to block until data is added or Close is called
	BlockReads bool

	readCond *sync.Cond
}

// NewTestablePort creates a new TestablePort for testing.
func NewTestablePort() *TestablePort {
	tp := &TestablePort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	tp.readCond = sync.NewCond(&tp.mu)
	return tp
}

// Read reads from the read buffer, optionally simulating errors.
func (t *TestablePort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++

	if t.Closed {
		return 0, errors.New("port closed")
	}

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if t.BlockReads && t.ReadBuffer.Len() == 0 {
		for !t.Closed && t.ReadBuffer.Len() == 0 {
			t.readCond.Wait()
		}
		if t.Closed {
			return 0, errors.New("port closed")
		}
	}

	return t.ReadBuffer.Read(p)
}

// Write writes to the write buffer, optionally simulating errors.
func (t *TestablePort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++

	if t.Closed {
		return 0, errors.New("port closed")
	}

	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}

	return t.WriteBuffer.Write(p)
}

// Close marks the port as closed and wakes any blocked readers.
func (t *TestablePort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.readCond.Broadcast()

	return t.CloseError
}

// SetReadTimeout implements TimeoutPorter.
func (t *TestablePort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadTimeout = timeout
	return nil
}

// AddReadData adds data to be returned by subsequent Read calls.
func (t *TestablePort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
	t.readCond.Signal()
}

// GetWrittenData returns all data written to the port.
func (t *TestablePort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.WriteBuffer.Bytes()
}
