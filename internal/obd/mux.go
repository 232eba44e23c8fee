// Package obd provides an abstraction over a serial OBD-II adapter with the
// ability for multiple clients to subscribe to response lines from the
// adapter and send commands to a single port.
package obd

import (
	"bufio"
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

var ErrWriteFailed = fmt.Errorf("failed to write to adapter port")

// Mux is a generic serial port multiplexer that allows multiple clients to
// subscribe to response lines from a single OBD adapter.
type Mux[T Porter] struct {
	port         T
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// Muxer defines the interface for the Mux type.
type Muxer interface {
	// Subscribe creates a new channel for receiving response lines from the
	// adapter. The channel ID is used to identify the unique channel when
	// unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// SendCommand writes the provided command to the adapter.
	SendCommand(string) error
	// Monitor reads response lines from the adapter and sends them to the
	// subscribed channels.
	Monitor(context.Context) error
	// Initialize puts the adapter into a known state for parsing.
	Initialize() error
	// Close closes all subscribed channels and closes the port.
	Close() error
}

// NewMux creates a Mux instance backed by the given port.
func NewMux[T Porter](port T) *Mux[T] {
	return &Mux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

// NewRealMux creates a Mux instance backed by a real serial port at the
// given path using the provided serial options.
func NewRealMux(path string, opts PortOptions) (*Mux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return NewMux[serial.Port](port), nil
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe registers a new response channel. The channel is buffered so a
// reply fanned out between a subscriber's send and its receive is not lost.
func (m *Mux[T]) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string, 16)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the mux.
func (m *Mux[T]) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// Initialize resets the adapter and sets the output modes required for
// parsing: echo off, linefeeds off, headers off, automatic protocol.
func (m *Mux[T]) Initialize() error {
	for _, command := range []string{
		"ATZ",   // reset all
		"ATE0",  // echo off
		"ATL0",  // linefeeds off
		"ATH0",  // headers off
		"ATSP0", // protocol auto
	} {
		if err := m.SendCommand(command); err != nil {
			return fmt.Errorf("failed to send init command %q: %w", command, err)
		}
		// ATZ resets the UART; the adapter needs a moment before the
		// next command or it drops characters.
		if command == "ATZ" {
			time.Sleep(time.Second)
		}
	}
	return nil
}

// SendCommand sends a command to the adapter. ELM327 commands are
// terminated with a carriage return.
func (m *Mux[T]) SendCommand(command string) error {
	m.commandMu.Lock()
	defer m.commandMu.Unlock()
	if !bytes.HasSuffix([]byte(command), []byte("\r")) {
		command += "\r"
	}
	n, err := m.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// scanResponses is a bufio.SplitFunc for ELM327 output: responses are
// terminated by carriage returns and the adapter emits a bare ">" prompt
// when idle, which also ends a line.
func scanResponses(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n>"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Monitor reads response lines from the adapter and fans them out to
// subscribers. Blank lines and prompt residue are dropped.
func (m *Mux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(m.port)
	scan.Split(scanResponses)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// The blocking scan.Scan runs in its own goroutine so that it does not
	// interfere with the outer loop awaiting lines and context cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			line := bytes.TrimSpace(scan.Bytes())
			if len(line) == 0 {
				continue
			}
			select {
			case lineChan <- string(line):
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			// channel closed: done reading from the port
			if !ok {
				if err := scan.Err(); err != nil {
					return err
				}
				return nil
			}
			m.closingMu.Lock()
			if m.closing {
				m.closingMu.Unlock()
				return nil
			}
			m.closingMu.Unlock()

			m.subscriberMu.Lock()
			for _, ch := range m.subscribers {
				select {
				case ch <- line:
				default:
					// skip full channels so one slow subscriber cannot
					// stall the reader
				}
			}
			m.subscriberMu.Unlock()
		}
	}
}

func (m *Mux[T]) Close() error {
	m.closingMu.Lock()
	m.closing = true
	m.closingMu.Unlock()

	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	return m.port.Close()
}
