package obd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Mode 01 PIDs and other commands issued by the poller.
const (
	CmdEngineRPM      = "010C"
	CmdCoolantTemp    = "0105"
	CmdBatteryVoltage = "ATRV"
	CmdTroubleCodes   = "03"
)

// ErrNoData is returned when the adapter reports that the vehicle did not
// answer a request.
var ErrNoData = errors.New("adapter returned NO DATA")

// Snapshot is one round of readings from the adapter. Fields are pointers
// because a vehicle may not answer every PID.
type Snapshot struct {
	RPM        *int
	CoolantC   *int
	BatteryV   *float64
	DTCs       []string
	RecordedAt time.Time
}

// ParseRPM decodes a mode 01 PID 0C response ("41 0C A B") into engine RPM.
func ParseRPM(line string) (int, error) {
	data, err := responseBytes(line, "410C", 2)
	if err != nil {
		return 0, err
	}
	return (int(data[0])*256 + int(data[1])) / 4, nil
}

// ParseCoolantTemp decodes a mode 01 PID 05 response ("41 05 A") into
// degrees Celsius.
func ParseCoolantTemp(line string) (int, error) {
	data, err := responseBytes(line, "4105", 1)
	if err != nil {
		return 0, err
	}
	return int(data[0]) - 40, nil
}

// ParseVoltage decodes an ATRV response such as "12.6V" into volts.
func ParseVoltage(line string) (float64, error) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), "V"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable voltage %q", line)
	}
	return v, nil
}

// ParseDTCs decodes a mode 03 response ("43 01 33 ...") into diagnostic
// trouble codes such as "P0133". Zero pairs pad the response and are
// skipped.
func ParseDTCs(line string) ([]string, error) {
	fields := hexFields(line)
	if len(fields) == 0 || fields[0] != "43" {
		return nil, fmt.Errorf("unexpected trouble code response %q", line)
	}
	fields = fields[1:]
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("odd byte count in trouble code response %q", line)
	}

	var codes []string
	for i := 0; i < len(fields); i += 2 {
		a, err := strconv.ParseUint(fields[i], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("bad byte %q in %q", fields[i], line)
		}
		b, err := strconv.ParseUint(fields[i+1], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("bad byte %q in %q", fields[i+1], line)
		}
		if a == 0 && b == 0 {
			continue
		}
		system := [4]byte{'P', 'C', 'B', 'U'}[a>>6]
		codes = append(codes, fmt.Sprintf("%c%d%d%02X", system, (a>>4)&0x3, a&0xF, b))
	}
	return codes, nil
}

// responseBytes validates a mode 01 response against the expected echo
// prefix and returns the data bytes that follow it.
func responseBytes(line, prefix string, want int) ([]byte, error) {
	if strings.Contains(line, "NO DATA") {
		return nil, ErrNoData
	}
	joined := strings.Join(hexFields(line), "")
	if !strings.HasPrefix(joined, prefix) {
		return nil, fmt.Errorf("unexpected response %q: want prefix %s", line, prefix)
	}
	payload := joined[len(prefix):]
	if len(payload) < want*2 {
		return nil, fmt.Errorf("short response %q: want %d data bytes", line, want)
	}

	data := make([]byte, want)
	for i := range data {
		b, err := strconv.ParseUint(payload[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("bad byte in response %q", line)
		}
		data[i] = byte(b)
	}
	return data, nil
}

// hexFields splits a response into hex byte tokens, tolerating adapters
// configured with spaces either on or off.
func hexFields(line string) []string {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 1 && len(fields[0]) > 2 && len(fields[0])%2 == 0 {
		s := fields[0]
		split := make([]string, 0, len(s)/2)
		for i := 0; i < len(s); i += 2 {
			split = append(split, s[i:i+2])
		}
		return split
	}
	return fields
}

// Poller issues PID requests over a Mux and assembles the answers into
// snapshots.
type Poller struct {
	mux     Muxer
	timeout time.Duration
}

// NewPoller creates a Poller over the given mux. A zero timeout defaults
// to two seconds per request.
func NewPoller(mux Muxer, timeout time.Duration) *Poller {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Poller{mux: mux, timeout: timeout}
}

// Poll requests RPM, coolant temperature, battery voltage, and stored
// trouble codes. Unanswered PIDs leave their fields nil; Poll fails only
// when no request gets any answer.
func (p *Poller) Poll(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{RecordedAt: time.Now()}
	answered := false

	if line, err := p.request(ctx, CmdEngineRPM, "41 0C", "410C"); err == nil {
		if rpm, err := ParseRPM(line); err == nil {
			snap.RPM = &rpm
			answered = true
		}
	}
	if line, err := p.request(ctx, CmdCoolantTemp, "41 05", "4105"); err == nil {
		if temp, err := ParseCoolantTemp(line); err == nil {
			snap.CoolantC = &temp
			answered = true
		}
	}
	if line, err := p.request(ctx, CmdBatteryVoltage, "V"); err == nil {
		if volts, err := ParseVoltage(line); err == nil {
			snap.BatteryV = &volts
			answered = true
		}
	}
	if line, err := p.request(ctx, CmdTroubleCodes, "43"); err == nil {
		if codes, err := ParseDTCs(line); err == nil {
			snap.DTCs = codes
			answered = true
		}
	}

	if !answered {
		return nil, fmt.Errorf("no answer from adapter within %s per request", p.timeout)
	}
	return snap, nil
}

// request sends a command and waits for the first subscribed line matching
// one of the given markers.
func (p *Poller) request(ctx context.Context, command string, markers ...string) (string, error) {
	id, ch := p.mux.Subscribe()
	defer p.mux.Unsubscribe(id)

	if err := p.mux.SendCommand(command); err != nil {
		return "", err
	}

	deadline := time.NewTimer(p.timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", fmt.Errorf("timed out waiting for response to %q", command)
		case line, ok := <-ch:
			if !ok {
				return "", fmt.Errorf("mux closed while waiting for response to %q", command)
			}
			for _, marker := range markers {
				if strings.Contains(line, marker) {
					return line, nil
				}
			}
		}
	}
}
