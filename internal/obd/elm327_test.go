package obd

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRPM(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		line    string
		want    int
		wantErr bool
	}{
		{name: "spaces on", line: "41 0C 1A F8", want: 1726},
		{name: "spaces off", line: "410C1AF8", want: 1726},
		{name: "idle", line: "41 0C 0D 00", want: 832},
		{name: "zero", line: "41 0C 00 00", want: 0},
		{name: "short", line: "41 0C 1A", wantErr: true},
		{name: "wrong pid", line: "41 05 7B", wantErr: true},
		{name: "no data", line: "NO DATA", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRPM(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRPMNoData(t *testing.T) {
	t.Parallel()

	_, err := ParseRPM("NO DATA")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestParseCoolantTemp(t *testing.T) {
	t.Parallel()

	got, err := ParseCoolantTemp("41 05 7B")
	require.NoError(t, err)
	assert.Equal(t, 83, got)

	// sensors read down to -40
	got, err = ParseCoolantTemp("41 05 00")
	require.NoError(t, err)
	assert.Equal(t, -40, got)
}

func TestParseVoltage(t *testing.T) {
	t.Parallel()

	got, err := ParseVoltage("13.8V")
	require.NoError(t, err)
	assert.InDelta(t, 13.8, got, 1e-9)

	got, err = ParseVoltage("  12.1V ")
	require.NoError(t, err)
	assert.InDelta(t, 12.1, got, 1e-9)

	_, err = ParseVoltage("garbage")
	assert.Error(t, err)
}

func TestParseDTCs(t *testing.T) {
	t.Parallel()

	t.Run("single code with padding", func(t *testing.T) {
		codes, err := ParseDTCs("43 01 33 00 00 00 00")
		require.NoError(t, err)
		assert.Equal(t, []string{"P0133"}, codes)
	})

	t.Run("multiple systems", func(t *testing.T) {
		// 0x01,0x33 -> P0133; 0x43,0x00 -> C0300; 0xC1,0x20 -> U0120
		codes, err := ParseDTCs("43 01 33 43 00 C1 20")
		require.NoError(t, err)
		assert.Equal(t, []string{"P0133", "C0300", "U0120"}, codes)
	})

	t.Run("no stored codes", func(t *testing.T) {
		codes, err := ParseDTCs("43 00 00 00 00 00 00")
		require.NoError(t, err)
		assert.Empty(t, codes)
	})

	t.Run("wrong mode", func(t *testing.T) {
		_, err := ParseDTCs("41 0C 1A F8")
		assert.Error(t, err)
	})

	t.Run("odd byte count", func(t *testing.T) {
		_, err := ParseDTCs("43 01 33 00 00")
		assert.NoError(t, err)
		_, err = ParseDTCs("43 01")
		assert.Error(t, err)
	})
}

// fakeMux answers each command from a reply table, fanning the reply out to
// all subscribers the way Monitor does.
type fakeMux struct {
	mu          sync.Mutex
	replies     map[string]string
	subscribers map[string]chan string
	sent        []string
}

func newFakeMux(replies map[string]string) *fakeMux {
	return &fakeMux{replies: replies, subscribers: make(map[string]chan string)}
}

func (f *fakeMux) Subscribe() (string, chan string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := randomID()
	ch := make(chan string, 16)
	f.subscribers[id] = ch
	return id, ch
}

func (f *fakeMux) Unsubscribe(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subscribers[id]; ok {
		close(ch)
		delete(f.subscribers, id)
	}
}

func (f *fakeMux) SendCommand(command string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, command)
	reply, ok := f.replies[command]
	if !ok {
		reply = "NO DATA"
	}
	for _, ch := range f.subscribers {
		select {
		case ch <- reply:
		default:
		}
	}
	return nil
}

func (f *fakeMux) Initialize() error             { return nil }
func (f *fakeMux) Monitor(context.Context) error { return nil }
func (f *fakeMux) Close() error                  { return nil }

func TestPollerFullSnapshot(t *testing.T) {
	t.Parallel()

	mux := newFakeMux(map[string]string{
		CmdEngineRPM:      "41 0C 0D 00",
		CmdCoolantTemp:    "41 05 7B",
		CmdBatteryVoltage: "13.9V",
		CmdTroubleCodes:   "43 03 01 00 00 00 00",
	})
	poller := NewPoller(mux, 100*time.Millisecond)

	snap, err := poller.Poll(context.Background())
	require.NoError(t, err)

	require.NotNil(t, snap.RPM)
	assert.Equal(t, 832, *snap.RPM)
	require.NotNil(t, snap.CoolantC)
	assert.Equal(t, 83, *snap.CoolantC)
	require.NotNil(t, snap.BatteryV)
	assert.InDelta(t, 13.9, *snap.BatteryV, 1e-9)
	assert.Equal(t, []string{"P0301"}, snap.DTCs)
	assert.False(t, snap.RecordedAt.IsZero())
}

func TestPollerPartialAnswers(t *testing.T) {
	t.Parallel()

	// Vehicle answers RPM only; everything else times out or is NO DATA.
	mux := newFakeMux(map[string]string{
		CmdEngineRPM: "41 0C 1A F8",
	})
	poller := NewPoller(mux, 20*time.Millisecond)

	snap, err := poller.Poll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap.RPM)
	assert.Equal(t, 1726, *snap.RPM)
	assert.Nil(t, snap.CoolantC)
	assert.Nil(t, snap.BatteryV)
	assert.Empty(t, snap.DTCs)
}

func TestPollerNoAnswers(t *testing.T) {
	t.Parallel()

	mux := newFakeMux(nil)
	poller := NewPoller(mux, 20*time.Millisecond)

	_, err := poller.Poll(context.Background())
	assert.Error(t, err)
}

func TestPollerContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mux := newFakeMux(nil)
	poller := NewPoller(mux, time.Second)

	_, err := poller.Poll(ctx)
	assert.Error(t, err)
}
