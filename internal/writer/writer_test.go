// internal/writer/writer_test.go
package writer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/saj-modbus/internal/status"
)

// ---- fake publisher ----

type fakePublisher struct {
	mu        sync.Mutex
	published []publishCall
	failTopic string
	subs      map[string]func([]byte)
	subErr    error
	closed    bool
}

type publishCall struct {
	topic   string
	payload string
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{subs: map[string]func([]byte){}}
}

func (f *fakePublisher) Publish(topic, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if topic == f.failTopic {
		return errors.New("broker gone")
	}
	f.published = append(f.published, publishCall{topic, payload})
	return nil
}

func (f *fakePublisher) Subscribe(topic string, fn func([]byte)) error {
	if f.subErr != nil {
		return f.subErr
	}
	f.subs[topic] = fn
	return nil
}

func (f *fakePublisher) Close() { f.closed = true }

func (f *fakePublisher) take() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for _, c := range f.published {
		out[c.topic] = c.payload
	}
	f.published = nil
	return out
}

// ---- fake commander ----

type fakeCommander struct {
	limit     float64
	on        *bool
	clock     *time.Time
	err       error
	refreshes int
}

func (f *fakeCommander) SetLimitPower(_ context.Context, w float64) error {
	if f.err != nil {
		return f.err
	}
	f.limit = w
	return nil
}

func (f *fakeCommander) SetPowerOnOff(_ context.Context, on bool) error {
	if f.err != nil {
		return f.err
	}
	f.on = &on
	return nil
}

func (f *fakeCommander) SetClock(_ context.Context, t time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.clock = &t
	return nil
}

func (f *fakeCommander) RequestRefresh() { f.refreshes++ }

// ---- helpers ----

func normalSnapshot() status.Snapshot {
	return status.Snapshot{
		Health: status.HealthOK,
		At:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Fields: status.Fields{
			status.KeySerial:      "H1S2602J2119E01121",
			status.KeyMode:        status.ModeNormal,
			status.KeyModeText:    "Normal",
			status.KeyPower:       1234,
			status.KeyTotalEnergy: 10567.8,
			status.KeyPowerOnOff:  true,
		},
	}
}

// ---- tests ----

func TestMQTTWriter_FirstWriteIsFull(t *testing.T) {
	pub := newFakePublisher()
	w := NewMQTTWriter(pub, "saj", "garage", nil)

	require.NoError(t, w.WriteStatus(normalSnapshot()))
	got := pub.take()

	assert.Equal(t, "1234", got["saj/garage/power"])
	assert.Equal(t, "Normal", got["saj/garage/mpvstatus"])
	assert.Equal(t, "10567.8", got["saj/garage/totalenergy"])
	assert.Equal(t, "ON", got["saj/garage/poweronoff"])
	assert.Equal(t, "ok", got["saj/garage/health"])
	assert.Len(t, got, 7)
}

func TestMQTTWriter_IncrementalOnlyChanged(t *testing.T) {
	pub := newFakePublisher()
	w := NewMQTTWriter(pub, "saj", "garage", nil)

	s := normalSnapshot()
	require.NoError(t, w.WriteStatus(s))
	pub.take()

	s.Fields[status.KeyPower] = 1500
	require.NoError(t, w.WriteStatus(s))

	assert.Equal(t, map[string]string{"saj/garage/power": "1500"}, pub.take())
}

func TestMQTTWriter_FailureForcesFullReassert(t *testing.T) {
	pub := newFakePublisher()
	w := NewMQTTWriter(pub, "saj", "garage", nil)

	require.NoError(t, w.WriteStatus(normalSnapshot()))
	pub.take()

	s := normalSnapshot()
	s.Fields[status.KeyPower] = 1500
	pub.failTopic = "saj/garage/power"
	assert.Error(t, w.WriteStatus(s))
	pub.take()

	pub.failTopic = ""
	require.NoError(t, w.WriteStatus(s))
	assert.Len(t, pub.take(), 7, "every topic re-asserted after a failure")

	require.NoError(t, w.WriteStatus(s))
	assert.Empty(t, pub.take())
}

func TestMQTTWriter_CountersOnlyWhenTrusted(t *testing.T) {
	pub := newFakePublisher()
	w := NewMQTTWriter(pub, "saj", "garage", nil)

	s := normalSnapshot()
	s.Health = status.HealthError
	s.Fields = status.Degrade(s.Fields)
	require.NoError(t, w.WriteStatus(s))

	got := pub.take()
	assert.NotContains(t, got, "saj/garage/totalenergy")
	assert.Equal(t, "0", got["saj/garage/mpvmode"])
	assert.Equal(t, status.NotConnectedText, got["saj/garage/mpvstatus"])
	assert.Equal(t, "error", got["saj/garage/health"])
}

func TestMQTTWriter_UntrustedCountersFrozen(t *testing.T) {
	pub := newFakePublisher()
	w := NewMQTTWriter(pub, "saj", "garage", nil)

	require.NoError(t, w.WriteStatus(normalSnapshot()))
	pub.take()

	s := normalSnapshot()
	s.Fields[status.KeyMode] = 4 // fault
	s.Fields[status.KeyTotalEnergy] = 0.0
	pub.failTopic = "saj/garage/mpvmode"
	assert.Error(t, w.WriteStatus(s))
	got := pub.take()
	assert.NotContains(t, got, "saj/garage/totalenergy")

	// a full re-assert repeats the last trusted counter, never the raw one
	pub.failTopic = ""
	require.NoError(t, w.WriteStatus(s))
	assert.Equal(t, "10567.8", pub.take()["saj/garage/totalenergy"])
}

func TestMQTTWriter_EmptyStringPlaceholder(t *testing.T) {
	pub := newFakePublisher()
	w := NewMQTTWriter(pub, "saj", "garage", nil)

	s := normalSnapshot()
	s.Fields[status.KeyFaultMsg] = ""
	require.NoError(t, w.WriteStatus(s))
	assert.Equal(t, EmptyPayload, pub.take()["saj/garage/faultmsg"])

	s.Fields[status.KeyFaultMsg] = "Code 70: Fan Error"
	require.NoError(t, w.WriteStatus(s))
	assert.Equal(t, map[string]string{"saj/garage/faultmsg": "Code 70: Fan Error"}, pub.take())
}

func TestMQTTWriter_Close(t *testing.T) {
	pub := newFakePublisher()
	NewMQTTWriter(pub, "", "garage", nil).Close()
	assert.True(t, pub.closed)
}

func TestBaseTopic(t *testing.T) {
	assert.Equal(t, "saj/garage", BaseTopic("saj/", "garage"))
	assert.Equal(t, "garage", BaseTopic("", "garage"))
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{7, "7"},
		{uint32(70000), "70000"},
		{0.1, "0.1"},
		{"x", "x"},
		{false, "OFF"},
		{time.Date(2024, 5, 1, 8, 9, 10, 0, time.UTC), "2024-05-01T08:09:10Z"},
	}
	for _, c := range cases {
		got, ok := FormatValue(c.in)
		assert.True(t, ok)
		assert.Equal(t, c.want, got)
	}

	_, ok := FormatValue(struct{}{})
	assert.False(t, ok)
}

func TestBindCommands(t *testing.T) {
	pub := newFakePublisher()
	w := NewMQTTWriter(pub, "saj", "garage", nil)
	cmd := &fakeCommander{}

	require.NoError(t, w.BindCommands(cmd, time.Second))
	require.Len(t, pub.subs, 3)

	pub.subs["saj/garage/set/limitpower"]([]byte(" 150.5 "))
	assert.Equal(t, 150.5, cmd.limit)

	pub.subs["saj/garage/set/poweronoff"]([]byte("OFF"))
	require.NotNil(t, cmd.on)
	assert.False(t, *cmd.on)

	pub.subs["saj/garage/set/datetime"]([]byte("now"))
	require.NotNil(t, cmd.clock)
	assert.True(t, cmd.clock.IsZero())

	pub.subs["saj/garage/set/datetime"]([]byte("2024-05-01T08:00:00Z"))
	assert.Equal(t, 2024, cmd.clock.Year())

	assert.Zero(t, cmd.refreshes)
}

func TestBindCommands_FailureRequestsRefresh(t *testing.T) {
	pub := newFakePublisher()
	w := NewMQTTWriter(pub, "saj", "garage", nil)
	cmd := &fakeCommander{err: errors.New("link down")}

	require.NoError(t, w.BindCommands(cmd, time.Second))

	pub.subs["saj/garage/set/limitpower"]([]byte("100"))
	pub.subs["saj/garage/set/poweronoff"]([]byte("maybe"))
	assert.Equal(t, 2, cmd.refreshes)
}

func TestBindCommands_SubscribeError(t *testing.T) {
	pub := newFakePublisher()
	pub.subErr = errors.New("not authorized")
	w := NewMQTTWriter(pub, "saj", "garage", nil)

	assert.Error(t, w.BindCommands(&fakeCommander{}, time.Second))
}

func TestParseSwitch(t *testing.T) {
	for _, s := range []string{"on", "ON", "true", "1"} {
		v, err := ParseSwitch(s)
		require.NoError(t, err)
		assert.True(t, v)
	}
	for _, s := range []string{"off", "False", "0"} {
		v, err := ParseSwitch(s)
		require.NoError(t, err)
		assert.False(t, v)
	}
	_, err := ParseSwitch("yes")
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestParseDateTime(t *testing.T) {
	v, err := ParseDateTime("")
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	_, err = ParseDateTime("01/05/2024")
	assert.ErrorIs(t, err, ErrBadPayload)
}

// ---- attach ----

type fakeSource struct {
	fn           func(status.Snapshot)
	unsubscribed bool
}

func (f *fakeSource) Subscribe(fn func(status.Snapshot)) func() {
	f.fn = fn
	return func() { f.unsubscribed = true }
}

func TestAttach(t *testing.T) {
	src := &fakeSource{}
	pub := newFakePublisher()
	w := NewMQTTWriter(pub, "saj", "garage", nil)

	detach := Attach(src, w, "mqtt", nil)
	require.NotNil(t, src.fn)

	src.fn(normalSnapshot())
	assert.NotEmpty(t, pub.take())

	// delivery errors are swallowed
	pub.failTopic = "saj/garage/power"
	assert.NotPanics(t, func() { src.fn(normalSnapshot()) })

	detach()
	assert.True(t, src.unsubscribed)
}
