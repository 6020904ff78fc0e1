package sensor

import (
	"encoding/binary"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sweeney/motion-sensor/internal/logic"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFakeSourceEmit(t *testing.T) {
	f := NewFakeSource()
	assert.Error(t, f.Emit(logic.Sample{}), "emit without subscriber")

	var got []logic.Sample
	require.NoError(t, f.Subscribe(func(s logic.Sample) error {
		got = append(got, s)
		return nil
	}))
	assert.True(t, f.Subscribed())

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.EmitAll([]logic.Sample{{Z: 9.8, Time: now}, {Z: -9.8, Time: now.Add(time.Second)}}))
	require.Len(t, got, 2)
	assert.Equal(t, -9.8, got[1].Z)

	require.NoError(t, f.Unsubscribe())
	assert.False(t, f.Subscribed())
	assert.Equal(t, 1, f.Subscribes)
	assert.Equal(t, 1, f.Unsubscribes)
}

func TestFakeSourceRecordsSubscriberErrors(t *testing.T) {
	f := NewFakeSource()
	require.NoError(t, f.Subscribe(func(logic.Sample) error { return logic.ErrMalformedSample }))

	err := f.Emit(logic.Sample{})
	assert.ErrorIs(t, err, logic.ErrMalformedSample)
	assert.Len(t, f.Errors, 1)
}

func TestFakeSourceSubscribeError(t *testing.T) {
	f := NewFakeSource()
	f.SubscribeError = errors.New("offline")
	assert.Error(t, f.Subscribe(func(logic.Sample) error { return nil }))
	assert.Zero(t, f.Subscribes)
}

func TestDecodeSample(t *testing.T) {
	s, err := DecodeSample([]byte(`{"x":0.5,"y":-1.25,"z":9.81,"timestamp":1767225600000}`))
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.X)
	assert.Equal(t, -1.25, s.Y)
	assert.Equal(t, 9.81, s.Z)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), s.Time)
}

func TestDecodeSampleMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `shake`},
		{"missing x", `{"y":0,"z":0,"timestamp":1}`},
		{"missing z", `{"x":0,"y":0,"timestamp":1}`},
		{"missing timestamp", `{"x":0,"y":0,"z":0}`},
		{"x wrong type", `{"x":"a","y":0,"z":0,"timestamp":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSample([]byte(tt.payload))
			assert.ErrorIs(t, err, logic.ErrMalformedSample)
		})
	}
}

func TestEncodeDecodeSample(t *testing.T) {
	in := logic.Sample{X: 1, Y: 2, Z: 3, Time: time.UnixMilli(1767225600123).UTC()}
	payload, err := EncodeSample(in)
	require.NoError(t, err)

	out, err := DecodeSample(payload)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDeliverDropsMalformed(t *testing.T) {
	calls := 0
	fn := func(logic.Sample) error { calls++; return nil }

	deliver(fn, []byte(`{"x":1}`))
	deliver(nil, []byte(`{"x":1,"y":2,"z":3,"timestamp":5}`))
	assert.Zero(t, calls)

	deliver(fn, []byte(`{"x":1,"y":2,"z":3,"timestamp":5}`))
	assert.Equal(t, 1, calls)
}

func TestDecodeADXL345(t *testing.T) {
	raw := make([]byte, 6)
	binary.LittleEndian.PutUint16(raw[0:2], 0)
	binary.LittleEndian.PutUint16(raw[2:4], uint16(0xFFFF-255)) // -256 counts
	binary.LittleEndian.PutUint16(raw[4:6], 256)

	x, y, z := decodeADXL345(raw)
	assert.Zero(t, x)
	assert.InDelta(t, -256*0.0039*StandardGravity, y, 1e-9)
	assert.InDelta(t, 256*0.0039*StandardGravity, z, 1e-9)
	assert.InDelta(t, 9.79, z, 0.01, "256 counts is about one g")
}

type fakeReader struct {
	reads  atomic.Int32
	closed atomic.Bool
	err    error
}

func (r *fakeReader) ReadAccel() (float64, float64, float64, error) {
	r.reads.Add(1)
	if r.err != nil {
		return 0, 0, 0, r.err
	}
	return 0, 0, StandardGravity, nil
}

func (r *fakeReader) Close() error {
	r.closed.Store(true)
	return nil
}

func TestPollingSourceDeliversWhileSubscribed(t *testing.T) {
	r := &fakeReader{}
	p := NewPollingSource(r, time.Millisecond)

	got := make(chan logic.Sample, 16)
	require.NoError(t, p.Subscribe(func(s logic.Sample) error {
		select {
		case got <- s:
		default:
		}
		return nil
	}))

	select {
	case s := <-got:
		assert.InDelta(t, StandardGravity, s.Z, 1e-9)
		assert.False(t, s.Time.IsZero())
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no sample delivered")
	}

	require.NoError(t, p.Unsubscribe())
	require.NoError(t, p.Close())
	assert.True(t, r.closed.Load())
	assert.ErrorIs(t, p.Subscribe(func(logic.Sample) error { return nil }), ErrClosed)
}

func TestPollingSourceUnsubscribeFromCallback(t *testing.T) {
	r := &fakeReader{}
	p := NewPollingSource(r, time.Millisecond)

	done := make(chan struct{})
	var calls atomic.Int32
	require.NoError(t, p.Subscribe(func(logic.Sample) error {
		if calls.Add(1) == 1 {
			p.Unsubscribe()
			close(done)
		}
		return nil
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "callback never ran")
	}
	require.NoError(t, p.Close())
	assert.Equal(t, int32(1), calls.Load())
}

func TestPollingSourceReadErrorsSkipped(t *testing.T) {
	r := &fakeReader{err: errors.New("i2c nack")}
	p := NewPollingSource(r, time.Millisecond)

	var calls atomic.Int32
	require.NoError(t, p.Subscribe(func(logic.Sample) error {
		calls.Add(1)
		return nil
	}))

	deadline := time.Now().Add(2 * time.Second)
	for r.reads.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, p.Close())
	assert.GreaterOrEqual(t, r.reads.Load(), int32(3))
	assert.Zero(t, calls.Load())
}
