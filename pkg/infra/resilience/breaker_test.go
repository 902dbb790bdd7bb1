package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTest = errors.New("test error")

// fakeClock 可手动推进的时钟。
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	b := NewBreaker(&Config{Name: "test", MaxFailures: maxFailures, OpenTimeout: time.Minute})
	b.now = clock.Now
	return b, clock
}

func TestBreaker_ClosedState(t *testing.T) {
	b, _ := newTestBreaker(3)
	require.NoError(t, b.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_OpenOnMaxFailures(t *testing.T) {
	b, _ := newTestBreaker(3)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Execute(func() error { return errTest }), errTest)
	}
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(2)

	_ = b.Execute(func() error { return errTest })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errTest })
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenSuccessCloses(t *testing.T) {
	b, clock := newTestBreaker(1)

	_ = b.Execute(func() error { return errTest })
	assert.Equal(t, StateOpen, b.State())

	clock.Advance(2 * time.Minute)
	require.NoError(t, b.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(1)

	_ = b.Execute(func() error { return errTest })
	clock.Advance(2 * time.Minute)

	assert.ErrorIs(t, b.Execute(func() error { return errTest }), errTest)
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Execute(func() error { return nil }), ErrCircuitOpen)
}

func TestBreaker_HalfOpenSingleProbe(t *testing.T) {
	b, clock := newTestBreaker(1)

	_ = b.Execute(func() error { return errTest })
	clock.Advance(2 * time.Minute)

	err := b.Execute(func() error {
		// 探测调用在途时，其它调用被拒绝
		assert.ErrorIs(t, b.Execute(func() error { return nil }), ErrCircuitOpen)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_Disabled(t *testing.T) {
	b, _ := newTestBreaker(0)
	for i := 0; i < 10; i++ {
		_ = b.Execute(func() error { return errTest })
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(1)
	_ = b.Execute(func() error { return errTest })
	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
