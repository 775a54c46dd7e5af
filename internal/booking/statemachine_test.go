package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusAccepted},
		{StatusPending, StatusRejected},
		{StatusPending, StatusCancelled},
		{StatusPending, StatusExpired},
		{StatusAccepted, StatusCompleted},
		{StatusAccepted, StatusDisputed},
		{StatusAccepted, StatusCancelled},
		{StatusDisputed, StatusCompleted},
		{StatusDisputed, StatusCancelled},
	}
	for _, tt := range allowed {
		assert.True(t, CanTransition(tt.from, tt.to), "%s -> %s should be allowed", tt.from, tt.to)
	}

	denied := []struct{ from, to Status }{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusDisputed},
		{StatusAccepted, StatusRejected},
		{StatusAccepted, StatusExpired},
		{StatusAccepted, StatusPending},
		{StatusRejected, StatusAccepted},
		{StatusCompleted, StatusDisputed},
		{StatusCancelled, StatusPending},
		{StatusExpired, StatusAccepted},
		{StatusDisputed, StatusExpired},
		{StatusCompleted, StatusCompleted},
	}
	for _, tt := range denied {
		assert.False(t, CanTransition(tt.from, tt.to), "%s -> %s should be denied", tt.from, tt.to)
	}
}

func TestTerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	terminals := []Status{StatusRejected, StatusCompleted, StatusCancelled, StatusExpired}
	all := []Status{StatusPending, StatusAccepted, StatusRejected, StatusCompleted, StatusCancelled, StatusDisputed, StatusExpired}

	for _, term := range terminals {
		assert.True(t, IsTerminal(term))
		for _, to := range all {
			assert.False(t, CanTransition(term, to), "terminal %s must not transition to %s", term, to)
		}
	}

	assert.False(t, IsTerminal(StatusPending))
	assert.False(t, IsTerminal(StatusAccepted))
	assert.False(t, IsTerminal(StatusDisputed))
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusAccepted, StatusRejected, StatusCompleted, StatusCancelled, StatusDisputed, StatusExpired} {
		assert.True(t, IsValidStatus(s))
	}
	assert.False(t, IsValidStatus("booked"))
	assert.False(t, IsValidStatus(""))
}

func TestEffectOf(t *testing.T) {
	assert.Equal(t, SettleNone, EffectOf(StatusPending, StatusAccepted))
	assert.Equal(t, SettleNone, EffectOf(StatusAccepted, StatusDisputed))
	assert.Equal(t, SettleRefund, EffectOf(StatusPending, StatusRejected))
	assert.Equal(t, SettleRefund, EffectOf(StatusPending, StatusCancelled))
	assert.Equal(t, SettleRefund, EffectOf(StatusPending, StatusExpired))
	assert.Equal(t, SettleRefund, EffectOf(StatusAccepted, StatusCancelled))
	assert.Equal(t, SettleRefund, EffectOf(StatusDisputed, StatusCancelled))
	assert.Equal(t, SettlePayout, EffectOf(StatusAccepted, StatusCompleted))
	assert.Equal(t, SettlePayout, EffectOf(StatusDisputed, StatusCompleted))
}

func TestCanAutoExpire(t *testing.T) {
	now := time.Now()
	window := 120 * time.Hour

	b := &Booking{Status: StatusPending, CreatedAt: now.Add(-121 * time.Hour)}
	assert.True(t, CanAutoExpire(b, now, window))

	b = &Booking{Status: StatusPending, CreatedAt: now.Add(-119 * time.Hour)}
	assert.False(t, CanAutoExpire(b, now, window))

	// already resolved bookings never qualify, regardless of age
	for _, s := range []Status{StatusAccepted, StatusRejected, StatusCancelled, StatusExpired, StatusCompleted, StatusDisputed} {
		b = &Booking{Status: s, CreatedAt: now.Add(-1000 * time.Hour)}
		assert.False(t, CanAutoExpire(b, now, window), "status %s", s)
	}
}

func TestCanAutoComplete(t *testing.T) {
	now := time.Now()

	b := &Booking{Status: StatusAccepted, SessionEndTime: now.Add(-time.Minute)}
	assert.True(t, CanAutoComplete(b, now))

	// boundary: exactly at session end counts
	b = &Booking{Status: StatusAccepted, SessionEndTime: now}
	assert.True(t, CanAutoComplete(b, now))

	b = &Booking{Status: StatusAccepted, SessionEndTime: now.Add(time.Minute)}
	assert.False(t, CanAutoComplete(b, now))

	b = &Booking{Status: StatusPending, SessionEndTime: now.Add(-time.Minute)}
	assert.False(t, CanAutoComplete(b, now))

	b = &Booking{Status: StatusCompleted, SessionEndTime: now.Add(-time.Minute)}
	assert.False(t, CanAutoComplete(b, now))
}

func TestValidateWindow(t *testing.T) {
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	t.Run("valid 60 minute window", func(t *testing.T) {
		slots, err := ValidateWindow(base, base.Add(60*time.Minute), 30, 240)
		require.NoError(t, err)
		assert.Equal(t, 2, slots)
	})

	t.Run("single slot at minimum", func(t *testing.T) {
		slots, err := ValidateWindow(base, base.Add(30*time.Minute), 30, 240)
		require.NoError(t, err)
		assert.Equal(t, 1, slots)
	})

	t.Run("not a slot multiple", func(t *testing.T) {
		_, err := ValidateWindow(base, base.Add(45*time.Minute), 30, 240)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
	})

	t.Run("inverted window", func(t *testing.T) {
		_, err := ValidateWindow(base, base.Add(-30*time.Minute), 30, 240)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
	})

	t.Run("zero length window", func(t *testing.T) {
		_, err := ValidateWindow(base, base, 30, 240)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
	})

	t.Run("below minimum duration", func(t *testing.T) {
		_, err := ValidateWindow(base, base.Add(30*time.Minute), 60, 240)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
	})

	t.Run("above maximum duration", func(t *testing.T) {
		_, err := ValidateWindow(base, base.Add(300*time.Minute), 30, 240)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
	})
}
