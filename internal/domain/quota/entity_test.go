package quota

import (
	"testing"
	"time"

	xerrors "fluencr-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func TestConsumeExhausted(t *testing.T) {
	q := &Quota{RemainingTrials: 0}

	err := q.Consume(now)

	assert.ErrorIs(t, err, xerrors.ErrQuotaExhausted)
	assert.Equal(t, 0, q.RemainingTrials)
	assert.Nil(t, q.LastUsedAt)
}

func TestConsumeDecrements(t *testing.T) {
	q := New()
	for i := InitialTrials; i > 0; i-- {
		require.NoError(t, q.Consume(now))
		assert.Equal(t, i-1, q.RemainingTrials)
	}
	assert.ErrorIs(t, q.Consume(now), xerrors.ErrQuotaExhausted)
	assert.Equal(t, 0, q.RemainingTrials)
	require.NotNil(t, q.LastUsedAt)
	assert.Equal(t, now, *q.LastUsedAt)
}

func TestPremiumIsUnlimited(t *testing.T) {
	q := &Quota{RemainingTrials: 0, IsPremium: true}
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Consume(now))
	}
	assert.Equal(t, 0, q.RemainingTrials)
	assert.Nil(t, q.LastUsedAt)
}

func TestReset(t *testing.T) {
	for _, start := range []int{0, 3, InitialTrials, 40} {
		q := &Quota{RemainingTrials: start}
		q.Reset()
		assert.Equal(t, InitialTrials, q.RemainingTrials)
	}
}

func TestDecode(t *testing.T) {
	q, err := Decode([]byte(`{"remainingTrials":3,"isPremium":true}`))
	require.NoError(t, err)
	assert.Equal(t, 3, q.RemainingTrials)
	assert.True(t, q.IsPremium)

	_, err = Decode([]byte(`{"remainingTrials":-2}`))
	assert.ErrorIs(t, err, xerrors.ErrCorruptState)

	_, err = Decode([]byte(`not json`))
	assert.ErrorIs(t, err, xerrors.ErrCorruptState)
}
