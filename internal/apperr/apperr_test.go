package apperr

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfFollowsWrapChain(t *testing.T) {
	base := New(InvalidMealType, "invalid meal type: snacks")
	wrapped := fmt.Errorf("generate meal plan: %w", base)

	assert.Equal(t, InvalidMealType, KindOf(wrapped))
	assert.True(t, Is(wrapped, InvalidMealType))
	assert.False(t, Is(wrapped, PlanTruncated))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.False(t, Is(nil, InvalidMealType))
}

func TestPublicMessageHidesProviderDetail(t *testing.T) {
	err := Wrap(ProviderUnavailable, "completion failed", errors.New("401 invalid x-api-key sk-123"))

	msg := PublicMessage(err)
	assert.NotContains(t, msg, "sk-123")
	assert.Contains(t, err.Error(), "sk-123")
}

func TestPublicMessageSurfacesIncompleteProfileVerbatim(t *testing.T) {
	err := New(IncompleteProfile, "Please complete your profile first (age, weight, fitness goal)")
	assert.Equal(t, err.Message, PublicMessage(err))
}

func TestPublicMessageGroupsInvalidOutput(t *testing.T) {
	for _, kind := range []Kind{MalformedPlanPayload, InvalidPlanStructure, InvalidMealType} {
		assert.Equal(t, "AI generated invalid plan format. Please try again.", PublicMessage(New(kind, "x")))
	}
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(IncompleteProfile))
	assert.False(t, Retryable(Cancelled))
	assert.True(t, Retryable(ProviderUnavailable))
	assert.True(t, Retryable(PlanTruncated))
	assert.True(t, Retryable(InvalidMealType))
}

func TestExcerptBoundsLength(t *testing.T) {
	long := strings.Repeat("é", ExcerptLimit)
	out := Excerpt(long)
	require.LessOrEqual(t, len(out), ExcerptLimit)
	assert.True(t, strings.HasPrefix(long, out))
	assert.Equal(t, "short", Excerpt("short"))
}
