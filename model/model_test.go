package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToGithubQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    PopularQuery
		expected string
	}{
		{name: "All languages", query: PopularQuery{Language: LanguageAll}, expected: "stars:>1"},
		{name: "Empty language", query: PopularQuery{}, expected: "stars:>1"},
		{name: "Single language", query: PopularQuery{Language: LanguageJavascript}, expected: "stars:>1 language:Javascript"},
		{name: "Custom min stars", query: PopularQuery{Language: LanguageCSS, MinStars: "1000"}, expected: "stars:>1000 language:CSS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.query.ToGithubQuery())
		})
	}
}

func TestLanguages(t *testing.T) {
	languages := Languages()

	assert.Equal(t, []Language{"All", "Javascript", "Ruby", "Java", "CSS", "Python"}, languages)

	languages[0] = "Changed"
	assert.Equal(t, LanguageAll, Languages()[0])

	assert.True(t, LanguageRuby.IsSupported())
	assert.False(t, Language("Haskell").IsSupported())
	assert.False(t, Language("ruby").IsSupported())
}

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode string
	}{
		{name: "Rate limit", err: ErrRateLimitReached, expectedCode: "RATE_LIMIT_REACHED"},
		{name: "Wrapped rate limit", err: fmt.Errorf("search: %w", ErrRateLimitReached), expectedCode: "RATE_LIMIT_REACHED"},
		{name: "Session not found", err: ErrSessionNotFound, expectedCode: "SESSION_NOT_FOUND"},
		{name: "Too many sessions", err: ErrTooManySessions, expectedCode: "TOO_MANY_SESSIONS"},
		{name: "Invalid data", err: ErrInvalidDataFound, expectedCode: "INVALID_DATA_FOUND"},
		{name: "Fetch error", err: ErrFetchFailure, expectedCode: "FETCH_ERROR"},
		{name: "Unknown error", err: errors.New("boom"), expectedCode: "GENERIC_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := NewAPIError(tt.err)

			assert.Equal(t, tt.expectedCode, apiErr.Code)
			assert.NotEmpty(t, apiErr.Message)
		})
	}
}
