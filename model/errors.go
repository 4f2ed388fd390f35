package model

import "errors"

// FetchErrorMessage is the only message shown when repositories can't be fetched
// network errors, rate limits and malformed payloads are not distinguished
const FetchErrorMessage = "There was an error fetching the repositories."

var (
	ErrFetchFailure     = errors.New("FETCH_ERROR")
	ErrRateLimitReached = errors.New("RATE_LIMIT_REACHED")
	ErrRateLimiterError = errors.New("RATE_LIMITER_ERROR")
	ErrInvalidDataFound = errors.New("INVALID_DATA_FOUND")
	ErrSessionNotFound  = errors.New("SESSION_NOT_FOUND")
	ErrTooManySessions  = errors.New("TOO_MANY_SESSIONS")
	ErrInvalidRequest   = errors.New("INVALID_REQUEST")
	ErrCacheClosed      = errors.New("CACHE_CLOSED")
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewAPIError(errReason error) APIError {
	switch {
	case errors.Is(errReason, ErrRateLimitReached):
		return APIError{
			Code:    ErrRateLimitReached.Error(),
			Message: "github rate limit reached. consider using a token to increase the limit or wait few minutes and try again",
		}

	case errors.Is(errReason, ErrSessionNotFound):
		return APIError{
			Code:    ErrSessionNotFound.Error(),
			Message: "session not found. create a new session and try again",
		}

	case errors.Is(errReason, ErrTooManySessions):
		return APIError{
			Code:    ErrTooManySessions.Error(),
			Message: "too many sessions opened. try again later",
		}

	case errors.Is(errReason, ErrInvalidRequest):
		return APIError{
			Code:    ErrInvalidRequest.Error(),
			Message: "invalid request. check the request body and try again",
		}

	case errors.Is(errReason, ErrRateLimiterError),
		errors.Is(errReason, ErrInvalidDataFound),
		errors.Is(errReason, ErrFetchFailure),
		errors.Is(errReason, ErrCacheClosed):
		return APIError{
			Code:    errReason.Error(),
			Message: "internal server error. contact our support with the reason code for assistance",
		}
	}

	return APIError{
		Code:    "GENERIC_ERROR",
		Message: "internal server error. contact our support with the reason code for assistance",
	}
}
