package services

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the rewards engine. Match them with errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrReferrerNotFound   = errors.New("referrer email not found")
	ErrMemberNotFound     = errors.New("member not found")
	ErrNotLoggedIn        = errors.New("no current member")
	ErrAlreadyCheckedIn   = errors.New("already checked in today")
	ErrPrizeNotFound      = errors.New("prize not found")
	ErrPrizeUnavailable   = errors.New("prize not available")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrRedemptionNotFound = errors.New("redemption not found")
	ErrInvalidTransition  = errors.New("invalid redemption status transition")
	ErrConcurrentUpdate   = errors.New("member was modified concurrently, try again")
	ErrStorage            = errors.New("storage failure")
)

var kinds = []error{
	ErrInvalidInput,
	ErrDuplicateEmail,
	ErrReferrerNotFound,
	ErrMemberNotFound,
	ErrNotLoggedIn,
	ErrAlreadyCheckedIn,
	ErrPrizeNotFound,
	ErrPrizeUnavailable,
	ErrInsufficientPoints,
	ErrRedemptionNotFound,
	ErrInvalidTransition,
	ErrConcurrentUpdate,
	ErrStorage,
}

// ErrorKind returns the kind err belongs to, or nil for foreign errors.
func ErrorKind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// KindName is a short label for err's kind, used in logs and metrics.
func KindName(err error) string {
	switch ErrorKind(err) {
	case ErrInvalidInput:
		return "invalid_input"
	case ErrDuplicateEmail:
		return "duplicate_email"
	case ErrReferrerNotFound:
		return "referrer_not_found"
	case ErrMemberNotFound:
		return "member_not_found"
	case ErrNotLoggedIn:
		return "not_logged_in"
	case ErrAlreadyCheckedIn:
		return "already_checked_in"
	case ErrPrizeNotFound:
		return "prize_not_found"
	case ErrPrizeUnavailable:
		return "prize_unavailable"
	case ErrInsufficientPoints:
		return "insufficient_points"
	case ErrRedemptionNotFound:
		return "redemption_not_found"
	case ErrInvalidTransition:
		return "invalid_transition"
	case ErrConcurrentUpdate:
		return "concurrent_update"
	default:
		return "storage"
	}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// asKind keeps known kinds untouched and wraps everything else as a storage failure.
func asKind(op string, err error) error {
	if err == nil || ErrorKind(err) != nil {
		return err
	}
	return storageErr(op, err)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
