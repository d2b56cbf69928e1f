package google

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
)

// WrapError maps a Google API error onto the domain error taxonomy so
// callers never handle googleapi types directly.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	switch gerr.Code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, gerr.Message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, gerr.Message)
	default:
		return fmt.Errorf("%w: http %d: %s", domain.ErrSourceUnavailable, gerr.Code, gerr.Message)
	}
}

// IsRateLimited reports whether the error indicates rate limiting,
// before or after wrapping.
func IsRateLimited(err error) bool {
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	return false
}
