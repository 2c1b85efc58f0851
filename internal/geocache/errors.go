package geocache

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("geocache not found")
	ErrForbidden          = errors.New("only the creator may modify this geocache")
	ErrValidation         = errors.New("invalid input")
	ErrSelfDiscovery      = errors.New("cannot mark your own geocache as found")
	ErrAlreadyFound       = errors.New("geocache already marked as found")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidCoordinates is a validation error: errors.Is(err, ErrValidation)
	// holds for it as well.
	ErrInvalidCoordinates = fmt.Errorf("%w: unrecognized coordinate format", ErrValidation)
)
