package match

import (
	"errors"
	"fmt"
)

// ErrUnavailable indicates a backing dependency (profile store, block
// registry, interaction log) could not be reached. Handlers map it to 503.
var ErrUnavailable = errors.New("matching backend unavailable")

// ValidationError reports a rejected request parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// unavailable wraps a dependency failure so errors.Is(err, ErrUnavailable)
// holds while the underlying cause stays inspectable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrUnavailable, err))
}
