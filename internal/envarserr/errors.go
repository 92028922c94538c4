// Package envarserr defines the named error kinds raised across envars'
// components. Each kind is a sentinel that callers can match with
// errors.Is; wrapping with fmt.Errorf("%w", ...) carries the offending
// variable/context name up to the command layer.
package envarserr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidDocument     = errors.New("invalid document")
	ErrInvalidName         = errors.New("invalid variable name")
	ErrInvalidNesting      = errors.New("invalid scope nesting")
	ErrUnknownScopeKey     = errors.New("unknown scope key")
	ErrConfigError         = errors.New("configuration error")
	ErrKmsError            = errors.New("kms error")
	ErrDecryptError        = errors.New("decrypt error")
	ErrCycleDetected       = errors.New("cycle detected")
	ErrTemplateError       = errors.New("template error")
	ErrResolutionError     = errors.New("resolution error")
	ErrValidationFailed    = errors.New("validation failed")
	ErrMissingEnv          = errors.New("missing environment")
	ErrAmbiguousSensitivity = errors.New("ambiguous sensitivity")
)

// ForVariable wraps err with the name of the variable being processed when
// the failure originated in an adapter or a resolution step.
func ForVariable(name string, err error) error {
	return fmt.Errorf("variable %q: %w", name, err)
}

// ValidationFailure aggregates every violation the validator found. It
// never halts on the first failure; callers format the full set.
type ValidationFailure struct {
	Violations []string
}

// Add records a violation, deduplicated and kept in sorted order by
// Error().
func (v *ValidationFailure) Add(msg string) {
	for _, existing := range v.Violations {
		if existing == msg {
			return
		}
	}
	v.Violations = append(v.Violations, msg)
}

func (v *ValidationFailure) Empty() bool {
	return len(v.Violations) == 0
}

func (v *ValidationFailure) Error() string {
	sorted := make([]string, len(v.Violations))
	copy(sorted, v.Violations)
	sort.Strings(sorted)

	return fmt.Sprintf("%s:\n  - %s", ErrValidationFailed, strings.Join(sorted, "\n  - "))
}

func (v *ValidationFailure) Unwrap() error {
	return ErrValidationFailed
}

// AsError returns nil if no violations were recorded, otherwise the
// aggregate failure.
func (v *ValidationFailure) AsError() error {
	if v.Empty() {
		return nil
	}

	return v
}
