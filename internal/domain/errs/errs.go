// Package errs defines the exhaustive error taxonomy shared by every core
// component, following the sentinel-and-wrap style of okian-cuju's
// per-package error files (internal/config/errors.go,
// internal/adapters/repository/errors.go).
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the six error classes the core can surface. It is never
// extended at runtime; callers branch on it with errors.Is against the
// package-level sentinels below.
type Kind error

// Sentinel kinds. Every error the core returns wraps exactly one of these,
// so callers can use errors.Is(err, errs.InvalidStats) regardless of the
// component that produced it.
var (
	// InvalidStats marks a field out of range, a distribution that does not
	// sum to 1 within tolerance, or a malformed conditional model. Fatal to
	// the call that produced it.
	InvalidStats Kind = errors.New("invalid stats")

	// BudgetExceeded marks a rally that exceeded its step fuel. Fatal to the
	// rally; the driver aborts the batch that contained it.
	BudgetExceeded Kind = errors.New("budget exceeded")

	// Cancelled marks a cooperative cancel or deadline. The Monte Carlo
	// driver returns it with a zero Result: neither the count of rallies
	// completed so far nor an aggregated probability is reported.
	Cancelled Kind = errors.New("cancelled")

	// ModelFitFailure marks a classifier that produced non-finite values or
	// failed to converge. Fatal to attribute.
	ModelFitFailure Kind = errors.New("model fit failure")

	// DegenerateOutcome marks an outcome class so imbalanced that a
	// classifier cannot be trained meaningfully. attribute returns a partial
	// report alongside this kind: reliability score and margin of error
	// only, with no importances and no SHAP values.
	DegenerateOutcome Kind = errors.New("degenerate outcome")

	// InternalError marks an unexpected invariant violation. Bug-class,
	// must be reproducible from the run's seed.
	InternalError Kind = errors.New("internal error")
)

// Wrap attaches a kind and an operation name to err, preserving errors.Is
// against kind. The original cause is kept only as text in the message;
// errors.Unwrap yields kind, not the cause.
func Wrap(op string, kind Kind, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s: %w: %s", op, kind, err.Error())
}

// New builds a kind-tagged error for op without an underlying cause.
func New(op string, kind Kind) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// IsCancelled reports whether err wraps the Cancelled sentinel.
func IsCancelled(err error) bool { return errors.Is(err, Cancelled) }

// IsInvalidStats reports whether err wraps the InvalidStats sentinel.
func IsInvalidStats(err error) bool { return errors.Is(err, InvalidStats) }

// IsBudgetExceeded reports whether err wraps the BudgetExceeded sentinel.
func IsBudgetExceeded(err error) bool { return errors.Is(err, BudgetExceeded) }

// IsDegenerateOutcome reports whether err wraps the DegenerateOutcome
// sentinel.
func IsDegenerateOutcome(err error) bool { return errors.Is(err, DegenerateOutcome) }

// IsModelFitFailure reports whether err wraps the ModelFitFailure sentinel.
func IsModelFitFailure(err error) bool { return errors.Is(err, ModelFitFailure) }

// KindOf returns the sentinel kind err already wraps, so a layer that
// rewraps an error for its own op string (Wrap(newOp, KindOf(err), err))
// preserves the original kind instead of flattening every cause to one.
// Falls back to InternalError for an error this package didn't produce.
func KindOf(err error) Kind {
	switch {
	case IsCancelled(err):
		return Cancelled
	case IsInvalidStats(err):
		return InvalidStats
	case IsBudgetExceeded(err):
		return BudgetExceeded
	case IsModelFitFailure(err):
		return ModelFitFailure
	case IsDegenerateOutcome(err):
		return DegenerateOutcome
	default:
		return InternalError
	}
}

// Field builds a kind-tagged error naming the offending feature and value,
// matching spec.md §7's requirement that user-visible errors name the
// offending feature where applicable.
func Field(op string, kind Kind, feature string, value float64) error {
	return fmt.Errorf("%s: %w: feature %q = %v", op, kind, feature, value)
}
