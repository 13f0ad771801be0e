// Package errors provides typed error values for the pricing pipeline.
//
// All exported pipeline operations return errors built from this package:
// sentinel errors for programmatic checks with errors.Is, structured error
// types for errors.As, and a Recover helper that converts panics escaping a
// numeric routine into ordinary error returns at the operation boundary.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors for the failure taxonomy.
var (
	// ErrEmptyData indicates an operation received zero rows or columns.
	ErrEmptyData = errors.New("empty data")

	// ErrNotFitted indicates a model or transformer was used before Fit.
	ErrNotFitted = errors.New("not fitted")

	// ErrDimensionMismatch indicates incompatible matrix shapes.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrSingularMatrix indicates a linear solve on a singular system.
	ErrSingularMatrix = errors.New("singular matrix")

	// ErrNoModel indicates no trained bundle is available for inference.
	ErrNoModel = errors.New("no trained model available")

	// ErrDataUnavailable indicates the source dataset could not be loaded
	// or was degenerate (zero rows after filtering).
	ErrDataUnavailable = errors.New("dataset unavailable")
)

// ValueError reports an invalid argument or data value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("konutpricer: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError for the given operation.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// DimensionError reports a shape mismatch between expected and actual data.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("konutpricer: %s: dimension mismatch on axis %d: expected %d, got %d",
		e.Op, e.Axis, e.Expected, e.Got)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionError creates a DimensionError for the given operation.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// NotFittedError reports use of an unfitted model or transformer.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("konutpricer: %s.%s: model is not fitted", e.ModelName, e.Method)
}

func (e *NotFittedError) Unwrap() error { return ErrNotFitted }

// NewNotFittedError creates a NotFittedError for the given model and method.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// ModelError wraps a lower-level cause with the failing operation and a
// human-readable message. The cause participates in errors.Is chains.
type ModelError struct {
	Op      string
	Message string
	Err     error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("konutpricer: %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("konutpricer: %s: %s", e.Op, e.Message)
}

func (e *ModelError) Unwrap() error { return e.Err }

// NewModelError creates a ModelError wrapping cause.
func NewModelError(op, message string, cause error) error {
	return errors.WithStack(&ModelError{Op: op, Message: message, Err: cause})
}

// Wrap annotates err with the operation name, preserving the chain.
// Returns nil when err is nil.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "konutpricer: %s", op)
}

// Recover converts a panic escaping op into an error assigned to *errp.
// Intended for use as a deferred guard on exported numeric operations:
//
//	func (m *Model) Fit(X, y mat.Matrix) (err error) {
//		defer errors.Recover(&err, "Model.Fit")
//		...
//	}
func Recover(errp *error, op string) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok {
			*errp = errors.Wrapf(e, "konutpricer: %s: recovered panic", op)
			return
		}
		*errp = errors.Newf("konutpricer: %s: recovered panic: %v", op, r)
	}
}
