package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyColumn indicates a numeric column without any values.
	ErrEmptyColumn = errors.New("column has no values")
	// ErrNonFinite indicates NaN or infinite values where a statistic needs finite input.
	ErrNonFinite = errors.New("column contains missing or non-finite values")
	// ErrInvalidAlpha indicates a significance level outside (0, 1).
	ErrInvalidAlpha = errors.New("alpha must be in (0, 1)")
	// ErrNoColumnsSelected indicates the bivariate pattern matched no column.
	ErrNoColumnsSelected = errors.New("no columns matched the selection pattern")
)

// ColumnError ties a failure to the column being analyzed.
type ColumnError struct {
	Column string
	Err    error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q: %v", e.Column, e.Err)
}

func (e *ColumnError) Unwrap() error { return e.Err }
