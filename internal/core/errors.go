package core

import "fmt"

// ErrInputShape covers kind-1 errors (spec.md §7): empty input, missing
// file, unsupported extension, mixed formats, malformed VPC, unsupported
// STAC version. Fatal for the run.
type ErrInputShape struct {
	Reason string
}

func (e *ErrInputShape) Error() string { return "input error: " + e.Reason }

// ErrConfiguration covers kind-2 errors: unknown stage, missing reader,
// incompatible connect target, invalid filter, chunk-size with queries,
// removing a reserved attribute. Fatal at parse time.
type ErrConfiguration struct {
	Reason string
}

func (e *ErrConfiguration) Error() string { return "configuration error: " + e.Reason }

// ErrResource covers kind-3 errors: buffer allocation failure, failure to
// open a writer. Fatal for the current chunk.
type ErrResource struct {
	Reason string
}

func (e *ErrResource) Error() string { return "resource error: " + e.Reason }

// Warning is a non-fatal kind-4 condition (mixed CRS, empty query region,
// zero-point file, unavailable GPS time): accumulated, never aborts a run.
type Warning struct {
	Reason string
}

func (w Warning) String() string { return w.Reason }

func newInputShapeErrorf(format string, args ...any) error {
	return &ErrInputShape{Reason: fmt.Sprintf(format, args...)}
}

func newConfigurationErrorf(format string, args ...any) error {
	return &ErrConfiguration{Reason: fmt.Sprintf(format, args...)}
}

// NewConfigurationErrorf builds an ErrConfiguration for callers outside
// this package (internal/engine's descriptor/pipeline parsing).
func NewConfigurationErrorf(format string, args ...any) error {
	return newConfigurationErrorf(format, args...)
}

// NewInputShapeErrorf builds an ErrInputShape for callers outside this
// package.
func NewInputShapeErrorf(format string, args ...any) error {
	return newInputShapeErrorf(format, args...)
}

// NewResourceErrorf builds an ErrResource for callers outside this
// package.
func NewResourceErrorf(format string, args ...any) error {
	return &ErrResource{Reason: fmt.Sprintf(format, args...)}
}
