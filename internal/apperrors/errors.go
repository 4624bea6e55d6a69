package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrRecordAlreadyExists indicates that a tracking record for the month is
// already closed and cannot be restarted.
var ErrRecordAlreadyExists = errors.New("execution record already exists for month")

// ErrUndoPeriodExpired indicates an undo was attempted at or after the end of
// the undo window.
var ErrUndoPeriodExpired = errors.New("undo period has expired")

// ErrInvalidState indicates an operation was attempted from a lifecycle state
// that does not permit it.
var ErrInvalidState = errors.New("operation not allowed in current state")

// ErrRateUnavailable indicates the conversion rate for a currency pair could
// not be resolved. Aggregation skips the affected pair instead of fabricating
// a rate, so this never aborts a computation on its own.
var ErrRateUnavailable = errors.New("exchange rate unavailable")
