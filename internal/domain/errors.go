package domain

// conflictError is returned when an operation is not allowed in the current floor state
type conflictError string

func (e conflictError) Error() string  { return string(e) }
func (conflictError) Conflict() bool { return true }

type notFoundError string

func (e notFoundError) Error() string  { return string(e) }
func (notFoundError) NotFound() bool { return true }

type invalidError string

func (e invalidError) Error() string { return string(e) }
func (invalidError) Invalid() bool   { return true }

// Errors
var (
	ErrBatchAlreadyActive = conflictError("another batch is already processing")
	ErrBatchNotPending    = conflictError("batch is not pending")
	ErrBatchNotProcessing = conflictError("batch is not processing")
	ErrDuplicateOrder     = conflictError("order already exists")
	ErrDuplicateEmployee  = conflictError("employee already exists")
	ErrConcurrentUpdate   = conflictError("floor was modified concurrently")

	ErrBatchNotFound    = notFoundError("batch not found")
	ErrOrderNotFound    = notFoundError("order not found")
	ErrEmployeeNotFound = notFoundError("employee not found")

	ErrOrderNoItems          = invalidError("order must contain at least one item")
	ErrInvalidPriority       = invalidError("invalid order priority")
	ErrInvalidQuantity       = invalidError("item quantity must be positive")
	ErrMissingLocation       = invalidError("item location is required")
	ErrMissingOrderID        = invalidError("order id is required")
	ErrInvalidEmployeeStatus = invalidError("invalid employee status")
	ErrInvalidCapacity       = invalidError("employee max load must be positive")
	ErrLoadExceedsCapacity   = invalidError("employee current orders exceed max load")
	ErrNegativeEfficiency    = invalidError("employee efficiency score must not be negative")
	ErrMissingEmployeeID     = invalidError("employee id is required")
)
