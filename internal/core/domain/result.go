package domain

import "fmt"

// ResultStatus discriminates the Result variants.
type ResultStatus int

const (
	StatusPending ResultStatus = iota
	StatusSuccess
	StatusFail
	StatusError
)

func (s ResultStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFail:
		return "fail"
	case StatusError:
		return "error"
	default:
		return "pending"
	}
}

// Result is the outcome of an externally facing operation.
//
// Success carries data. Fail carries a user-facing message for soft failures
// such as lost connectivity. Error carries the underlying error for hard failures.
// Pending marks an operation still in flight.
type Result[T any] struct {
	status  ResultStatus
	data    T
	message string
	err     error
}

func Success[T any](data T) Result[T] {
	return Result[T]{status: StatusSuccess, data: data}
}

func Fail[T any](message string) Result[T] {
	return Result[T]{status: StatusFail, message: message}
}

func Error[T any](err error) Result[T] {
	if err == nil {
		err = fmt.Errorf("unspecified error")
	}
	return Result[T]{status: StatusError, err: err}
}

func Pending[T any]() Result[T] {
	return Result[T]{status: StatusPending}
}

func (r Result[T]) Status() ResultStatus { return r.status }
func (r Result[T]) IsSuccess() bool      { return r.status == StatusSuccess }
func (r Result[T]) IsFail() bool         { return r.status == StatusFail }
func (r Result[T]) IsError() bool        { return r.status == StatusError }
func (r Result[T]) IsPending() bool      { return r.status == StatusPending }

// Data returns the payload; the zero value unless the result is a success.
func (r Result[T]) Data() T { return r.data }

// Message returns the soft-failure message.
func (r Result[T]) Message() string { return r.message }

// Err returns the hard error.
func (r Result[T]) Err() error { return r.err }

// MapResult converts a successful payload and carries the other variants across unchanged.
func MapResult[T, U any](r Result[T], fn func(T) U) Result[U] {
	switch r.status {
	case StatusSuccess:
		return Success(fn(r.data))
	case StatusFail:
		return Fail[U](r.message)
	case StatusError:
		return Error[U](r.err)
	default:
		return Pending[U]()
	}
}

// Convert carries a non-success result across to another payload type.
func Convert[U, T any](r Result[T]) Result[U] {
	switch r.status {
	case StatusFail:
		return Fail[U](r.message)
	case StatusError:
		return Error[U](r.err)
	case StatusSuccess:
		var zero U
		return Success(zero)
	default:
		return Pending[U]()
	}
}
