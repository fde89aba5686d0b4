package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrNoDocuments        = errors.New("no documents to index")
	ErrShardMismatch      = errors.New("shard layout mismatch")
	ErrDictionaryConsumed = errors.New("dictionary already merged away")
	ErrConcurrentMerge    = errors.New("dictionary is a live merge destination")
	ErrSelfMerge          = errors.New("dictionary cannot merge into itself")
	ErrDocumentRead       = errors.New("document read failed")
	ErrSinkUnavailable    = errors.New("export sink unavailable")
	ErrInternal           = errors.New("internal error")
)

// Kind classifies an error by how the pipeline reacts to it.
type Kind int

const (
	KindInternal Kind = iota
	KindConfiguration
	KindDocumentRead
	KindInvariant
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindDocumentRead:
		return "document_read"
	case KindInvariant:
		return "invariant"
	case KindDependency:
		return "dependency"
	default:
		return "internal"
	}
}

type Error struct {
	Err     error
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(sentinel error, kind Kind, message string) *Error {
	return &Error{
		Err:     sentinel,
		Kind:    kind,
		Message: message,
	}
}

func Newf(sentinel error, kind Kind, format string, args ...any) *Error {
	return &Error{
		Err:     sentinel,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf reports the Kind of err, falling back to the sentinel it wraps.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrNoDocuments):
		return KindConfiguration
	case errors.Is(err, ErrDocumentRead):
		return KindDocumentRead
	case errors.Is(err, ErrShardMismatch),
		errors.Is(err, ErrDictionaryConsumed),
		errors.Is(err, ErrConcurrentMerge),
		errors.Is(err, ErrSelfMerge):
		return KindInvariant
	case errors.Is(err, ErrSinkUnavailable):
		return KindDependency
	default:
		return KindInternal
	}
}

// ExitCode maps err to a process exit status for the CLI.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindConfiguration:
		return 2
	case KindInvariant:
		return 3
	case KindDependency:
		return 4
	default:
		return 1
	}
}
