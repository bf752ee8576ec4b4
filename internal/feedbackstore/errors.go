package feedbackstore

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of the feedback pipeline.
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindResolution
	KindProvisioning
	KindAppend
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindResolution:
		return "resolution"
	case KindProvisioning:
		return "provisioning"
	case KindAppend:
		return "append"
	default:
		return "unknown"
	}
}

// Error carries the pipeline stage that failed and the identifiers involved.
type Error struct {
	Kind    Kind
	Op      string
	StoreID string
	Tier    Tier
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.StoreID != "" {
		msg += fmt.Sprintf(" (spreadsheet %s)", e.StoreID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
