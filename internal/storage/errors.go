package storage

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Code is the closed set of store error kinds the splitter tells apart.
type Code int

const (
	// CodeUnknown is any backend error not listed below. RawCode keeps the backend's code.
	CodeUnknown Code = iota
	// CodeNotFound is a 404 from HeadObject, which carries no error body.
	CodeNotFound
	// CodeNoSuchKey means the object does not exist.
	CodeNoSuchKey
	// CodeNoSuchBucket means the bucket does not exist.
	CodeNoSuchBucket
	// CodeAccessDenied means the function role lacks a permission.
	CodeAccessDenied
	// CodeInvalidObjectState means the object is archived and cannot be read.
	CodeInvalidObjectState
	// CodeSlowDown means the request rate was throttled.
	CodeSlowDown
	// CodeInternalError is a server-side S3 failure.
	CodeInternalError
)

var codeNames = map[Code]string{
	CodeUnknown:            "Unknown",
	CodeNotFound:           "NotFound",
	CodeNoSuchKey:          "NoSuchKey",
	CodeNoSuchBucket:       "NoSuchBucket",
	CodeAccessDenied:       "AccessDenied",
	CodeInvalidObjectState: "InvalidObjectState",
	CodeSlowDown:           "SlowDown",
	CodeInternalError:      "InternalError",
}

func (c Code) String() string {
	return codeNames[c]
}

func classify(raw string) Code {
	for code, name := range codeNames {
		if code != CodeUnknown && name == raw {
			return code
		}
	}
	return CodeUnknown
}

// Error is a failed store operation.
type Error struct {
	Op      string
	Code    Code
	RawCode string
	Message string
	Err     error
}

// Error keeps the backend's code and message as they were sent.
func (e *Error) Error() string {
	if e.RawCode == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.RawCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is a store error of the given kind.
func IsCode(err error, code Code) bool {
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Code == code
	}
	return false
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &Error{
			Op:      op,
			Code:    classify(apiErr.ErrorCode()),
			RawCode: apiErr.ErrorCode(),
			Message: apiErr.ErrorMessage(),
			Err:     err,
		}
	}
	return &Error{Op: op, Code: CodeUnknown, Message: err.Error(), Err: err}
}
