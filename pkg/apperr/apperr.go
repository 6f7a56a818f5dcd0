package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason    = "reason"
	MetaStage     = "stage"
	MetaField     = "field"
	MetaSessionID = "session_id"
	MetaLocator   = "locator"
	MetaCondition = "condition"
	MetaTimeout   = "timeout"
	MetaURL       = "url"
	MetaBrowser   = "browser"

	StageBootstrap   = "bootstrap"
	StageResolve     = "resolve"
	StageWait        = "wait"
	StageNavigation  = "navigation"
	StageInteraction = "interaction"

	CodeInternal             = "internal"
	CodeInvalidArgument      = "invalid_argument"
	CodeUnsupportedStrategy  = "unsupported_strategy"
	CodeUnsupportedCondition = "unsupported_condition"
	CodeTimeout              = "timeout"
	CodeStaleElement         = "stale_element"
	CodeBootstrapFailed      = "bootstrap_failed"
	CodeBrowserNotReady      = "browser_not_ready"
	CodeActionFailed         = "action_failed"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}

// CodeOf returns the code of the outermost *Error in the chain, or "" when
// err carries none.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return ""
}
