package assistant

import (
	"context"
	"errors"

	"github.com/DachengChen/askSQL/ai"
	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/db"
	"github.com/DachengChen/askSQL/followup"
	"github.com/DachengChen/askSQL/sqlguard"
)

// Error kinds reported to the UI besides the provider and executor kinds.
const (
	KindExtraction    = "extraction_error"
	KindPolicy        = "policy_violation"
	KindConfiguration = "configuration_error"
	KindCanceled      = "canceled"
	KindInvalidInput  = "invalid_question"
	KindInternal      = "internal"
)

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("question is empty")

// ErrorInfo is the UI-facing description of a failed turn.
type ErrorInfo struct {
	Kind      string                `json:"kind"`
	Message   string                `json:"message"`
	Keyword   string                `json:"keyword,omitempty"`
	Retryable bool                  `json:"retryable,omitempty"`
	Recovery  []followup.Suggestion `json:"recovery,omitempty"`
}

// Classify maps an error from any stage of a turn to its kind.
func Classify(err error) string {
	var pe *ai.ProviderError
	var ee *sqlguard.ExtractionError
	var pv *sqlguard.PolicyViolation
	var xe *db.ExecutionError
	var ce *config.ConfigurationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pv):
		return KindPolicy
	case errors.As(err, &ee):
		return KindExtraction
	case errors.As(err, &pe):
		return string(pe.Kind)
	case errors.As(err, &xe):
		return string(xe.Kind)
	case errors.As(err, &ce):
		return KindConfiguration
	case errors.Is(err, ErrEmptyQuestion):
		return KindInvalidInput
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return string(db.Timeout)
	}
	return KindInternal
}

func newErrorInfo(err error, question string) *ErrorInfo {
	info := &ErrorInfo{
		Kind:     Classify(err),
		Message:  err.Error(),
		Recovery: followup.Recovery(err, question),
	}
	var pv *sqlguard.PolicyViolation
	if errors.As(err, &pv) {
		info.Keyword = pv.Keyword
	}
	info.Retryable = ai.IsRetryable(err) || info.Kind == string(db.ConnectionLost) || info.Kind == string(db.Timeout)
	return info
}
