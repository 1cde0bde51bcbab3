package advisor

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CodeValidation = "validation"
	CodeNetwork    = "network"
	CodeParse      = "parse"
	CodeUpstream   = "upstream"
	CodeHistoryAPI = "history_api"
	CodeNoResult   = "no_result"
)

// ErrNoResult is returned by the save action when no recommendation has been
// produced yet.
var ErrNoResult = errors.New(CodeNoResult + ": no recommendation to save; submit the form first")

type Violation struct {
	Field string  `json:"field"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s must be between %g and %g (got %g)", v.Label, v.Min, v.Max, v.Value)
}

// ValidationError aggregates every out-of-range input of one submission.
type ValidationError struct {
	Violations []Violation
	Missing    []string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations)+len(e.Missing))
	for _, f := range e.Missing {
		parts = append(parts, f+" is required")
	}
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return CodeValidation + ": " + strings.Join(parts, "; ")
}

type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s: %v", CodeNetwork, e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError is a response that arrived but carries no usable
// recommendation, either an error payload or a non-success status.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status=%d: %s", CodeUpstream, e.Status, e.Message)
	}
	return CodeUpstream + ": " + e.Message
}

// ParseError is a body or file that arrived intact but could not be decoded.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %v", CodeParse, e.What, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type HistoryAPIError struct {
	Status int
	Body   []byte
}

func (e *HistoryAPIError) Error() string {
	return fmt.Sprintf("%s: status=%d body=%s", CodeHistoryAPI, e.Status, string(e.Body))
}

// Code reports the taxonomy code of err, or "" when err is not one of ours.
func Code(err error) string {
	var (
		ve *ValidationError
		ne *NetworkError
		ue *UpstreamError
		he *HistoryAPIError
		pe *ParseError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoResult):
		return CodeNoResult
	case errors.As(err, &ve):
		return CodeValidation
	case errors.As(err, &ne):
		return CodeNetwork
	case errors.As(err, &ue):
		return CodeUpstream
	case errors.As(err, &he):
		return CodeHistoryAPI
	case errors.As(err, &pe):
		return CodeParse
	default:
		return ""
	}
}
