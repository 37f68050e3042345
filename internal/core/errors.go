package core

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so callers never need to parse messages.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindExtraction
	KindNoImages
	KindClassification
	KindPersistence
	KindNotFound
	KindPathTraversal
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindExtraction:
		return "extraction_failure"
	case KindNoImages:
		return "no_images_found"
	case KindClassification:
		return "classification_failure"
	case KindPersistence:
		return "persistence_failure"
	case KindNotFound:
		return "not_found"
	case KindPathTraversal:
		return "path_traversal_rejected"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// PipelineError is the only error type adapters and the orchestrator return.
// Stage names the step that failed (e.g. "docconv", "ocr", "image_extraction").
type PipelineError struct {
	Kind  Kind
	Stage string
	Msg   string
	Err   error
}

func (e *PipelineError) Error() string {
	msg := e.Msg
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewError builds a PipelineError.
func NewError(kind Kind, stage, msg string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first PipelineError in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// StageOf returns the failing stage recorded in err, if any.
func StageOf(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}

// AsExtraction wraps err as an extraction failure for stage unless it already
// carries a Kind.
func AsExtraction(stage string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return err
	}
	return NewError(KindExtraction, stage, "extraction failed", err)
}
