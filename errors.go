package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDefinition      = errors.New("pipeline: malformed tool definition")
	ErrUnknownTool     = errors.New("pipeline: unknown tool")
	ErrInvalidEndpoint = errors.New("pipeline: invalid connection endpoint")
	ErrTypeMismatch    = errors.New("pipeline: port data types differ")
	ErrPortOccupied    = errors.New("pipeline: input port already connected")
	ErrSelfLoop        = errors.New("pipeline: node cannot connect to itself")
	ErrCycleDetected   = errors.New("pipeline: cycle detected, graph is not acyclic")
	ErrNodeNotFound    = errors.New("pipeline: node not found")

	ErrMalformedDocument = errors.New("pipeline: malformed document")
	ErrCorruptPipeline   = errors.New("pipeline: corrupt pipeline")
	ErrNoPipeline        = errors.New("pipeline: no pipeline saved yet")
)

// DefinitionError reports a tool definition that cannot be turned into ports.
type DefinitionError struct {
	Tool string
	Msg  string
}

func (e *DefinitionError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("%s: %s", ErrDefinition, e.Msg)
	}
	return fmt.Sprintf("%s %q: %s", ErrDefinition, e.Tool, e.Msg)
}

func (e *DefinitionError) Unwrap() error { return ErrDefinition }

// MalformedDocumentError reports a stored document whose required fields
// are missing or of the wrong shape.
type MalformedDocumentError struct {
	Field string
	Msg   string
	Err   error
}

func (e *MalformedDocumentError) Error() string {
	msg := ErrMalformedDocument.Error()
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedDocumentError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedDocument}
	}
	return []error{ErrMalformedDocument, e.Err}
}

// CorruptPipelineError carries the violations found in a graph that was
// about to be loaded or saved.
type CorruptPipelineError struct {
	Violations []Violation
}

func (e *CorruptPipelineError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s: %s", ErrCorruptPipeline, strings.Join(parts, "; "))
}

func (e *CorruptPipelineError) Unwrap() error { return ErrCorruptPipeline }
