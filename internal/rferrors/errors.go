// Package rferrors defines the domain error taxonomy shared across ragforge's
// pipelines. Every error raised at a service boundary carries a Kind, a
// human message, and a details map so the caller can recover (ConfigTypeError)
// or translate to a transport status code without inspecting error strings.
package rferrors

import (
	"errors"
	"fmt"
)

// Kind enumerates the domain error taxonomy from the specification's error
// handling design.
type Kind string

const (
	KindUnsupportedFileType      Kind = "unsupported_file_type"
	KindDocumentProcessing       Kind = "document_processing_error"
	KindEmbeddingDimensionMismatch Kind = "embedding_dimension_mismatch"
	KindCollection                Kind = "collection_error"
	KindDocument                  Kind = "document_error"
	KindLLMProvider                Kind = "llm_provider_error"
	KindConfigType                 Kind = "config_type_error"
	KindMissingPromptVariable       Kind = "missing_prompt_variable"
	KindInvalidQuery                Kind = "invalid_query"
	KindNotFound                    Kind = "not_found"
	KindAlreadyExists               Kind = "already_exists"
	KindValidation                  Kind = "validation_error"
)

// Error is the concrete type behind every domain error in ragforge. It
// implements error and supports errors.Is/As via Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a domain Error of the given kind.
func New(kind Kind, message string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// Wrap constructs a domain Error of the given kind around a lower-level cause.
func Wrap(kind Kind, message string, cause error, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause, Details: details}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// UnsupportedFileType builds a KindUnsupportedFileType error for a file
// extension the ingestion pipeline has no processor for.
func UnsupportedFileType(file, ext string) *Error {
	return New(KindUnsupportedFileType, fmt.Sprintf("no processor registered for extension %q", ext), map[string]any{"file": file, "extension": ext})
}

// DocumentProcessing builds a KindDocumentProcessing error for a parse/read
// failure scoped to one document.
func DocumentProcessing(documentID, stage string, cause error) *Error {
	return Wrap(KindDocumentProcessing, fmt.Sprintf("processing failed at stage %q", stage), cause, map[string]any{"document_id": documentID, "stage": stage})
}

// EmbeddingDimensionMismatch builds a KindEmbeddingDimensionMismatch error.
func EmbeddingDimensionMismatch(expected, got int) *Error {
	return New(KindEmbeddingDimensionMismatch, fmt.Sprintf("embedding model produced dimension %d, expected %d", got, expected), map[string]any{"expected": expected, "got": got})
}

// Collection builds a KindCollection error for a vector-store back-end
// rejecting a collection-level operation.
func Collection(name, op string, cause error) *Error {
	return Wrap(KindCollection, fmt.Sprintf("collection operation %q failed", op), cause, map[string]any{"collection": name, "op": op})
}

// Document builds a KindDocument error for a batch-scoped chunk write failure.
func Document(collection string, failed []string, cause error) *Error {
	return Wrap(KindDocument, "chunk write failed", cause, map[string]any{"collection": collection, "failed_chunk_ids": failed})
}

// LLMProvider builds a KindLLMProvider error for an LLM call failing after
// its retry budget is exhausted.
func LLMProvider(provider, model string, cause error) *Error {
	return Wrap(KindLLMProvider, "llm call failed after retries", cause, map[string]any{"provider": provider, "model": model})
}

// ConfigType builds a KindConfigType error for a stored runtime-config value
// that does not match its declared type tag.
func ConfigType(key, declaredType string) *Error {
	return New(KindConfigType, fmt.Sprintf("stored value for key %q does not match declared type %q", key, declaredType), map[string]any{"key": key, "type": declaredType})
}

// MissingPromptVariable builds a KindMissingPromptVariable error for an
// unbound placeholder in a prompt template render.
func MissingPromptVariable(name string) *Error {
	return New(KindMissingPromptVariable, fmt.Sprintf("template variable %q is declared but unbound", name), map[string]any{"variable": name})
}

// InvalidQuery builds a KindInvalidQuery error for an empty or malformed
// search query.
func InvalidQuery(reason string) *Error {
	return New(KindInvalidQuery, reason, nil)
}

// NotFound builds a KindNotFound error for a missing addressed entity.
func NotFound(entity, id string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s %q not found", entity, id), map[string]any{"entity": entity, "id": id})
}

// AlreadyExists builds a KindAlreadyExists error for a unique-constraint
// violation.
func AlreadyExists(entity, id string) *Error {
	return New(KindAlreadyExists, fmt.Sprintf("%s %q already exists", entity, id), map[string]any{"entity": entity, "id": id})
}

// Validation builds a KindValidation error for a typed input that failed
// schema validation.
func Validation(message string, details map[string]any) *Error {
	return New(KindValidation, message, details)
}
