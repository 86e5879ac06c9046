package calc

import (
	"calc-api/api/internal/interpret"
)

// ErrorKind classifies why a calculation failed.
type ErrorKind string

const (
	KindInvalidRequest   ErrorKind = "invalid_request"
	KindMissingDelimiter ErrorKind = "missing_delimiter"
	KindInvalidBase64    ErrorKind = "invalid_base64"
	KindInvalidImage     ErrorKind = "invalid_image"
	KindUnknownEngine    ErrorKind = "unknown_engine"
	KindUpstream         ErrorKind = "upstream"
	KindParse            ErrorKind = "parse"
)

// Malformed reports whether the caller sent something unusable.
func (k ErrorKind) Malformed() bool {
	switch k {
	case KindInvalidRequest, KindMissingDelimiter, KindInvalidBase64, KindInvalidImage:
		return true
	}
	return false
}

// Error carries the kind next to the original error. Its message is the original
// message unchanged.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Outcome is the result of one pipeline run: records on success, Err otherwise.
type Outcome struct {
	Records []interpret.Record
	Engine  string
	Err     *Error
}

func (o Outcome) OK() bool { return o.Err == nil }

func success(engine string, recs []interpret.Record) Outcome {
	if recs == nil {
		recs = []interpret.Record{}
	}
	return Outcome{Records: recs, Engine: engine}
}

func failure(kind ErrorKind, err error) Outcome {
	return Outcome{Records: []interpret.Record{}, Err: &Error{Kind: kind, Err: err}}
}

// Fail builds a failed outcome for errors detected outside the pipeline,
// such as an unreadable request body.
func Fail(kind ErrorKind, err error) Outcome {
	return failure(kind, err)
}
