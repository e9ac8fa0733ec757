package pipeline

import (
	"paperforge/internal/document"
	"paperforge/internal/errcode"
)

// Failure is an unrecoverable run error. Partial preserves the document
// state built before the failure (sections generated so far plus
// placeholders for the failed ones) so the caller can keep partial output.
type Failure struct {
	SectionTitle string
	Partial      *document.Document
	err          *errcode.Error
}

func newFailure(section string, partial *document.Document, err *errcode.Error) *Failure {
	return &Failure{SectionTitle: section, Partial: partial, err: err}
}

func (f *Failure) Error() string { return f.err.Error() }

func (f *Failure) Unwrap() error { return f.err }
