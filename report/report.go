// Package report holds the interfaces per-case reporters implement.
package report

import "github.com/ozontech/conformer/conformance"

type Reporter interface {
	Run() error
	Close() error
	Acquire(name string) CaseState
}

// CaseState collects what happened to one case. End hands it back to the
// reporter, so it must not be used after that.
type CaseState interface {
	SetSize(req, res int)
	SetResult(conformance.Kind)
	Fail()
	IoError(error)
	End()
}
