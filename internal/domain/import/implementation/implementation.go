// Package implementation defines the contract every broker or app parser
// fulfils, plus the marker matching and page search helpers they share.
package implementation

import (
	"github.com/FACorreiaa/activity-importer/internal/domain/import/activity"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/importerr"
)

// Kind separates bank/broker statement parsers from portfolio app exports.
type Kind string

const (
	KindBroker Kind = "broker"
	KindApp    Kind = "app"
)

// Implementation recognizes and parses one statement source.
//
// Detect must be pure and cheap; it is called for every registered
// implementation on every file. Parse may return a typed error from
// importerr; any other error is treated as a parsing failure.
type Implementation interface {
	Name() string
	Kind() Kind
	Extensions() []document.Extension
	Detect(pages []document.Page, ext document.Extension) bool
	Parse(content document.Content) (Result, error)
}

// Result is what an implementation produces for a document.
//
// A nil Activities slice means "absent" (nothing produced). A nil element
// marks an activity that failed validation. Status is one of the importerr
// statuses; implementations return StatusOK, StatusIgnoredDocument or
// StatusParseFailed here.
type Result struct {
	Activities []*activity.Activity
	Status     importerr.Status
}

// OK wraps activities in a successful result.
func OK(activities []*activity.Activity) Result {
	if activities == nil {
		activities = []*activity.Activity{}
	}
	return Result{Activities: activities}
}

// Ignored is the result for documents a parser recognizes but deliberately
// skips (cost information, account statements).
func Ignored() Result {
	return Result{Status: importerr.StatusIgnoredDocument}
}

// Info describes a registered implementation.
type Info struct {
	Name       string   `json:"name"`
	Kind       Kind     `json:"kind"`
	Extensions []string `json:"extensions"`
}

// Describe returns the Info of impl.
func Describe(impl Implementation) Info {
	exts := make([]string, 0, len(impl.Extensions()))
	for _, e := range impl.Extensions() {
		exts = append(exts, string(e))
	}
	return Info{Name: impl.Name(), Kind: impl.Kind(), Extensions: exts}
}
