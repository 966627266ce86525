package service

import (
	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/implementation"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/importerr"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/parser"
)

// Dispatch runs impl over the pages. CSV documents are normalized into a
// table first. Untyped errors and panics raised by impl become parser errors.
func Dispatch(pages []document.Page, ext document.Extension, impl implementation.Implementation) (result implementation.Result, err error) {
	if isEmpty(pages) {
		return implementation.Result{}, importerr.NewDocumentError(importerr.StatusNoImplementation, "document has no content")
	}

	content := document.Content{Pages: pages, Extension: ext}
	if ext == document.ExtensionCSV {
		table, err := parser.NormalizeCSV(pages[0])
		if err != nil {
			return implementation.Result{}, err
		}
		content.Table = table
	}

	defer func() {
		if r := recover(); r != nil {
			result = implementation.Result{}
			err = importerr.NewParserError("%s: implementation panicked: %v", impl.Name(), r)
		}
	}()

	result, err = impl.Parse(content)
	if err != nil {
		if _, ok := importerr.StatusOf(err); ok {
			return implementation.Result{}, err
		}
		return implementation.Result{}, importerr.WrapParserError(err, "%s", impl.Name())
	}
	return result, nil
}
