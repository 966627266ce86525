package service

import (
	"context"
	"sync"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/activity"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/pkg/money"
)

// pagesByName serves a one-fragment page per file name.
type pagesByName struct {
	mu    sync.Mutex
	pages map[string]string
}

func (p *pagesByName) set(name, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pages == nil {
		p.pages = make(map[string]string)
	}
	p.pages[name] = text
}

func (p *pagesByName) Extract(_ context.Context, file document.File) (*document.ParsedFile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &document.ParsedFile{Pages: []document.Page{{p.pages[file.Name]}}, Extension: file.Extension()}, nil
}

var generatorMu sync.Mutex

// newActivityLocked guards the shared faker, which is not safe for
// concurrent use.
func newActivityLocked(g *money.TestDataGenerator) *activity.Activity {
	generatorMu.Lock()
	defer generatorMu.Unlock()
	return newActivity(g)
}
