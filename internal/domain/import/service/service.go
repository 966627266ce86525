// Package service provides the import orchestration logic: extension gate,
// page extraction, implementation selection, parse dispatch and result
// filtering, resolved into one status-coded Outcome per file.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/activity"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/extractor"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/implementation"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/importerr"
	"github.com/FACorreiaa/activity-importer/pkg/money"
)

const tracerName = "github.com/FACorreiaa/activity-importer/internal/domain/import/service"

// Outcome is the terminal, status-coded result for one file.
type Outcome struct {
	File       string               `json:"file"`
	Activities []*activity.Activity `json:"activities"`
	Status     importerr.Status     `json:"status"`
	Successful bool                 `json:"successful"`

	// Implementation and Err are diagnostic only and not serialized.
	Implementation string `json:"-"`
	Err            error  `json:"-"`
}

// newOutcome derives an Outcome from a filtered result. Activities are
// dropped for any non-zero status, and a zero status without activities is
// reported as status 5.
func newOutcome(file string, result implementation.Result) Outcome {
	status := result.Status
	activities := result.Activities
	if status != importerr.StatusOK {
		activities = nil
	} else if len(activities) == 0 {
		status = importerr.StatusNoActivities
		activities = nil
	}
	return Outcome{
		File:       file,
		Activities: activities,
		Status:     status,
		Successful: len(activities) > 0,
	}
}

// failedOutcome resolves err into an Outcome. Untyped errors are reported as
// parsing failures.
func failedOutcome(file string, err error) Outcome {
	status, ok := importerr.StatusOf(err)
	if !ok || status == importerr.StatusOK {
		status = importerr.StatusParseFailed
	}
	return Outcome{File: file, Status: status, Err: err}
}

// Service processes statement files end to end.
type Service struct {
	selector  *Selector
	extractor extractor.Extractor
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	workers   int
}

// New creates a Service over the given implementations. A nil logger uses
// slog.Default().
func New(impls []implementation.Implementation, ext extractor.Extractor, accepted document.ExtensionSet, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		selector:  NewSelector(impls, accepted),
		extractor: ext,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		workers:   runtime.GOMAXPROCS(0),
	}
}

// WithMetrics sets the metrics recorder (optional).
func (s *Service) WithMetrics(m *Metrics) *Service {
	s.metrics = m
	return s
}

// WithWorkers bounds how many documents ProcessBatch handles at once.
func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.workers = n
	}
	return s
}

// WithTracer overrides the global OpenTelemetry tracer.
func (s *Service) WithTracer(t trace.Tracer) *Service {
	if t != nil {
		s.tracer = t
	}
	return s
}

// Implementations lists the implementations the service selects from.
func (s *Service) Implementations() []implementation.Info {
	impls := s.selector.Implementations()
	out := make([]implementation.Info, 0, len(impls))
	for _, impl := range impls {
		out = append(out, implementation.Describe(impl))
	}
	return out
}

// ParseFile extracts the pages of file. The extension gate is applied
// before any extraction; extraction failures are document errors with
// status 1.
func (s *Service) ParseFile(ctx context.Context, file document.File) (*document.ParsedFile, error) {
	ext := file.Extension()
	if !s.selector.Accepts(ext) {
		return nil, importerr.NewDocumentError(importerr.StatusUnsupportedType,
			"%s: unsupported file type %q", file.Name, ext)
	}

	parsed, err := s.extractor.Extract(ctx, file)
	if err != nil {
		return nil, unreadable(file.Name, "page extraction failed", err)
	}
	return parsed, nil
}

// unreadable is the document error (status 1) for a file whose content
// cannot be turned into pages.
func unreadable(file, reason string, err error) error {
	return &importerr.Error{
		Kind:    importerr.KindDocument,
		Status:  importerr.StatusNoImplementation,
		Message: fmt.Sprintf("%s: %s", file, reason),
		Err:     err,
	}
}

// ReadFailure is the Outcome for a file that could not be read at all.
func ReadFailure(file string, err error) Outcome {
	return failedOutcome(file, unreadable(file, "read failed", err))
}

// FindImplementation returns the single implementation that recognizes the
// pages, or a document error with status 1, 2 or 4.
func (s *Service) FindImplementation(pages []document.Page, fileName string, ext document.Extension) (implementation.Implementation, error) {
	return s.selector.Select(pages, fileName, ext)
}

// ParseActivitiesFromPages selects an implementation, runs it and filters
// the result. Document-level failures and parser errors are returned as
// typed errors; statuses 5, 6 and 7 are carried in the result.
func (s *Service) ParseActivitiesFromPages(pages []document.Page, fileName string, ext document.Extension) (implementation.Result, error) {
	result, _, err := s.parsePages(pages, fileName, ext)
	return result, err
}

func (s *Service) parsePages(pages []document.Page, fileName string, ext document.Extension) (implementation.Result, string, error) {
	impl, err := s.FindImplementation(pages, fileName, ext)
	if err != nil {
		return implementation.Result{}, "", err
	}

	if ext == "" {
		ext = document.ExtensionOf(fileName)
	}
	raw, err := Dispatch(pages, document.NormalizeExt(string(ext)), impl)
	if err != nil {
		return implementation.Result{}, impl.Name(), err
	}
	return Filter(raw), impl.Name(), nil
}

// Process runs the full pipeline for one file. It never fails: every error
// resolves into a status-coded Outcome.
func (s *Service) Process(ctx context.Context, file document.File) (outcome Outcome) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "import.Process", trace.WithAttributes(
		attribute.String("file", file.Name),
		attribute.String("extension", string(file.Extension())),
	))

	defer func() {
		if r := recover(); r != nil {
			outcome = failedOutcome(file.Name, importerr.NewParserError("%s: panic: %v", file.Name, r))
		}
		s.finish(ctx, span, outcome, time.Since(start))
	}()

	parsed, err := s.ParseFile(ctx, file)
	if err != nil {
		return failedOutcome(file.Name, err)
	}

	result, impl, err := s.parsePages(parsed.Pages, file.Name, parsed.Extension)
	if err != nil {
		outcome = failedOutcome(file.Name, err)
		outcome.Implementation = impl
		return outcome
	}

	outcome = newOutcome(file.Name, result)
	outcome.Implementation = impl
	return outcome
}

func (s *Service) finish(ctx context.Context, span trace.Span, outcome Outcome, elapsed time.Duration) {
	defer span.End()

	span.SetAttributes(
		attribute.String("implementation", outcome.Implementation),
		attribute.Int("status", int(outcome.Status)),
		attribute.Int("activities", len(outcome.Activities)),
	)
	s.metrics.observe(outcome, outcome.Implementation, elapsed)

	attrs := []any{
		slog.String("file", outcome.File),
		slog.String("implementation", outcome.Implementation),
		slog.Int("status", int(outcome.Status)),
		slog.Duration("elapsed", elapsed),
	}
	if outcome.Successful {
		span.SetStatus(codes.Ok, "")
		s.logger.InfoContext(ctx, "document imported", append(attrs,
			slog.Int("activities", len(outcome.Activities)),
			slog.Any("totals", totals(outcome.Activities)),
		)...)
		return
	}

	span.SetStatus(codes.Error, outcome.Status.String())
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		attrs = append(attrs, slog.Any("error", outcome.Err))
	}
	s.logger.WarnContext(ctx, "document not imported", append(attrs, slog.String("reason", outcome.Status.String()))...)
}

// totals sums activity amounts per currency and formats them for display,
// sorted.
func totals(acts []*activity.Activity) []string {
	sums := make(map[string]money.Money)
	for _, a := range acts {
		v := a.Value()
		if prev, ok := sums[v.Currency]; ok {
			v.Amount = v.Amount.Add(prev.Amount)
		}
		sums[v.Currency] = v
	}

	out := make([]string, 0, len(sums))
	for _, m := range sums {
		out = append(out, m.Display())
	}
	sort.Strings(out)
	return out
}

// ProcessBatch processes files concurrently and returns their outcomes in
// input order. One failing file never affects the others.
func (s *Service) ProcessBatch(ctx context.Context, files []document.File) []Outcome {
	outcomes := make([]Outcome, len(files))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, f := range files {
		g.Go(func() error {
			outcomes[i] = s.Process(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.DebugContext(ctx, "batch processed", slog.Int("files", len(files)))
	return outcomes
}
