package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/activity"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/extractor"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/implementation"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/importerr"
	"github.com/FACorreiaa/activity-importer/pkg/money"
)

// fakeImpl is a configurable implementation for pipeline tests.
type fakeImpl struct {
	name   string
	detect func([]document.Page, document.Extension) bool
	parse  func(document.Content) (implementation.Result, error)
	calls  atomic.Int32
}

func (f *fakeImpl) Name() string { return f.name }

func (f *fakeImpl) Kind() implementation.Kind { return implementation.KindBroker }

func (f *fakeImpl) Extensions() []document.Extension {
	return []document.Extension{document.ExtensionPDF, document.ExtensionCSV}
}

func (f *fakeImpl) Detect(pages []document.Page, ext document.Extension) bool {
	return f.detect(pages, ext)
}

func (f *fakeImpl) Parse(c document.Content) (implementation.Result, error) {
	f.calls.Add(1)
	return f.parse(c)
}

func always() func([]document.Page, document.Extension) bool {
	return func([]document.Page, document.Extension) bool { return true }
}

func never() func([]document.Page, document.Extension) bool {
	return func([]document.Page, document.Extension) bool { return false }
}

func returns(acts []*activity.Activity, status importerr.Status) func(document.Content) (implementation.Result, error) {
	return func(document.Content) (implementation.Result, error) {
		return implementation.Result{Activities: acts, Status: status}, nil
	}
}

// fakeExtractor returns fixed pages and counts calls.
type fakeExtractor struct {
	pages []document.Page
	err   error
	calls atomic.Int32
}

func (f *fakeExtractor) Extract(_ context.Context, file document.File) (*document.ParsedFile, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &document.ParsedFile{Pages: f.pages, Extension: file.Extension()}, nil
}

func newActivity(g *money.TestDataGenerator) *activity.Activity {
	f := g.Faker()
	return &activity.Activity{
		Broker:   "fake",
		Type:     activity.TypeBuy,
		Date:     activity.Day(f.DateRange(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))),
		ISIN:     g.ISIN(),
		Company:  f.Company(),
		Shares:   g.RandomShares(),
		Price:    g.RandomAmount(100, 100000),
		Amount:   g.RandomAmount(100, 1000000),
		Currency: g.Currency(),
	}
}

func newService(ext extractor.Extractor, impls ...implementation.Implementation) *Service {
	return New(impls, ext, document.DefaultExtensions(), nil)
}

var csvPages = []document.Page{{"date;type;amount", "2024-01-15;Buy;100,00"}}

func TestProcess_Scenarios(t *testing.T) {
	ctx := context.Background()
	g := money.NewTestDataGeneratorWithSeed(7)

	t.Run("ambiguous csv", func(t *testing.T) {
		ex := &fakeExtractor{pages: csvPages}
		svc := newService(ex,
			&fakeImpl{name: "a", detect: always(), parse: returns(nil, 0)},
			&fakeImpl{name: "b", detect: always(), parse: returns(nil, 0)},
		)

		out := svc.Process(ctx, document.File{Name: "export.csv", Data: []byte("x")})
		assert.Equal(t, importerr.StatusAmbiguous, out.Status)
		assert.False(t, out.Successful)
		assert.Nil(t, out.Activities)
	})

	t.Run("pdf without match", func(t *testing.T) {
		ex := &fakeExtractor{pages: []document.Page{{"some bank"}}}
		svc := newService(ex, &fakeImpl{name: "a", detect: never(), parse: returns(nil, 0)})

		out := svc.Process(ctx, document.File{Name: "statement.pdf", Data: []byte("x")})
		assert.Equal(t, importerr.StatusNoImplementation, out.Status)
		assert.False(t, out.Successful)
	})

	t.Run("txt is rejected before extraction", func(t *testing.T) {
		ex := &fakeExtractor{pages: csvPages}
		impl := &fakeImpl{name: "a", detect: always(), parse: returns(nil, 0)}
		svc := newService(ex, impl)

		out := svc.Process(ctx, document.File{Name: "notes.TXT", Data: []byte("x")})
		assert.Equal(t, importerr.StatusUnsupportedType, out.Status)
		assert.ErrorIs(t, out.Err, importerr.ErrUnsupportedType)
		assert.Zero(t, ex.calls.Load())
		assert.Zero(t, impl.calls.Load())
	})

	t.Run("well formed csv", func(t *testing.T) {
		acts := []*activity.Activity{newActivity(g), newActivity(g), newActivity(g)}
		var got document.Content
		impl := &fakeImpl{name: "a", detect: always(), parse: func(c document.Content) (implementation.Result, error) {
			got = c
			return implementation.OK(acts), nil
		}}
		svc := newService(&fakeExtractor{pages: csvPages}, impl)

		out := svc.Process(ctx, document.File{Name: "export.csv", Data: []byte("x")})
		assert.Equal(t, importerr.StatusOK, out.Status)
		assert.True(t, out.Successful)
		assert.Equal(t, acts, out.Activities)
		assert.Equal(t, "a", out.Implementation)

		require.NotNil(t, got.Table, "csv content is normalized into a table")
		assert.Equal(t, []string{"date", "type", "amount"}, got.Table.Headers)
	})

	t.Run("pdf with invalid activity", func(t *testing.T) {
		acts := []*activity.Activity{newActivity(g), nil, newActivity(g)}
		svc := newService(&fakeExtractor{pages: []document.Page{{"bank"}}},
			&fakeImpl{name: "a", detect: always(), parse: returns(acts, 0)})

		out := svc.Process(ctx, document.File{Name: "statement.pdf", Data: []byte("x")})
		assert.Equal(t, importerr.StatusInvalidActivity, out.Status)
		assert.False(t, out.Successful)
		assert.Nil(t, out.Activities)
	})

	t.Run("empty activities", func(t *testing.T) {
		svc := newService(&fakeExtractor{pages: []document.Page{{"bank"}}},
			&fakeImpl{name: "a", detect: always(), parse: returns([]*activity.Activity{}, 0)})

		out := svc.Process(ctx, document.File{Name: "statement.pdf", Data: []byte("x")})
		assert.Equal(t, importerr.StatusNoActivities, out.Status)
		assert.False(t, out.Successful)
		assert.Nil(t, out.Activities)
	})
}

func TestProcess_FailurePaths(t *testing.T) {
	ctx := context.Background()
	g := money.NewTestDataGeneratorWithSeed(11)
	pdfPages := []document.Page{{"bank"}}

	tests := []struct {
		name   string
		ex     *fakeExtractor
		parse  func(document.Content) (implementation.Result, error)
		status importerr.Status
	}{
		{
			name:   "extraction failure",
			ex:     &fakeExtractor{err: extractor.ErrUnreadablePDF},
			parse:  returns(nil, 0),
			status: importerr.StatusNoImplementation,
		},
		{
			name:   "empty document",
			ex:     &fakeExtractor{pages: []document.Page{{}, {}}},
			parse:  returns(nil, 0),
			status: importerr.StatusNoImplementation,
		},
		{
			name: "parser error",
			ex:   &fakeExtractor{pages: pdfPages},
			parse: func(document.Content) (implementation.Result, error) {
				return implementation.Result{}, importerr.NewParserError("bad number")
			},
			status: importerr.StatusParseFailed,
		},
		{
			name: "untyped error",
			ex:   &fakeExtractor{pages: pdfPages},
			parse: func(document.Content) (implementation.Result, error) {
				return implementation.Result{}, errors.New("index out of range")
			},
			status: importerr.StatusParseFailed,
		},
		{
			name: "panic",
			ex:   &fakeExtractor{pages: pdfPages},
			parse: func(document.Content) (implementation.Result, error) {
				panic("boom")
			},
			status: importerr.StatusParseFailed,
		},
		{
			name:   "ignored document",
			ex:     &fakeExtractor{pages: pdfPages},
			parse:  returns(nil, importerr.StatusIgnoredDocument),
			status: importerr.StatusIgnoredDocument,
		},
		{
			name:   "non-zero status drops activities",
			ex:     &fakeExtractor{pages: pdfPages},
			parse:  returns([]*activity.Activity{newActivity(g)}, importerr.StatusIgnoredDocument),
			status: importerr.StatusIgnoredDocument,
		},
		{
			name:   "absent activities",
			ex:     &fakeExtractor{pages: pdfPages},
			parse:  returns(nil, 0),
			status: importerr.StatusNoActivities,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(tt.ex, &fakeImpl{name: "a", detect: always(), parse: tt.parse})

			out := svc.Process(ctx, document.File{Name: "statement.pdf", Data: []byte("x")})
			assert.Equal(t, tt.status, out.Status)
			assert.False(t, out.Successful)
			assert.Nil(t, out.Activities)
		})
	}
}

func TestParseActivitiesFromPages(t *testing.T) {
	g := money.NewTestDataGeneratorWithSeed(3)
	acts := []*activity.Activity{newActivity(g)}
	svc := newService(&fakeExtractor{}, &fakeImpl{name: "a", detect: always(), parse: returns(acts, 0)})

	result, err := svc.ParseActivitiesFromPages([]document.Page{{"bank"}}, "x.PDF", "")
	require.NoError(t, err)
	assert.Equal(t, acts, result.Activities)

	_, err = svc.ParseActivitiesFromPages([]document.Page{{"bank"}}, "x.xlsx", "xlsx")
	assert.ErrorIs(t, err, importerr.ErrUnsupportedType)

	_, err = svc.ParseActivitiesFromPages(nil, "x.pdf", document.ExtensionPDF)
	assert.ErrorIs(t, err, importerr.ErrNoImplementation)
}

func TestProcessBatch(t *testing.T) {
	g := money.NewTestDataGeneratorWithSeed(5)
	impl := &fakeImpl{
		name: "a",
		detect: func(pages []document.Page, _ document.Extension) bool {
			return pages[0][0] != "unknown"
		},
		parse: func(c document.Content) (implementation.Result, error) {
			if c.Pages[0][0] == "boom" {
				panic("boom")
			}
			return implementation.OK([]*activity.Activity{newActivityLocked(g)}), nil
		},
	}
	ex := &pagesByName{}
	svc := New([]implementation.Implementation{impl}, ex, document.DefaultExtensions(), nil).WithWorkers(3)

	var files []document.File
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("doc-%02d.pdf", i)
		switch i % 4 {
		case 1:
			name = fmt.Sprintf("doc-%02d.txt", i)
		case 2:
			ex.set(name, "unknown")
		case 3:
			ex.set(name, "boom")
		default:
			ex.set(name, "ok")
		}
		files = append(files, document.File{Name: name, Data: []byte("x")})
	}

	outcomes := svc.ProcessBatch(context.Background(), files)
	require.Len(t, outcomes, len(files))
	for i, out := range outcomes {
		assert.Equal(t, files[i].Name, out.File)
		switch i % 4 {
		case 0:
			assert.True(t, out.Successful, out.File)
		case 1:
			assert.Equal(t, importerr.StatusUnsupportedType, out.Status)
		case 2:
			assert.Equal(t, importerr.StatusNoImplementation, out.Status)
		case 3:
			assert.Equal(t, importerr.StatusParseFailed, out.Status)
		}
	}
}

func TestOutcomeJSON(t *testing.T) {
	out := Outcome{File: "a.pdf", Status: importerr.StatusAmbiguous, Implementation: "x", Err: errors.New("e")}
	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"file":"a.pdf","activities":null,"status":2,"successful":false}`, string(data))
}

func TestTotals(t *testing.T) {
	acts := []*activity.Activity{
		{Amount: decimal.RequireFromString("300.50"), Currency: "EUR"},
		{Amount: decimal.RequireFromString("1.00"), Currency: "EUR"},
		{Amount: decimal.RequireFromString("0.48"), Currency: "USD"},
	}
	assert.Equal(t, []string{"$0.48", "€301.50"}, totals(acts))
	assert.Empty(t, totals(nil))
}

func TestReadFailure(t *testing.T) {
	cause := errors.New("permission denied")
	out := ReadFailure("locked.pdf", cause)

	assert.Equal(t, "locked.pdf", out.File)
	assert.Equal(t, importerr.StatusNoImplementation, out.Status)
	assert.False(t, out.Successful)
	assert.Nil(t, out.Activities)
	assert.ErrorIs(t, out.Err, cause)
	kind, ok := importerr.KindOf(out.Err)
	require.True(t, ok)
	assert.Equal(t, importerr.KindDocument, kind)
}

func TestMetrics(t *testing.T) {
	g := money.NewTestDataGeneratorWithSeed(9)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	acts := []*activity.Activity{newActivity(g), newActivity(g)}
	svc := newService(&fakeExtractor{pages: []document.Page{{"bank"}}},
		&fakeImpl{name: "fake", detect: always(), parse: returns(acts, 0)}).WithMetrics(metrics)

	svc.Process(context.Background(), document.File{Name: "a.pdf", Data: []byte("x")})
	svc.Process(context.Background(), document.File{Name: "a.txt", Data: []byte("x")})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.documents.WithLabelValues("0", "fake")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.documents.WithLabelValues("4", noImplementation)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.activities.WithLabelValues("fake")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.duration))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.observe(Outcome{}, "", time.Second) })
}
