// Package compiler coordinates criteria compilation for every outer surface:
// it validates and compiles documents, records the outcome in the history
// store, publishes events and updates metrics.
package compiler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/datexpr"
	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/metrics"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/query"
	"github.com/starford/ansuz/internal/sse"
)

// Compilation sources.
const (
	SourceAPI   = "api"
	SourceMCP   = "mcp"
	SourceCLI   = "cli"
	SourceInbox = "inbox"
)

// ErrHistoryDisabled is returned by history operations when the service has
// no history store.
var ErrHistoryDisabled = errors.New("compile history is disabled")

// Publisher receives finished compilations.
type Publisher interface {
	PublishCompileEvent(ev sse.CompileEvent)
}

// Defaults are applied to requests that leave context values empty.
type Defaults struct {
	User   string
	Folder string
	// Location interprets reference strings without an explicit offset.
	Location *time.Location
}

// Request is one compile request.
type Request struct {
	Document map[string]any
	Context  parser.Context
	Source   string
	// DocumentPath is the inbox path the document was read from.
	DocumentPath string
	Title        string
}

// ResolvedContext is the context a compilation actually ran with.
type ResolvedContext struct {
	User      string    `json:"user"`
	Folder    string    `json:"folder"`
	Reference time.Time `json:"reference"`
}

// Result is a successful compilation.
type Result struct {
	ID        string          `json:"id"`
	Query     string          `json:"query"`
	Checksum  string          `json:"checksum"`
	Context   ResolvedContext `json:"context"`
	CreatedAt time.Time       `json:"created_at"`
}

// Resolved is a resolved date expression.
type Resolved struct {
	Expression string `json:"expression"`
	Kind       string `json:"kind"`
	Value      string `json:"value"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
}

// Resolution kinds.
const (
	KindInstant = "instant"
	KindRange   = "range"
)

// Service coordinates compilation, history, events and metrics.
type Service struct {
	compiler *query.Compiler
	dates    *datexpr.Resolver
	history  history.Store
	events   Publisher
	metrics  *metrics.Metrics
	defaults Defaults
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a new compile service.
func NewService(opts ...Option) *Service {
	s := &Service{
		dates:  datexpr.NewResolver(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaults.Location == nil {
		s.defaults.Location = time.UTC
	}
	s.compiler = query.NewCompiler(s.dates, query.WithLogger(s.logger), query.WithClock(s.now))
	return s
}

// Compile validates and compiles one criteria document. Every attempt,
// failed or not, is recorded and published.
func (s *Service) Compile(_ context.Context, req Request) (*Result, error) {
	start := time.Now()
	source := req.Source
	if source == "" {
		source = SourceAPI
	}

	rec := models.Compilation{
		ID:         uuid.NewString(),
		Source:     source,
		Document:   req.DocumentPath,
		Title:      req.Title,
		Categories: categoriesOf(req.Document),
		CreatedAt:  s.now().UTC(),
	}
	if canonical, sum, err := checksum.Canonical(req.Document); err == nil {
		rec.Criteria, rec.Checksum = canonical, sum
	} else {
		s.logger.Warn("canonical encode failed", slog.String("error", err.Error()))
	}

	rc, err := s.resolveContext(req.Context)
	if err == nil {
		rec.User, rec.Folder, rec.Reference = rc.CurrentUser, rc.CurrentFolder, rc.Reference

		var inputs []query.Input
		inputs, err = query.Decode(req.Document)
		if err == nil {
			for _, in := range inputs {
				s.metrics.AddCriteria(metricCategory(in.Category))
			}
			rec.Query, err = s.compiler.Compile(inputs, rc)
		}
	}
	if err != nil {
		rec.Error = err.Error()
	}

	s.metrics.ObserveCompileLatency(time.Since(start))
	s.metrics.IncrementCompilation(source, outcome(err))
	s.record(rec)

	if err != nil {
		s.logger.Warn("compile failed",
			slog.String("id", rec.ID),
			slog.String("source", source),
			slog.String("error", err.Error()))
		return nil, err
	}
	return &Result{
		ID:       rec.ID,
		Query:    rec.Query,
		Checksum: rec.Checksum,
		Context: ResolvedContext{
			User:      rec.User,
			Folder:    rec.Folder,
			Reference: rec.Reference,
		},
		CreatedAt: rec.CreatedAt,
	}, nil
}

// Validate checks a criteria document without compiling it.
func (s *Service) Validate(_ context.Context, doc map[string]any) error {
	return query.Validate(doc)
}

// Resolve resolves a single date expression. An empty reference uses the
// current time.
func (s *Service) Resolve(_ context.Context, expression, reference string) (*Resolved, error) {
	ref, err := s.reference(reference)
	if err != nil {
		s.metrics.IncrementResolution(outcome(err))
		return nil, err
	}
	res, err := s.dates.Resolve(expression, ref)
	s.metrics.IncrementResolution(outcome(err))
	if err != nil {
		return nil, err
	}

	out := &Resolved{Expression: expression, Kind: KindInstant, Value: res.String()}
	if res.IsRange() {
		out.Kind = KindRange
		out.Start = datexpr.FormatInstant(res.Range.Start)
		out.End = datexpr.FormatInstant(res.Range.End)
	}
	return out, nil
}

// ResolveRange resolves two expressions into one inclusive range.
func (s *Service) ResolveRange(_ context.Context, start, end, reference string) (*Resolved, error) {
	ref, err := s.reference(reference)
	if err != nil {
		s.metrics.IncrementResolution(outcome(err))
		return nil, err
	}
	r, err := s.dates.ResolveRange(start, end, ref)
	s.metrics.IncrementResolution(outcome(err))
	if err != nil {
		return nil, err
	}
	return &Resolved{
		Expression: start + " - " + end,
		Kind:       KindRange,
		Value:      r.String(),
		Start:      datexpr.FormatInstant(r.Start),
		End:        datexpr.FormatInstant(r.End),
	}, nil
}

// History returns a page of recorded compilations.
func (s *Service) History(_ context.Context, opts history.ListOptions) ([]models.Compilation, int, error) {
	if s.history == nil {
		return nil, 0, ErrHistoryDisabled
	}
	return s.history.List(opts)
}

// Get returns one recorded compilation.
func (s *Service) Get(_ context.Context, id string) (*models.Compilation, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.Get(id)
}

// Search delegates full-text search to the history store.
func (s *Service) Search(_ context.Context, q string, limit int) ([]history.SearchResult, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.Search(q, limit)
}

// resolveContext builds the per-call resolution context from request values and
// the service defaults.
func (s *Service) resolveContext(c parser.Context) (query.Context, error) {
	rc := query.Context{CurrentUser: c.User, CurrentFolder: c.Folder}
	if rc.CurrentUser == "" {
		rc.CurrentUser = s.defaults.User
	}
	if rc.CurrentFolder == "" {
		rc.CurrentFolder = s.defaults.Folder
	}
	ref, err := s.reference(c.Reference)
	if err != nil {
		return query.Context{}, err
	}
	rc.Reference = ref
	return s.compiler.Defaults(rc), nil
}

func (s *Service) reference(value string) (time.Time, error) {
	if value == "" {
		return s.now(), nil
	}
	return datexpr.ParseReference(value, s.defaults.Location)
}

func (s *Service) record(rec models.Compilation) {
	if s.history != nil {
		if err := s.history.Record(rec); err != nil {
			s.logger.Warn("record compilation failed",
				slog.String("id", rec.ID),
				slog.String("error", err.Error()))
		}
	}
	if s.events != nil {
		s.events.PublishCompileEvent(sse.CompileEvent{
			ID:       rec.ID,
			Source:   rec.Source,
			Document: rec.Document,
			Query:    rec.Query,
			Error:    rec.Error,
		})
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, apperr.ErrValidation):
		return metrics.OutcomeInvalid
	case errors.Is(err, apperr.ErrDateParse):
		return metrics.OutcomeDateParse
	case errors.Is(err, apperr.ErrConfiguration):
		return metrics.OutcomeConfiguration
	default:
		return metrics.OutcomeInternal
	}
}

// metricCategory keeps the category label set closed.
func metricCategory(category string) string {
	for _, c := range query.Categories {
		if string(c) == category {
			return category
		}
	}
	return "other"
}

// categoriesOf lists the distinct category strings of a raw document in
// first-seen order. Malformed entries are skipped.
func categoriesOf(doc map[string]any) []string {
	list, _ := doc["criteria"].([]any)
	seen := make(map[string]struct{}, len(list))
	out := []string{}
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		cat, ok := m["category"].(string)
		if !ok || cat == "" {
			continue
		}
		if _, dup := seen[cat]; dup {
			continue
		}
		seen[cat] = struct{}{}
		out = append(out, cat)
	}
	return out
}
