package query

import (
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/datexpr"
)

// Context defaults applied when the caller leaves a value empty.
const (
	DefaultUser   = "anonymous"
	DefaultFolder = "/"
)

var slashRun = regexp.MustCompile(`/+`)

var errMultipleDates = errors.New("expected a single date expression")

// DateResolver resolves date expressions against a reference instant.
type DateResolver interface {
	Resolve(expression string, reference time.Time) (datexpr.Resolution, error)
}

// Context is the per-call resolution context. It is never stored on the
// Compiler, so one Compiler can serve concurrent callers.
type Context struct {
	CurrentUser   string
	CurrentFolder string
	Reference     time.Time
}

// Compiler turns criteria into a backend query string.
type Compiler struct {
	dates  DateResolver
	now    func() time.Time
	logger *slog.Logger
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) CompilerOption {
	return func(c *Compiler) { c.logger = l }
}

// WithClock sets the clock used when a Context has no reference instant.
func WithClock(now func() time.Time) CompilerOption {
	return func(c *Compiler) { c.now = now }
}

// NewCompiler creates a Compiler. A nil resolver uses datexpr.NewResolver.
func NewCompiler(dates DateResolver, opts ...CompilerOption) *Compiler {
	if dates == nil {
		dates = datexpr.NewResolver()
	}
	c := &Compiler{
		dates:  dates,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Defaults fills empty context values: anonymous user, root folder, and the
// compiler clock's current instant.
func (c *Compiler) Defaults(rc Context) Context {
	if rc.CurrentUser == "" {
		rc.CurrentUser = DefaultUser
	}
	if rc.CurrentFolder == "" {
		rc.CurrentFolder = DefaultFolder
	}
	if rc.Reference.IsZero() {
		rc.Reference = c.now()
	}
	return rc
}

// CompileDocument validates a decoded structured-criteria document and
// compiles it.
func (c *Compiler) CompileDocument(doc map[string]any, rc Context) (string, error) {
	inputs, err := Decode(doc)
	if err != nil {
		return "", err
	}
	return c.Compile(inputs, rc)
}

// groups partitions criteria by category, remembering the order in which
// each category first appeared.
type groups struct {
	order    []Category
	file     []FileCriterion
	personal []PersonalCriterion
	date     []DateCriterion
	workflow []WorkflowCriterion
	folder   []FolderCriterion
	person   []PersonCriterion
}

func (g *groups) add(cr Criterion) {
	if !g.has(cr.Category()) {
		g.order = append(g.order, cr.Category())
	}
	switch v := cr.(type) {
	case FileCriterion:
		g.file = append(g.file, v)
	case PersonalCriterion:
		g.personal = append(g.personal, v)
	case DateCriterion:
		g.date = append(g.date, v)
	case WorkflowCriterion:
		g.workflow = append(g.workflow, v)
	case FolderCriterion:
		g.folder = append(g.folder, v)
	case PersonCriterion:
		g.person = append(g.person, v)
	}
}

func (g *groups) has(cat Category) bool {
	for _, c := range g.order {
		if c == cat {
			return true
		}
	}
	return false
}

// Compile groups criteria by category, compiles each group and ANDs the
// group expressions together. Criteria with unknown categories are ignored.
// Any error aborts the whole compilation.
func (c *Compiler) Compile(inputs []Input, rc Context) (string, error) {
	if err := ValidateInputs(inputs); err != nil {
		return "", err
	}
	rc = c.Defaults(rc)

	var g groups
	for _, in := range inputs {
		if cr, ok := Classify(in); ok {
			g.add(cr)
		}
	}

	var parts []string
	for _, cat := range g.order {
		var (
			expr string
			err  error
		)
		switch cat {
		case CategoryFile:
			expr = compileFile(g.file)
		case CategoryPersonal:
			expr = compilePersonal(g.personal, rc)
		case CategoryDate:
			expr, err = c.compileDates(g.date, rc)
		case CategoryWorkflow:
			expr = compileWorkflow(g.workflow)
		case CategoryFolder:
			expr = compileFolders(g.folder, rc)
		case CategoryPerson:
			expr = compilePersons(g.person)
		}
		if err != nil {
			return "", err
		}
		if expr != "" {
			parts = append(parts, expr)
		}
	}

	out := strings.Join(parts, " AND ")
	c.logger.Debug("compiled criteria",
		slog.Int("criteria", len(inputs)),
		slog.Int("groups", len(parts)),
		slog.String("query", out))
	return out, nil
}

// compileFile ORs asset domains and extensions. When both are present the
// two groups are themselves ORed, not ANDed.
func compileFile(crits []FileCriterion) string {
	var domains, extensions []string
	for _, cr := range crits {
		switch cr.Kind {
		case FileAssetDomain:
			domains = append(domains, cr.Values...)
		case FileExtension:
			extensions = append(extensions, cr.Values...)
		}
	}

	var parts []string
	if len(domains) > 0 {
		parts = append(parts, anyOf(FieldAssetDomain, domains))
	}
	if len(extensions) > 0 {
		parts = append(parts, anyOf(FieldExtension, extensions))
	}
	return group(parts, "OR")
}

func compilePersonal(crits []PersonalCriterion, rc Context) string {
	var terms []string
	for _, cr := range crits {
		field := cr.Scope.Field()
		if field == "" {
			continue
		}
		terms = append(terms, term(field, FormatValue(rc.CurrentUser)))
	}
	return group(terms, "AND")
}

func compileWorkflow(crits []WorkflowCriterion) string {
	exprs := make([]string, 0, len(crits))
	for _, cr := range crits {
		fields := make([]string, len(StatusFields))
		for i, f := range StatusFields {
			fields[i] = anyOf(f, cr.Values)
		}
		exprs = append(exprs, "("+strings.Join(fields, " OR ")+")")
	}
	return strings.Join(exprs, " AND ")
}

func compileFolders(crits []FolderCriterion, rc Context) string {
	exprs := make([]string, 0, len(crits))
	for _, cr := range crits {
		switch cr.Kind {
		case FolderName:
			path := slashRun.ReplaceAllString(rc.CurrentFolder+"/"+cr.Path, "/")
			exprs = append(exprs, term(FieldFolderPath, FormatPhrase(path)))
		case FolderAncestor:
			exprs = append(exprs, term(FieldAncestorPaths, FormatPhrase(cr.Path)))
		default:
			exprs = append(exprs, term(FieldFolderPath, FormatPhrase(cr.Path)))
		}
	}
	return strings.Join(exprs, " AND ")
}

func compilePersons(crits []PersonCriterion) string {
	exprs := make([]string, 0, len(crits))
	for _, cr := range crits {
		exprs = append(exprs, anyOf(cr.Field, cr.Values))
	}
	return strings.Join(exprs, " AND ")
}
