package internal

import (
	"context"
	"fmt"

	"github.com/starford/ansuz/internal/compiler"
	"github.com/starford/ansuz/internal/parser"
)

// CompileOutcome is the result of one document compiled from the command
// line. Exactly one of Query and Err is set.
type CompileOutcome struct {
	Query string
	Err   error
}

// CompileDocuments compiles every document in data. Non-empty fields of
// override replace each document's own context.
func CompileDocuments(ctx context.Context, data []byte, override parser.Context, opts ...Option) ([]CompileOutcome, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	docs, err := parser.ParseAll(data)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no criteria document in input")
	}

	c, err := app.setup()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	out := make([]CompileOutcome, len(docs))
	for i, doc := range docs {
		res, err := c.svc.Compile(ctx, compiler.Request{
			Document: doc.Document,
			Context:  mergeContext(doc.Context, override),
			Source:   compiler.SourceCLI,
			Title:    doc.Title,
		})
		if err != nil {
			out[i].Err = err
			continue
		}
		out[i].Query = res.Query
	}
	return out, nil
}

// ResolveDate resolves a date expression, or a start/end pair when end is
// non-empty.
func ResolveDate(ctx context.Context, expression, end, reference string, opts ...Option) (*compiler.Resolved, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	svc := compiler.NewService(compiler.WithDefaults(compiler.Defaults{
		User:     app.config.Context.DefaultUser,
		Folder:   app.config.Context.DefaultFolder,
		Location: app.config.Context.Location(),
	}))
	if end != "" {
		return svc.ResolveRange(ctx, expression, end, reference)
	}
	return svc.Resolve(ctx, expression, reference)
}

func mergeContext(doc, override parser.Context) parser.Context {
	if override.User != "" {
		doc.User = override.User
	}
	if override.Folder != "" {
		doc.Folder = override.Folder
	}
	if override.Reference != "" {
		doc.Reference = override.Reference
	}
	return doc
}
