// Package inbox compiles criteria documents dropped into a directory and
// writes a result file next to each one (or under a separate results root).
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/compiler"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// Compiler compiles one criteria document.
type Compiler interface {
	Compile(ctx context.Context, req compiler.Request) (*compiler.Result, error)
}

// Tracker remembers which document contents have already been compiled.
type Tracker interface {
	MarkDocument(path, checksum string) error
	ForgetDocument(path string) error
	DocumentChecksums() (map[string]string, error)
}

// Processor compiles inbox documents and maintains their result files.
type Processor struct {
	svc     Compiler
	docs    storage.Provider
	results storage.Provider
	tracker Tracker
	logger  *slog.Logger
}

// NewProcessor creates a Processor. Result files are written to results,
// mirroring the document layout of docs.
func NewProcessor(svc Compiler, docs, results storage.Provider, tracker Tracker, logger *slog.Logger) *Processor {
	return &Processor{svc: svc, docs: docs, results: results, tracker: tracker, logger: logger}
}

// Process compiles the document at path and rewrites its result files.
// A file holding several "---" separated documents produces one query line
// per document; failed documents leave an empty line and are listed in the
// error file.
func (p *Processor) Process(ctx context.Context, path string) error {
	data, err := p.docs.Read(path)
	if err != nil {
		return err
	}

	var (
		queries []string
		errs    []string
	)
	docs, err := parser.ParseAll(data)
	if err != nil {
		errs = append(errs, err.Error())
	}
	for i, doc := range docs {
		res, err := p.svc.Compile(ctx, compiler.Request{
			Document:     doc.Document,
			Context:      doc.Context,
			Source:       compiler.SourceInbox,
			DocumentPath: path,
			Title:        doc.Title,
		})
		if err != nil {
			queries = append(queries, "")
			if len(docs) == 1 {
				errs = append(errs, err.Error())
			} else {
				errs = append(errs, fmt.Sprintf("document %d: %v", i, err))
			}
			continue
		}
		queries = append(queries, res.Query)
	}

	if err := p.writeResults(path, queries, errs); err != nil {
		return err
	}
	return p.tracker.MarkDocument(path, checksum.Sum(data))
}

// Remove deletes the result files of a document that left the inbox.
func (p *Processor) Remove(path string) error {
	p.deleteResult(storage.ResultPath(path, storage.QueryExt))
	p.deleteResult(storage.ResultPath(path, storage.ErrorExt))
	return p.tracker.ForgetDocument(path)
}

func (p *Processor) writeResults(path string, queries, errs []string) error {
	queryPath := storage.ResultPath(path, storage.QueryExt)
	errorPath := storage.ResultPath(path, storage.ErrorExt)

	hasQuery := false
	for _, q := range queries {
		if q != "" {
			hasQuery = true
			break
		}
	}

	if hasQuery {
		if err := p.results.Write(queryPath, []byte(strings.Join(queries, "\n")+"\n")); err != nil {
			return err
		}
	} else {
		p.deleteResult(queryPath)
	}

	if len(errs) > 0 {
		return p.results.Write(errorPath, []byte(strings.Join(errs, "\n")+"\n"))
	}
	p.deleteResult(errorPath)
	return nil
}

func (p *Processor) deleteResult(path string) {
	if err := p.results.Delete(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("inbox: delete result failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}
