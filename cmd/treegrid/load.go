package main

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/treegrid/internal/datasource"
	"github.com/vanderheijden86/treegrid/pkg/debug"
	"github.com/vanderheijden86/treegrid/pkg/metrics"
	"github.com/vanderheijden86/treegrid/pkg/outline"
	"github.com/vanderheijden86/treegrid/pkg/ui"
)

// maxParallelLoads bounds concurrent outline loads (file descriptors, memory).
const maxParallelLoads = 8

// loaded is one command line input after loading.
type loaded struct {
	Input  string
	Source datasource.DataSource
	Doc    *outline.Document
}

// loadInputs loads every input concurrently. Results keep the input order;
// the first failure cancels the rest.
func loadInputs(ctx context.Context, inputs []string) ([]loaded, error) {
	defer metrics.Timer(metrics.OutlineLoad)()

	results := make([]loaded, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)

	for i, input := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, src, err := datasource.LoadPath(input)
			if err != nil {
				return fmt.Errorf("loading %s: %w", input, err)
			}
			debug.Log("loaded %s from %s", input, src)
			results[i] = loaded{Input: input, Source: src, Doc: doc}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// columnsFor picks the column count: an explicit flag wins, otherwise the
// configured count grows to fit the widest outline.
func columnsFor(flagColumns, configured int, inputs []loaded) int {
	if flagColumns > 0 {
		return flagColumns
	}
	n := configured
	for _, in := range inputs {
		if c := in.Doc.MaxCells() + 1; c > n {
			n = c
		}
	}
	return n
}

// sourcesFor wraps the loaded outlines for the UI. Reload and save go
// through the file the outline was actually read from.
func sourcesFor(inputs []loaded) ([]*ui.Source, []*outline.Document) {
	sources := make([]*ui.Source, len(inputs))
	docs := make([]*outline.Document, len(inputs))
	for i, in := range inputs {
		path := in.Source.Path
		sources[i] = &ui.Source{
			Name: ui.SourceName(path),
			Path: path,
			Load: func() (*outline.Document, error) {
				doc, _, err := datasource.LoadPath(path)
				return doc, err
			},
			Save: func(doc *outline.Document) error {
				return datasource.SavePath(path, doc)
			},
		}
		docs[i] = in.Doc
	}
	return sources, docs
}

// headersFor returns the configured headers, else those of the first
// outline that has any.
func headersFor(configured []string, inputs []loaded) []string {
	if len(configured) > 0 {
		return configured
	}
	for _, in := range inputs {
		if len(in.Doc.Columns) > 0 {
			return in.Doc.Columns
		}
	}
	return nil
}
