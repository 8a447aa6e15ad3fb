package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/vanderheijden86/treegrid/pkg/config"
	"github.com/vanderheijden86/treegrid/pkg/export"
	"github.com/vanderheijden86/treegrid/pkg/hooks"
	"github.com/vanderheijden86/treegrid/pkg/treegrid"
	"github.com/vanderheijden86/treegrid/pkg/ui"
)

// staticGrid builds an attached grid over the inputs with no deferred
// work; everything is projected once.
func staticGrid(cfg config.Config, columns int, inputs []loaded) (*treegrid.Grid, error) {
	opts := append(cfg.GridOptions(), treegrid.WithColumnCount(columns))
	g := treegrid.New(opts...)
	sources, docs := sourcesFor(inputs)
	if err := ui.Mount(g.Tree(), sources, docs); err != nil {
		return nil, err
	}
	g.Attach()
	return g, nil
}

// printTable writes the visible rows as TSV or markdown.
func printTable(w io.Writer, g *treegrid.Grid, headers []string, format string) error {
	table := export.Capture(g, headers, nil)
	opts := export.TextOptions{Indent: "  ", Markers: true}
	switch strings.ToLower(format) {
	case "", "tsv":
		return export.WriteTSV(w, table, opts)
	case "md", "markdown":
		opts.Indent = ""
		return export.WriteMarkdown(w, table, opts)
	default:
		return fmt.Errorf("unknown print format %q (want tsv or markdown)", format)
	}
}

// exportSnapshot renders the visible rows to an SVG or PNG file, running
// the export hooks of dir around it unless noHooks is set.
func exportSnapshot(w io.Writer, path, title string, g *treegrid.Grid, headers []string, dir string, noHooks bool) error {
	table := export.Capture(g, headers, nil)
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		format = "svg"
	}
	executor, err := hooks.RunHooks(dir, hooks.ExportContext{
		ExportPath:   path,
		ExportFormat: format,
		RowCount:     len(table.Rows),
		Timestamp:    time.Now(),
	}, noHooks)
	if err != nil {
		return err
	}
	if executor != nil {
		defer func() {
			if s := executor.Summary(); s != "" {
				fmt.Fprint(w, s)
			}
		}()
		if err := executor.RunPreExport(); err != nil {
			return err
		}
	}

	err = export.SaveSnapshot(export.SnapshotOptions{
		Path:  path,
		Title: title,
		Table: table,
	})
	if err != nil {
		return err
	}
	if executor != nil {
		return executor.RunPostExport()
	}
	return nil
}

// hookDir is the directory whose .treegrid/hooks.yaml applies: that of the
// first outline.
func hookDir(inputs []loaded) string {
	if len(inputs) == 0 || inputs[0].Source.Path == "" {
		return "."
	}
	return filepath.Dir(inputs[0].Source.Path)
}

func titleFor(flagTitle string, inputs []loaded) string {
	if flagTitle != "" {
		return flagTitle
	}
	if len(inputs) == 1 {
		if t := inputs[0].Doc.Title; t != "" {
			return t
		}
		return ui.SourceName(inputs[0].Source.Path)
	}
	return ""
}
