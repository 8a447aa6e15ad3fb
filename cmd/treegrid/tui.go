package main

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/treegrid/pkg/config"
	"github.com/vanderheijden86/treegrid/pkg/debug"
	"github.com/vanderheijden86/treegrid/pkg/treegrid"
	"github.com/vanderheijden86/treegrid/pkg/ui"
	"github.com/vanderheijden86/treegrid/pkg/watcher"
)

type tuiOptions struct {
	Columns int
	Headers []string
	Watch   bool
}

// runTUI shows the inputs in the terminal UI until the user quits or ctx
// is cancelled. File watchers run alongside the program and are stopped
// when it ends.
func runTUI(ctx context.Context, cfg config.Config, inputs []loaded, opts tuiOptions) error {
	deferrer := ui.NewTeaDeferrer()
	gridOpts := append(cfg.GridOptions(),
		treegrid.WithColumnCount(opts.Columns),
		treegrid.WithDeferrer(deferrer),
	)
	grid := treegrid.New(gridOpts...)

	sources, docs := sourcesFor(inputs)
	if err := ui.Mount(grid.Tree(), sources, docs); err != nil {
		return err
	}

	if opts.Watch {
		for _, src := range sources {
			w, err := watcher.NewWatcher(src.Path,
				watcher.WithOnError(func(err error) {
					debug.Log("watcher %s: %v", src.Name, err)
				}),
			)
			if err != nil {
				log.Printf("warning: cannot watch %s: %v", src.Path, err)
				continue
			}
			if err := w.Start(); err != nil {
				log.Printf("warning: cannot watch %s: %v", src.Path, err)
				continue
			}
			src.Watcher = w
		}
	}

	if debug.Enabled() {
		// The program owns the terminal; keep debug output out of it.
		if f, err := openDebugLog(); err == nil {
			defer f.Close()
			debug.SetOutput(f)
		}
	}

	m, err := ui.NewGridModel(grid, deferrer, sources, ui.Options{
		Headers:   opts.Headers,
		StatePath: cfg.ResolvedStateFile(sources[0].Path),
		Theme:     cfg.UI.Theme,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return runTUIProgram(ctx, m)
	})
	g.Go(func() error {
		<-ctx.Done()
		for _, src := range sources {
			if src.Watcher != nil {
				src.Watcher.Stop()
			}
		}
		return nil
	})
	return g.Wait()
}

func runTUIProgram(ctx context.Context, m ui.GridModel) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		// Signals cancel ctx instead (see main).
		tea.WithoutSignalHandler(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)) {
		return nil
	}
	return err
}

func openDebugLog() (*os.File, error) {
	dir := config.StateDir()
	if dir == "" {
		return nil, os.ErrNotExist
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "debug.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
