// Command treegrid shows outline files (YAML, JSON, JSONL or SQLite) as a
// collapsible tree grid in the terminal, prints them as TSV or markdown, or
// renders them to an SVG or PNG snapshot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"golang.org/x/term"

	"github.com/vanderheijden86/treegrid/pkg/config"
	"github.com/vanderheijden86/treegrid/pkg/metrics"
	"github.com/vanderheijden86/treegrid/pkg/treegrid"
	"github.com/vanderheijden86/treegrid/pkg/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without the process exit, returning the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("treegrid", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Read configuration from this file instead of the XDG location")
	columns := fs.Int("columns", 0, "Number of columns (default: configured count, widened to fit the outline)")
	rowHeight := fs.Int("row-height", 0, "Row height in grid units; the terminal shows one line per 32")
	printFlag := fs.Bool("print", false, "Print the visible rows instead of starting the UI")
	format := fs.String("format", "tsv", "Print format: tsv or markdown")
	exportPath := fs.String("export", "", "Render the visible rows to an .svg or .png file and exit")
	noHooks := fs.Bool("no-hooks", false, "Skip the export hooks in .treegrid/hooks.yaml")
	title := fs.String("title", "", "Title for -export (default: the outline title)")
	check := fs.Bool("check", false, "Compare the inputs with each other and report differences")
	watch := fs.Bool("watch", true, "Reload outlines when their files change")
	versionFlag := fs.Bool("version", false, "Show version")
	stats := fs.Bool("stats", false, "Print timing metrics and counters to stderr on exit")
	cpuProfile := fs.String("cpu-profile", "", "Write CPU profile to file")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: treegrid [options] [outline|dir ...]")
		fmt.Fprintln(stderr, "\nShows outlines as a collapsible tree grid. Without arguments the")
		fmt.Fprintln(stderr, "freshest outline in the current directory is used.")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *versionFlag {
		fmt.Fprintf(stdout, "treegrid %s\n", version.Version)
		return 0
	}

	if *stats {
		defer printStats(stderr)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(stderr, "Could not create CPU profile: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(stderr, "Could not start CPU profile: %v\n", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	cfg, err := loadConfig(*configPath, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *rowHeight != 0 {
		cfg.Grid.RowHeight = *rowHeight
	}
	if *columns < 0 {
		fmt.Fprintf(stderr, "Error: -columns: %v\n", treegrid.ErrInvalidColumnCount)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		inputs = []string{"."}
	}
	outlines, err := loadInputs(ctx, inputs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if *check {
		ok, err := checkConsistency(stdout, outlines)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if !ok {
			return 1
		}
		return 0
	}

	cols := columnsFor(*columns, cfg.Grid.ColumnCount, outlines)
	headers := headersFor(cfg.UI.Headers, outlines)

	if *exportPath != "" || *printFlag || !interactive(stdout) {
		g, err := staticGrid(cfg, cols, outlines)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if *exportPath != "" {
			if err := exportSnapshot(stderr, *exportPath, titleFor(*title, outlines), g, headers, hookDir(outlines), *noHooks); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return 1
			}
			fmt.Fprintf(stderr, "Wrote %s\n", *exportPath)
			return 0
		}
		if err := printTable(stdout, g, headers, *format); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	err = runTUI(ctx, cfg, outlines, tuiOptions{Columns: cols, Headers: headers, Watch: *watch})
	if err != nil {
		fmt.Fprintf(stderr, "Error running treegrid: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(path string, stderr io.Writer) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	cfg, err := config.Load()
	if err != nil {
		// Non-fatal: a broken user config should not block viewing.
		fmt.Fprintf(stderr, "Warning: %v (using defaults)\n", err)
		return config.DefaultConfig(), nil
	}
	return cfg, nil
}

// printStats writes the collected timings and counters.
func printStats(w io.Writer) {
	fmt.Fprintln(w, "timings:")
	for _, st := range metrics.AllTimingStats() {
		fmt.Fprintf(w, "  %-16s n=%-6d avg=%.3fms max=%.3fms total=%.3fms\n", st.Name, st.Count, st.AvgMs, st.MaxMs, st.TotalMs)
	}
	fmt.Fprintln(w, "counters:")
	for _, c := range metrics.AllCounters() {
		fmt.Fprintf(w, "  %-20s %d\n", c.Name(), c.Value())
	}
}

// interactive reports whether stdout and stdin are both terminals.
func interactive(stdout io.Writer) bool {
	f, ok := stdout.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}
