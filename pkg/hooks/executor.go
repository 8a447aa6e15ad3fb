package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vanderheijden86/treegrid/pkg/debug"
)

// maxSummaryOutput caps hook output quoted in Summary.
const maxSummaryOutput = 200

// Result records one hook run.
type Result struct {
	Hook     Hook
	Phase    HookPhase
	Success  bool
	Stdout   string
	Stderr   string
	Error    error
	Duration time.Duration
}

// Executor runs the hooks of a Config for one export.
type Executor struct {
	config  *Config
	ctx     ExportContext
	results []Result
}

// NewExecutor returns an Executor for config and export context ctx.
func NewExecutor(config *Config, ctx ExportContext) *Executor {
	if config == nil {
		config = &Config{}
	}
	return &Executor{config: config, ctx: ctx}
}

// RunPreExport runs the pre-export hooks in order and stops at the first
// failing hook whose on_error is fail.
func (e *Executor) RunPreExport() error {
	for _, hook := range e.config.Hooks.PreExport {
		r := e.run(PreExport, hook)
		if !r.Success && hook.OnError != OnErrorContinue {
			return fmt.Errorf("pre-export hook %q failed: %w", hook.Name, r.Error)
		}
	}
	return nil
}

// RunPostExport runs every post-export hook. Failures of hooks whose
// on_error is fail are joined into the returned error.
func (e *Executor) RunPostExport() error {
	var errs []error
	for _, hook := range e.config.Hooks.PostExport {
		r := e.run(PostExport, hook)
		if !r.Success && hook.OnError == OnErrorFail {
			errs = append(errs, fmt.Errorf("post-export hook %q failed: %w", hook.Name, r.Error))
		}
	}
	return errors.Join(errs...)
}

func (e *Executor) run(phase HookPhase, hook Hook) Result {
	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", hook.Command)
	cmd.Env = append(os.Environ(), e.ctx.ToEnv()...)
	for k, v := range hook.Env {
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	// Without a wait delay a grandchild holding the pipes keeps Run blocked
	// past the timeout.
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r := Result{
		Hook:     hook,
		Phase:    phase,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		r.Error = fmt.Errorf("timed out after %v", timeout)
	case err != nil:
		r.Error = err
	default:
		r.Success = true
	}
	debug.Log("hook %s (%s): success=%v in %v", hook.Name, phase, r.Success, r.Duration)
	e.results = append(e.results, r)
	return r
}

// Results returns the runs so far, in order.
func (e *Executor) Results() []Result {
	return e.results
}

// Summary describes the runs for the user, or "" when nothing ran.
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return ""
	}
	var ok, failed int
	var b strings.Builder
	for _, r := range e.results {
		if r.Success {
			ok++
			continue
		}
		failed++
		fmt.Fprintf(&b, "  %s (%s): %v\n", r.Hook.Name, r.Phase, r.Error)
		if r.Stderr != "" {
			fmt.Fprintf(&b, "    stderr: %s\n", truncate(r.Stderr, maxSummaryOutput))
		}
	}
	return fmt.Sprintf("hooks: %d succeeded, %d failed\n", ok, failed) + b.String()
}

// RunHooks loads the hooks of projectDir and returns an Executor for them.
// It returns nil when disabled is set or no hooks are configured.
func RunHooks(projectDir string, ctx ExportContext, disabled bool) (*Executor, error) {
	if disabled {
		return nil, nil
	}
	loader := NewLoader(WithProjectDir(projectDir))
	if err := loader.Load(); err != nil {
		return nil, err
	}
	for _, w := range loader.Warnings() {
		debug.Log("hooks: %s", w)
	}
	if !loader.HasHooks() {
		return nil, nil
	}
	return NewExecutor(loader.Config(), ctx), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
