// Package hooks runs user commands around a grid export. Hooks are read
// from .treegrid/hooks.yaml next to the outline and run before the
// snapshot is rendered (pre-export) or after it is written (post-export).
package hooks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HookPhase says when a hook runs.
type HookPhase string

const (
	// PreExport runs before the snapshot is rendered. Failure cancels the export.
	PreExport HookPhase = "pre-export"
	// PostExport runs after the snapshot is written. Failure is reported only.
	PostExport HookPhase = "post-export"
)

// OnError values.
const (
	OnErrorFail     = "fail"
	OnErrorContinue = "continue"
)

// ConfigDir and ConfigFile locate the hooks file below a project directory.
const (
	ConfigDir  = ".treegrid"
	ConfigFile = "hooks.yaml"
)

// DefaultTimeout bounds a hook without an explicit timeout.
const DefaultTimeout = 30 * time.Second

// Hook is one configured command.
type Hook struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"` // run with sh -c
	Timeout time.Duration     `yaml:"timeout,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"` // values are expanded against the environment
	OnError string            `yaml:"on_error,omitempty"`
}

// Config is the parsed hooks file.
type Config struct {
	Hooks HooksByPhase `yaml:"hooks"`
}

// HooksByPhase groups hooks by phase, in run order.
type HooksByPhase struct {
	PreExport  []Hook `yaml:"pre-export,omitempty"`
	PostExport []Hook `yaml:"post-export,omitempty"`
}

// ExportContext describes the export to the hook through its environment.
type ExportContext struct {
	ExportPath   string    // TREEGRID_EXPORT_PATH
	ExportFormat string    // TREEGRID_EXPORT_FORMAT: svg or png
	RowCount     int       // TREEGRID_ROW_COUNT: visible rows in the snapshot
	Timestamp    time.Time // TREEGRID_TIMESTAMP, RFC 3339
}

// ToEnv returns the context as KEY=value pairs.
func (c ExportContext) ToEnv() []string {
	return []string{
		"TREEGRID_EXPORT_PATH=" + c.ExportPath,
		"TREEGRID_EXPORT_FORMAT=" + c.ExportFormat,
		fmt.Sprintf("TREEGRID_ROW_COUNT=%d", c.RowCount),
		"TREEGRID_TIMESTAMP=" + c.Timestamp.Format(time.RFC3339),
	}
}

// Loader reads the hooks file of one project directory.
type Loader struct {
	projectDir string
	config     *Config
	warnings   []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithProjectDir sets the directory holding .treegrid/ (default: cwd).
func WithProjectDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.projectDir = dir
	}
}

// NewLoader returns a Loader; call Load before asking for hooks.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.projectDir == "" {
		l.projectDir, _ = os.Getwd()
	}
	return l
}

// Path is the hooks file this loader reads.
func (l *Loader) Path() string {
	return filepath.Join(l.projectDir, ConfigDir, ConfigFile)
}

// Load reads and normalizes the hooks file. A missing file means no hooks.
func (l *Loader) Load() error {
	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.config = &Config{}
			return nil
		}
		return fmt.Errorf("reading hooks config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	l.warnings = nil
	cfg.Hooks.PreExport, l.warnings = normalizeHooks(cfg.Hooks.PreExport, PreExport, l.warnings)
	cfg.Hooks.PostExport, l.warnings = normalizeHooks(cfg.Hooks.PostExport, PostExport, l.warnings)
	l.config = &cfg
	return nil
}

// normalizeHooks fills defaults and drops hooks without a command.
func normalizeHooks(hooks []Hook, phase HookPhase, warnings []string) ([]Hook, []string) {
	var out []Hook
	for i, hook := range hooks {
		if strings.TrimSpace(hook.Command) == "" {
			warnings = append(warnings, fmt.Sprintf("%s hook %d has empty command; skipping", phase, i+1))
			continue
		}
		if hook.Timeout <= 0 {
			hook.Timeout = DefaultTimeout
		}
		switch hook.OnError {
		case OnErrorFail, OnErrorContinue:
		case "":
			hook.OnError = OnErrorContinue
			if phase == PreExport {
				hook.OnError = OnErrorFail
			}
		default:
			warnings = append(warnings, fmt.Sprintf("%s hook %d: unknown on_error %q, using %q", phase, i+1, hook.OnError, OnErrorFail))
			hook.OnError = OnErrorFail
		}
		if hook.Name == "" {
			hook.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		out = append(out, hook)
	}
	return out, warnings
}

// Config returns the loaded configuration, empty before Load.
func (l *Loader) Config() *Config {
	if l.config == nil {
		return &Config{}
	}
	return l.config
}

// HasHooks reports whether any hook is configured.
func (l *Loader) HasHooks() bool {
	return l.config != nil && len(l.config.Hooks.PreExport)+len(l.config.Hooks.PostExport) > 0
}

// GetHooks returns the hooks of one phase.
func (l *Loader) GetHooks(phase HookPhase) []Hook {
	if l.config == nil {
		return nil
	}
	switch phase {
	case PreExport:
		return l.config.Hooks.PreExport
	case PostExport:
		return l.config.Hooks.PostExport
	default:
		return nil
	}
}

// Warnings lists problems found by the last Load.
func (l *Loader) Warnings() []string {
	return l.warnings
}

// UnmarshalYAML accepts timeouts as durations ("5s") or bare seconds.
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	type hookDTO struct {
		Name    string            `yaml:"name"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout,omitempty"`
		Env     map[string]string `yaml:"env,omitempty"`
		OnError string            `yaml:"on_error,omitempty"`
	}
	var dto hookDTO
	if err := node.Decode(&dto); err != nil {
		return err
	}
	*h = Hook{Name: dto.Name, Command: dto.Command, Env: dto.Env, OnError: dto.OnError}

	if dto.Timeout == "" {
		return nil
	}
	d, err := time.ParseDuration(dto.Timeout)
	if err == nil {
		h.Timeout = d
		return nil
	}
	var seconds float64
	if _, scanErr := fmt.Sscanf(dto.Timeout, "%g", &seconds); scanErr != nil {
		return fmt.Errorf("invalid timeout %q: %w", dto.Timeout, err)
	}
	h.Timeout = time.Duration(seconds * float64(time.Second))
	return nil
}
