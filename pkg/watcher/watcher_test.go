package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

const initialOutline = "rows:\n  - label: fruit\n"

func writeOutline(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "plan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}
	if !d.Pending() {
		t.Error("expected a pending callback")
	}

	time.Sleep(150 * time.Millisecond)

	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 callback invocation, got %d", n)
	}
	if d.Pending() {
		t.Error("nothing should be pending after the callback ran")
	}
}

func TestDebouncer_LastCallbackWins(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var got atomic.Int32
	d.Trigger(func() { got.Store(1) })
	d.Trigger(func() { got.Store(2) })

	time.Sleep(100 * time.Millisecond)
	if v := got.Load(); v != 2 {
		t.Errorf("got callback %d, want 2", v)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Bool
	d.Trigger(func() { called.Store(true) })
	d.Cancel()

	time.Sleep(100 * time.Millisecond)

	if called.Load() {
		t.Error("callback should not have been invoked after cancel")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	d := NewDebouncer(0)
	if d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected default duration %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	path := writeOutline(t, t.TempDir(), initialOutline)

	var changed atomic.Bool
	w, err := NewWatcher(path,
		WithDebounceDuration(50*time.Millisecond),
		WithOnChange(func() { changed.Store(true) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	writeOutline(t, filepath.Dir(path), initialOutline+"  - label: dairy\n")
	time.Sleep(300 * time.Millisecond)

	if !changed.Load() {
		t.Error("expected change to be detected")
	}
}

func TestWatcher_PollingFallback(t *testing.T) {
	path := writeOutline(t, t.TempDir(), initialOutline)

	var changed atomic.Bool
	w, err := NewWatcher(path,
		WithDebounceDuration(50*time.Millisecond),
		WithPollInterval(100*time.Millisecond),
		WithForcePoll(true),
		WithOnChange(func() { changed.Store(true) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Error("expected watcher to be in polling mode")
	}

	time.Sleep(50 * time.Millisecond)
	writeOutline(t, filepath.Dir(path), initialOutline+"  - label: via polling\n")
	time.Sleep(400 * time.Millisecond)

	if !changed.Load() {
		t.Error("expected change to be detected via polling")
	}
}

func TestWatcher_ChangedChannel(t *testing.T) {
	path := writeOutline(t, t.TempDir(), initialOutline)

	w, err := NewWatcher(path,
		WithDebounceDuration(50*time.Millisecond),
		WithPollInterval(100*time.Millisecond),
		WithForcePoll(true),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(path, []byte(initialOutline+"  - label: new\n"), 0o644)
	}()

	select {
	case <-w.Changed():
	case <-time.After(time.Second):
		t.Error("timeout waiting for change notification")
	}
}

func TestWatcher_IgnoresIdenticalRewrite(t *testing.T) {
	path := writeOutline(t, t.TempDir(), initialOutline)

	var calls atomic.Int32
	w, err := NewWatcher(path,
		WithDebounceDuration(20*time.Millisecond),
		WithPollInterval(25*time.Millisecond),
		WithForcePoll(true),
		WithOnChange(func() { calls.Add(1) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// Same bytes with a newer mtime.
	future := time.Now().Add(time.Minute)
	os.Chtimes(path, future, future)
	time.Sleep(200 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Errorf("identical content fired onChange %d times", n)
	}
}

func TestWatcher_AcknowledgeSuppressesOwnSave(t *testing.T) {
	path := writeOutline(t, t.TempDir(), initialOutline)

	var calls atomic.Int32
	w, err := NewWatcher(path,
		WithDebounceDuration(20*time.Millisecond),
		WithPollInterval(25*time.Millisecond),
		WithForcePoll(true),
		WithOnChange(func() { calls.Add(1) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	writeOutline(t, filepath.Dir(path), initialOutline+"  - label: saved by us\n")
	w.Acknowledge()
	time.Sleep(200 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Fatalf("acknowledged save fired onChange %d times", n)
	}

	writeOutline(t, filepath.Dir(path), initialOutline+"  - label: edited elsewhere\n")
	time.Sleep(200 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("external edit fired onChange %d times, want 1", n)
	}
}

func TestWatcher_EnvForcePolling(t *testing.T) {
	for _, name := range []string{"TREEGRID_FORCE_POLL", "TREEGRID_FORCE_POLLING"} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, "1")
			path := writeOutline(t, t.TempDir(), initialOutline)

			w, err := NewWatcher(path,
				WithDebounceDuration(10*time.Millisecond),
				WithPollInterval(25*time.Millisecond),
			)
			if err != nil {
				t.Fatal(err)
			}
			if err := w.Start(); err != nil {
				t.Fatal(err)
			}
			defer w.Stop()

			if !w.IsPolling() {
				t.Fatalf("expected polling mode when %s is set", name)
			}
		})
	}
}

func TestWatcher_RemoteFilesystem_UsesPolling(t *testing.T) {
	path := writeOutline(t, t.TempDir(), initialOutline)

	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(string) FilesystemType { return FSTypeNFS }
	t.Cleanup(func() { detectFilesystemTypeFunc = orig })

	w, err := NewWatcher(path,
		WithDebounceDuration(10*time.Millisecond),
		WithPollInterval(25*time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Fatal("expected watcher to use polling on remote filesystem")
	}
	if got := w.FilesystemType(); got != FSTypeNFS {
		t.Fatalf("expected filesystem type %v, got %v", FSTypeNFS, got)
	}
}

func TestWatcher_FileRemoved(t *testing.T) {
	path := writeOutline(t, t.TempDir(), initialOutline)

	errCh := make(chan error, 8)
	w, err := NewWatcher(path,
		WithDebounceDuration(50*time.Millisecond),
		WithPollInterval(50*time.Millisecond),
		WithForcePoll(true),
		WithOnError(func(err error) {
			select {
			case errCh <- err:
			default:
			}
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-errCh:
		if got != ErrFileRemoved {
			t.Errorf("expected ErrFileRemoved, got %v", got)
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for removal error")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	path := writeOutline(t, t.TempDir(), initialOutline)

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatal(err)
	}
	if w.IsStarted() {
		t.Error("watcher should not be started initially")
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if !w.IsStarted() {
		t.Error("watcher should be started after Start()")
	}
	if err := w.Start(); err != ErrAlreadyStarted {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}

	w.Stop()
	if w.IsStarted() {
		t.Error("watcher should not be started after Stop()")
	}
	w.Stop()

	// A stopped watcher can be restarted.
	if err := w.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	w.Stop()
}

func TestWatcher_Accessors(t *testing.T) {
	dir := t.TempDir()
	path := writeOutline(t, dir, initialOutline)

	w, err := NewWatcher(path, WithPollInterval(750*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(w.Path()) || filepath.Base(w.Path()) != "plan.yaml" {
		t.Errorf("Path() = %q", w.Path())
	}
	if got := w.PollInterval(); got != 750*time.Millisecond {
		t.Errorf("PollInterval() = %v", got)
	}

	d, err := NewWatcher(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := d.PollInterval(); got != DefaultPollInterval {
		t.Errorf("default PollInterval() = %v", got)
	}
}

func TestFilesystemType_String(t *testing.T) {
	tests := []struct {
		fsType   FilesystemType
		expected string
	}{
		{FSTypeUnknown, "unknown"},
		{FSTypeLocal, "local"},
		{FSTypeNFS, "nfs"},
		{FSTypeSMB, "smb"},
		{FSTypeSSHFS, "sshfs"},
		{FSTypeFUSE, "fuse"},
		{FilesystemType(99), "unknown"},
	}

	for _, tc := range tests {
		if got := tc.fsType.String(); got != tc.expected {
			t.Errorf("FilesystemType(%d).String() = %q, expected %q", tc.fsType, got, tc.expected)
		}
	}
}

func TestIsRemoteFilesystem(t *testing.T) {
	remote := map[FilesystemType]bool{
		FSTypeUnknown: false,
		FSTypeLocal:   false,
		FSTypeNFS:     true,
		FSTypeSMB:     true,
		FSTypeSSHFS:   true,
		FSTypeFUSE:    true,
	}
	for typ, want := range remote {
		if got := isRemoteFilesystem(typ); got != want {
			t.Errorf("isRemoteFilesystem(%v) = %v, want %v", typ, got, want)
		}
	}
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"y", true},
		{"on", true},
		{" on ", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"", false},
		{"invalid", false},
	}

	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv("TEST_ENV_BOOL", tc.value)
			if got := envBool("TEST_ENV_BOOL"); got != tc.expected {
				t.Errorf("envBool(%q) = %v, expected %v", tc.value, got, tc.expected)
			}
		})
	}
}

func TestDetectFilesystemType(t *testing.T) {
	if got := DetectFilesystemType(""); got != FSTypeUnknown {
		t.Errorf("DetectFilesystemType(\"\") = %v, expected FSTypeUnknown", got)
	}
	// A missing file falls back to its directory and must not panic.
	_ = DetectFilesystemType(filepath.Join(t.TempDir(), "does_not_exist.yaml"))
}
