package framegraph

import (
	"log/slog"
	"testing"
)

// stubBackend satisfies Backend for option tests; it is never called.
type stubBackend struct{ Backend }

type stubPool struct{ TransientPool }

type stubObserver struct{ Observer }

// TestNewDefault tests that New leaves collaborators unset.
func TestNewDefault(t *testing.T) {
	g := New()
	if g == nil {
		t.Fatal("New returned nil")
	}
	if g.backend != nil || g.pool != nil || g.observer != nil {
		t.Error("collaborators should be nil without options")
	}
	if g.logger != Logger() {
		t.Error("logger should default to the package logger")
	}
	if g.currentPass != noPass {
		t.Errorf("currentPass = %d, want %d", g.currentPass, noPass)
	}
}

// TestNewWithOptions tests dependency injection of collaborators.
func TestNewWithOptions(t *testing.T) {
	b := &stubBackend{}
	p := &stubPool{}
	obs := &stubObserver{}
	l := slog.Default()

	g := New(WithBackend(b), WithPool(p), WithObserver(obs), WithLogger(l), WithDebugNames(true))

	if g.backend != b {
		t.Error("backend is not the injected backend")
	}
	if g.pool != p {
		t.Error("pool is not the injected pool")
	}
	if g.observer != obs {
		t.Error("observer is not the injected observer")
	}
	if g.logger != l {
		t.Error("logger is not the injected logger")
	}
	if !g.debugNames {
		t.Error("debugNames should be enabled")
	}
}

// TestWithConfig tests that config-derived settings reach the graph and
// that later options win.
func TestWithConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DebugNames = true

	if g := New(WithConfig(cfg)); !g.debugNames {
		t.Error("WithConfig should enable debug names")
	}
	if g := New(WithConfig(cfg), WithDebugNames(false)); g.debugNames {
		t.Error("later WithDebugNames should override WithConfig")
	}
}

// TestWithLoggerNil tests that a nil logger falls back to the package logger.
func TestWithLoggerNil(t *testing.T) {
	g := New(WithLogger(nil))
	if g.logger == nil {
		t.Fatal("logger should never be nil")
	}
}
