package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewConfigLevels(t *testing.T) {
	cases := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, c := range cases {
		cfg, err := NewConfig(c.level, false)
		if err != nil {
			t.Fatalf("%s: %v", c.level, err)
		}
		if cfg.Level.Level() != c.want {
			t.Fatalf("%s: got %v", c.level, cfg.Level.Level())
		}
	}
	if _, err := NewConfig("loud", false); err == nil {
		t.Fatal("bad level accepted")
	}
	if _, err := New("loud", false); err == nil {
		t.Fatal("New accepted bad level")
	}
}

func TestDevelopmentAddsCaller(t *testing.T) {
	prod, _ := NewConfig("info", false)
	dev, _ := NewConfig("info", true)
	if prod.EncoderConfig.CallerKey != zapcore.OmitKey || !prod.DisableStacktrace {
		t.Fatalf("prod config %+v", prod)
	}
	if dev.EncoderConfig.CallerKey != "caller" || dev.DisableStacktrace || !dev.Development {
		t.Fatalf("dev config %+v", dev)
	}
}

func TestConsoleOutput(t *testing.T) {
	cfg, err := NewConfig("info", false)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "robot.log")
	cfg.OutputPaths = []string{path}
	logger, err := cfg.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	logger.Named("ranging").Info("sample", zap.Int("distance_mm", 420))
	logger.Debug("hidden")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(raw)
	for _, want := range []string{"INFO", "ranging", "sample", `{"distance_mm": 420}`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written: %q", out)
	}
}
