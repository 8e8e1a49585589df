package sim

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestErrorLogFlushWritesFiles(t *testing.T) {
	dir := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(prev)

	log := NewErrorLog()
	log.RecordMapError("maps/bad.txt", errors.New("missing headers: Rows"))
	log.RecordRunError("bots/crash.so", errors.New("no player factory registered"))
	log.Flush()

	inputs, _ := filepath.Glob(filepath.Join(dir, "input_errors_*.txt"))
	if len(inputs) != 1 {
		t.Fatalf("input error files = %d, want 1", len(inputs))
	}
	content, _ := os.ReadFile(inputs[0])
	if !strings.Contains(string(content), "maps/bad.txt") || !strings.Contains(string(content), "missing headers") {
		t.Errorf("input error file content:\n%s", content)
	}

	runs, _ := filepath.Glob(filepath.Join(dir, "errors_*.txt"))
	if len(runs) != 1 {
		t.Fatalf("run error files = %d, want 1", len(runs))
	}
	content, _ = os.ReadFile(runs[0])
	if !strings.Contains(string(content), "crash.so") {
		t.Errorf("run error file content:\n%s", content)
	}
}

func TestErrorLogFlushWritesNothingWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(prev)

	NewErrorLog().Flush()

	files, _ := filepath.Glob(filepath.Join(dir, "*_errors_*.txt"))
	more, _ := filepath.Glob(filepath.Join(dir, "errors_*.txt"))
	if len(files)+len(more) != 0 {
		t.Errorf("unexpected error files: %v %v", files, more)
	}
}

func TestPluginBase(t *testing.T) {
	if got := pluginBase("dir/sub/alpha.so"); got != "alpha" {
		t.Errorf("pluginBase = %q", got)
	}
	if got := pluginBase("beta"); got != "beta" {
		t.Errorf("pluginBase = %q", got)
	}
}
