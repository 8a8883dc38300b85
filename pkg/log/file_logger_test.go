package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileLogger_WritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "run.log")

	fileLogger, err := NewFileLogger(logPath, LevelInfo)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	fileLogger.Info("translated %d strings", 7)
	fileLogger.Debug("suppressed at info level")
	if err := fileLogger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "[INFO]") || !strings.Contains(content, "translated 7 strings") {
		t.Fatalf("log file missing info entry: %q", content)
	}
	if strings.Contains(content, "suppressed") {
		t.Fatalf("debug entry should be filtered at info level: %q", content)
	}
}

func TestSetLogger_ReplacesGlobal(t *testing.T) {
	original := GetLogger()
	defer SetLogger(original)

	replacement := NewLogger(LevelError)
	SetLogger(replacement)
	if GetLogger() != replacement {
		t.Fatal("SetLogger did not replace the global logger")
	}

	SetLogger(nil)
	if GetLogger() != replacement {
		t.Fatal("SetLogger(nil) must keep the current logger")
	}
}
