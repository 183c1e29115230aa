package logger

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func useMemFs(t *testing.T) {
	t.Helper()
	prev := crashFs
	crashFs = afero.NewMemMapFs()
	t.Cleanup(func() { crashFs = prev })
}

func TestCrashHandler_SetContext(t *testing.T) {
	globalContext = &CrashContext{}

	SetBasePath("/tmp/test-pagewing")
	SetVersion("1.0.0-test")
	SetCommand("serve")
	SetRound("counter-1", 2)
	SetLastInstruction("build a counter")

	globalContext.mu.RLock()
	defer globalContext.mu.RUnlock()

	if globalContext.basePath != "/tmp/test-pagewing" {
		t.Errorf("Expected basePath '/tmp/test-pagewing', got '%s'", globalContext.basePath)
	}
	if globalContext.version != "1.0.0-test" {
		t.Errorf("Expected version '1.0.0-test', got '%s'", globalContext.version)
	}
	if globalContext.command != "serve" {
		t.Errorf("Expected command 'serve', got '%s'", globalContext.command)
	}
	if globalContext.task != "counter-1" || globalContext.round != 2 {
		t.Errorf("Expected round counter-1 #2, got %s #%d", globalContext.task, globalContext.round)
	}
	if globalContext.lastInstruction != "build a counter" {
		t.Errorf("Expected lastInstruction 'build a counter', got '%s'", globalContext.lastInstruction)
	}
}

func TestCrashHandler_SetLastInstruction_Truncation(t *testing.T) {
	globalContext = &CrashContext{}

	SetLastInstruction(strings.Repeat("a", 3000))

	globalContext.mu.RLock()
	defer globalContext.mu.RUnlock()

	if len(globalContext.lastInstruction) > maxInstructionLen+100 {
		t.Errorf("Expected instruction to be truncated, got length %d", len(globalContext.lastInstruction))
	}
	if !strings.Contains(globalContext.lastInstruction, "[truncated]") {
		t.Error("Expected truncated instruction to contain '[truncated]'")
	}
}

func TestCrashHandler_FormatCrashLog(t *testing.T) {
	log := CrashLog{
		Timestamp:       time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Version:         "1.0.0",
		Command:         "serve",
		Task:            "counter-1",
		Round:           3,
		PanicValue:      "test panic",
		StackTrace:      "goroutine 1 [running]:\nmain.main()",
		LastInstruction: "modify the counter",
		GoVersion:       "go1.24.3",
		OS:              "linux",
		Arch:            "amd64",
	}

	formatted := formatCrashLog(log)

	for _, expected := range []string{
		"PAGEWING CRASH LOG",
		"Timestamp: 2025-01-01T12:00:00Z",
		"Version:   1.0.0",
		"Command:   serve",
		"Round:     counter-1 #3",
		"OS/Arch:   linux/amd64",
		"PANIC VALUE",
		"test panic",
		"goroutine 1 [running]",
		"LAST MODEL INSTRUCTION",
		"modify the counter",
	} {
		if !strings.Contains(formatted, expected) {
			t.Errorf("Expected formatted log to contain '%s'", expected)
		}
	}
}

func TestRecordPanic_WritesLog(t *testing.T) {
	useMemFs(t)
	globalContext = &CrashContext{basePath: "/data", version: "1.0.0", command: "serve"}

	path, err := RecordPanic("boom")
	if err != nil {
		t.Fatalf("RecordPanic failed: %v", err)
	}
	if filepath.Dir(path) != filepath.Join("/data", CrashLogDir) {
		t.Errorf("unexpected crash log path %s", path)
	}

	logs, err := ListCrashLogs()
	if err != nil {
		t.Fatalf("ListCrashLogs failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("Expected 1 crash log, got %d", len(logs))
	}

	content, err := ReadCrashLog(logs[0])
	if err != nil {
		t.Fatalf("ReadCrashLog failed: %v", err)
	}
	if !strings.Contains(content, "boom") {
		t.Error("Expected crash log to contain panic value")
	}
}

func TestCrashHandler_CleanOldLogs(t *testing.T) {
	useMemFs(t)
	globalContext = &CrashContext{basePath: "/data"}
	dir := getCrashLogDir()

	for i := range MaxCrashLogs + 5 {
		name := filepath.Join(dir, fmt.Sprintf("crash_20250101_1200%02d.000.log", i))
		if err := afero.WriteFile(crashFs, name, []byte("test"), 0o644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}

	if _, err := RecordPanic("newest"); err != nil {
		t.Fatalf("RecordPanic failed: %v", err)
	}

	logs, err := ListCrashLogs()
	if err != nil {
		t.Fatalf("ListCrashLogs failed: %v", err)
	}
	if len(logs) != MaxCrashLogs {
		t.Errorf("Expected %d crash logs after cleanup, got %d", MaxCrashLogs, len(logs))
	}
	if strings.HasSuffix(logs[0], "crash_20250101_120000.000.log") {
		t.Error("Expected the oldest crash log to be removed")
	}
}

func TestCrashHandler_GetCrashLogPath(t *testing.T) {
	globalContext = &CrashContext{basePath: "/tmp/test"}

	path := getCrashLogPath(time.Date(2025, 1, 15, 14, 30, 45, 0, time.UTC))

	expected := "/tmp/test/crash_logs/crash_20250115_143045.000.log"
	if path != expected {
		t.Errorf("Expected path '%s', got '%s'", expected, path)
	}
}

func TestCrashHandler_DefaultBasePath(t *testing.T) {
	globalContext = &CrashContext{}

	if dir := getCrashLogDir(); dir != ".pagewing/crash_logs" {
		t.Errorf("Expected default dir '.pagewing/crash_logs', got '%s'", dir)
	}
}
