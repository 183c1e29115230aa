package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

const (
	// DefaultBasePath holds crash logs when no base path was configured.
	DefaultBasePath = ".pagewing"

	// CrashLogDir is the directory for crash logs relative to the base path.
	CrashLogDir = "crash_logs"

	// MaxCrashLogs is the maximum number of crash logs to keep.
	MaxCrashLogs = 10

	maxInstructionLen = 2000
)

// crashFs is swapped for an in-memory filesystem in tests.
var crashFs = afero.NewOsFs()

// CrashContext stores what the process was doing when it crashed.
type CrashContext struct {
	mu              sync.RWMutex
	task            string
	round           int
	lastInstruction string
	command         string
	version         string
	basePath        string
}

var globalContext = &CrashContext{}

// SetBasePath sets the directory crash logs are written under.
func SetBasePath(path string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.basePath = path
}

// SetVersion sets the application version for crash logs.
func SetVersion(version string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.version = version
}

// SetCommand sets the current command being executed.
func SetCommand(cmd string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.command = cmd
}

// SetRound records the most recently started round.
func SetRound(task string, round int) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.task = task
	globalContext.round = round
}

// SetLastInstruction records the most recent model instruction.
func SetLastInstruction(instruction string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.lastInstruction = truncateForLog(instruction, maxInstructionLen)
}

func truncateForLog(value string, maxLen int) string {
	if len(value) <= maxLen {
		return value
	}
	return value[:maxLen] + "... [truncated]"
}

// CrashLog is one recorded panic.
type CrashLog struct {
	Timestamp       time.Time `json:"timestamp"`
	Version         string    `json:"version"`
	Command         string    `json:"command"`
	Task            string    `json:"task,omitempty"`
	Round           int       `json:"round,omitempty"`
	PanicValue      string    `json:"panic_value"`
	StackTrace      string    `json:"stack_trace"`
	LastInstruction string    `json:"last_instruction,omitempty"`
	GoVersion       string    `json:"go_version"`
	OS              string    `json:"os"`
	Arch            string    `json:"arch"`
}

// RecordPanic writes a crash log for panicValue and returns its path.
// Callers keep running; the HTTP recovery middleware uses this.
func RecordPanic(panicValue any) (string, error) {
	log := createCrashLog(panicValue)
	if err := writeCrashLog(log); err != nil {
		return "", err
	}
	return getCrashLogPath(log.Timestamp), nil
}

// HandlePanic recovers from a panic, records it and exits the process.
// Usage: defer logger.HandlePanic()
func HandlePanic() {
	if r := recover(); r != nil {
		path, err := RecordPanic(r)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\n[CRASH] Failed to write crash log: %v\n", err)
			fmt.Fprintf(os.Stderr, "[CRASH] Panic: %v\n%s\n", r, debug.Stack())
			os.Exit(1)
		}

		fmt.Fprintf(os.Stderr, "\nPageWing encountered an unexpected error.\n")
		fmt.Fprintf(os.Stderr, "A crash log has been saved to:\n  %s\n\n", path)
		os.Exit(1)
	}
}

func createCrashLog(panicValue any) CrashLog {
	globalContext.mu.RLock()
	defer globalContext.mu.RUnlock()

	return CrashLog{
		Timestamp:       time.Now(),
		Version:         globalContext.version,
		Command:         globalContext.command,
		Task:            globalContext.task,
		Round:           globalContext.round,
		PanicValue:      fmt.Sprintf("%v", panicValue),
		StackTrace:      string(debug.Stack()),
		LastInstruction: globalContext.lastInstruction,
		GoVersion:       runtime.Version(),
		OS:              runtime.GOOS,
		Arch:            runtime.GOARCH,
	}
}

func writeCrashLog(log CrashLog) error {
	dir := getCrashLogDir()

	if err := crashFs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create crash log dir: %w", err)
	}

	if err := cleanOldCrashLogs(dir); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to clean old crash logs: %v\n", err)
	}

	path := getCrashLogPath(log.Timestamp)
	if err := afero.WriteFile(crashFs, path, []byte(formatCrashLog(log)), 0o644); err != nil {
		return fmt.Errorf("write crash log: %w", err)
	}
	return nil
}

func getCrashLogDir() string {
	globalContext.mu.RLock()
	basePath := globalContext.basePath
	globalContext.mu.RUnlock()

	if basePath == "" {
		basePath = DefaultBasePath
	}
	return filepath.Join(basePath, CrashLogDir)
}

func getCrashLogPath(t time.Time) string {
	filename := fmt.Sprintf("crash_%s.log", t.Format("20060102_150405.000"))
	return filepath.Join(getCrashLogDir(), filename)
}

func formatCrashLog(log CrashLog) string {
	var sb strings.Builder
	rule := strings.Repeat("=", 80) + "\n"
	section := func(title, body string) {
		sb.WriteString("\n" + strings.Repeat("-", 80) + "\n")
		sb.WriteString(title + "\n")
		sb.WriteString(strings.Repeat("-", 80) + "\n")
		sb.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			sb.WriteString("\n")
		}
	}

	sb.WriteString(rule)
	sb.WriteString("PAGEWING CRASH LOG\n")
	sb.WriteString(rule + "\n")

	fmt.Fprintf(&sb, "Timestamp: %s\n", log.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Version:   %s\n", log.Version)
	fmt.Fprintf(&sb, "Command:   %s\n", log.Command)
	if log.Task != "" {
		fmt.Fprintf(&sb, "Round:     %s #%d\n", log.Task, log.Round)
	}
	fmt.Fprintf(&sb, "Go:        %s\n", log.GoVersion)
	fmt.Fprintf(&sb, "OS/Arch:   %s/%s\n", log.OS, log.Arch)

	section("PANIC VALUE", log.PanicValue)
	section("STACK TRACE", log.StackTrace)
	if log.LastInstruction != "" {
		section("LAST MODEL INSTRUCTION", log.LastInstruction)
	}

	sb.WriteString("\n" + rule)
	sb.WriteString("END OF CRASH LOG\n")
	sb.WriteString(rule)
	return sb.String()
}

// listCrashLogNames returns crash log file names in dir, oldest first.
func listCrashLogNames(dir string) ([]string, error) {
	entries, err := afero.ReadDir(crashFs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "crash_") && strings.HasSuffix(e.Name(), ".log") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// cleanOldCrashLogs keeps room for one more log within MaxCrashLogs.
func cleanOldCrashLogs(dir string) error {
	names, err := listCrashLogNames(dir)
	if err != nil {
		return err
	}
	if len(names) < MaxCrashLogs {
		return nil
	}

	for _, name := range names[:len(names)-MaxCrashLogs+1] {
		if err := crashFs.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("remove old crash log %s: %w", name, err)
		}
	}
	return nil
}

// ListCrashLogs returns the paths of all crash logs, oldest first.
func ListCrashLogs() ([]string, error) {
	dir := getCrashLogDir()
	names, err := listCrashLogNames(dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}

// ReadCrashLog reads a crash log file.
func ReadCrashLog(path string) (string, error) {
	content, err := afero.ReadFile(crashFs, path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}
