// -----------------------------------------------------------------------
// Crash reports - last-resort panic capture for the CLI process
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// CrashLogDir receives crash reports; set by InstallCrashHandler
var CrashLogDir = "logs"

// InstallCrashHandler selects and creates the crash report directory
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		CrashLogDir = logDir
	}
	if err := os.MkdirAll(CrashLogDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: Failed to create log directory: %v\n", err)
	}
}

// CrashReport formats a panic value, its stack and runtime details
func CrashReport(panicVal interface{}, stackTrace string, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== PAPEREXTRACTOR CRASH REPORT ===\n")
	fmt.Fprintf(&sb, "Time: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Version: %s\n", GetFullVersion())
	fmt.Fprintf(&sb, "GOOS/GOARCH: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&sb, "NumGoroutine: %d\n\n", runtime.NumGoroutine())
	fmt.Fprintf(&sb, "=== PANIC VALUE ===\n%v\n\n", panicVal)
	fmt.Fprintf(&sb, "=== STACK TRACE ===\n%s\n", stackTrace)
	sb.WriteString("=== END CRASH REPORT ===\n")
	return sb.String()
}

// WriteCrashFile writes a crash report to CrashLogDir and returns its path,
// or "" when the report could only be printed to stderr.
func WriteCrashFile(panicVal interface{}, stackTrace string) string {
	now := time.Now()
	report := CrashReport(panicVal, stackTrace, now)
	crashPath := filepath.Join(CrashLogDir, fmt.Sprintf("crash-%s.log", now.Format("2006-01-02T15-04-05")))

	if err := os.WriteFile(crashPath, []byte(report), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: Failed to write crash file: %v\n%s", err, report)
		return ""
	}

	fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - Report saved to: %s !!!\nPanic: %v\n", crashPath, panicVal)
	return crashPath
}

// RecoverWithCrashFile writes a crash file for a panic and exits.
// Usage: defer common.RecoverWithCrashFile()
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		buf := make([]byte, 16*1024)
		n := runtime.Stack(buf, false)
		WriteCrashFile(r, string(buf[:n]))
		os.Exit(1)
	}
}
