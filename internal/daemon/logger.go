package daemon

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Log rotation threshold
const maxLogSize = 5 * 1024 * 1024 // 5MB

// Logger state
var (
	logConfig    = struct{ Verbose bool }{Verbose: true}
	logConfigMux sync.RWMutex
	logFilePath  string
	logFile      *os.File
	logFileMu    sync.Mutex // guards file writes and rotation
)

// Non-critical prefixes (filtered when verbose=false)
var nonCriticalPrefixes = []string{
	"[QUEUE] 📥",
	"[WS] ➕",
	"[WS] ➖",
	"[WORKER] 👂",
	"[WORKER] 🔄",
	"[STICKER] 🎤",
	"[PRINT] 🖨️",
}

// FilteredLogger implements io.Writer with verbosity filtering.
type FilteredLogger struct{}

// Write filters log messages based on verbosity
func (l *FilteredLogger) Write(p []byte) (n int, err error) {
	logConfigMux.RLock()
	verbose := logConfig.Verbose
	logConfigMux.RUnlock()

	if !verbose {
		msg := string(p)
		for _, prefix := range nonCriticalPrefixes {
			if strings.Contains(msg, prefix) {
				return len(p), nil // Discard silently
			}
		}
	}

	logFileMu.Lock()
	defer logFileMu.Unlock()

	if logFile == nil {
		return 0, fmt.Errorf("log file not initialized")
	}
	return logFile.Write(p)
}

// InitLogger initializes the file logger with rotation
func InitLogger(path string, verbose bool) error {
	logFileMu.Lock()
	defer logFileMu.Unlock()

	logFilePath = path

	logConfigMux.Lock()
	logConfig.Verbose = verbose
	logConfigMux.Unlock()

	if err := rotateLogIfNeeded(path); err != nil {
		fmt.Printf("[!] Log rotation error: %v\n", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600) //nolint:gosec
	if err != nil {
		return err
	}
	logFile = f

	log.SetOutput(&FilteredLogger{})
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	return nil
}

// SetVerbose changes the verbosity level at runtime
func SetVerbose(v bool) {
	logConfigMux.Lock()
	logConfig.Verbose = v
	logConfigMux.Unlock()
	log.Printf("[OK] Log verbosity: %v", v)
}

// GetVerbose returns current verbosity level
func GetVerbose() bool {
	logConfigMux.RLock()
	defer logConfigMux.RUnlock()
	return logConfig.Verbose
}

// rotateLogIfNeeded rotates log if exceeds max size
func rotateLogIfNeeded(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if info.Size() < maxLogSize {
		return nil
	}

	// Rotate: keep last 1000 lines
	lines := readLastNLines(path, 1000)
	if len(lines) == 0 {
		return nil
	}

	content := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(path, []byte(content), 0600)
}

// readLastNLines reads last N lines from file
func readLastNLines(path string, n int) []string {
	file, err := os.Open(path) //nolint:gosec
	if err != nil {
		return []string{}
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("[!] Error closing log file: %v", err)
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		return []string{}
	}

	size := stat.Size()
	if size == 0 {
		return []string{}
	}

	// Read last 64KB max
	bufSize := int64(64 * 1024)
	if size < bufSize {
		bufSize = size
	}

	buf := make([]byte, bufSize)
	if _, err = file.Seek(size-bufSize, io.SeekStart); err != nil {
		return []string{}
	}
	if _, err = file.Read(buf); err != nil {
		return []string{}
	}

	allLines := strings.Split(string(buf), "\n")

	for len(allLines) > 0 && allLines[len(allLines)-1] == "" {
		allLines = allLines[:len(allLines)-1]
	}

	// If we started mid-line, discard first partial line
	if size > bufSize && len(allLines) > 0 {
		allLines = allLines[1:]
	}

	if len(allLines) <= n {
		return allLines
	}
	return allLines[len(allLines)-n:]
}
