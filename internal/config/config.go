// Package config defines environment-specific settings for the
// sticker daemon.
package config

import (
	"log"
	"path/filepath"
	"strings"
	"time"
)

// Build variables, injected at compile time
var (
	BuildEnvironment = "local"
	BuildDate        = "unknown"
	BuildTime        = "unknown"
	// ServiceName is used for logging and as part of the log file path.
	ServiceName = "StickerDaemon"
	// TokenHashB64 is a base64-encoded bcrypt hash of the API bearer
	// token, injected via ldflags. If empty, submissions are accepted
	// without token validation (dev mode).
	TokenHashB64 = ""
	// ServerPort is the default port for the service.
	ServerPort = "8787"
	// AllowedOrigins is a comma-separated list of allowed WebSocket
	// origins injected via ldflags.
	AllowedOrigins = ""
)

// Environment holds environment-specific settings
type Environment struct {
	// Identification
	Name        string
	ServiceName string

	// Network
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Queue
	QueueCapacity int

	// Logging
	Verbose bool

	// Printing
	DefaultPrinter  string
	MonitorInterval time.Duration

	// Security
	AllowedOrigins []string
}

// LogPath returns the full log file path for this environment.
// Uses the convention: <stateDir>/<ServiceName>/<ServiceName>.log
func (e Environment) LogPath(stateDir string) string {
	return filepath.Join(stateDir, e.ServiceName, e.ServiceName+".log")
}

// environments defines available deployment configurations
var environments = map[string]Environment{
	"remote": {
		Name:            "REMOTE",
		ServiceName:     ServiceName,
		ListenAddr:      "0.0.0.0:" + ServerPort,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     60 * time.Second,
		QueueCapacity:   50,
		Verbose:         false,
		DefaultPrinter:  "",
		MonitorInterval: 30 * time.Second,
		AllowedOrigins:  []string{"http://localhost:*", "https://localhost:*"},
	},
	"local": {
		Name:            "LOCAL",
		ServiceName:     ServiceName,
		ListenAddr:      "localhost:" + ServerPort,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    120 * time.Second,
		IdleTimeout:     120 * time.Second,
		QueueCapacity:   50,
		Verbose:         true,
		DefaultPrinter:  "",
		MonitorInterval: 30 * time.Second,
		AllowedOrigins:  []string{"*"},
	},
}

// GetEnvironment returns config for the specified environment.
func GetEnvironment(env string) Environment {
	cfg, ok := environments[env]
	if !ok {
		log.Printf("[!] Unknown environment '%s', defaulting to 'local'", env)
		cfg = environments["local"]
	}

	// Override allowed origins from ldflags if provided
	if AllowedOrigins != "" {
		cfg.AllowedOrigins = strings.Split(AllowedOrigins, ",")
	}

	return cfg
}
