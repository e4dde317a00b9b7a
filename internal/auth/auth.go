// Package auth validates the API bearer token and throttles
// brute-force attempts per client address.
package auth

import (
	"context"
	"encoding/base64"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	MaxFailedAttempts = 5
	LockoutDuration   = 5 * time.Minute
	CleanupInterval   = 5 * time.Minute
)

type failInfo struct {
	count       int
	lockedUntil time.Time
}

// Manager validates tokens against a bcrypt hash and tracks failed
// attempts per IP. An empty hash disables validation (dev mode).
type Manager struct {
	hashB64 string
	failed  map[string]failInfo
	mu      sync.Mutex
}

// NewManager creates a manager with a cleanup goroutine bound to ctx.
func NewManager(ctx context.Context, hashB64 string) *Manager {
	m := &Manager{
		hashB64: hashB64,
		failed:  make(map[string]failInfo),
	}
	go m.cleanupLoop(ctx)
	log.Printf("[AUTH] 🔐 Token validation enabled=%v", m.Enabled())
	return m
}

// Enabled returns true if a token hash was injected at build time.
func (m *Manager) Enabled() bool {
	return m.hashB64 != ""
}

// ValidateToken decodes the base64 hash and compares with bcrypt.
func (m *Manager) ValidateToken(token string) bool {
	if !m.Enabled() {
		return true
	}
	hashBytes, err := base64.StdEncoding.DecodeString(m.hashB64)
	if err != nil {
		log.Printf("[AUTH] ❌ Failed to decode token hash from base64: %v", err)
		return false
	}
	return bcrypt.CompareHashAndPassword(hashBytes, []byte(token)) == nil
}

// IsLockedOut reports whether addr has exhausted its attempts.
func (m *Manager) IsLockedOut(addr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.failed[addr]
	return ok && time.Now().Before(info.lockedUntil)
}

// RecordFailure counts one failed attempt; the lockout starts once
// MaxFailedAttempts is reached.
func (m *Manager) RecordFailure(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := m.failed[addr]
	info.count++
	if info.count >= MaxFailedAttempts {
		info.lockedUntil = time.Now().Add(LockoutDuration)
		log.Printf("[AUDIT] LOCKOUT | addr=%s | attempts=%d", addr, info.count)
	}
	m.failed[addr] = info
}

// ClearFailures resets the counter after a successful validation.
func (m *Manager) ClearFailures(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failed, addr)
}

// Middleware guards an HTTP handler with Bearer-token validation.
func (m *Manager) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next(w, r)
			return
		}

		addr := remoteHost(r)
		if m.IsLockedOut(addr) {
			log.Printf("[AUDIT] REQUEST_BLOCKED | addr=%s | reason=lockout", addr)
			http.Error(w, "Too many failed attempts", http.StatusTooManyRequests)
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || !m.ValidateToken(token) {
			m.RecordFailure(addr)
			log.Printf("[AUDIT] AUTH_FAILED | addr=%s", addr)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		m.ClearFailures(addr)
		next(w, r)
	}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// cleanupLoop drops stale lockout entries until ctx is cancelled.
func (m *Manager) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for addr, info := range m.failed {
				if info.lockedUntil.IsZero() || now.After(info.lockedUntil) {
					delete(m.failed, addr)
				}
			}
			m.mu.Unlock()
		}
	}
}
