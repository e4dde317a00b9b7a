// Package monitor keeps printers accepting jobs: a background loop
// that re-discovers printers, spots paused or disabled ones and
// issues resume commands.
package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/stickerbooth/sticker-daemon/internal/cups"
)

// Registry is the slice of the printer registry the monitor needs.
type Registry interface {
	ListPrinters(ctx context.Context) ([]cups.Printer, error)
	IsPrinterEnabled(ctx context.Context, name string) (bool, error)
	EnablePrinter(ctx context.Context, name string) (string, error)
}

// Config controls one monitor instance.
type Config struct {
	// Interval between passes. Defaults to 1s; the composition root
	// normally raises this (30s in the daemon) to keep spooler load
	// down.
	Interval time.Duration
	// PrinterNames restricts monitoring to an explicit allow-list.
	// Empty means every USB or Bluetooth printer; network printers
	// are assumed externally managed and never auto-resumed.
	PrinterNames []string
	// OnResume fires after a printer was found disabled and
	// successfully re-enabled.
	OnResume func(name string)
	// OnError fires on any failure of a single pass. The loop keeps
	// running regardless.
	OnError func(err error)
}

// Monitor is a running health-check loop. Start returns the handle;
// Stop is terminal, a stopped monitor is never restarted.
type Monitor struct {
	registry Registry
	cfg      Config
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// Start launches the loop. One pass runs immediately, then the next
// pass is scheduled only while the monitor has not been stopped.
func Start(registry Registry, cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	m := &Monitor{
		registry: registry,
		cfg:      cfg,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.run()
	log.Printf("[MONITOR] 👀 Printer health monitor started (interval %v)", cfg.Interval)
	return m
}

// Stop ends the loop. An in-flight pass completes; no further pass is
// scheduled. Blocks until the loop goroutine has exited.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
	<-m.done
	log.Println("[MONITOR] 🛑 Printer health monitor stopped")
}

// Running reports whether the loop is still scheduling passes.
func (m *Monitor) Running() bool {
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

func (m *Monitor) run() {
	defer close(m.done)
	for {
		m.pass()
		select {
		case <-m.stopChan:
			return
		case <-time.After(m.cfg.Interval):
		}
	}
}

// pass runs one full check. Every failure, panics included, is routed
// to OnError; the monitor is the only long-lived background task and
// must never take the process down with it.
func (m *Monitor) pass() {
	defer func() {
		if r := recover(); r != nil {
			m.reportError(fmt.Errorf("panic in monitor pass: %v", r))
		}
	}()

	ctx := context.Background()

	names := m.cfg.PrinterNames
	if len(names) == 0 {
		printers, err := m.registry.ListPrinters(ctx)
		if err != nil {
			m.reportError(err)
			return
		}
		for _, p := range printers {
			if p.IsUSB || p.IsBluetooth {
				names = append(names, p.Name)
			}
		}
	}

	for _, name := range names {
		enabled, err := m.registry.IsPrinterEnabled(ctx, name)
		if err != nil {
			m.reportError(err)
			return
		}
		if enabled {
			continue
		}
		if _, err := m.registry.EnablePrinter(ctx, name); err != nil {
			m.reportError(err)
			return
		}
		log.Printf("[MONITOR] ▶️ Resumed printer %s", name)
		if m.cfg.OnResume != nil {
			m.cfg.OnResume(name)
		}
	}
}

func (m *Monitor) reportError(err error) {
	if m.cfg.OnError != nil {
		m.cfg.OnError(err)
		return
	}
	log.Printf("[MONITOR] ⚠️ Pass failed: %v", err)
}
