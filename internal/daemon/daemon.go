// Package daemon wires the sticker print service together and runs it
// under a service manager.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/judwhite/go-svc"

	"github.com/stickerbooth/sticker-daemon/internal/auth"
	"github.com/stickerbooth/sticker-daemon/internal/config"
	"github.com/stickerbooth/sticker-daemon/internal/cups"
	"github.com/stickerbooth/sticker-daemon/internal/imagegen"
	"github.com/stickerbooth/sticker-daemon/internal/monitor"
	"github.com/stickerbooth/sticker-daemon/internal/orchestrator"
	"github.com/stickerbooth/sticker-daemon/internal/server"
	"github.com/stickerbooth/sticker-daemon/internal/speech"
	"github.com/stickerbooth/sticker-daemon/internal/worker"
)

// GetEnvConfig returns the current environment configuration
func GetEnvConfig() config.Environment {
	return config.GetEnvironment(config.BuildEnvironment)
}

// Program implements svc.Service interface
type Program struct {
	wg          sync.WaitGroup
	quit        chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc
	httpServer  *http.Server
	wsServer    *server.Server
	printWorker *worker.Worker
	healthMon   *monitor.Monitor
	registry    *cups.Registry
	authMgr     *auth.Manager
	startTime   time.Time
	resumeCount atomic.Int64
}

// Init initializes the service
func (p *Program) Init(_ svc.Environment) error {
	envConfig := GetEnvConfig()

	if err := initLogging(envConfig); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║   🎨 STICKER DAEMON - Voice-to-Sticker Print Service       ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")
	log.Printf("[INIT] 🚀 Starting service - Environment: %s", envConfig.Name)
	log.Printf("[INIT] 📅 Build: %s %s", config.BuildDate, config.BuildTime)

	return nil
}

// Start starts the service
func (p *Program) Start() error {
	p.quit = make(chan struct{})
	p.startTime = time.Now()
	p.ctx, p.cancel = context.WithCancel(context.Background())
	cfg := GetEnvConfig()
	fileCfg := loadFileConfig()

	defaultPrinter := cfg.DefaultPrinter
	if fileCfg.Printing.DefaultPrinter != "" {
		defaultPrinter = fileCfg.Printing.DefaultPrinter
	}

	// Auth manager (bound to service context for clean shutdown)
	p.authMgr = auth.NewManager(p.ctx, config.TokenHashB64)

	// Printer subsystem: registry, submitter, orchestrator
	runner := cups.NewExecRunner()
	p.registry = cups.NewRegistry(runner)
	submitter := cups.NewSubmitter(p.registry, runner)
	orch := orchestrator.New(p.registry, submitter)

	p.logStartupDiagnostics()

	// WebSocket/HTTP server
	p.wsServer = server.NewServer(server.Config{
		QueueSize:      cfg.QueueCapacity,
		AllowedOrigins: cfg.AllowedOrigins,
		DefaultPrinter: defaultPrinter,
		Media:          fileCfg.Printing.Media,
	}, p.registry, p.authMgr)

	// Print worker
	p.printWorker = worker.NewWorker(
		p.wsServer.JobQueue(),
		orch,
		p.wsServer,
		worker.Config{DefaultPrinter: defaultPrinter},
	)
	p.printWorker.Start()

	// Printer health monitor: keeps USB/Bluetooth printers accepting
	// jobs; resume events go out to every connected client.
	p.healthMon = monitor.Start(p.registry, monitor.Config{
		Interval:     cfg.MonitorInterval,
		PrinterNames: fileCfg.Printing.MonitorPrinters,
		OnResume: func(name string) {
			p.resumeCount.Add(1)
			p.wsServer.BroadcastEvent(server.Response{
				Type:    "printer_resumed",
				Status:  "ok",
				Printer: name,
				Message: "Printer " + name + " was paused and has been resumed",
			})
		},
		OnError: func(err error) {
			log.Printf("[MONITOR] ⚠️ Pass failed: %v", err)
		},
	})

	// Outbound API clients
	transcriber := speech.NewClient(
		fileCfg.Speech.APIKey, fileCfg.Speech.BaseURL,
		fileCfg.Speech.Model, fileCfg.Speech.Language,
	)
	generator := imagegen.NewClient(
		fileCfg.ImageGen.APIKey, fileCfg.ImageGen.BaseURL,
		fileCfg.ImageGen.Model, fileCfg.ImageGen.Size,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", p.wsServer.HandleWebSocket) // WS is public; token validates inside per-message
	mux.HandleFunc("/health", p.handleHealth)         // Health is public for monitoring tools
	mux.HandleFunc("/printers", p.wsServer.HandlePrinters)
	mux.HandleFunc("/stickers", p.authMgr.Middleware(p.wsServer.HandleSticker(transcriber, generator)))

	p.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		log.Println("┌─────────────────────────────────────────────────────────────┐")
		log.Printf("│ 🎨 STICKER DAEMON READY - Environment: %-21s│", cfg.Name)
		log.Printf("│ 🎤 Stickers:  http://%s/stickers%-19s│", cfg.ListenAddr, "")
		log.Printf("│ 🔌 WebSocket: ws://%s/ws%-25s│", cfg.ListenAddr, "")
		log.Printf("│ 🖨️ Printers:  http://%s/printers%-19s│", cfg.ListenAddr, "")
		log.Printf("│ 💚 Health:    http://%s/health%-21s│", cfg.ListenAddr, "")
		log.Printf("│ 🔐 Auth:      %-44v│", p.authMgr.Enabled())
		log.Println("└─────────────────────────────────────────────────────────────┘")

		if err := p.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[HTTP] ❌ Error starting HTTP server: %v", err)
		}
	}()

	return nil
}

// Stop stops the service gracefully
func (p *Program) Stop() error {
	log.Println("[STOP] 🛑 Service shutting down...")

	// 1. Cancel context (stops auth cleanup goroutine)
	p.cancel()

	// 2. Stop the health monitor; no pass may fire during teardown
	if p.healthMon != nil {
		p.healthMon.Stop()
	}

	// 3. Stop print worker
	if p.printWorker != nil {
		p.printWorker.Stop()
	}

	// 4. Graceful HTTP shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if p.httpServer != nil {
		if err := p.httpServer.Shutdown(ctx); err != nil {
			log.Printf("[STOP] ⚠️ HTTP shutdown error: %v", err)
		}
	}

	// 5. Shutdown WebSocket server
	if p.wsServer != nil {
		p.wsServer.Shutdown()
	}

	close(p.quit)
	p.wg.Wait()

	uptime := time.Since(p.startTime)
	log.Printf("[STOP] ✅ Service stopped (uptime: %v)", uptime.Round(time.Second))
	return nil
}

// handleHealth reports queue, worker, monitor and printer state.
func (p *Program) handleHealth(w http.ResponseWriter, r *http.Request) {
	current, capacity := p.wsServer.QueueStatus()
	stats := p.printWorker.Stats()

	var utilization float64
	if capacity > 0 {
		utilization = float64(current) / float64(capacity) * 100
	}

	printers, err := p.registry.ListPrinters(r.Context())
	summary := cups.Summarize(printers)
	if err != nil {
		summary = cups.Summary{Status: "error"}
	}

	response := HealthResponse{
		Status: "ok",
		Queue: QueueStatus{
			Current:     current,
			Capacity:    capacity,
			Utilization: utilization,
		},
		Worker: WorkerStatus{
			Running:       stats.IsRunning,
			JobsProcessed: stats.JobsProcessed,
			JobsFailed:    stats.JobsFailed,
		},
		Monitor: MonitorStatus{
			Running: p.healthMon.Running(),
			Resumes: p.resumeCount.Load(),
		},
		Printers: summary,
		Build: BuildInfo{
			Env:  config.BuildEnvironment,
			Date: config.BuildDate,
			Time: config.BuildTime,
		},
		Uptime: int(time.Since(p.startTime).Seconds()),
	}

	if response.Printers.Status == "error" {
		response.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_ = json.NewEncoder(w).Encode(response)
}

// logStartupDiagnostics logs printer info at service start
func (p *Program) logStartupDiagnostics() {
	printers, err := p.registry.ListPrinters(p.ctx)
	if err != nil {
		log.Printf("[PRINTERS] ⚠️ Error enumerating printers: %v", err)
		return
	}

	log.Println("[PRINTERS] ══════════════════════════════════════════════════")
	log.Printf("[PRINTERS] 🖨️ Detected %d installed printer(s)", len(printers))

	direct := 0
	for _, pr := range printers {
		if !pr.IsUSB && !pr.IsBluetooth {
			continue
		}
		direct++
		mark := ""
		if pr.IsDefault {
			mark = " ⭐"
		}
		kind := "usb"
		if pr.IsBluetooth {
			kind = "bluetooth"
		}
		log.Printf("[PRINTERS]    • %s [%s] (%s)%s", pr.Name, kind, pr.Status, mark)
	}
	if direct == 0 {
		log.Println("[PRINTERS] ⚠️ No USB or Bluetooth printers detected!")
	}

	if GetVerbose() {
		for _, pr := range printers {
			if !pr.IsUSB && !pr.IsBluetooth {
				log.Printf("[PRINTERS]    (network) %s -> %s", pr.Name, pr.URI)
			}
		}
	}
	log.Println("[PRINTERS] ══════════════════════════════════════════════════")
}

// loadFileConfig reads the YAML settings file, falling back to
// defaults when none is present.
func loadFileConfig() *config.File {
	path := os.Getenv("STICKERD_CONFIG")
	if path == "" {
		path = filepath.Join("/etc", "stickerd", "config.yaml")
	}

	fileCfg, err := config.LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("[INIT] 📄 No config file at %s, using defaults", path)
		} else {
			log.Printf("[INIT] ⚠️ Config file %s unusable (%v), using defaults", path, err)
		}
		return config.DefaultFile()
	}

	log.Printf("[INIT] 📄 Loaded config file: %s", path)
	return fileCfg
}

func initLogging(envConfig config.Environment) error {
	stateDir := os.Getenv("STICKERD_STATE_DIR")
	if stateDir == "" {
		stateDir = "/var/log"
	}
	logPath := envConfig.LogPath(stateDir)
	logDir := filepath.Dir(logPath)

	if err := os.MkdirAll(logDir, 0750); err != nil {
		return err
	}

	if err := InitLogger(logPath, envConfig.Verbose); err != nil {
		return err
	}

	log.Printf("[INIT] 📁 Log file: %s", logPath)
	return nil
}
