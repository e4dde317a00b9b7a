// Package worker drains the print queue and pushes each sticker
// through the orchestrator.
package worker

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/stickerbooth/sticker-daemon/internal/cups"
	"github.com/stickerbooth/sticker-daemon/internal/server"
)

// Config holds worker configuration
type Config struct {
	// DefaultPrinter is the preferred destination for jobs that name
	// none; the orchestrator still falls back to USB when absent.
	DefaultPrinter string
}

// Printer submits an image and reports the spooler job id.
type Printer interface {
	PrintImage(ctx context.Context, preferred string, image []byte, opts cups.PrintOptions) (string, error)
}

// ClientNotifier interface for sending results back to clients
type ClientNotifier interface {
	NotifyClient(conn *websocket.Conn, response server.Response) error
}

// Worker consumes print jobs from the queue and executes them.
type Worker struct {
	jobQueue      <-chan *server.PrintJob
	printer       Printer
	notifier      ClientNotifier
	config        Config
	stopChan      chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	isRunning     bool
	jobsProcessed int64
	jobsFailed    int64
	lastJobTime   time.Time
}

// NewWorker creates a new print worker
func NewWorker(jobQueue <-chan *server.PrintJob, printer Printer, notifier ClientNotifier, config Config) *Worker {
	return &Worker{
		jobQueue: jobQueue,
		printer:  printer,
		notifier: notifier,
		config:   config,
		stopChan: make(chan struct{}),
	}
}

// Start begins the worker goroutine
func (w *Worker) Start() {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run()

	log.Println("[WORKER] ✅ Print worker started and ready")
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	log.Printf("[WORKER] 🛑 Print worker stopped (processed: %d, failed: %d)", w.jobsProcessed, w.jobsFailed)
}

// run is the main worker loop
func (w *Worker) run() {
	defer w.wg.Done()

	log.Println("[WORKER] 👂 Waiting for print jobs...")

	for {
		select {
		case <-w.stopChan:
			log.Println("[WORKER] 📴 Received stop signal")
			return

		case job, ok := <-w.jobQueue:
			if !ok {
				log.Println("[WORKER] 📴 Job channel closed, exiting")
				return
			}
			w.processJob(job)
		}
	}
}

// processJob handles a single print job
func (w *Worker) processJob(job *server.PrintJob) {
	startTime := time.Now()
	log.Printf("[WORKER] 🔄 Processing job: %s", job.ID)

	jobID, err := w.executePrint(job)

	duration := time.Since(startTime)

	w.mu.Lock()
	w.lastJobTime = time.Now()
	if err != nil {
		w.jobsFailed++
	} else {
		w.jobsProcessed++
	}
	w.mu.Unlock()

	var response server.Response
	if err != nil {
		// A failed print is a logged side channel, never a crash; the
		// sticker image already went back to the user.
		log.Printf("[WORKER] ❌ Job %s FAILED after %v: %v", job.ID, duration, err)

		response = server.Response{
			Type:    "result",
			ID:      job.ID,
			Status:  "error",
			Message: FriendlyError(err),
		}
	} else {
		log.Printf("[WORKER] ✅ Job %s completed in %v (spooler job %s)", job.ID, duration, jobID)
		response = server.Response{
			Type:    "result",
			ID:      job.ID,
			Status:  "success",
			JobID:   jobID,
			Message: fmt.Sprintf("Print completed in %v", duration.Round(time.Millisecond)),
		}
	}

	// Notify client (async to not block worker loop)
	if job.ClientConn != nil && w.notifier != nil {
		go func() {
			if err := w.notifier.NotifyClient(job.ClientConn, response); err != nil {
				log.Printf("[WORKER] ⚠️ Failed to notify client for job %s: %v", job.ID, err)
			}
		}()
	}
}

// executePrint runs one submission with panic containment.
func (w *Worker) executePrint(job *server.PrintJob) (jobID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic recovered in executePrint: %v", r)
			log.Printf("[WORKER] 💥 Panic in job %s: %v\nStack: %s", job.ID, r, debug.Stack())
		}
	}()

	if len(job.Image) == 0 {
		return "", fmt.Errorf("job %s carries no image data", job.ID)
	}

	preferred := job.Printer
	if preferred == "" {
		preferred = w.config.DefaultPrinter
	}

	return w.printer.PrintImage(context.Background(), preferred, job.Image, job.Options)
}

// Stats returns current worker statistics
func (w *Worker) Stats() Statistics {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Statistics{
		IsRunning:     w.isRunning,
		JobsProcessed: w.jobsProcessed,
		JobsFailed:    w.jobsFailed,
		LastJobTime:   w.lastJobTime,
	}
}

// Statistics holds worker runtime statistics
type Statistics struct {
	IsRunning     bool      `json:"is_running"`
	JobsProcessed int64     `json:"jobs_processed"`
	JobsFailed    int64     `json:"jobs_failed"`
	LastJobTime   time.Time `json:"last_job_time,omitempty"`
}
