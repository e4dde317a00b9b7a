// Package server exposes the daemon's surface: WebSocket connections
// for direct print submissions and live job results, plus the HTTP
// sticker pipeline and printer listing.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/stickerbooth/sticker-daemon/internal/cups"
)

// PrinterLister is the discovery slice the server needs.
type PrinterLister interface {
	ListPrinters(ctx context.Context) ([]cups.Printer, error)
}

// TokenValidator guards per-message print submissions.
type TokenValidator interface {
	Enabled() bool
	ValidateToken(token string) bool
}

// Config holds server configuration
type Config struct {
	QueueSize      int
	AllowedOrigins []string
	// DefaultPrinter is attached to jobs that name no printer; the
	// orchestrator still falls back to the first USB printer when it
	// is absent.
	DefaultPrinter string
	// Media is the sticker media size for voice-pipeline jobs.
	Media string
}

// PrintJob is one queued submission, already decoded and ready for
// the worker.
type PrintJob struct {
	ID         string
	ClientConn *websocket.Conn // nil for HTTP-originated jobs
	Image      []byte
	Printer    string
	Options    cups.PrintOptions
	Prompt     string // voice pipeline only, for logging
	ReceivedAt time.Time
}

// Message represents an incoming WebSocket message
type Message struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// printRequest is the payload of a "print" message.
type printRequest struct {
	ImageB64  string            `json:"image_b64"`
	Printer   string            `json:"printer,omitempty"`
	Token     string            `json:"token,omitempty"`
	Copies    int               `json:"copies,omitempty"`
	Media     string            `json:"media,omitempty"`
	Grayscale bool              `json:"grayscale,omitempty"`
	FitToPage bool              `json:"fit_to_page,omitempty"`
	Options   map[string]string `json:"options,omitempty"`
}

// Response represents an outgoing WebSocket message
type Response struct {
	Type     string `json:"type"`
	ID       string `json:"id,omitempty"`
	Status   string `json:"status,omitempty"`
	Message  string `json:"message,omitempty"`
	JobID    string `json:"job_id,omitempty"`
	Printer  string `json:"printer,omitempty"`
	Current  int    `json:"current,omitempty"`
	Capacity int    `json:"capacity,omitempty"`
}

// Server manages WebSocket connections and the job queue.
type Server struct {
	cfg          Config
	clients      *ClientRegistry
	jobQueue     chan *PrintJob
	shutdownOnce sync.Once
	shutdownChan chan struct{}
	registry     PrinterLister
	validator    TokenValidator
	limiter      *SubmitLimiter
}

// NewServer creates the server. validator may be nil to disable
// per-message token checks.
func NewServer(cfg Config, registry PrinterLister, validator TokenValidator) *Server {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 50
	}

	return &Server{
		cfg:          cfg,
		clients:      NewClientRegistry(),
		jobQueue:     make(chan *PrintJob, cfg.QueueSize),
		shutdownChan: make(chan struct{}),
		registry:     registry,
		validator:    validator,
		limiter:      NewSubmitLimiter(30, time.Minute),
	}
}

// QueueStatus returns current and max queue size
func (s *Server) QueueStatus() (current, capacity int) {
	return len(s.jobQueue), cap(s.jobQueue)
}

// JobQueue returns the job queue channel (for worker consumption)
func (s *Server) JobQueue() <-chan *PrintJob {
	return s.jobQueue
}

// HandleWebSocket handles WebSocket connections
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.AllowedOrigins,
	})
	if err != nil {
		log.Printf("[WS] ❌ Error accepting client: %v", err)
		return
	}

	s.clients.Add(conn)
	log.Printf("[WS] ➕ Client connected (total: %d) from %s", s.clients.Count(), r.RemoteAddr)

	ctx := r.Context()
	welcome := Response{
		Type:    "info",
		Status:  "connected",
		Message: "sticker daemon ready",
	}
	_ = wsjson.Write(ctx, conn, welcome)

	s.handleMessages(ctx, conn, r.RemoteAddr)

	s.clients.Remove(conn)
	_ = conn.Close(websocket.StatusNormalClosure, "disconnected")
	log.Printf("[WS] ➖ Client disconnected (remaining: %d)", s.clients.Count())
}

// handleMessages processes incoming messages from a client
func (s *Server) handleMessages(ctx context.Context, conn *websocket.Conn, remoteAddr string) {
	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}

		var msg Message
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || ctx.Err() != nil {
				return
			}
			log.Printf("[WS] ⚠️ Error reading message: %v", err)
			return
		}

		s.routeMessage(ctx, conn, remoteAddr, &msg)
	}
}

// routeMessage routes message to appropriate handler
func (s *Server) routeMessage(ctx context.Context, conn *websocket.Conn, remoteAddr string, msg *Message) {
	switch msg.Type {
	case "print":
		s.handlePrint(ctx, conn, remoteAddr, msg)
	case "status":
		s.handleStatus(ctx, conn)
	case "ping":
		s.handlePing(ctx, conn, msg)
	case "get_printers":
		s.handleGetPrinters(ctx, conn)
	default:
		log.Printf("[WS] ⚠️ Unknown message type: %s", msg.Type)
		s.sendError(ctx, conn, msg.ID, "Unknown message type: "+msg.Type)
	}
}

// handlePrint queues a direct image print request.
func (s *Server) handlePrint(ctx context.Context, conn *websocket.Conn, remoteAddr string, msg *Message) {
	jobID := msg.ID
	if jobID == "" {
		jobID = uuid.New().String()
	}

	if !s.limiter.Allow(remoteAddr) {
		log.Printf("[QUEUE] 🚫 Rate limit exceeded for %s", remoteAddr)
		s.sendError(ctx, conn, jobID, "Rate limit exceeded, slow down")
		return
	}

	if len(msg.Data) == 0 {
		s.sendError(ctx, conn, jobID, "Field 'data' is required for type 'print'")
		return
	}

	var req printRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.sendError(ctx, conn, jobID, "Invalid print payload: "+err.Error())
		return
	}

	if s.validator != nil && s.validator.Enabled() && !s.validator.ValidateToken(req.Token) {
		log.Printf("[AUDIT] WS_AUTH_FAILED | addr=%s | job=%s", remoteAddr, jobID)
		s.sendError(ctx, conn, jobID, "Invalid or missing token")
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageB64)
	if err != nil || len(image) == 0 {
		s.sendError(ctx, conn, jobID, "Field 'image_b64' must be non-empty base64")
		return
	}

	printer := req.Printer
	if printer == "" {
		printer = s.cfg.DefaultPrinter
	}

	job := &PrintJob{
		ID:         jobID,
		ClientConn: conn,
		Image:      image,
		Printer:    printer,
		Options: cups.PrintOptions{
			Copies:    req.Copies,
			Media:     req.Media,
			Grayscale: req.Grayscale,
			FitToPage: req.FitToPage,
			Extra:     req.Options,
		},
		ReceivedAt: time.Now(),
	}

	s.enqueue(ctx, conn, job)
}

// enqueue tries a non-blocking queue insert and acks the client.
func (s *Server) enqueue(ctx context.Context, conn *websocket.Conn, job *PrintJob) {
	select {
	case s.jobQueue <- job:
		current, capacity := s.QueueStatus()
		log.Printf("[QUEUE] 📥 Job queued: %s (queue: %d/%d)", job.ID, current, capacity)

		_ = wsjson.Write(ctx, conn, Response{
			Type:     "ack",
			ID:       job.ID,
			Status:   "queued",
			Current:  current,
			Capacity: capacity,
			Message:  "Job queued for printing",
		})

	default:
		current, capacity := s.QueueStatus()
		log.Printf("[QUEUE] 🚫 Queue full, rejecting job: %s (%d/%d)", job.ID, current, capacity)
		s.sendError(ctx, conn, job.ID, "Queue full, please retry in a few seconds")
	}
}

// handleStatus sends queue status
func (s *Server) handleStatus(ctx context.Context, conn *websocket.Conn) {
	current, capacity := s.QueueStatus()
	_ = wsjson.Write(ctx, conn, Response{
		Type:     "status",
		Status:   "ok",
		Current:  current,
		Capacity: capacity,
		Message:  formatStatus(current, capacity),
	})
}

// handlePing responds to ping
func (s *Server) handlePing(ctx context.Context, conn *websocket.Conn, msg *Message) {
	_ = wsjson.Write(ctx, conn, Response{
		Type:   "pong",
		ID:     msg.ID,
		Status: "ok",
	})
}

// handleGetPrinters answers with a fresh discovery result.
func (s *Server) handleGetPrinters(ctx context.Context, conn *websocket.Conn) {
	printers, err := s.registry.ListPrinters(ctx)
	if err != nil {
		s.sendError(ctx, conn, "", "Failed to enumerate printers: "+err.Error())
		return
	}

	response := struct {
		Type     string         `json:"type"`
		Status   string         `json:"status"`
		Printers []cups.Printer `json:"printers"`
		Summary  cups.Summary   `json:"summary"`
	}{
		Type:     "printers",
		Status:   "ok",
		Printers: printers,
		Summary:  cups.Summarize(printers),
	}

	_ = wsjson.Write(ctx, conn, response)
}

// sendError sends error response to client
func (s *Server) sendError(ctx context.Context, conn *websocket.Conn, id, message string) {
	_ = wsjson.Write(ctx, conn, Response{
		Type:    "error",
		ID:      id,
		Status:  "error",
		Message: message,
	})
}

// NotifyClient sends a result back to a specific client
func (s *Server) NotifyClient(conn *websocket.Conn, response Response) error {
	if conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return wsjson.Write(ctx, conn, response)
}

// BroadcastEvent pushes an event to every connected client. Used for
// monitor resume notifications.
func (s *Server) BroadcastEvent(response Response) {
	s.clients.Broadcast(func(conn *websocket.Conn) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return wsjson.Write(ctx, conn, response)
	})
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)

		clientCount := s.clients.Count()
		log.Printf("[WS] 🛑 Shutting down, disconnecting %d clients", clientCount)

		s.clients.ForEach(func(conn *websocket.Conn) {
			_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		})
	})
}

func formatStatus(current, capacity int) string {
	return "Queue: " + strconv.Itoa(current) + "/" + strconv.Itoa(capacity)
}
