package cups

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// PrintOptions configure a single submission. Constructed per call,
// never persisted.
type PrintOptions struct {
	Copies    int               // emitted only if >1
	Media     string            // free-form media size, e.g. "4x6"
	Grayscale bool              // maps to ColorModel=Gray
	FitToPage bool              // scale content to the media size
	Extra     map[string]string // arbitrary -o key=value pairs
}

// supportedExtensions is the fixed allow-list for path submissions.
var supportedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".pdf":  true,
	".tiff": true,
	".tif":  true,
}

// Submitter turns an image file or buffer into a spooler job.
type Submitter struct {
	registry *Registry
	runner   CommandRunner
	tempDir  string
}

// NewSubmitter creates a submitter that checks targets against the
// given registry before every submission.
func NewSubmitter(registry *Registry, runner CommandRunner) *Submitter {
	return &Submitter{
		registry: registry,
		runner:   runner,
		tempDir:  os.TempDir(),
	}
}

// PrintFile submits an existing image file and returns the spooler
// job id. The extension must be on the printable allow-list.
func (s *Submitter) PrintFile(ctx context.Context, printer, path string, opts PrintOptions) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return "", &UnsupportedFormatError{Path: path, Ext: ext}
	}
	if _, err := os.Stat(path); err != nil {
		return "", &FileNotFoundError{Path: path, Err: err}
	}
	return s.submit(ctx, printer, path, opts)
}

// PrintBuffer writes an in-memory image to a uniquely named temp file
// and submits it. The temp file is removed whether or not submission
// succeeds; cleanup failures are logged and swallowed because the
// submission outcome already stands on its own.
func (s *Submitter) PrintBuffer(ctx context.Context, printer string, image []byte, opts PrintOptions) (jobID string, err error) {
	path := filepath.Join(s.tempDir, fmt.Sprintf("sticker-%d-%s.png", time.Now().UnixNano(), randomToken()))

	if err := os.WriteFile(path, image, 0600); err != nil {
		return "", fmt.Errorf("writing temp print file: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil {
			log.Printf("[PRINT] ⚠️ Could not remove temp file %s: %v", path, rmErr)
		}
	}()

	return s.submit(ctx, printer, path, opts)
}

// submit performs the late target check, builds the lp argv and
// parses the job id out of the response.
func (s *Submitter) submit(ctx context.Context, printer, path string, opts PrintOptions) (string, error) {
	printers, err := s.registry.ListPrinters(ctx)
	if err != nil {
		return "", err
	}
	found := false
	for _, p := range printers {
		if p.Name == printer {
			found = true
			break
		}
	}
	if !found {
		return "", &PrinterNotFoundError{Printer: printer}
	}

	args := buildArgs(printer, path, opts)
	out, err := s.runner.Run(ctx, "lp", args...)
	if err != nil {
		return "", &SubmitError{Printer: printer, Output: strings.TrimSpace(out), Err: err}
	}

	jobID := ParseJobID(out)
	log.Printf("[PRINT] 🖨️ Submitted %s to %s (job %s)", filepath.Base(path), printer, jobID)
	return jobID, nil
}

// buildArgs constructs the lp argument list. Order is stable so tests
// can assert on it; the spooler itself does not care.
func buildArgs(printer, path string, opts PrintOptions) []string {
	args := []string{"-d", printer}

	if opts.Copies > 1 {
		args = append(args, "-n", strconv.Itoa(opts.Copies))
	}
	if opts.Media != "" {
		args = append(args, "-o", "media="+opts.Media)
	}
	if opts.Grayscale {
		args = append(args, "-o", "ColorModel=Gray")
	}
	if opts.FitToPage {
		args = append(args, "-o", "fit-to-page")
	}

	keys := make([]string, 0, len(opts.Extra))
	for k := range opts.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-o", k+"="+opts.Extra[k])
	}

	return append(args, path)
}

var requestIDRe = regexp.MustCompile(`request id is \S+-(\d+)`)

// ParseJobID extracts the numeric job id from lp's "request id is
// <printer>-<digits>" response. When the pattern is absent the raw
// trimmed output is returned verbatim as a best-effort id.
func ParseJobID(out string) string {
	if m := requestIDRe.FindStringSubmatch(out); m != nil {
		return m[1]
	}
	return strings.TrimSpace(out)
}

// CancelJob asks the spooler to cancel a previously submitted job.
func (s *Submitter) CancelJob(ctx context.Context, printer, jobID string) error {
	if _, err := s.runner.Run(ctx, "cancel", printer+"-"+jobID); err != nil {
		return fmt.Errorf("cancelling job %s-%s: %w", printer, jobID, err)
	}
	return nil
}

// ActiveJobs returns the spooler's raw queue lines for one printer.
func (s *Submitter) ActiveJobs(ctx context.Context, printer string) ([]string, error) {
	out, err := s.runner.Run(ctx, "lpstat", "-o", printer)
	if err != nil {
		return nil, &DiscoveryError{Op: "lpstat -o " + printer, Err: err}
	}
	var jobs []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			jobs = append(jobs, line)
		}
	}
	return jobs, nil
}

// randomToken returns a short random suffix so concurrent buffer
// prints never collide on the same temp path.
func randomToken() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().Unix(), 36)
	}
	return hex.EncodeToString(b)
}
