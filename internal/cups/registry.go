package cups

import (
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strings"
)

// Printer is one spooler-registered destination. Instances are
// rebuilt on every discovery call and carry no identity beyond Name.
type Printer struct {
	Name        string `json:"name"`
	URI         string `json:"uri"`
	Status      string `json:"status"`
	IsDefault   bool   `json:"is_default"`
	IsUSB       bool   `json:"is_usb"`
	IsBluetooth bool   `json:"is_bluetooth"`
}

// Summary is a lightweight overview of the printer fleet for health
// checks.
type Summary struct {
	Status         string `json:"status"` // "ok", "warning", "error"
	DetectedCount  int    `json:"detected_count"`
	USBCount       int    `json:"usb_count"`
	BluetoothCount int    `json:"bluetooth_count"`
	DefaultName    string `json:"default_name,omitempty"`
}

// Registry enumerates and controls spooler destinations. All reads go
// straight to the spooler; nothing is cached, so every listing
// reflects the current state.
type Registry struct {
	runner CommandRunner
}

// NewRegistry creates a registry backed by the given runner.
func NewRegistry(runner CommandRunner) *Registry {
	return &Registry{runner: runner}
}

var (
	printerLineRe = regexp.MustCompile(`^printer\s+(\S+)\s+(.*)$`)
	defaultDestRe = regexp.MustCompile(`system default destination:\s*(\S+)`)
)

// ListPrinters queries the spooler and classifies every destination.
// A query that cannot run is a *DiscoveryError; output with no
// parseable printer lines yields an empty slice.
func (r *Registry) ListPrinters(ctx context.Context) ([]Printer, error) {
	statusOut, err := r.runner.Run(ctx, "lpstat", "-p", "-d")
	if err != nil {
		return nil, &DiscoveryError{Op: "lpstat -p -d", Err: err}
	}
	uriOut, err := r.runner.Run(ctx, "lpstat", "-v")
	if err != nil {
		return nil, &DiscoveryError{Op: "lpstat -v", Err: err}
	}

	defaultName := ""
	if m := defaultDestRe.FindStringSubmatch(statusOut); m != nil {
		defaultName = m[1]
	}

	uriLines := strings.Split(uriOut, "\n")

	var printers []Printer
	for _, line := range strings.Split(statusOut, "\n") {
		m := printerLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		name := m[1]
		uri := findDeviceURI(uriLines, name)
		lower := strings.ToLower(uri)

		printers = append(printers, Printer{
			Name:        name,
			URI:         uri,
			Status:      strings.TrimSpace(m[2]),
			IsDefault:   name == defaultName,
			IsUSB:       strings.Contains(lower, "usb"),
			IsBluetooth: strings.Contains(lower, "bluetooth") || strings.Contains(lower, "bth"),
		})
	}
	return printers, nil
}

// findDeviceURI picks the first `lpstat -v` line containing the
// printer name and extracts the URI after the colon. The match is a
// plain substring check, so a printer whose name appears inside
// another printer's URI line can shadow it. That matches the spooler
// tooling this grew up against; see the ambiguity test before
// changing it.
func findDeviceURI(uriLines []string, name string) string {
	for _, line := range uriLines {
		if !strings.Contains(line, name) {
			continue
		}
		if idx := strings.Index(line, ": "); idx >= 0 {
			return strings.TrimSpace(line[idx+2:])
		}
		return strings.TrimSpace(line)
	}
	return ""
}

// ListUSBPrinters re-runs discovery and keeps USB destinations.
func (r *Registry) ListUSBPrinters(ctx context.Context) ([]Printer, error) {
	return r.listFiltered(ctx, func(p Printer) bool { return p.IsUSB })
}

// ListBluetoothPrinters re-runs discovery and keeps Bluetooth
// destinations.
func (r *Registry) ListBluetoothPrinters(ctx context.Context) ([]Printer, error) {
	return r.listFiltered(ctx, func(p Printer) bool { return p.IsBluetooth })
}

func (r *Registry) listFiltered(ctx context.Context, keep func(Printer) bool) ([]Printer, error) {
	printers, err := r.ListPrinters(ctx)
	if err != nil {
		return nil, err
	}
	var out []Printer
	for _, p := range printers {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// IsPrinterEnabled reports whether a printer is accepting jobs: false
// iff its status text contains "disabled" or "paused". Every other
// text, including an unknown destination, counts as enabled; a
// missing printer simply is not blocked.
func (r *Registry) IsPrinterEnabled(ctx context.Context, name string) (bool, error) {
	out, err := r.runner.Run(ctx, "lpstat", "-p", name)
	if err != nil {
		// lpstat exits non-zero for unknown destinations but still
		// prints status text; only a command that could not run at
		// all is a discovery failure.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return false, &DiscoveryError{Op: "lpstat -p " + name, Err: err}
		}
	}

	lower := strings.ToLower(out)
	if strings.Contains(lower, "disabled") || strings.Contains(lower, "paused") {
		return false, nil
	}
	return true, nil
}

// EnablePrinter resumes a printer and tells the spooler to accept
// jobs for it again. Calling it on an already-enabled printer is a
// harmless no-op resume.
func (r *Registry) EnablePrinter(ctx context.Context, name string) (string, error) {
	if _, err := r.runner.Run(ctx, "cupsenable", name); err != nil {
		return "", &EnableError{Printer: name, Err: err}
	}
	if _, err := r.runner.Run(ctx, "cupsaccept", name); err != nil {
		return "", &EnableError{Printer: name, Err: err}
	}
	return "printer " + name + " resumed and accepting jobs", nil
}

// Summarize condenses a printer listing for the health endpoint.
func Summarize(printers []Printer) Summary {
	s := Summary{Status: "ok", DetectedCount: len(printers)}
	for _, p := range printers {
		if p.IsUSB {
			s.USBCount++
		}
		if p.IsBluetooth {
			s.BluetoothCount++
		}
		if p.IsDefault {
			s.DefaultName = p.Name
		}
	}
	if len(printers) == 0 {
		s.Status = "error"
	} else if s.USBCount == 0 && s.BluetoothCount == 0 {
		s.Status = "warning"
	}
	return s
}
