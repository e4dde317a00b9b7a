package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stickerbooth/sticker-daemon/internal/cups"
)

type fakeRegistry struct {
	printers []cups.Printer
	err      error
}

func (f *fakeRegistry) ListPrinters(context.Context) ([]cups.Printer, error) {
	return f.printers, f.err
}

type fakeSubmitter struct {
	lastPrinter string
	jobID       string
	err         error
}

func (f *fakeSubmitter) PrintBuffer(_ context.Context, printer string, _ []byte, _ cups.PrintOptions) (string, error) {
	f.lastPrinter = printer
	return f.jobID, f.err
}

func TestPrintImageTargetSelection(t *testing.T) {
	printers := []cups.Printer{
		{Name: "Net_Office"},
		{Name: "USB_A", IsUSB: true},
		{Name: "USB_Default", IsUSB: true, IsDefault: true},
	}

	tests := []struct {
		name      string
		preferred string
		printers  []cups.Printer
		want      string
	}{
		{"preferred present", "Net_Office", printers, "Net_Office"},
		{"preferred absent falls back to default USB", "Ghost", printers, "USB_Default"},
		{"no preference picks default USB", "", printers, "USB_Default"},
		{
			"first USB when default is not USB",
			"Ghost",
			[]cups.Printer{
				{Name: "Net_Default", IsDefault: true},
				{Name: "USB_A", IsUSB: true},
				{Name: "USB_B", IsUSB: true},
			},
			"USB_A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{jobID: "7"}
			o := New(&fakeRegistry{printers: tt.printers}, sub)

			jobID, err := o.PrintImage(context.Background(), tt.preferred, []byte("img"), cups.PrintOptions{})
			if err != nil {
				t.Fatalf("PrintImage: %v", err)
			}
			if sub.lastPrinter != tt.want {
				t.Errorf("submitted to %q; want %q", sub.lastPrinter, tt.want)
			}
			if jobID != "7" {
				t.Errorf("jobID = %q; want 7", jobID)
			}
		})
	}
}

func TestPrintImageNoEligiblePrinter(t *testing.T) {
	o := New(&fakeRegistry{printers: []cups.Printer{{Name: "Net_Only"}}}, &fakeSubmitter{})

	_, err := o.PrintImage(context.Background(), "Ghost", []byte("img"), cups.PrintOptions{})
	var notFound *cups.PrinterNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *PrinterNotFoundError, got %T: %v", err, err)
	}
}

func TestPrintImageDiscoveryErrorPropagates(t *testing.T) {
	discErr := &cups.DiscoveryError{Op: "lpstat -p -d", Err: errors.New("boom")}
	o := New(&fakeRegistry{err: discErr}, &fakeSubmitter{})

	_, err := o.PrintImage(context.Background(), "P1", []byte("img"), cups.PrintOptions{})
	if !errors.Is(err, discErr) {
		t.Fatalf("expected discovery error to propagate, got %v", err)
	}
}
