package cups

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeRunner returns canned output per command line and records every
// invocation.
type fakeRunner struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return f.responses[key], err
	}
	return f.responses[key], nil
}

func (f *fakeRunner) callCount(key string) int {
	n := 0
	for _, c := range f.calls {
		if c == key {
			n++
		}
	}
	return n
}

const canonStatus = `printer Canon_XK130 is idle.  enabled since Mon 01 Jan 2026
system default destination: Canon_XK130
`

const canonURIs = `device for Canon_XK130: usb://Canon/XK130?serial=ABC123
`

func TestListPrintersClassification(t *testing.T) {
	runner := &fakeRunner{responses: map[string]string{
		"lpstat -p -d": canonStatus,
		"lpstat -v":    canonURIs,
	}}
	reg := NewRegistry(runner)

	printers, err := reg.ListPrinters(context.Background())
	if err != nil {
		t.Fatalf("ListPrinters returned error: %v", err)
	}
	if len(printers) != 1 {
		t.Fatalf("expected 1 printer, got %d", len(printers))
	}

	p := printers[0]
	if p.Name != "Canon_XK130" {
		t.Errorf("Name = %q; want Canon_XK130", p.Name)
	}
	if !p.IsDefault {
		t.Errorf("IsDefault = false; want true")
	}
	if !p.IsUSB {
		t.Errorf("IsUSB = false; want true")
	}
	if p.IsBluetooth {
		t.Errorf("IsBluetooth = true; want false")
	}
	if p.URI != "usb://Canon/XK130?serial=ABC123" {
		t.Errorf("URI = %q", p.URI)
	}
}

func TestListPrintersURIClassificationIsCaseInsensitive(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		isUSB       bool
		isBluetooth bool
	}{
		{"upper-case usb", "USB://Vendor/Model", true, false},
		{"bluetooth", "bluetooth://AA:BB:CC", false, true},
		{"bth scheme", "BTH://AA:BB:CC", false, true},
		{"network", "ipp://192.168.1.20/ipp/print", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{responses: map[string]string{
				"lpstat -p -d": "printer P1 is idle.\n",
				"lpstat -v":    "device for P1: " + tt.uri + "\n",
			}}
			printers, err := NewRegistry(runner).ListPrinters(context.Background())
			if err != nil {
				t.Fatalf("ListPrinters: %v", err)
			}
			if printers[0].IsUSB != tt.isUSB {
				t.Errorf("IsUSB = %v; want %v", printers[0].IsUSB, tt.isUSB)
			}
			if printers[0].IsBluetooth != tt.isBluetooth {
				t.Errorf("IsBluetooth = %v; want %v", printers[0].IsBluetooth, tt.isBluetooth)
			}
		})
	}
}

// Pins the known substring ambiguity: when one printer's name appears
// inside another printer's URI line, the first matching line wins.
// Deliberate behavior documentation, not an endorsement.
func TestFindDeviceURIAmbiguity(t *testing.T) {
	status := "printer Label is idle.\nprinter Label_Wide is idle.\n"
	uris := "device for Label_Wide: usb://Vendor/Label_Wide\n" +
		"device for Label: ipp://192.168.1.9/print\n"

	runner := &fakeRunner{responses: map[string]string{
		"lpstat -p -d": status,
		"lpstat -v":    uris,
	}}
	printers, err := NewRegistry(runner).ListPrinters(context.Background())
	if err != nil {
		t.Fatalf("ListPrinters: %v", err)
	}

	byName := map[string]Printer{}
	for _, p := range printers {
		byName[p.Name] = p
	}

	// "Label" is a substring of the Label_Wide URI line, which comes
	// first, so Label picks up Label_Wide's USB URI.
	if got := byName["Label"].URI; got != "usb://Vendor/Label_Wide" {
		t.Errorf("Label URI = %q; ambiguity behavior changed", got)
	}
	if got := byName["Label_Wide"].URI; got != "usb://Vendor/Label_Wide" {
		t.Errorf("Label_Wide URI = %q", got)
	}
}

func TestListPrintersEmptyOutput(t *testing.T) {
	runner := &fakeRunner{responses: map[string]string{
		"lpstat -p -d": "lpstat: No destinations added.\n",
		"lpstat -v":    "",
	}}
	printers, err := NewRegistry(runner).ListPrinters(context.Background())
	if err != nil {
		t.Fatalf("empty listing should not error, got %v", err)
	}
	if len(printers) != 0 {
		t.Errorf("expected no printers, got %d", len(printers))
	}
}

func TestListPrintersDiscoveryError(t *testing.T) {
	runner := &fakeRunner{
		responses: map[string]string{},
		errs:      map[string]error{"lpstat -p -d": errors.New("executable not found")},
	}
	_, err := NewRegistry(runner).ListPrinters(context.Background())

	var discErr *DiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("expected *DiscoveryError, got %T: %v", err, err)
	}
}

func TestListFilteredPrinters(t *testing.T) {
	status := "printer A is idle.\nprinter B is idle.\nprinter C is idle.\n"
	uris := "device for A: usb://Vendor/A\n" +
		"device for B: bluetooth://AA:BB\n" +
		"device for C: ipp://192.168.1.3/print\n"
	runner := &fakeRunner{responses: map[string]string{
		"lpstat -p -d": status,
		"lpstat -v":    uris,
	}}
	reg := NewRegistry(runner)

	usb, err := reg.ListUSBPrinters(context.Background())
	if err != nil {
		t.Fatalf("ListUSBPrinters: %v", err)
	}
	if len(usb) != 1 || usb[0].Name != "A" {
		t.Errorf("USB printers = %v; want [A]", usb)
	}

	bt, err := reg.ListBluetoothPrinters(context.Background())
	if err != nil {
		t.Fatalf("ListBluetoothPrinters: %v", err)
	}
	if len(bt) != 1 || bt[0].Name != "B" {
		t.Errorf("Bluetooth printers = %v; want [B]", bt)
	}
}

func TestIsPrinterEnabled(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   bool
	}{
		{"idle printer", "printer P1 is idle.  enabled since Mon", true},
		{"disabled", "printer P1 disabled since Mon -\n\treason unknown", false},
		{"paused", "printer P1 is Paused", false},
		{"mixed case", "printer P1 DISABLED", false},
		{"empty output", "", true},
		{"unknown destination", "lpstat: Invalid destination name in list \"P1\".", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{responses: map[string]string{"lpstat -p P1": tt.output}}
			got, err := NewRegistry(runner).IsPrinterEnabled(context.Background(), "P1")
			if err != nil {
				t.Fatalf("IsPrinterEnabled: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsPrinterEnabled(%q) = %v; want %v", tt.output, got, tt.want)
			}
		})
	}
}

func TestIsPrinterEnabledCommandFailure(t *testing.T) {
	runner := &fakeRunner{
		responses: map[string]string{},
		errs:      map[string]error{"lpstat -p P1": errors.New("fork failed")},
	}
	_, err := NewRegistry(runner).IsPrinterEnabled(context.Background(), "P1")

	var discErr *DiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("expected *DiscoveryError, got %T: %v", err, err)
	}
}

func TestEnablePrinterIdempotent(t *testing.T) {
	runner := &fakeRunner{responses: map[string]string{}}
	reg := NewRegistry(runner)

	for i := 0; i < 2; i++ {
		msg, err := reg.EnablePrinter(context.Background(), "P1")
		if err != nil {
			t.Fatalf("EnablePrinter attempt %d: %v", i+1, err)
		}
		if msg == "" {
			t.Errorf("expected confirmation message on attempt %d", i+1)
		}
	}

	if got := runner.callCount("cupsenable P1"); got != 2 {
		t.Errorf("cupsenable calls = %d; want 2", got)
	}
	if got := runner.callCount("cupsaccept P1"); got != 2 {
		t.Errorf("cupsaccept calls = %d; want 2", got)
	}
}

func TestEnablePrinterFailure(t *testing.T) {
	runner := &fakeRunner{
		responses: map[string]string{},
		errs:      map[string]error{"cupsaccept P1": errors.New("denied")},
	}
	_, err := NewRegistry(runner).EnablePrinter(context.Background(), "P1")

	var enableErr *EnableError
	if !errors.As(err, &enableErr) {
		t.Fatalf("expected *EnableError, got %T: %v", err, err)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		printers []Printer
		want     string
	}{
		{"no printers", nil, "error"},
		{"only network", []Printer{{Name: "N"}}, "warning"},
		{"usb present", []Printer{{Name: "U", IsUSB: true}}, "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.printers).Status; got != tt.want {
				t.Errorf("Summarize status = %q; want %q", got, tt.want)
			}
		})
	}
}
