// Package orchestrator picks a destination for a generated sticker
// and hands it to the submitter. Printing is a side channel: whatever
// goes wrong here must never block or fail the image response to the
// end user, so callers log and swallow the returned error.
package orchestrator

import (
	"context"
	"log"

	"github.com/stickerbooth/sticker-daemon/internal/cups"
)

// Registry is the discovery slice the orchestrator needs.
type Registry interface {
	ListPrinters(ctx context.Context) ([]cups.Printer, error)
}

// Submitter submits an in-memory image to one printer.
type Submitter interface {
	PrintBuffer(ctx context.Context, printer string, image []byte, opts cups.PrintOptions) (string, error)
}

// Orchestrator routes images to printers.
type Orchestrator struct {
	registry  Registry
	submitter Submitter
}

// New creates an orchestrator.
func New(registry Registry, submitter Submitter) *Orchestrator {
	return &Orchestrator{registry: registry, submitter: submitter}
}

// PrintImage submits image to the preferred printer if it currently
// exists, otherwise to the first USB printer (the spooler default
// first, if it is USB). The orchestrator does not retry.
func (o *Orchestrator) PrintImage(ctx context.Context, preferred string, image []byte, opts cups.PrintOptions) (string, error) {
	printers, err := o.registry.ListPrinters(ctx)
	if err != nil {
		return "", err
	}

	target := ""
	if preferred != "" {
		for _, p := range printers {
			if p.Name == preferred {
				target = preferred
				break
			}
		}
		if target == "" {
			log.Printf("[ORCH] ⚠️ Printer %q not found, falling back to USB", preferred)
		}
	}
	if target == "" {
		target = firstUSB(printers)
	}
	if target == "" {
		return "", &cups.PrinterNotFoundError{Printer: preferred}
	}

	return o.submitter.PrintBuffer(ctx, target, image, opts)
}

func firstUSB(printers []cups.Printer) string {
	for _, p := range printers {
		if p.IsUSB && p.IsDefault {
			return p.Name
		}
	}
	for _, p := range printers {
		if p.IsUSB {
			return p.Name
		}
	}
	return ""
}
