package worker

import (
	"errors"
	"fmt"

	"github.com/stickerbooth/sticker-daemon/internal/cups"
)

// FriendlyError maps the printing error taxonomy onto short messages
// fit for the client UI, hiding spooler internals.
func FriendlyError(err error) string {
	var (
		discErr    *cups.DiscoveryError
		enableErr  *cups.EnableError
		formatErr  *cups.UnsupportedFormatError
		missingErr *cups.FileNotFoundError
		ghostErr   *cups.PrinterNotFoundError
		submitErr  *cups.SubmitError
	)

	switch {
	case errors.As(err, &discErr):
		return "PRINTER: Cannot query the print system - is the spooler running?"
	case errors.As(err, &enableErr):
		return fmt.Sprintf("PRINTER: Could not resume %q", enableErr.Printer)
	case errors.As(err, &formatErr):
		return fmt.Sprintf("FORMAT: %q is not a printable file type", formatErr.Ext)
	case errors.As(err, &missingErr):
		return "FILE: Print file is missing or unreadable"
	case errors.As(err, &ghostErr):
		if ghostErr.Printer == "" {
			return "PRINTER: No USB printer available"
		}
		return fmt.Sprintf("PRINTER: %q is not installed", ghostErr.Printer)
	case errors.As(err, &submitErr):
		return "PRINT: The spooler rejected the job - check printer and paper"
	default:
		return fmt.Sprintf("ERROR: %v", err)
	}
}
