// Package cups talks to the CUPS spooler through its command-line
// tools: printer discovery, enable/resume, and job submission.
package cups

import "fmt"

// DiscoveryError indicates a spooler query failed outright. An empty
// or unparseable listing is not a DiscoveryError.
type DiscoveryError struct {
	Op  string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("printer discovery failed (%s): %v", e.Op, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// EnableError indicates a resume or accept-jobs command failed.
type EnableError struct {
	Printer string
	Err     error
}

func (e *EnableError) Error() string {
	return fmt.Sprintf("enabling printer %q failed: %v", e.Printer, e.Err)
}

func (e *EnableError) Unwrap() error { return e.Err }

// FileNotFoundError indicates the submitted file path does not exist
// or cannot be read.
type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("print file not found: %s", e.Path)
}

func (e *FileNotFoundError) Unwrap() error { return e.Err }

// UnsupportedFormatError indicates the file extension is not in the
// printable allow-list.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported print format %q (%s)", e.Ext, e.Path)
}

// PrinterNotFoundError indicates the target printer was absent from
// the discovery result taken immediately before submission.
type PrinterNotFoundError struct {
	Printer string
}

func (e *PrinterNotFoundError) Error() string {
	if e.Printer == "" {
		return "no eligible printer found"
	}
	return fmt.Sprintf("printer %q not found", e.Printer)
}

// SubmitError indicates the spooler rejected the job.
type SubmitError struct {
	Printer string
	Output  string
	Err     error
}

func (e *SubmitError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("submitting job to %q failed: %v: %s", e.Printer, e.Err, e.Output)
	}
	return fmt.Sprintf("submitting job to %q failed: %v", e.Printer, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }
