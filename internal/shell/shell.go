// Package shell invokes the external tool binaries the derivative pipelines
// depend on. The collaborator contract is a command line plus exit code and
// captured output; stdout/stderr are recorded for diagnostics, never parsed
// for meaning.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tendant/paged-content-pipeline/internal/derivatives"
)

// Result captures one tool invocation for diagnostics
type Result struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Ok reports whether the tool exited zero
func (r *Result) Ok() bool {
	return r.ExitCode == 0
}

// String renders the invocation for the diagnostic log
func (r *Result) String() string {
	return fmt.Sprintf("command=%q exit=%d stdout=%q stderr=%q", r.Command, r.ExitCode, r.Stdout, r.Stderr)
}

// Runner executes external tools. Pipelines depend on this interface so
// tests can substitute fakes.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// ExecRunner runs tools as subprocesses. A nonzero exit is reported through
// the Result, not as an error; errors mean the process could not run at all.
type ExecRunner struct{}

// Run executes the tool and captures its output
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	result := &Result{
		Command: strings.Join(append([]string{name}, args...), " "),
	}

	err := cmd.Run()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("failed to run %s: %w", name, err)
	}
	return result, nil
}

// Capabilities probes for installed backends by looking up the configured
// binaries on PATH
type Capabilities struct {
	binaries map[derivatives.Capability][]string
}

// NewCapabilities creates capability probes for the configured binaries.
// PDF derivation needs both the conversion and the merge binary.
func NewCapabilities(cfg *derivatives.Config) *Capabilities {
	return &Capabilities{
		binaries: map[derivatives.Capability][]string{
			derivatives.CapabilityImage: {cfg.ConvertPath},
			derivatives.CapabilityPDF:   {cfg.ConvertPath, cfg.PDFMergePath},
			derivatives.CapabilityOCR:   {cfg.TesseractPath},
		},
	}
}

// Available reports whether every backend binary for the capability resolves
func (c *Capabilities) Available(cap derivatives.Capability) bool {
	binaries, ok := c.binaries[cap]
	if !ok || len(binaries) == 0 {
		return false
	}
	for _, binary := range binaries {
		if binary == "" {
			return false
		}
		if _, err := exec.LookPath(binary); err != nil {
			return false
		}
	}
	return true
}
