// Package webin drives the archive's write side: the external webin-cli
// uploader for payload-bearing artifacts, and the drop-box endpoint for
// XML samplesheets.
//
// The uploader is treated as an opaque external program parameterised by
// manifest, input/output directories, credentials and a submission
// context. It is stateful per invocation and never multiplexed.
package webin

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/ena-tools/magsub/auth"
)

// Context selects the uploader's validation rules.
type Context string

// Submission contexts used by this tool.
const (
	ContextGenome Context = "genome"
	ContextReads  Context = "reads"
)

// Job describes one uploader invocation.
type Job struct {
	Manifest  string
	InputDir  string
	OutputDir string
	Context   Context
}

// Uploader invokes the external webin-cli program.
type Uploader struct {
	JarPath  string
	JavaPath string
	Test     bool // pass -test, targeting the archive's test service
	Creds    auth.Credentials
	Logger   zerolog.Logger

	// runCommand is swapped in tests.
	runCommand func(ctx context.Context, args []string) (string, error)
}

// NewUploader creates an uploader around the given jar.
func NewUploader(jarPath string, creds auth.Credentials, test bool, logger zerolog.Logger) *Uploader {
	u := &Uploader{
		JarPath:  jarPath,
		JavaPath: "java",
		Test:     test,
		Creds:    creds,
		Logger:   logger,
	}
	u.runCommand = u.execute
	return u
}

// Accession patterns in the uploader's textual output, by context.
var accessionPatterns = map[Context]*regexp.Regexp{
	ContextGenome: regexp.MustCompile(`following analysis accession was assigned to the submission: (ERZ\d+)`),
	ContextReads:  regexp.MustCompile(`following run accession was assigned to the submission: (ERR\d+)`),
}

// Validate runs the uploader in validation mode; no submission traffic
// is emitted.
func (u *Uploader) Validate(ctx context.Context, job Job) error {
	out, err := u.runCommand(ctx, u.args(job, "-validate"))
	if err != nil {
		return &UploadRejectedError{Phase: "validate", Job: job, Output: out, Err: err}
	}
	u.Logger.Debug().Str("manifest", job.Manifest).Msg("uploader validation passed")
	return nil
}

// Submit runs the uploader in submission mode and returns the assigned
// accession. A submission that completes without yielding an accession
// is fatal.
func (u *Uploader) Submit(ctx context.Context, job Job) (string, error) {
	out, err := u.runCommand(ctx, u.args(job, "-submit"))
	if err != nil {
		return "", &UploadRejectedError{Phase: "submit", Job: job, Output: out, Err: err}
	}
	accession, ok := ParseAccession(out, job.Context)
	if !ok {
		return "", &NoAccessionError{Job: job, Output: out}
	}
	u.Logger.Info().Str("accession", accession).Str("context", string(job.Context)).Msg("artifact submitted")
	return accession, nil
}

// ParseAccession extracts the context-specific accession line from the
// uploader output.
func ParseAccession(output string, c Context) (string, bool) {
	pattern, ok := accessionPatterns[c]
	if !ok {
		return "", false
	}
	m := pattern.FindStringSubmatch(output)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (u *Uploader) args(job Job, phase string) []string {
	args := []string{
		"-jar", u.JarPath,
		"-context", string(job.Context),
		"-manifest", job.Manifest,
		"-inputDir", job.InputDir,
		"-outputDir", job.OutputDir,
		"-userName", u.Creds.Username,
		"-password", u.Creds.Password,
		phase,
	}
	if u.Test {
		args = append(args, "-test")
	}
	return args
}

func (u *Uploader) execute(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, u.JavaPath, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	cmd.Env = os.Environ()
	err := cmd.Run()
	return buf.String(), err
}

// UploadRejectedError reports a non-success uploader run. The receipt
// files under the job's output directory are preserved for inspection.
type UploadRejectedError struct {
	Phase  string
	Job    Job
	Output string
	Err    error
}

func (e *UploadRejectedError) Error() string {
	return fmt.Sprintf("uploader %s failed for manifest %s (context %s): %v; inspect the receipt under %s",
		e.Phase, e.Job.Manifest, e.Job.Context, e.Err, e.Job.OutputDir)
}

func (e *UploadRejectedError) Unwrap() error { return e.Err }

// NoAccessionError reports a submit run that produced no accession.
type NoAccessionError struct {
	Job    Job
	Output string
}

func (e *NoAccessionError) Error() string {
	return fmt.Sprintf("uploader reported success but no %s accession was found in its output; inspect the receipt under %s",
		e.Job.Context, e.Job.OutputDir)
}
