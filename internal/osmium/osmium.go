// Package osmium wraps the external osmium command-line tool, used to
// pre-filter PBF extracts by tag expression before conversion. The core
// never filters itself, it only consumes osmium's output file.
package osmium

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wegman-software/osmpkg-go/internal/logger"
)

const binary = "osmium"

// ExternalToolError indicates that osmium is absent or exited non-zero.
type ExternalToolError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	if e.Err != nil && e.ExitCode < 0 {
		return fmt.Sprintf("osmium unavailable: %v", e.Err)
	}
	msg := fmt.Sprintf("osmium exited with code %d", e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// OutputExistsError indicates that the derived output path already exists
// and force was not requested. Recoverable: retry with force or pick a
// different suffix.
type OutputExistsError struct {
	Path string
}

func (e *OutputExistsError) Error() string {
	return fmt.Sprintf("output file %q already exists (use --force to overwrite)", e.Path)
}

// Available reports whether the osmium binary is on PATH.
func Available() bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

// OutputPath derives the filtered output path from the input path: the
// stem minus any ".osm" infix, plus suffix, plus ".osm.pbf".
func OutputPath(input, suffix string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.ReplaceAll(stem, ".osm", "")
	return filepath.Join(filepath.Dir(input), stem+suffix+".osm.pbf")
}

// FilterOptions configures a tags-filter invocation.
type FilterOptions struct {
	Profile  *Profile
	Force    bool
	Progress bool
	// FileSuffix overrides the profile's output suffix when non-empty.
	FileSuffix string
}

// TagsFilter runs `osmium tags-filter` on input and returns the filtered
// output path.
func TagsFilter(ctx context.Context, input string, opts FilterOptions) (string, error) {
	profile := opts.Profile
	if profile == nil {
		profile = RailwayProfile()
	}
	suffix := profile.Suffix
	if opts.FileSuffix != "" {
		suffix = opts.FileSuffix
	}

	output := OutputPath(input, suffix)
	if _, err := os.Stat(output); err == nil && !opts.Force {
		return "", &OutputExistsError{Path: output}
	}

	args := []string{"tags-filter", input}
	args = append(args, profile.Expressions...)
	args = append(args, "-o", output)
	if opts.Force {
		args = append(args, "--overwrite")
	}
	if opts.Progress {
		args = append(args, "--progress")
	} else {
		args = append(args, "--no-progress")
	}

	logger.Get().Debug("Running osmium",
		zap.String("input", input),
		zap.String("output", output),
		zap.Strings("expressions", profile.Expressions))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExternalToolError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String(), Err: err}
		}
		return "", &ExternalToolError{ExitCode: -1, Err: err}
	}

	return output, nil
}
