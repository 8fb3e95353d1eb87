// Package git reads staged changes from the repository in the working directory.
package git

import (
	"context"
	stderrors "errors"
	"os/exec"
	"strings"
	"time"

	"github.com/asum-cli/asum/internal/pkg/errors"
)

const (
	// GitCommandTimeout is the default timeout for git commands.
	GitCommandTimeout = 10 * time.Second
)

// Client supplies the raw staged diff.
type Client interface {
	StagedDiff(ctx context.Context) (string, error)
}

// DefaultClient implements Client using exec.CommandContext.
type DefaultClient struct {
	// workDir is the working directory for git commands.
	// If empty, uses the current directory.
	workDir string
}

// NewClient creates a new DefaultClient.
func NewClient() *DefaultClient {
	return &DefaultClient{}
}

// NewClientWithWorkDir creates a new DefaultClient with a specific working directory.
func NewClientWithWorkDir(workDir string) *DefaultClient {
	return &DefaultClient{workDir: workDir}
}

// diffArgs disables color and external diff drivers so the output stays parseable.
var diffArgs = []string{"diff", "--cached", "--no-color", "--no-ext-diff"}

// StagedDiff returns the output of git diff --cached. An empty string means
// nothing is staged.
func (c *DefaultClient) StagedDiff(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, GitCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", diffArgs...)
	if c.workDir != "" {
		cmd.Dir = c.workDir
	}

	output, err := cmd.Output()
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errors.NewGitError(ctx.Err(), "git diff timed out")
		}
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return "", errors.NewGitError(err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", errors.NewGitError(err, "")
	}

	return string(output), nil
}
