// Package publish hands the updated state file to version control when
// running inside CI, so the next scheduled run starts from it.
package publish

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// StatePublisher receives the updated state file after a run that found
// new items.
type StatePublisher interface {
	Publish(ctx context.Context, statePath string, newItems int) error
}

// commitIdentity is the bot identity used for state commits.
const (
	commitUserName  = "github-actions[bot]"
	commitUserEmail = "41898282+github-actions[bot]@users.noreply.github.com"
)

// runner executes one git invocation; swapped out in tests.
type runner func(ctx context.Context, args ...string) error

// Git commits and pushes the state file. Outside CI, or when the run
// found nothing new, Publish is a no-op.
type Git struct {
	logger *zap.Logger
	run    runner
	inCI   func() bool
}

// NewGit builds the git-backed publisher.
func NewGit(logger *zap.Logger) *Git {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Git{
		logger: logger,
		run:    runGit,
		inCI:   func() bool { return os.Getenv("GITHUB_ACTIONS") != "" },
	}
}

// Publish commits the state file with the new-item count in the message
// and pushes it.
func (g *Git) Publish(ctx context.Context, statePath string, newItems int) error {
	if newItems <= 0 || !g.inCI() {
		return nil
	}

	steps := [][]string{
		{"config", "user.name", commitUserName},
		{"config", "user.email", commitUserEmail},
		{"add", statePath},
		{"commit", "-m", fmt.Sprintf("chore: update seen state (%d new)", newItems)},
		{"push"},
	}
	for _, args := range steps {
		if err := g.run(ctx, args...); err != nil {
			return fmt.Errorf("git %s: %w", args[0], err)
		}
	}
	g.logger.Info("state file committed",
		zap.String("path", statePath), zap.Int("new_items", newItems))
	return nil
}

func runGit(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
