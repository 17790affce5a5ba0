package gitops

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cleared-dev/envelope/internal/budget"
)

// Init initializes a new git repository at dir.
func Init(dir string) error {
	cmd := exec.Command("git", "init", "--quiet")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git init: %s: %w", out, err)
	}
	return nil
}

// HasChanges reports whether the work tree at dir has anything to commit.
func HasChanges(ctx context.Context, dir string) (bool, error) {
	status := exec.CommandContext(ctx, "git", "status", "--porcelain")
	status.Dir = dir
	out, err := status.Output()
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return len(strings.TrimSpace(string(out))) > 0, nil
}

// CommitAll stages all files and creates a commit. Returns the short commit hash.
func CommitAll(ctx context.Context, dir, message, authorName, authorEmail string) (string, error) {
	author := fmt.Sprintf("%s <%s>", authorName, authorEmail)

	add := exec.CommandContext(ctx, "git", "add", "-A")
	add.Dir = dir
	if out, err := add.CombinedOutput(); err != nil {
		return "", fmt.Errorf("git add: %s: %w", out, err)
	}

	// The committer identity may be unset on fresh machines.
	commit := exec.CommandContext(ctx, "git",
		"-c", "user.name="+authorName, "-c", "user.email="+authorEmail,
		"commit", "--quiet", "-m", message, "--author", author)
	commit.Dir = dir
	if out, err := commit.CombinedOutput(); err != nil {
		return "", fmt.Errorf("git commit: %s: %w", out, err)
	}

	rev := exec.CommandContext(ctx, "git", "rev-parse", "--short", "HEAD")
	rev.Dir = dir
	out, err := rev.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// IsRepo reports whether dir is inside a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Committer commits the budget directory after every recorded event.
// It implements budget.Hook.
type Committer struct {
	Dir         string
	AuthorName  string
	AuthorEmail string
}

// Record commits pending changes with the message "<action>: <details>".
// It is a no-op when the work tree is clean.
func (c Committer) Record(ctx context.Context, e budget.Event) error {
	dirty, err := HasChanges(ctx, c.Dir)
	if err != nil || !dirty {
		return err
	}
	msg := e.Action + ": " + e.Details
	if e.Details == "" {
		msg = e.Action + ": " + e.Subject
	}
	_, err = CommitAll(ctx, c.Dir, msg, c.AuthorName, c.AuthorEmail)
	return err
}
