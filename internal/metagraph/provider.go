// Package metagraph loads the network snapshot used to decide which miners
// are active. Failures never block the dashboard: callers get an empty
// snapshot and filtering is skipped.
package metagraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"leaddash/internal/models"
)

// DefaultTimeout bounds one snapshot command run.
const DefaultTimeout = 120 * time.Second

// Provider returns the current snapshot.
type Provider interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
}

// Options configures a Loader. Command takes precedence over File.
type Options struct {
	Command string
	File    string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Loader loads the snapshot from an external command's stdout or a JSON file.
type Loader struct {
	command []string
	file    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewLoader creates a loader. With neither a command nor a file configured
// it always returns an empty snapshot.
func NewLoader(opts Options) *Loader {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		command: strings.Fields(opts.Command),
		file:    opts.File,
		timeout: timeout,
		logger:  logger.With("component", "metagraph"),
	}
}

// Snapshot loads the snapshot. It fails open: on any error the returned
// snapshot is empty with Error set, alongside the error itself.
func (l *Loader) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	var (
		raw []byte
		err error
	)
	switch {
	case len(l.command) > 0:
		raw, err = l.run(ctx)
	case l.file != "":
		raw, err = os.ReadFile(l.file)
	default:
		return Empty(""), nil
	}
	if err != nil {
		l.logger.Warn("metagraph unavailable, miners will not be filtered", "error", err)
		return Empty(err.Error()), err
	}

	snap, err := Decode(raw)
	if err != nil {
		l.logger.Warn("invalid metagraph snapshot, miners will not be filtered", "error", err)
		return Empty(err.Error()), err
	}
	if snap.Error != "" {
		l.logger.Warn("metagraph reported an error", "error", snap.Error)
	}
	return snap, nil
}

func (l *Loader) run(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, l.command[0], l.command[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("metagraph command timed out after %v", l.timeout)
		}
		return nil, fmt.Errorf("metagraph command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stderr.Len() > 0 {
		l.logger.Debug("metagraph command stderr", "stderr", strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Decode parses a snapshot document. Missing maps are initialised empty.
func Decode(raw []byte) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	fill(&snap)
	return &snap, nil
}

// Empty returns a snapshot with no miners.
func Empty(errMsg string) *models.Snapshot {
	snap := &models.Snapshot{Error: errMsg}
	fill(snap)
	return snap
}

func fill(s *models.Snapshot) {
	if s.HotkeyToUID == nil {
		s.HotkeyToUID = map[string]int{}
	}
	if s.UIDToHotkey == nil {
		s.UIDToHotkey = map[string]string{}
	}
	if s.Incentives == nil {
		s.Incentives = map[string]float64{}
	}
	if s.Emissions == nil {
		s.Emissions = map[string]float64{}
	}
	if s.Stakes == nil {
		s.Stakes = map[string]float64{}
	}
	if s.IsValidator == nil {
		s.IsValidator = map[string]bool{}
	}
}

// Static is a Provider that always returns the same snapshot.
type Static struct {
	Snap *models.Snapshot
	Err  error
}

// Snapshot returns the configured snapshot.
func (s Static) Snapshot(context.Context) (*models.Snapshot, error) {
	return s.Snap, s.Err
}
