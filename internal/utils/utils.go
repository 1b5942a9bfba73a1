package utils

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// --- 1. Process Safety & Command Wrapping ---

// SafeCommand wraps a standard exec.Cmd with a buffer to catch Stderr (Python logs)
// This ensures we don't lose critical crash information if the solver dies.
type SafeCommand struct {
	*exec.Cmd
	Stderr *bytes.Buffer
}

// NewSafeCommand initializes a context-bound command and attaches a buffer to its Stderr.
// It prepares the command for execution but does not start it.
func NewSafeCommand(ctx context.Context, name string, args ...string) *SafeCommand {
	cmd := exec.CommandContext(ctx, name, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	return &SafeCommand{Cmd: cmd, Stderr: stderr}
}

// StderrText returns the captured stderr, or "" for a nil command.
func (s *SafeCommand) StderrText() string {
	if s == nil || s.Stderr == nil {
		return ""
	}
	return s.Stderr.String()
}

// ShowError prints the unified error box without exiting.
// Captured subprocess logs are dumped if a SafeCommand is provided.
func ShowError(context string, err error, s *SafeCommand) {
	writeErrorBox(os.Stderr, context, err, s.StderrText())
}

// ShowErrorLogs prints the error box with logs captured elsewhere, e.g. the
// stderr a solver process left behind.
func ShowErrorLogs(context string, err error, logs string) {
	writeErrorBox(os.Stderr, context, err, logs)
}

func writeErrorBox(w io.Writer, context string, err error, logs string) {
	fmt.Fprintf(w, "\n---------------------------------------------------------\n")
	fmt.Fprintf(w, "🚨 EIGENFACES ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(w, "DETAILS: %v\n", err)
	}
	if logs != "" {
		fmt.Fprintf(w, "\nSOLVER LOGS:\n%s\n", logs)
	}
	fmt.Fprintf(w, "---------------------------------------------------------\n")
}

// --- 2. Dataset identity ---

// DatasetID creates a deterministic hash for the dataset file
// based on its path, size, and modification time.
func DatasetID(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	input := fmt.Sprintf("%s-%d-%d", path, info.Size(), info.ModTime().UnixNano())
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:]), nil
}

// ShortID trims an id for display.
func ShortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
