package scanner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// commandRunner executes an external command and returns its stdout.
// Injected so adapter tests can fake scanner binaries.
type commandRunner func(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error)

// runCommand is the production commandRunner. extraEnv entries are appended
// to the inherited environment. stderr is folded into the returned error so
// scanner diagnostics are not lost.
func runCommand(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%w (stderr: %s)", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}
