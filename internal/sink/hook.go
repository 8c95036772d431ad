package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Hook runs a shell command for each delivered result, piping the
// result as JSON on stdin. Grounded on the teacher's
// internal/hook/hook.go, adapted to the Sink interface.
type Hook struct {
	cmd   string
	quiet bool
}

// NewHook creates a Hook sink. cmd is the shell command to execute;
// {url}/{path}/{status}/{size}/{method}/{host} placeholders are
// substituted before execution.
func NewHook(cmd string, quiet bool) *Hook {
	return &Hook{cmd: cmd, quiet: quiet}
}

func (h *Hook) Deliver(rec ResultRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling hook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shell, args := shellCommand()
	expanded := strings.NewReplacer(
		"{url}", rec.FinalURL,
		"{path}", rec.CandidatePath,
		"{status}", fmt.Sprintf("%d", rec.Status),
		"{size}", fmt.Sprintf("%d", rec.BodySize),
		"{method}", "GET",
		"{host}", rec.TargetRef,
	).Replace(h.cmd)

	cmd := exec.CommandContext(ctx, shell, append(args, expanded)...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	if err != nil {
		if !h.quiet {
			fmt.Fprintf(os.Stderr, "[hook] error: %v\n", err)
		}
		return fmt.Errorf("running hook command: %w", err)
	}
	if len(output) > 0 && !h.quiet {
		fmt.Fprintf(os.Stderr, "[hook] %s", output)
	}
	return nil
}

func (h *Hook) Flush() error { return nil }

func shellCommand() (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}
	}
	return "sh", []string{"-c"}
}
