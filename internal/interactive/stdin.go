package interactive

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"
)

// StartStdinToggle puts stdin into raw mode and watches for the space
// bar (pause/resume) and Ctrl+C (scan-wide cancellation, passed through
// via cancel). The watcher goroutine stops once ctx is done (checked
// between key presses); the terminal is restored only when the caller
// invokes the returned restore func. Returns a no-op restore func if
// stdin is not a terminal.
func StartStdinToggle(ctx context.Context, pauser *Pauser, cancel context.CancelFunc) (restore func(), err error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}, nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("entering raw terminal mode: %w", err)
	}

	restoreFn := func() { _ = term.Restore(fd, oldState) }

	go func() {
		buf := make([]byte, 1)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			n, readErr := os.Stdin.Read(buf)
			if readErr != nil || n == 0 {
				return
			}
			switch buf[0] {
			case ' ':
				pauser.Toggle()
			case 0x03: // Ctrl+C
				cancel()
				return
			}
		}
	}()

	return restoreFn, nil
}
