package gate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"itassist/internal/domain"
)

// TerminalConfirmer prompts for approval on an interactive terminal.
// Input is read on a background goroutine so a confirmation wait can be
// abandoned when the context expires.
type TerminalConfirmer struct {
	out    io.Writer
	logger *slog.Logger

	lines   chan string
	readErr error

	// set when a prompt timed out with no answer; the next Confirm
	// discards input typed in the meantime
	stale bool
}

type TerminalConfig struct {
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
}

func NewTerminalConfirmer(cfg TerminalConfig) *TerminalConfirmer {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	t := &TerminalConfirmer{
		out:    cfg.Out,
		logger: cfg.Logger,
		lines:  make(chan string),
	}
	go t.readLoop(cfg.In)
	return t
}

func (t *TerminalConfirmer) readLoop(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		t.lines <- scanner.Text()
	}
	t.readErr = scanner.Err()
	close(t.lines)
}

// discardPending drops any line typed in answer to an abandoned prompt,
// so it cannot be taken as the answer to the next one. The read goroutine
// blocks on the unbuffered channel until someone receives, hence the
// non-blocking loop.
func (t *TerminalConfirmer) discardPending() {
	for {
		select {
		case line, ok := <-t.lines:
			if !ok {
				return
			}
			t.logger.Warn("discarding input typed after prompt timed out", "input", line)
		default:
			return
		}
	}
}

// Confirm asks the user to approve, deny, or view a privileged command.
// View prints the full command text and re-prompts. Unknown input
// re-prompts. EOF or context expiry returns DecisionSkipped.
func (t *TerminalConfirmer) Confirm(ctx context.Context, cand domain.Candidate) (domain.Decision, error) {
	if t.stale {
		t.discardPending()
		t.stale = false
	}

	preview := cand.Text
	if len(preview) > 80 {
		preview = preview[:77] + "..."
	}
	fmt.Fprintf(t.out, "\nPrivileged command: %s\n", preview)

	for {
		fmt.Fprint(t.out, "[a]pprove / [d]eny / [v]iew full command: ")

		select {
		case <-ctx.Done():
			fmt.Fprintln(t.out, "\nconfirmation timed out, skipping")
			t.stale = true
			return domain.DecisionSkipped, ctx.Err()

		case line, ok := <-t.lines:
			if !ok {
				if t.readErr != nil {
					return domain.DecisionSkipped, fmt.Errorf("read input: %w", t.readErr)
				}
				return domain.DecisionSkipped, io.EOF
			}

			switch strings.ToLower(strings.TrimSpace(line)) {
			case "a", "approve", "y", "yes":
				t.logger.Info("user approved command", "command", cand.Text)
				return domain.DecisionApproved, nil
			case "d", "deny", "n", "no":
				t.logger.Info("user denied command", "command", cand.Text)
				return domain.DecisionDenied, nil
			case "v", "view":
				fmt.Fprintf(t.out, "\n%s\n\n", cand.Text)
			default:
				fmt.Fprintln(t.out, "unrecognized input")
			}
		}
	}
}
