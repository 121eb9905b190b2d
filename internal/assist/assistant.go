package assist

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"itassist/internal/domain"
)

// Processor runs the safety pipeline over one model response.
type Processor interface {
	Process(ctx context.Context, response string) []domain.PipelineRecord
}

// Assistant is the interactive terminal loop: read a request, get a
// model response (or a canned fallback), render it, then hand it to the
// pipeline. Failed commands produce a bounded number of follow-up
// queries to the model.
type Assistant struct {
	session        *Session
	provider       domain.Provider
	processor      Processor
	in             io.Reader
	out            io.Writer
	maxFixAttempts int
	logger         *slog.Logger
}

type Config struct {
	Session        *Session
	Provider       domain.Provider
	Processor      Processor
	In             io.Reader
	Out            io.Writer
	MaxFixAttempts int
	Logger         *slog.Logger
}

func New(cfg Config) *Assistant {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &Assistant{
		session:        cfg.Session,
		provider:       cfg.Provider,
		processor:      cfg.Processor,
		in:             cfg.In,
		out:            cfg.Out,
		maxFixAttempts: cfg.MaxFixAttempts,
		logger:         cfg.Logger,
	}
}

// Run drives the REPL until quit, EOF, or context cancellation.
func (a *Assistant) Run(ctx context.Context) error {
	fmt.Fprintln(a.out, "IT Assistant. Type 'help' for commands, 'quit' to exit.")

	scanner := bufio.NewScanner(a.in)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Fprint(a.out, "\nYou> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "quit", "exit", "q":
			a.logger.Info("user requested quit")
			return nil
		case "help":
			a.printHelp()
		case "save":
			file, err := a.session.Export("")
			if err != nil {
				fmt.Fprintf(a.out, "could not save conversation: %v\n", err)
				continue
			}
			fmt.Fprintf(a.out, "Conversation saved to %s\n", file)
		default:
			a.handleTurn(ctx, input)
		}
	}
}

func (a *Assistant) handleTurn(ctx context.Context, input string) {
	a.session.Add(ctx, "user", input)

	var response string
	if pkg := parseInstallRequest(input); pkg != "" {
		// Install requests get deterministic platform phrasing without a
		// model round-trip.
		response = InstallCommands(pkg)
	} else {
		reply, err := a.provider.Chat(ctx, a.session.ChatMessages())
		if err != nil || reply == "" {
			a.logger.Warn("model unavailable, using fallback", "error", err)
			response = fallbackResponse(input)
		} else {
			response = reply
		}
	}

	a.session.Add(ctx, "assistant", response)
	fmt.Fprintf(a.out, "\nAssistant:\n%s\n", response)

	a.processResponse(ctx, response, 0)
}

// processResponse pipes one response through the pipeline, renders the
// results, and asks the model to analyze the first failed command. The
// fix responses re-enter the pipeline up to maxFixAttempts times.
func (a *Assistant) processResponse(ctx context.Context, response string, attempt int) {
	records := a.processor.Process(ctx, response)

	var failed *domain.PipelineRecord
	for i := range records {
		rec := &records[i]
		a.renderRecord(rec)
		if failed == nil && commandFailed(rec) {
			failed = rec
		}
	}

	if failed == nil || attempt >= a.maxFixAttempts {
		return
	}

	fmt.Fprintln(a.out, "\nCommand failed. Asking the model for a fix...")
	query := fmt.Sprintf("The command '%s' failed with this error:\n%s\nPlease analyze this error and provide a solution or alternative approach.",
		failed.Candidate.Text, failed.Execution.Stderr)
	a.session.Add(ctx, "user", query)

	fix, err := a.provider.Chat(ctx, a.session.ChatMessages())
	if err != nil || fix == "" {
		a.logger.Warn("model unavailable for fix analysis", "error", err)
		return
	}
	a.session.Add(ctx, "assistant", fix)
	fmt.Fprintf(a.out, "\nAssistant:\n%s\n", fix)

	a.processResponse(ctx, fix, attempt+1)
}

func (a *Assistant) renderRecord(rec *domain.PipelineRecord) {
	switch rec.Decision {
	case domain.DecisionDenied:
		fmt.Fprintf(a.out, "\n[denied: %s] %s\n", rec.RuleID, rec.Candidate.Text)
		return
	case domain.DecisionSkipped:
		fmt.Fprintf(a.out, "\n[skipped] %s\n", rec.Candidate.Text)
		return
	}

	if rec.Execution == nil {
		return
	}
	exec := rec.Execution
	switch exec.Outcome {
	case domain.OutcomeTimedOut:
		fmt.Fprintf(a.out, "\n[timed out after %s] %s\n", exec.Duration.Round(time.Millisecond), rec.Candidate.Text)
	case domain.OutcomeSpawnFailed:
		fmt.Fprintf(a.out, "\n[could not start] %s: %s\n", rec.Candidate.Text, exec.Error)
	default:
		fmt.Fprintf(a.out, "\n$ %s (exit %d)\n", rec.Candidate.Text, exec.ExitCode)
	}
	if exec.Stdout != "" {
		fmt.Fprintln(a.out, exec.Stdout)
	}
	if exec.Stderr != "" {
		fmt.Fprintf(a.out, "stderr:\n%s\n", exec.Stderr)
	}
}

func commandFailed(rec *domain.PipelineRecord) bool {
	return rec.Execution != nil &&
		rec.Execution.Outcome == domain.OutcomeCompleted &&
		rec.Execution.ExitCode != 0 &&
		rec.Execution.Stderr != ""
}

func (a *Assistant) printHelp() {
	fmt.Fprintln(a.out, `
Commands:
  help     - Show this help message
  save     - Save conversation history to a JSON file
  quit     - Exit the assistant

Type IT questions or requests in natural language. Commands found in the
response are risk-checked; privileged ones ask for your approval before
they run.`)
}
