package gate

import (
	"context"
	"log/slog"
	"time"

	"itassist/internal/config"
	"itassist/internal/domain"
)

// Gate decides whether a classified command may run. Blocked commands are
// denied unconditionally. Safe commands are approved without prompting.
// Privileged commands go through the confirmer unless skip-confirmation
// policy auto-approves them.
type Gate struct {
	confirmer        domain.Confirmer
	skipConfirmation bool
	confirmTimeout   time.Duration
	logger           *slog.Logger
}

func New(cfg config.SecurityConfig, confirmer domain.Confirmer, logger *slog.Logger) *Gate {
	return &Gate{
		confirmer:        confirmer,
		skipConfirmation: cfg.SkipConfirmation,
		confirmTimeout:   time.Duration(cfg.ConfirmTimeoutSeconds) * time.Second,
		logger:           logger,
	}
}

// Decide returns the gate decision for a single classified command.
// It is total: confirmer failures and timeouts map to DecisionSkipped,
// never to an error.
func (g *Gate) Decide(ctx context.Context, cl domain.Classification) domain.Decision {
	switch cl.Tier {
	case domain.TierBlocked:
		// No flag or confirmer can override a blocked command.
		g.logger.Warn("blocked command denied",
			"command", cl.Candidate.Text,
			"rule", cl.RuleID)
		return domain.DecisionDenied

	case domain.TierSafe:
		return domain.DecisionApproved

	case domain.TierPrivileged:
		if g.skipConfirmation {
			g.logger.Info("privileged command auto-approved",
				"command", cl.Candidate.Text,
				"rule", cl.RuleID)
			return domain.DecisionApproved
		}
		return g.confirm(ctx, cl)

	default:
		g.logger.Error("unknown risk tier", "tier", int(cl.Tier), "command", cl.Candidate.Text)
		return domain.DecisionDenied
	}
}

func (g *Gate) confirm(ctx context.Context, cl domain.Classification) domain.Decision {
	if g.confirmer == nil {
		// No confirmation surface registered. Deny by default.
		g.logger.Warn("privileged command denied: no confirmer",
			"command", cl.Candidate.Text)
		return domain.DecisionDenied
	}

	confirmCtx := ctx
	if g.confirmTimeout > 0 {
		var cancel context.CancelFunc
		confirmCtx, cancel = context.WithTimeout(ctx, g.confirmTimeout)
		defer cancel()
	}

	decision, err := g.confirmer.Confirm(confirmCtx, cl.Candidate)
	if err != nil {
		g.logger.Warn("confirmation unavailable, command skipped",
			"command", cl.Candidate.Text,
			"error", err)
		return domain.DecisionSkipped
	}
	return decision
}
