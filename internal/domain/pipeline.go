package domain

import (
	"context"
	"time"
)

// Candidate is a single command string extracted from model output text.
// Immutable once extracted; Index preserves its order of appearance.
type Candidate struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
	Rule  string `json:"rule"` // extraction rule that produced it (fence | prompt | inline)
}

// RiskTier classifies a candidate by severity: Blocked > Privileged > Safe.
// The ordering is for reporting only; it never bypasses gate logic.
type RiskTier int

const (
	TierSafe RiskTier = iota
	TierPrivileged
	TierBlocked
)

func (t RiskTier) String() string {
	switch t {
	case TierSafe:
		return "safe"
	case TierPrivileged:
		return "privileged"
	case TierBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// NoRuleMatched is the rule ID recorded when classification falls through
// to the default tier. Kept explicit for audit traceability.
const NoRuleMatched = "none"

// Classification pairs a candidate with its risk tier and the ID of the
// pattern rule that decided it ("none" when classification defaulted).
type Classification struct {
	Candidate Candidate
	Tier      RiskTier
	RuleID    string
}

// Decision is the permission gate's verdict for one candidate.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionDenied   Decision = "denied"
	// DecisionSkipped records that the user declined to decide at all
	// (EOF on the prompt, or the confirmation wait expired).
	DecisionSkipped Decision = "skipped"
)

// ExecOutcome classifies how a single command execution ended.
type ExecOutcome string

const (
	OutcomeCompleted   ExecOutcome = "completed"
	OutcomeTimedOut    ExecOutcome = "timed_out"
	OutcomeSpawnFailed ExecOutcome = "spawn_failed"
)

// ExecutionResult is the captured outcome of one approved command.
// ExitCode is meaningful only when Outcome == OutcomeCompleted.
type ExecutionResult struct {
	Outcome  ExecOutcome
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    string // underlying error text for spawn failures
}

// PipelineRecord is the full trail for one candidate: what was extracted,
// how it was classified, what the gate decided, and what execution produced.
// Execution is nil unless Decision == DecisionApproved.
type PipelineRecord struct {
	Candidate Candidate
	Tier      RiskTier
	RuleID    string
	Decision  Decision
	Execution *ExecutionResult
}

// AuditSink receives one record per candidate processed by the pipeline.
// Implementations must tolerate a single concurrent writer.
type AuditSink interface {
	RecordAudit(ctx context.Context, rec PipelineRecord) error
}

// Confirmer is the injected capability the permission gate uses to ask
// the user about a privileged candidate. Implementations block until the
// user answers, the context is cancelled, or input ends.
type Confirmer interface {
	Confirm(ctx context.Context, cand Candidate) (Decision, error)
}
