package pipeline

import (
	"context"
	"log/slog"

	"itassist/internal/domain"
)

// Extractor yields command candidates from model output.
type Extractor interface {
	Extract(text string) []domain.Candidate
}

// Classifier assigns a risk tier to a candidate.
type Classifier interface {
	Classify(cand domain.Candidate) domain.Classification
}

// Gate decides whether a classified candidate may run.
type Gate interface {
	Decide(ctx context.Context, cl domain.Classification) domain.Decision
}

// CommandRunner executes a single approved command.
type CommandRunner interface {
	Run(ctx context.Context, command string) (domain.ExecutionResult, error)
}

// Pipeline turns one model response into an ordered slice of audited
// records: extract once, then per candidate classify, gate, and execute
// approved commands. Strictly sequential; a failure on one candidate
// never aborts the remaining ones.
type Pipeline struct {
	extractor  Extractor
	classifier Classifier
	gate       Gate
	runner     CommandRunner
	sink       domain.AuditSink
	logger     *slog.Logger
}

func New(extractor Extractor, classifier Classifier, gate Gate, runner CommandRunner, sink domain.AuditSink, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		extractor:  extractor,
		classifier: classifier,
		gate:       gate,
		runner:     runner,
		sink:       sink,
		logger:     logger,
	}
}

// Process runs the full pipeline over one model response. Zero extracted
// candidates is a clean no-op. Execution happens only for approved
// candidates; the returned records preserve extraction order.
func (p *Pipeline) Process(ctx context.Context, response string) []domain.PipelineRecord {
	candidates := p.extractor.Extract(response)
	if len(candidates) == 0 {
		return nil
	}

	records := make([]domain.PipelineRecord, 0, len(candidates))
	for _, cand := range candidates {
		records = append(records, p.processOne(ctx, cand))
	}
	return records
}

func (p *Pipeline) processOne(ctx context.Context, cand domain.Candidate) domain.PipelineRecord {
	cl := p.classifier.Classify(cand)

	record := domain.PipelineRecord{
		Candidate: cand,
		Tier:      cl.Tier,
		RuleID:    cl.RuleID,
		Decision:  p.gate.Decide(ctx, cl),
	}

	if record.Decision == domain.DecisionApproved {
		result, err := p.runner.Run(ctx, cand.Text)
		if err != nil {
			// Executor errors mean a timed-out process could not be
			// reaped. The result is still recorded.
			p.logger.Error("executor invariant violation",
				"command", cand.Text,
				"error", err)
		}
		record.Execution = &result
	}

	p.audit(ctx, record)
	return record
}

func (p *Pipeline) audit(ctx context.Context, record domain.PipelineRecord) {
	if p.sink == nil {
		return
	}
	if err := p.sink.RecordAudit(ctx, record); err != nil {
		p.logger.Warn("audit record dropped",
			"command", record.Candidate.Text,
			"error", err)
	}
}
