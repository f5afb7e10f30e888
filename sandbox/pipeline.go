package sandbox

import (
	"context"

	"go.uber.org/zap"

	"github.com/gradebox/gradebox/validator"
)

// Pipeline is the two-stage engine: static validation, then sandboxed
// execution, then classification. One Pipeline serves concurrent
// submissions safely; every submission's state is local to its Run call.
type Pipeline struct {
	logger    *zap.Logger
	cfg       *Config
	validator *validator.Validator
	executor  Executor
}

// NewPipeline wires a validator and an executor behind one entry point.
func NewPipeline(logger *zap.Logger, cfg *Config, v *validator.Validator, ex Executor) *Pipeline {
	return &Pipeline{
		logger:    logger,
		cfg:       cfg,
		validator: v,
		executor:  ex,
	}
}

// Validate exposes the static stage on its own, for callers that want the
// full violation list without running anything.
func (p *Pipeline) Validate(source string) validator.Verdict {
	return p.validator.Validate(source)
}

// Run takes a submission to exactly one terminal Result. It never returns
// an error and never panics outward: rejections, runtime failures, limit
// breaches, and host faults are all ordinary Result values, so callers
// need no exception handling to consume this subsystem.
func (p *Pipeline) Run(ctx context.Context, req SubmissionRequest) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline panic recovered", zap.Any("panic", r))
			result = Result{Status: StatusInternalError}
		}
	}()

	limits := BuildLimits(req, p.cfg)

	verdict := p.validator.Validate(req.SourceCode)
	if !verdict.Allowed {
		res := ClassifyVerdict(verdict)
		p.logger.Info("submission rejected by validator",
			zap.String("rule_id", res.RuleID),
			zap.Int("violations", len(verdict.Violations)))
		return res
	}

	outcome, err := p.executor.Execute(ctx, req.SourceCode, req.Stdin, limits)
	if err != nil {
		// Host fault after the spawn retry. The caller sees a clean
		// internal-error result, never the supervisor's diagnostics.
		p.logger.Error("execution failed", zap.Error(err))
		return Result{Status: StatusInternalError}
	}

	res := ClassifyOutcome(outcome)
	p.logger.Debug("submission classified",
		zap.String("status", string(res.Status)),
		zap.Int64("execution_time_ms", res.ExecutionTimeMs),
		zap.Bool("truncated", res.Truncated))
	return res
}
