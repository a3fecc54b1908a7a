package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/clouderp-code/email-processor/core/domain"
	"github.com/clouderp-code/email-processor/core/port/out"
	"github.com/clouderp-code/email-processor/core/service/classify"
	"github.com/clouderp-code/email-processor/core/service/intake"
	"github.com/clouderp-code/email-processor/core/service/respond"
	"github.com/clouderp-code/email-processor/pkg/apperr"
	"github.com/clouderp-code/email-processor/pkg/metrics"
	"github.com/clouderp-code/email-processor/pkg/resilience"
)

// Limiter bounds concurrent calls per named collaborator.
type Limiter interface {
	Acquire(ctx context.Context, name string) (func(), error)
}

// Config tunes the orchestrator's call boundaries.
type Config struct {
	CallTimeout   time.Duration
	ClassifyRetry *resilience.RetryPolicy
	GenerateRetry *resilience.RetryPolicy
}

func DefaultConfig() *Config {
	return &Config{
		CallTimeout:   30 * time.Second,
		ClassifyRetry: resilience.DefaultRetryPolicy(),
		GenerateRetry: resilience.DefaultRetryPolicy(),
	}
}

// Deps wires the pipeline's stage services and collaborators.
type Deps struct {
	Normalizer *intake.Normalizer
	Classifier *classify.Classifier
	Scorer     *classify.PriorityScorer
	Router     *respond.Router
	Publisher  *Publisher
	Store      out.ProcessingStorePort
	History    out.HistoryPort
	Limiter    Limiter
	Metrics    *metrics.PipelineMetrics
	Config     *Config
	Log        zerolog.Logger
}

// Pipeline runs one email through intake, classification, routing,
// generation, publishing and persistence. Stage faults become tagged
// Failure results; later stages never run after a fault.
type Pipeline struct {
	deps Deps
	cfg  *Config
	log  zerolog.Logger
}

func New(deps Deps) *Pipeline {
	if deps.Config == nil {
		deps.Config = DefaultConfig()
	}
	return &Pipeline{deps: deps, cfg: deps.Config, log: deps.Log}
}

// ProcessEmail is the single entry point. It always returns a
// structured result, never panics through to the caller.
func (p *Pipeline) ProcessEmail(ctx context.Context, raw []byte, messageID string, receivedAt time.Time) *domain.ProcessingResult {
	started := time.Now()
	defer func() {
		p.deps.Metrics.ObserveRequest(time.Since(started))
	}()

	// Intake
	email, err := p.deps.Normalizer.Normalize(raw, messageID, receivedAt)
	if err != nil {
		return p.fail(domain.StageIntake, err, nil)
	}

	// Classification: retried and bounded; the rule-based priority
	// score never fails and is attached to the same result.
	var cls *domain.Classification
	err = p.withCollaborator(ctx, "classification", p.cfg.ClassifyRetry, func(ctx context.Context) error {
		result, err := p.deps.Classifier.Classify(ctx, email.Subject, email.CleanedBody)
		if err != nil {
			return err
		}
		cls = result
		return nil
	})
	if err != nil {
		return p.fail(domain.StageClassification, err, nil)
	}
	cls.Priority, cls.PriorityConfidence = p.deps.Scorer.Score(email.Subject + "\n\n" + email.CleanedBody)

	// Routing
	responder, err := p.deps.Router.Route(cls.Category)
	if err != nil {
		return p.failWith(domain.StageRouting, err, cls, nil, "")
	}

	// Generation
	var draft *domain.ResponseDraft
	err = p.withCollaborator(ctx, "generation", p.cfg.GenerateRetry, func(ctx context.Context) error {
		result, err := responder.Generate(ctx, email, cls)
		if err != nil {
			return err
		}
		draft = result
		return nil
	})
	if err != nil {
		return p.failWith(domain.StageGeneration, err, cls, nil, "")
	}

	// Publishing: on failure the result keeps the draft so the
	// generated text is not lost.
	draftID, err := p.deps.Publisher.Publish(ctx, email, draft)
	if err != nil {
		return p.failWith(domain.StagePublishing, err, cls, draft, draftID)
	}

	// Persistence: the draft already exists at the transport; a failure
	// here surfaces that state rather than rolling anything back.
	records, err := p.deps.Store.SaveProcessed(ctx, email, cls, draft, draftID)
	if err != nil {
		return p.failWith(domain.StagePersistence, apperr.PersistenceError("save processed email", err), cls, draft, draftID)
	}

	// Record the inbound message as conversation context for later
	// follow-ups. Failures here are logged, not surfaced.
	if p.deps.History != nil {
		if err := p.deps.History.Append(ctx, email.Sender, draft.ConversationID, email.CleanedBody, email.ReceivedAt); err != nil {
			p.log.Warn().Err(err).
				Str("sender", email.Sender).
				Msg("[Pipeline.ProcessEmail] history append failed")
		}
	}

	p.log.Info().
		Str("message_id", email.MessageID).
		Str("category", string(cls.Category)).
		Str("priority", string(cls.Priority)).
		Str("draft_id", draftID).
		Dur("elapsed", time.Since(started)).
		Msg("[Pipeline.ProcessEmail] email processed")

	return domain.SuccessResult(cls, draft, draftID, records)
}

// withCollaborator applies the limiter, per-call timeout and retry
// policy around one external call.
func (p *Pipeline) withCollaborator(ctx context.Context, name string, policy *resilience.RetryPolicy, fn func(ctx context.Context) error) error {
	if p.deps.Limiter != nil {
		release, err := p.deps.Limiter.Acquire(ctx, name)
		if err != nil {
			return err
		}
		defer release()
	}

	err := resilience.Retry(ctx, policy, func(ctx context.Context) error {
		callCtx := ctx
		if p.cfg.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, p.cfg.CallTimeout)
			defer cancel()
		}
		return fn(callCtx)
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.ExternalTimeout(name, err)
	}
	return err
}

func (p *Pipeline) fail(stage domain.Stage, err error, cls *domain.Classification) *domain.ProcessingResult {
	return p.failWith(stage, err, cls, nil, "")
}

func (p *Pipeline) failWith(stage domain.Stage, err error, cls *domain.Classification, draft *domain.ResponseDraft, draftID string) *domain.ProcessingResult {
	p.deps.Metrics.ObserveError(string(stage))
	p.log.Error().Err(err).
		Str("stage", string(stage)).
		Msg("[Pipeline.ProcessEmail] stage failed")

	result := domain.FailureResult(stage, err)
	result.Classification = cls
	result.Draft = draft
	result.DraftID = draftID
	return result
}
