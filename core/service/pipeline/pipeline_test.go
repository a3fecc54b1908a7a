package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clouderp-code/email-processor/core/domain"
	"github.com/clouderp-code/email-processor/core/port/out"
	"github.com/clouderp-code/email-processor/core/service/classify"
	"github.com/clouderp-code/email-processor/core/service/intake"
	"github.com/clouderp-code/email-processor/core/service/respond"
	"github.com/clouderp-code/email-processor/pkg/apperr"
	"github.com/clouderp-code/email-processor/pkg/resilience"
)

type fakeClassifierPort struct {
	dist     out.Distribution
	errs     []error // consumed per call, nil entry means success
	calls    int
}

func (f *fakeClassifierPort) Classify(ctx context.Context, text string) (out.Distribution, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.dist, nil
}

type fakeCompletion struct {
	content string
	err     error
	calls   int
}

func (f *fakeCompletion) Complete(ctx context.Context, req out.CompletionRequest) (string, error) {
	f.calls++
	return f.content, f.err
}

type fakeKnowledge struct{}

func (f *fakeKnowledge) Search(ctx context.Context, query string, limit int, minRelevance float64) ([]domain.Article, error) {
	return nil, nil
}

type fakeCalendar struct{}

func (f *fakeCalendar) FreeBusy(ctx context.Context, from, to time.Time) ([]out.BusyInterval, error) {
	return nil, nil
}

func (f *fakeCalendar) CreateDraftEvent(ctx context.Context, event *domain.EventDraft) (string, error) {
	return "event-1", nil
}

type fakeHistory struct {
	appends int
}

func (f *fakeHistory) Recent(ctx context.Context, sender string, limit int) (*domain.ConversationHistory, error) {
	return &domain.ConversationHistory{}, nil
}

func (f *fakeHistory) Append(ctx context.Context, sender, conversationID, content string, at time.Time) error {
	f.appends++
	return nil
}

type fakeMailer struct {
	draftID string
	err     error
	calls   int
}

func (f *fakeMailer) CreateDraft(ctx context.Context, threadID, recipient, subject, body string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.draftID, nil
}

type fakeStore struct {
	err         error
	calls       int
	lastDraftID string
}

func (f *fakeStore) SaveProcessed(ctx context.Context, email *domain.NormalizedEmail, cls *domain.Classification, draft *domain.ResponseDraft, draftID string) (*domain.RecordIDs, error) {
	f.calls++
	f.lastDraftID = draftID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.RecordIDs{}, nil
}

type fixture struct {
	classifier *fakeClassifierPort
	completion *fakeCompletion
	mailer     *fakeMailer
	store      *fakeStore
	history    *fakeHistory
	pipeline   *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		classifier: &fakeClassifierPort{dist: out.Distribution{
			domain.CategorySupport: 0.8,
			domain.CategoryInquiry: 0.2,
		}},
		completion: &fakeCompletion{content: "1. Reset your password.\n2. Try again."},
		mailer:     &fakeMailer{draftID: "draft-1"},
		store:      &fakeStore{},
		history:    &fakeHistory{},
	}

	log := zerolog.Nop()
	router, err := respond.NewRouter(
		respond.NewInquiryResponder(f.completion, log),
		respond.NewSupportResponder(f.completion, &fakeKnowledge{}, nil, log),
		respond.NewMeetingResponder(f.completion, &fakeCalendar{}, log),
		respond.NewFollowUpResponder(f.completion, f.history, nil, log),
	)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	f.pipeline = New(Deps{
		Normalizer: intake.NewNormalizer(log),
		Classifier: classify.NewClassifier(f.classifier, log),
		Scorer:     classify.NewPriorityScorer(),
		Router:     router,
		Publisher:  NewPublisher(f.mailer, &fakeCalendar{}, log),
		Store:      f.store,
		History:    f.history,
		Config: &Config{
			ClassifyRetry: resilience.NoRetry(),
			GenerateRetry: resilience.NoRetry(),
		},
		Log: log,
	})
	return f
}

func rawEmail(subject, body string) []byte {
	return []byte(strings.Join([]string{
		"From: Jane Doe <jane@example.com>",
		"To: support@acme.test",
		"Subject: " + subject,
		"",
		body,
	}, "\r\n"))
}

func TestProcessEmailSuccess(t *testing.T) {
	f := newFixture(t)

	result := f.pipeline.ProcessEmail(context.Background(), rawEmail("Cannot login to account", "I cannot log in, please help."), "msg-1", time.Now())

	if !result.Success {
		t.Fatalf("result = failure at %s: %v", result.Stage, result.Err)
	}
	if result.Classification.Category != domain.CategorySupport {
		t.Errorf("category = %s", result.Classification.Category)
	}
	if result.Classification.Priority == "" {
		t.Error("priority not attached to classification")
	}
	if result.Draft == nil || result.Draft.TicketID == "" {
		t.Error("support draft missing ticket id")
	}
	if result.DraftID != "draft-1" {
		t.Errorf("draft id = %q", result.DraftID)
	}
	if f.store.calls != 1 {
		t.Errorf("store calls = %d, want 1", f.store.calls)
	}
	if f.store.lastDraftID != "draft-1" {
		t.Errorf("store received draft id %q", f.store.lastDraftID)
	}
	if f.history.appends != 1 {
		t.Errorf("history appends = %d, want 1", f.history.appends)
	}
}

func TestProcessEmailUrgentPriority(t *testing.T) {
	f := newFixture(t)

	result := f.pipeline.ProcessEmail(context.Background(), rawEmail("URGENT: account locked", "I need immediate access."), "msg-2", time.Now())

	if !result.Success {
		t.Fatalf("result = failure at %s: %v", result.Stage, result.Err)
	}
	if result.Classification.Priority != domain.PriorityUrgent {
		t.Errorf("priority = %s, want urgent", result.Classification.Priority)
	}
	if result.Classification.PriorityConfidence <= 0 {
		t.Errorf("priority confidence = %v, want > 0", result.Classification.PriorityConfidence)
	}
}

func TestProcessEmailIntakeFailure(t *testing.T) {
	f := newFixture(t)

	result := f.pipeline.ProcessEmail(context.Background(), []byte("Subject: orphan\r\n\r\nno sender"), "msg-3", time.Now())

	if result.Success {
		t.Fatal("result = success, want intake failure")
	}
	if result.Stage != domain.StageIntake {
		t.Errorf("stage = %s, want %s", result.Stage, domain.StageIntake)
	}
	if f.classifier.calls != 0 {
		t.Error("classification ran on unparsed input")
	}
}

// An unavailable classifier fails the run at classification and nothing
// downstream executes.
func TestProcessEmailClassifierUnavailable(t *testing.T) {
	f := newFixture(t)
	f.classifier.errs = []error{errors.New("connection refused")}

	result := f.pipeline.ProcessEmail(context.Background(), rawEmail("Hello", "Just a question."), "msg-4", time.Now())

	if result.Success {
		t.Fatal("result = success, want classification failure")
	}
	if result.Stage != domain.StageClassification {
		t.Errorf("stage = %s, want %s", result.Stage, domain.StageClassification)
	}
	if apperr.CodeOf(result.Err) != apperr.CodeClassificationUnavailable {
		t.Errorf("error code = %s", apperr.CodeOf(result.Err))
	}
	if f.completion.calls != 0 {
		t.Error("generation ran after classification failure")
	}
	if f.mailer.calls != 0 || f.store.calls != 0 {
		t.Error("publish or persist ran after classification failure")
	}
}

// A transient classifier fault is retried within the bounded policy.
func TestProcessEmailClassifyRetry(t *testing.T) {
	f := newFixture(t)
	f.classifier.errs = []error{errors.New("transient"), nil}
	f.pipeline.cfg.ClassifyRetry = &resilience.RetryPolicy{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		Multiplier:   1,
	}

	result := f.pipeline.ProcessEmail(context.Background(), rawEmail("Hello", "A question."), "msg-5", time.Now())

	if !result.Success {
		t.Fatalf("result = failure at %s: %v", result.Stage, result.Err)
	}
	if f.classifier.calls != 2 {
		t.Errorf("classifier calls = %d, want 2", f.classifier.calls)
	}
}

func TestProcessEmailGenerationFailure(t *testing.T) {
	f := newFixture(t)
	f.completion.err = errors.New("model overloaded")

	result := f.pipeline.ProcessEmail(context.Background(), rawEmail("Hello", "A question."), "msg-6", time.Now())

	if result.Success {
		t.Fatal("result = success, want generation failure")
	}
	if result.Stage != domain.StageGeneration {
		t.Errorf("stage = %s, want %s", result.Stage, domain.StageGeneration)
	}
	if result.Classification == nil {
		t.Error("failure result lost the classification")
	}
	if f.mailer.calls != 0 {
		t.Error("publish ran after generation failure")
	}
}

// A publish fault keeps the generated draft in the failure result so
// the text is not lost.
func TestProcessEmailPublishFailureCarriesDraft(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("gmail unavailable")

	result := f.pipeline.ProcessEmail(context.Background(), rawEmail("Hello", "A question."), "msg-7", time.Now())

	if result.Success {
		t.Fatal("result = success, want publishing failure")
	}
	if result.Stage != domain.StagePublishing {
		t.Errorf("stage = %s, want %s", result.Stage, domain.StagePublishing)
	}
	if result.Draft == nil || result.Draft.Body == "" {
		t.Error("failure result lost the generated draft")
	}
	if f.store.calls != 0 {
		t.Error("persist ran after publishing failure")
	}
}

// A persistence fault surfaces the published state: draft and draft id
// stay on the result, nothing is rolled back.
func TestProcessEmailPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.store.err = errors.New("connection reset")

	result := f.pipeline.ProcessEmail(context.Background(), rawEmail("Hello", "A question."), "msg-8", time.Now())

	if result.Success {
		t.Fatal("result = success, want persistence failure")
	}
	if result.Stage != domain.StagePersistence {
		t.Errorf("stage = %s, want %s", result.Stage, domain.StagePersistence)
	}
	if apperr.CodeOf(result.Err) != apperr.CodePersistenceError {
		t.Errorf("error code = %s", apperr.CodeOf(result.Err))
	}
	if result.Draft == nil || result.DraftID != "draft-1" {
		t.Error("failure result lost the published draft state")
	}
}

// The limiter hook bounds concurrent collaborator calls.
func TestWithCollaboratorLimiter(t *testing.T) {
	f := newFixture(t)

	limited := make(chan struct{}, 1)
	f.pipeline.deps.Limiter = limiterFunc(func(ctx context.Context, name string) (func(), error) {
		select {
		case limited <- struct{}{}:
			return func() { <-limited }, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	result := f.pipeline.ProcessEmail(context.Background(), rawEmail("Hello", "A question."), "msg-9", time.Now())
	if !result.Success {
		t.Fatalf("result = failure at %s: %v", result.Stage, result.Err)
	}
	if len(limited) != 0 {
		t.Error("limiter slot not released")
	}
}

type limiterFunc func(ctx context.Context, name string) (func(), error)

func (f limiterFunc) Acquire(ctx context.Context, name string) (func(), error) {
	return f(ctx, name)
}
