package executor

import (
	"context"
	"errors"
	"strings"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/errx"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/background"
	"ai-tutor-be/pkg/cache"
	"ai-tutor-be/pkg/events"
	"ai-tutor-be/pkg/llm"
	"ai-tutor-be/pkg/rag/history"
	"ai-tutor-be/pkg/rag/prompt"
	"ai-tutor-be/pkg/rag/search"
	"ai-tutor-be/pkg/rag/session"
	"ai-tutor-be/pkg/rag/state"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const apologyReply = "מצטער, לא הצלחתי לענות כרגע. אפשר לנסות שוב בעוד רגע?"

// Turn kinds reported in telemetry.
const (
	KindFastPass = "fast_pass"
	KindDiagnose = "diagnose"
	KindAnswer   = "answer"
	KindTeach    = "teach"
)

// Retriever is satisfied by *search.Orchestrator.
type Retriever interface {
	Fetch(ctx context.Context, req search.Request) search.Result
}

// Publisher is satisfied by *telemetry.Bus.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Deps are the collaborators of a TurnExecutor. Telemetry may be nil.
type Deps struct {
	Machine   *state.Machine
	Sessions  *session.Manager
	Memory    *history.Memory
	Retrieval Retriever
	LLM       llm.LLMProvider
	Cache     *cache.Store
	Runner    *background.Runner
	Telemetry Publisher
	Logger    logger.ILogger
}

type Config struct {
	Persona            string
	MaxTokens          int
	DiagnosisMaxTokens int
	Temperature        float64
	FilterByCategory   bool
}

type TurnResult struct {
	Reply           string
	Topic           entity.TopicID
	TopicName       string
	Phase           entity.Phase
	Kind            string
	DiagnosisOnly   bool
	Sources         []entity.SourceRef
	RetrievalStatus search.Status
	FallbackUsed    bool
	Degraded        bool
}

// TurnExecutor answers one question end to end: load, decide, retrieve,
// complete, validate, persist, report.
type TurnExecutor struct {
	deps   Deps
	cfg    Config
	tracer trace.Tracer
	now    func() time.Time
}

func NewTurnExecutor(deps Deps, cfg Config) *TurnExecutor {
	return &TurnExecutor{
		deps:   deps,
		cfg:    cfg,
		tracer: otel.Tracer("ai-tutor-be/pkg/rag/executor"),
		now:    time.Now,
	}
}

func (e *TurnExecutor) Execute(ctx context.Context, email, question string) (*TurnResult, error) {
	started := e.now()
	email = entity.NormalizeEmail(email)
	question = strings.TrimSpace(question)
	if email == "" || question == "" {
		return nil, errx.Validation(errors.New("email and question are required"))
	}

	ctx, span := e.tracer.Start(ctx, "executor.Execute")
	defer span.End()

	snap, err := e.deps.Sessions.Load(ctx, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		e.deps.Logger.Error("EXECUTOR", "Failed to load session", map[string]interface{}{
			"user":  email,
			"error": err.Error(),
		})
		return nil, err
	}

	decision := e.deps.Machine.DecideTurn(question, snap.State)
	topicName := e.deps.Machine.TopicName(decision.ActiveTopic)
	kind := turnKind(decision)
	span.SetAttributes(
		attribute.String("turn.kind", kind),
		attribute.String("turn.topic", decision.ActiveTopic.String()),
	)

	var retrieval search.Result
	if decision.DiagnosisOnly {
		retrieval.Metrics.Status = search.StatusSkipped
	} else {
		req := search.Request{Query: decision.RetrievalQuery}
		if e.cfg.FilterByCategory {
			req.Category = decision.Category
		}
		retrieval = e.deps.Retrieval.Fetch(ctx, req)
	}

	builder := prompt.TurnBuilder{
		Persona:       e.cfg.Persona,
		TopicName:     topicName,
		DiagnosisOnly: decision.DiagnosisOnly,
		AnsweredPrior: decision.AnsweredPrior,
		FirstContact:  snap.FirstContact,
		Chunks:        retrieval.Chunks,
		Sources:       retrieval.Sources,
		History:       snap.History,
		Query:         question,
	}

	reply, fallbackUsed, degraded := e.complete(ctx, email, builder.Build(), decision.DiagnosisOnly, topicName)

	historyLost, err := e.persist(ctx, email, question, reply, decision.NextState)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		e.deps.Logger.Error("EXECUTOR", "Failed to persist turn", map[string]interface{}{
			"user":  email,
			"error": err.Error(),
		})
		return nil, err
	}
	degraded = degraded || historyLost

	result := &TurnResult{
		Reply:           reply,
		Topic:           decision.NextState.Topic,
		TopicName:       e.deps.Machine.TopicName(decision.NextState.Topic),
		Phase:           decision.NextState.Phase,
		Kind:            kind,
		DiagnosisOnly:   decision.DiagnosisOnly,
		RetrievalStatus: retrieval.Metrics.Status,
		FallbackUsed:    fallbackUsed,
		Degraded:        degraded,
	}
	if !decision.DiagnosisOnly {
		result.Sources = retrieval.Sources
	}

	e.deps.Logger.Info("EXECUTOR", "Turn completed", map[string]interface{}{
		"user":             email,
		"kind":             kind,
		"topic":            result.Topic.String(),
		"phase":            string(result.Phase),
		"retrieval_status": string(retrieval.Metrics.Status),
		"fallback_used":    fallbackUsed,
		"latency_ms":       e.now().Sub(started).Milliseconds(),
	})

	e.report(events.TurnCompleted{
		UserEmail:       email,
		TurnKind:        kind,
		Topic:           result.Topic.String(),
		RetrievalStatus: string(retrieval.Metrics.Status),
		Retrieved:       retrieval.Metrics.Retrieved,
		Returned:        retrieval.Metrics.Returned,
		RetrievalTime:   retrieval.Metrics.Elapsed,
		Latency:         e.now().Sub(started),
		FallbackUsed:    fallbackUsed,
		Degraded:        degraded,
		OccurredAt:      e.now(),
	})

	return result, nil
}

// complete calls the model and applies the diagnosis guard. It never fails:
// a broken completion becomes the fallback question or the apology.
func (e *TurnExecutor) complete(ctx context.Context, email string, messages []llm.Message, diagnosisOnly bool, topicName string) (reply string, fallbackUsed, degraded bool) {
	maxTokens := e.cfg.MaxTokens
	if diagnosisOnly {
		maxTokens = e.cfg.DiagnosisMaxTokens
	}

	out, err := e.deps.LLM.Chat(ctx, messages,
		llm.WithMaxTokens(maxTokens),
		llm.WithTemperature(e.cfg.Temperature),
	)
	out = strings.TrimSpace(out)
	if err == nil && out == "" {
		err = errx.WrapUpstream("completion", errors.New("empty reply"))
	}
	if err != nil {
		e.deps.Logger.Warn("EXECUTOR", "Completion failed, replying with fallback", map[string]interface{}{
			"user":           email,
			"diagnosis_only": diagnosisOnly,
			"quota":          errx.IsQuotaExceeded(err),
			"error":          err.Error(),
		})
		if diagnosisOnly {
			return state.FallbackDiagnosisQuestion(topicName), true, true
		}
		return apologyReply, false, true
	}

	if diagnosisOnly && !state.IsValidDiagnosisOnlyOutput(out) {
		e.deps.Logger.Warn("EXECUTOR", "Diagnosis reply rejected by guard", map[string]interface{}{
			"user":  email,
			"runes": len([]rune(out)),
		})
		return state.FallbackDiagnosisQuestion(topicName), true, false
	}
	return out, false, false
}

// persist commits the state first. A failed state save records nothing and
// fails the turn. Once the state is in, the turn has happened: a failed
// message append is logged and reported back as lost history, and the
// assistant message is never written without the user message before it.
func (e *TurnExecutor) persist(ctx context.Context, email, question, reply string, next entity.UserState) (historyLost bool, err error) {
	if err := e.deps.Sessions.SaveState(ctx, next); err != nil {
		return false, err
	}

	if _, err := e.deps.Memory.Append(ctx, email, entity.ChatMessageRoleUser, question); err != nil {
		e.logHistoryLoss(email, entity.ChatMessageRoleUser, err)
		return true, nil
	}
	if _, err := e.deps.Memory.Append(ctx, email, entity.ChatMessageRoleAssistant, reply); err != nil {
		e.logHistoryLoss(email, entity.ChatMessageRoleAssistant, err)
		return true, nil
	}
	return false, nil
}

func (e *TurnExecutor) logHistoryLoss(email, role string, err error) {
	e.deps.Logger.Error("EXECUTOR", "State saved but message not recorded", map[string]interface{}{
		"user":  email,
		"role":  role,
		"error": err.Error(),
	})
}

func (e *TurnExecutor) report(event events.TurnCompleted) {
	if e.deps.Telemetry == nil || e.deps.Runner == nil {
		return
	}
	e.deps.Runner.Go("telemetry.turn_completed", func(ctx context.Context) error {
		return e.deps.Telemetry.Publish(ctx, event)
	})
}

// Wipe resets the user's state and deletes their conversation.
func (e *TurnExecutor) Wipe(ctx context.Context, email string) error {
	email = entity.NormalizeEmail(email)
	if email == "" {
		return errx.Validation(errors.New("email is required"))
	}
	if err := e.deps.Sessions.Reset(ctx, email); err != nil {
		return err
	}
	if err := e.deps.Memory.Wipe(ctx, email); err != nil {
		return err
	}
	e.deps.Cache.InvalidateUser(email)

	e.deps.Logger.Info("EXECUTOR", "User history wiped", map[string]interface{}{
		"user": email,
	})
	return nil
}

func turnKind(d state.TurnDecision) string {
	switch {
	case d.WantsFastPass:
		return KindFastPass
	case d.AnsweredPrior:
		return KindAnswer
	case d.DiagnosisOnly:
		return KindDiagnose
	default:
		return KindTeach
	}
}
