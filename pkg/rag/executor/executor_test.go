package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/errx"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/internal/repository/memory"
	"ai-tutor-be/pkg/background"
	"ai-tutor-be/pkg/cache"
	"ai-tutor-be/pkg/events"
	"ai-tutor-be/pkg/llm"
	"ai-tutor-be/pkg/rag/history"
	"ai-tutor-be/pkg/rag/search"
	"ai-tutor-be/pkg/rag/session"
	"ai-tutor-be/pkg/rag/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validQuestion = "איזה מדד מתאר לדעתך את מרכז הנתונים? A) ממוצע B) טווח C) שונות"

type stubLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	options []llm.Options
	calls   [][]llm.Message
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options = append(s.options, llm.Apply(llm.Options{}, opts...))
	s.calls = append(s.calls, history)
	return s.reply, s.err
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

type stubRetriever struct {
	mu       sync.Mutex
	requests []search.Request
	result   search.Result
}

func (s *stubRetriever) Fetch(ctx context.Context, req search.Request) search.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.result
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturePublisher) Publish(ctx context.Context, e events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

type fixture struct {
	exec      *TurnExecutor
	llm       *stubLLM
	retriever *stubRetriever
	states    *memory.UserStateRepository
	messages  *memory.ChatMessageRepository
	memory    *history.Memory
	runner    *background.Runner
	telemetry *capturePublisher
	machine   *state.Machine
}

// failingStates refuses every save.
type failingStates struct {
	*memory.UserStateRepository
}

func (failingStates) Save(ctx context.Context, state *entity.UserState, merge bool) error {
	return errors.New("state store down")
}

// failingMessages refuses every insert.
type failingMessages struct {
	*memory.ChatMessageRepository
}

func (failingMessages) Create(ctx context.Context, message *entity.ChatMessage) error {
	return errors.New("message store down")
}

type fixtureOption func(states *contract.UserStateRepository, messages *contract.ChatMessageRepository)

func withFailingStateSaves() fixtureOption {
	return func(states *contract.UserStateRepository, _ *contract.ChatMessageRepository) {
		*states = failingStates{(*states).(*memory.UserStateRepository)}
	}
}

func withFailingMessageWrites() fixtureOption {
	return func(_ *contract.UserStateRepository, messages *contract.ChatMessageRepository) {
		*messages = failingMessages{(*messages).(*memory.ChatMessageRepository)}
	}
}

func newFixture(cfg Config, opts ...fixtureOption) *fixture {
	store := cache.New()
	runner := background.NewRunner(logger.NewNopLogger(), time.Second)
	states := memory.NewUserStateRepository()
	messages := memory.NewChatMessageRepository()

	var stateRepo contract.UserStateRepository = states
	var messageRepo contract.ChatMessageRepository = messages
	for _, opt := range opts {
		opt(&stateRepo, &messageRepo)
	}

	mem := history.NewMemory(messageRepo, store, runner, history.DefaultConfig(), logger.NewNopLogger())
	machine := state.NewMachine(state.DefaultTopics())

	f := &fixture{
		llm: &stubLLM{reply: validQuestion},
		retriever: &stubRetriever{result: search.Result{
			Chunks:  []string{"The mean is the sum divided by the count."},
			Sources: []entity.SourceRef{{Source: "lecture-02.pdf", Score: 0.8}},
			Metrics: search.Metrics{Retrieved: 3, Returned: 1, Status: search.StatusSuccess},
		}},
		states:    states,
		messages:  messages,
		memory:    mem,
		runner:    runner,
		telemetry: &capturePublisher{},
		machine:   machine,
	}
	f.exec = NewTurnExecutor(Deps{
		Machine:   machine,
		Sessions:  session.NewManager(stateRepo, mem, store, time.Minute, logger.NewNopLogger()),
		Memory:    mem,
		Retrieval: f.retriever,
		LLM:       f.llm,
		Cache:     store,
		Runner:    runner,
		Telemetry: f.telemetry,
		Logger:    logger.NewNopLogger(),
	}, cfg)
	return f
}

func defaultConfig() Config {
	return Config{
		Persona:            "tutor",
		MaxTokens:          1200,
		DiagnosisMaxTokens: 200,
		Temperature:        0.3,
	}
}

func TestExecute_DiagnoseThenTeach(t *testing.T) {
	f := newFixture(defaultConfig())
	ctx := context.Background()

	res, err := f.exec.Execute(ctx, "Student@Uni.edu", "ממוצע")
	require.NoError(t, err)
	assert.Equal(t, KindDiagnose, res.Kind)
	assert.True(t, res.DiagnosisOnly)
	assert.Equal(t, validQuestion, res.Reply)
	assert.Equal(t, entity.PhaseDiagnose, res.Phase)
	assert.Equal(t, entity.TopicMean, res.Topic)
	assert.Empty(t, res.Sources)
	assert.Empty(t, f.retriever.requests, "diagnosis turns skip retrieval")
	assert.Equal(t, 200, f.llm.options[0].MaxTokens)

	stored, err := f.states.Get(ctx, "student@uni.edu")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, entity.PhaseDiagnose, stored.Phase)

	f.llm.reply = "Correct! The mean is the balance point of the data."
	res, err = f.exec.Execute(ctx, "student@uni.edu", "B")
	require.NoError(t, err)
	assert.Equal(t, KindAnswer, res.Kind)
	assert.Equal(t, entity.PhaseTeach, res.Phase)
	assert.Equal(t, f.llm.reply, res.Reply)
	assert.Equal(t, search.StatusSuccess, res.RetrievalStatus)
	require.Len(t, f.retriever.requests, 1)
	assert.Equal(t, f.machine.TopicName(entity.TopicMean)+" B", f.retriever.requests[0].Query)
	assert.Empty(t, f.retriever.requests[0].Category)
	assert.Equal(t, 1200, f.llm.options[1].MaxTokens)

	// history from the first turn reaches the second prompt
	second := f.llm.calls[1]
	require.Len(t, second, 4)
	assert.Equal(t, llm.RoleUser, second[1].Role)
	assert.Equal(t, "ממוצע", second[1].Content)
	assert.Equal(t, llm.RoleAssistant, second[2].Role)

	msgs, err := f.memory.ReadRecent(ctx, "student@uni.edu", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, entity.ChatMessageRoleUser, msgs[2].Role)
	assert.Equal(t, "B", msgs[2].Content)
}

func TestExecute_GuardRejectionUsesFallback(t *testing.T) {
	f := newFixture(defaultConfig())
	f.llm.reply = "The mean is defined as the sum of values divided by n. What is the mean of 2 and 4?"

	res, err := f.exec.Execute(context.Background(), "a@b.c", "ממוצע")
	require.NoError(t, err)
	assert.True(t, res.FallbackUsed)
	assert.False(t, res.Degraded)
	assert.Equal(t, state.FallbackDiagnosisQuestion(f.machine.TopicName(entity.TopicMean)), res.Reply)
	assert.True(t, state.IsValidDiagnosisOnlyOutput(res.Reply))
}

func TestExecute_CompletionFailure(t *testing.T) {
	t.Run("diagnosis falls back to a question", func(t *testing.T) {
		f := newFixture(defaultConfig())
		f.llm.err = errors.New("status 429: quota")

		res, err := f.exec.Execute(context.Background(), "a@b.c", "ממוצע")
		require.NoError(t, err)
		assert.True(t, res.Degraded)
		assert.True(t, res.FallbackUsed)
		assert.Equal(t, entity.PhaseDiagnose, res.Phase)
	})

	t.Run("teach turn apologises and still persists", func(t *testing.T) {
		f := newFixture(defaultConfig())
		st := entity.NewUserState("a@b.c")
		st.Topic = entity.TopicMean
		st.Phase = entity.PhaseTeach
		st.MarkDiagnosed(entity.TopicMean)
		require.NoError(t, f.states.Save(context.Background(), &st, false))
		f.llm.err = errors.New("connection refused")

		res, err := f.exec.Execute(context.Background(), "a@b.c", "עוד שאלה על ממוצע")
		require.NoError(t, err)
		assert.True(t, res.Degraded)
		assert.Equal(t, apologyReply, res.Reply)

		n, err := f.messages.Count(context.Background(), "a@b.c")
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	})
}

func TestExecute_FilterByCategory(t *testing.T) {
	cfg := defaultConfig()
	cfg.FilterByCategory = true
	f := newFixture(cfg)

	st := entity.NewUserState("a@b.c")
	st.Topic = entity.TopicMean
	st.Phase = entity.PhaseTeach
	st.MarkDiagnosed(entity.TopicMean)
	require.NoError(t, f.states.Save(context.Background(), &st, false))
	f.llm.reply = "Here is how it works."

	res, err := f.exec.Execute(context.Background(), "a@b.c", "איך מחשבים ממוצע")
	require.NoError(t, err)
	assert.Equal(t, KindTeach, res.Kind)
	require.Len(t, f.retriever.requests, 1)

	topic, ok := f.machine.Topic(entity.TopicMean)
	require.True(t, ok)
	assert.Equal(t, topic.Category, f.retriever.requests[0].Category)
	assert.Len(t, res.Sources, 1)
}

func TestExecute_PublishesTelemetry(t *testing.T) {
	f := newFixture(defaultConfig())

	_, err := f.exec.Execute(context.Background(), "a@b.c", "ממוצע")
	require.NoError(t, err)
	f.runner.Wait()

	f.telemetry.mu.Lock()
	defer f.telemetry.mu.Unlock()
	require.Len(t, f.telemetry.events, 1)
	payload := f.telemetry.events[0].Payload()
	assert.Equal(t, KindDiagnose, payload["turn_kind"])
	assert.Equal(t, "mean", payload["topic"])
	assert.Equal(t, string(search.StatusSkipped), payload["retrieval_status"])
}

func TestExecute_RejectsEmptyInput(t *testing.T) {
	f := newFixture(defaultConfig())

	_, err := f.exec.Execute(context.Background(), "a@b.c", "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, errx.ErrValidation)
	assert.Empty(t, f.llm.calls)
}

func TestExecute_StateSaveFailureRecordsNothing(t *testing.T) {
	f := newFixture(defaultConfig(), withFailingStateSaves())
	ctx := context.Background()

	res, err := f.exec.Execute(ctx, "a@b.c", "ממוצע")
	require.Error(t, err)
	assert.Nil(t, res)
	f.runner.Wait()

	count, err := f.messages.Count(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Zero(t, count, "no message may be recorded for a turn whose state was not saved")
	f.telemetry.mu.Lock()
	assert.Empty(t, f.telemetry.events)
	f.telemetry.mu.Unlock()
}

func TestExecute_MessageFailureAfterStateSaveIsDegraded(t *testing.T) {
	f := newFixture(defaultConfig(), withFailingMessageWrites())
	ctx := context.Background()

	res, err := f.exec.Execute(ctx, "a@b.c", "ממוצע")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, validQuestion, res.Reply)

	stored, err := f.states.Get(ctx, "a@b.c")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, entity.PhaseDiagnose, stored.Phase)
	assert.Equal(t, entity.TopicMean, stored.Topic)
}

func TestWipe(t *testing.T) {
	f := newFixture(defaultConfig())
	ctx := context.Background()

	_, err := f.exec.Execute(ctx, "a@b.c", "ממוצע")
	require.NoError(t, err)
	f.runner.Wait()

	require.NoError(t, f.exec.Wipe(ctx, "A@B.C"))

	stored, err := f.states.Get(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Nil(t, stored)

	first, err := f.memory.IsFirstContact(ctx, "a@b.c")
	require.NoError(t, err)
	assert.True(t, first)

	res, err := f.exec.Execute(ctx, "a@b.c", "ממוצע")
	require.NoError(t, err)
	assert.Equal(t, KindDiagnose, res.Kind, "wiped user is diagnosed again")
}
