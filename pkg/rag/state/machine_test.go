package state

import (
	"strings"
	"testing"
	"unicode/utf8"

	"ai-tutor-be/internal/entity"
)

func TestDecideTurn_Conversation(t *testing.T) {
	m := NewMachine(DefaultTopics())
	st := entity.NewUserState("student@example.com")

	// A fresh student names a topic: ask a diagnostic question first.
	d := m.DecideTurn("ממוצע", st)
	if !d.DiagnosisOnly {
		t.Fatal("first turn on mean must be diagnosis-only")
	}
	if d.NextState.Phase != entity.PhaseDiagnose || d.NextState.Topic != entity.TopicMean {
		t.Fatalf("next state = %v/%v, want DIAGNOSE/mean", d.NextState.Phase, d.NextState.Topic)
	}

	// The student answers the pending question with a selector.
	d = m.DecideTurn("B", d.NextState)
	if d.DiagnosisOnly {
		t.Fatal("answering the diagnostic question must unlock teaching")
	}
	if !d.AnsweredPrior {
		t.Error("AnsweredPrior = false")
	}
	if d.NextState.Phase != entity.PhaseTeach {
		t.Errorf("phase = %v, want TEACH", d.NextState.Phase)
	}
	if !d.NextState.IsDiagnosed(entity.TopicMean) {
		t.Error("mean must be diagnosed")
	}
	if d.RetrievalQuery != "ממוצע B" {
		t.Errorf("RetrievalQuery = %q, want topic-prefixed selector", d.RetrievalQuery)
	}

	// Switching to a new topic diagnoses again and keeps the old one.
	d = m.DecideTurn("רגרסיה", d.NextState)
	if !d.DiagnosisOnly {
		t.Fatal("new undiagnosed topic must be diagnosis-only")
	}
	if d.NextState.Topic != entity.TopicRegression || d.NextState.Phase != entity.PhaseDiagnose {
		t.Errorf("next state = %v/%v", d.NextState.Phase, d.NextState.Topic)
	}
	if !d.NextState.IsDiagnosed(entity.TopicMean) {
		t.Error("diagnosed topics must never shrink")
	}
}

func TestDecideTurn_Rules(t *testing.T) {
	m := NewMachine(DefaultTopics())

	teaching := entity.NewUserState("a@b.c")
	teaching.Topic = entity.TopicMean
	teaching.Phase = entity.PhaseTeach
	teaching.MarkDiagnosed(entity.TopicMean)

	pending := entity.NewUserState("a@b.c")
	pending.Topic = entity.TopicMedian
	pending.Phase = entity.PhaseDiagnose
	pending.MarkDiagnosed(entity.TopicMedian)

	tests := []struct {
		name          string
		prompt        string
		state         entity.UserState
		diagnosisOnly bool
		phase         entity.Phase
		topic         entity.TopicID
	}{
		{"fast pass beats new topic", "just answer: what is variance", entity.NewUserState("a@b.c"), false, entity.PhaseTeach, entity.TopicVariance},
		{"fast pass in hebrew", "בלי שאלות, מה זה חציון", entity.NewUserState("a@b.c"), false, entity.PhaseTeach, entity.TopicMedian},
		{"no topic at all", "hello there", entity.NewUserState("a@b.c"), true, entity.PhaseIdle, entity.TopicUnknown},
		{"follow up on diagnosed topic", "can you show another example", teaching, false, entity.PhaseTeach, entity.TopicMean},
		{"same topic named again", "more about the mean please", teaching, false, entity.PhaseTeach, entity.TopicMean},
		{"hebrew selector answers", "ג.", pending, false, entity.PhaseTeach, entity.TopicMedian},
		{"non-answer while pending on diagnosed topic", "tell me about the median", pending, false, entity.PhaseTeach, entity.TopicMedian},
		{"topic never regresses to unknown", "thanks!", teaching, false, entity.PhaseTeach, entity.TopicMean},
	}

	for _, tt := range tests {
		d := m.DecideTurn(tt.prompt, tt.state)
		if d.DiagnosisOnly != tt.diagnosisOnly {
			t.Errorf("%s: DiagnosisOnly = %v, want %v", tt.name, d.DiagnosisOnly, tt.diagnosisOnly)
		}
		if d.NextState.Phase != tt.phase {
			t.Errorf("%s: phase = %v, want %v", tt.name, d.NextState.Phase, tt.phase)
		}
		if d.NextState.Topic != tt.topic {
			t.Errorf("%s: topic = %v, want %v", tt.name, d.NextState.Topic, tt.topic)
		}
		if !d.NextState.Valid() {
			t.Errorf("%s: next state violates DIAGNOSE => topic", tt.name)
		}
	}
}

func TestDecideTurn_TopicPickerIsNotALetterQuiz(t *testing.T) {
	m := NewMachine(DefaultTopics())

	d := m.DecideTurn("שלום", entity.NewUserState("a@b.c"))
	if !d.DiagnosisOnly || d.NextState.Phase != entity.PhaseIdle {
		t.Fatalf("greeting: DiagnosisOnly = %v, phase = %v", d.DiagnosisOnly, d.NextState.Phase)
	}
	picker := FallbackDiagnosisQuestion("")
	for _, choice := range []string{"A)", "B)", "C)", "D)"} {
		if strings.Contains(picker, choice) {
			t.Fatalf("topic picker offers %q, which no topic can be chosen by: %q", choice, picker)
		}
	}

	// A topic named in words leaves IDLE.
	named := m.DecideTurn("הסתברות", d.NextState)
	if named.NextState.Phase != entity.PhaseDiagnose || named.NextState.Topic != entity.TopicProbability {
		t.Errorf("named topic: next state = %v/%v, want DIAGNOSE/probability", named.NextState.Phase, named.NextState.Topic)
	}
}

func TestDecideTurn_DoesNotMutatePrior(t *testing.T) {
	m := NewMachine(DefaultTopics())
	prior := entity.NewUserState("a@b.c")

	m.DecideTurn("ממוצע", prior)
	if len(prior.DiagnosedTopics) != 0 || prior.Phase != entity.PhaseIdle {
		t.Errorf("prior state mutated: %+v", prior)
	}
}

func TestDetectTopic(t *testing.T) {
	m := NewMachine(DefaultTopics())
	tests := []struct {
		text string
		want entity.TopicID
	}{
		{"מה זה ממוצע?", entity.TopicMean},
		{"What is the MEDIAN of this set", entity.TopicMedian},
		{"איך מחשבים סטיית תקן", entity.TopicStandardDeviation},
		{"standard deviation vs variance", entity.TopicStandardDeviation},
		{"בדיקת השערות", entity.TopicHypothesisTesting},
		{"רווח סמך של 95 אחוז", entity.TopicConfidenceInterval},
		{"linear regression slope", entity.TopicRegression},
		{"the weather today", entity.TopicUnknown},
	}
	for _, tt := range tests {
		if got := m.DetectTopic(tt.text); got != tt.want {
			t.Errorf("DetectTopic(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestIsAnswerToPriorQuestion(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"B", true},
		{" b) ", true},
		{"A. because it is the middle", true},
		{"ד", true},
		{"ב, נראה לי", true},
		{"C!", true},
		{"E", false},
		{"a question about regression", false},
		{"A because it is the middle", false},
		{"d the last one", false},
		{"Because", false},
		{"אני לא בטוח", false},
		{"", false},
		{"A " + strings.Repeat("long explanation ", 5), false},
	}
	for _, tt := range tests {
		if got := IsAnswerToPriorQuestion(tt.text); got != tt.want {
			t.Errorf("IsAnswerToPriorQuestion(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestIsValidDiagnosisOnlyOutput(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"short question", "What do you already know about the median?", true},
		{"no question mark", "The median is the middle value.", false},
		{"too many questions", "Why? How? When?", false},
		{"too many sentences", "Hi. Let us start. Ready. Go?", false},
		{"formula", "Is the mean = sum / n?", false},
		{"arithmetic", "Is 3 + 4 the total?", false},
		{"list", "Pick one?\n1. mean\n2. median", false},
		{"definition", "The mean is defined as the average, right?", false},
		{"hebrew definition", "מה ההגדרה של ממוצע?", false},
		{"too long", strings.Repeat("א", MaxDiagnosisRunes) + "?", false},
		{"empty", "   ", false},
	}
	for _, tt := range tests {
		if got := IsValidDiagnosisOnlyOutput(tt.text); got != tt.want {
			t.Errorf("%s: IsValidDiagnosisOnlyOutput = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFallbackDiagnosisQuestionPassesGuard(t *testing.T) {
	names := []string{""}
	for _, topic := range DefaultTopics() {
		names = append(names, topic.Name)
	}
	for _, name := range names {
		q := FallbackDiagnosisQuestion(name)
		if !IsValidDiagnosisOnlyOutput(q) {
			t.Errorf("fallback for %q fails the guard: %q", name, q)
		}
		if name != "" && !strings.Contains(q, name) {
			t.Errorf("fallback for %q does not mention the topic", name)
		}
		if utf8.RuneCountInString(q) > MaxDiagnosisRunes {
			t.Errorf("fallback for %q too long", name)
		}
	}
	if FallbackDiagnosisQuestion("ממוצע") != FallbackDiagnosisQuestion("ממוצע") {
		t.Error("fallback must be deterministic")
	}
}
