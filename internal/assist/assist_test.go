package assist

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ziadkadry99/storyforge/internal/config"
	"github.com/ziadkadry99/storyforge/internal/embeddings"
	"github.com/ziadkadry99/storyforge/internal/llm"
	"github.com/ziadkadry99/storyforge/internal/notice"
	"github.com/ziadkadry99/storyforge/internal/project"
	"github.com/ziadkadry99/storyforge/internal/recall"
	"github.com/ziadkadry99/storyforge/internal/usage"
)

// fakeProvider returns queued results in order, then repeats the last one.
type fakeProvider struct {
	mu      sync.Mutex
	calls   []llm.CompletionRequest
	results []fakeResult
	block   bool
}

type fakeResult struct {
	resp *llm.CompletionResponse
	err  error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	n := len(f.calls)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, llm.Classify("fake", ctx.Err())
	}
	r := f.results[min(n, len(f.results))-1]
	return r.resp, r.err
}

func ok(text string) fakeResult {
	return fakeResult{resp: &llm.CompletionResponse{Content: text, InputTokens: 40, OutputTokens: 12, Model: "gpt-4o-mini"}}
}

type memLedger struct {
	mu      sync.Mutex
	entries []usage.Entry
}

func (m *memLedger) Record(_ context.Context, e usage.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func testProject() (*project.Project, *project.Chapter) {
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	p := project.New("The Lantern Road", "fantasy", "A courier crosses a haunted valley.", now)
	c := p.AddChapter("Departure", now)
	_ = p.UpdateChapter(c.ID, c.Title, "Ilsa tightened the straps of her pack and looked at the valley.", "", now)
	c, _ = p.Chapter(c.ID)
	return p, c
}

func newService(f *fakeProvider) (*Service, *memLedger) {
	cfg := config.DefaultConfig()
	ledger := &memLedger{}
	s := New(cfg, f, nil).WithLedger(ledger)
	s.retryBackoff = time.Millisecond
	return s, ledger
}

func TestGenerateContinue(t *testing.T) {
	f := &fakeProvider{results: []fakeResult{ok("She stepped onto the road.")}}
	s, ledger := newService(f)
	p, c := testProject()

	res, err := s.Generate(context.Background(), Request{Task: TaskContinue, Project: p, ChapterID: c.ID})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "She stepped onto the road." {
		t.Errorf("unexpected text %q", res.Text)
	}
	if res.CostUSD <= 0 {
		t.Errorf("expected a cost estimate, got %f", res.CostUSD)
	}

	prompt := f.calls[0].Messages[len(f.calls[0].Messages)-1].Content
	if !strings.Contains(prompt, "Ilsa tightened the straps") || !strings.Contains(prompt, "The Lantern Road") {
		t.Errorf("prompt is missing chapter text or story header:\n%s", prompt)
	}
	if f.calls[0].Temperature != 0.7 || f.calls[0].MaxTokens != 1024 {
		t.Errorf("expected configured temperature and max tokens, got %+v", f.calls[0])
	}

	if len(ledger.entries) != 1 || ledger.entries[0].Outcome != usage.OutcomeOK || ledger.entries[0].ProjectID != p.ID {
		t.Errorf("unexpected ledger %+v", ledger.entries)
	}
}

func TestGenerateSanitizesInput(t *testing.T) {
	f := &fakeProvider{results: []fakeResult{ok("done")}}
	s, _ := newService(f)

	_, err := s.Generate(context.Background(), Request{
		Task:        TaskRewrite,
		Text:        "Hello \x1b[31mred\x1b[0m world\x00\r\nnext\u202eline",
		Instruction: "make it \x1b]0;title\x07formal",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	prompt := f.calls[0].Messages[1].Content
	for _, bad := range []string{"\x1b", "\x00", "\r", "\u202e", "\x07"} {
		if strings.Contains(prompt, bad) {
			t.Errorf("prompt still contains %q", bad)
		}
	}
	if !strings.Contains(prompt, "Hello red world\nnextline") || !strings.Contains(prompt, "make it formal") {
		t.Errorf("unexpected sanitized prompt:\n%s", prompt)
	}
}

func TestGenerateTimeoutGivesTimeoutAdvisory(t *testing.T) {
	f := &fakeProvider{block: true}
	s, ledger := newService(f)
	s.timeout = 30 * time.Millisecond
	p, c := testProject()

	start := time.Now()
	_, err := s.Generate(context.Background(), Request{Task: TaskContinue, Project: p, ChapterID: c.ID})
	if !errors.Is(err, llm.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout was not applied to the provider call")
	}

	msg := UserMessage(err)
	if !strings.Contains(msg, "timed out") {
		t.Errorf("expected timeout advisory, got %q", msg)
	}
	if strings.Contains(msg, "context deadline") || strings.Contains(msg, "goroutine") {
		t.Errorf("advisory leaks internals: %q", msg)
	}
	if len(ledger.entries) != 1 || ledger.entries[0].Outcome != usage.OutcomeTimeout {
		t.Errorf("expected a timeout ledger entry, got %+v", ledger.entries)
	}
}

func TestGenerateRetriesRateLimit(t *testing.T) {
	rateLimited := fakeResult{err: llm.Classify("fake", &llm.StatusError{Code: 429})}
	f := &fakeProvider{results: []fakeResult{rateLimited, ok("second time lucky")}}
	s, _ := newService(f)

	res, err := s.Generate(context.Background(), Request{Task: TaskRewrite, Text: "a passage"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "second time lucky" || len(f.calls) != 2 {
		t.Errorf("expected one retry, got %d calls and %q", len(f.calls), res.Text)
	}
}

func TestGenerateGivesUpAfterRetries(t *testing.T) {
	rateLimited := fakeResult{err: llm.Classify("fake", &llm.StatusError{Code: 429})}
	f := &fakeProvider{results: []fakeResult{rateLimited}}
	s, _ := newService(f)

	_, err := s.Generate(context.Background(), Request{Task: TaskRewrite, Text: "a passage"})
	if !errors.Is(err, llm.ErrRateLimit) {
		t.Fatalf("expected ErrRateLimit, got %v", err)
	}
	if len(f.calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(f.calls))
	}
}

func TestGenerateDoesNotRetryAuth(t *testing.T) {
	f := &fakeProvider{results: []fakeResult{{err: llm.Classify("fake", &llm.StatusError{Code: 401})}}}
	s, _ := newService(f)

	_, err := s.Generate(context.Background(), Request{Task: TaskRewrite, Text: "a passage"})
	if !errors.Is(err, llm.ErrAuth) || len(f.calls) != 1 {
		t.Errorf("expected single ErrAuth attempt, got %v after %d calls", err, len(f.calls))
	}
}

func TestGenerateInputErrors(t *testing.T) {
	f := &fakeProvider{results: []fakeResult{ok("x")}}
	s, _ := newService(f)
	p, _ := testProject()

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"empty rewrite", Request{Task: TaskRewrite, Text: " \x1b[0m "}, ErrEmptyInput},
		{"missing chapter", Request{Task: TaskContinue, Project: p, ChapterID: "nope"}, project.ErrNoSuchItem},
		{"describe without entity", Request{Task: TaskDescribe, Project: p}, ErrEmptyInput},
		{"unknown task", Request{Task: "poem", Text: "x"}, ErrUnknownTask},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Generate(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if len(f.calls) != 0 {
		t.Errorf("provider should not be called for invalid input, got %d calls", len(f.calls))
	}
}

func TestGenerateAddsRecalledLore(t *testing.T) {
	f := &fakeProvider{results: []fakeResult{ok("The lantern flickered.")}}
	s, _ := newService(f)
	s.WithRecall(recall.New(embeddings.NewLocalEmbedder(64)))
	p, c := testProject()
	p.AddEntity(project.KindCharacter, "Ilsa", "A courier who never breaks a promise", nil, time.Now())

	res, err := s.Generate(context.Background(), Request{Task: TaskContinue, Project: p, ChapterID: c.ID})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Recalled) != 1 {
		t.Fatalf("expected 1 recalled item, got %d", len(res.Recalled))
	}
	msgs := f.calls[0].Messages
	if len(msgs) != 3 || msgs[1].Role != llm.RoleSystem || !strings.Contains(msgs[1].Content, "courier who never breaks") {
		t.Errorf("expected lore system message, got %+v", msgs)
	}
}

func TestGenerateTemperatureOverride(t *testing.T) {
	f := &fakeProvider{results: []fakeResult{ok("x")}}
	s, _ := newService(f)
	temp := 1.3

	if _, err := s.Generate(context.Background(), Request{Task: TaskRewrite, Text: "x", Temperature: &temp, Model: "gpt-4o"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if f.calls[0].Temperature != 1.3 || f.calls[0].Model != "gpt-4o" {
		t.Errorf("overrides not applied: %+v", f.calls[0])
	}
}

func TestReconfigureChangesDefaults(t *testing.T) {
	f := &fakeProvider{results: []fakeResult{ok("x")}}
	s, _ := newService(f)
	p, c := testProject()

	cfg := config.DefaultConfig()
	cfg.Model = "gpt-4o"
	cfg.Temperature = 0.2
	cfg.RequestTimeoutSeconds = 45
	s.Reconfigure(cfg)

	if _, err := s.Generate(context.Background(), Request{Task: TaskSummarize, Project: p, ChapterID: c.ID}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := f.calls[0]; got.Model != "gpt-4o" || got.Temperature != 0.2 {
		t.Errorf("request used model %q temperature %v", got.Model, got.Temperature)
	}
	if s.timeout != 45*time.Second {
		t.Errorf("timeout = %v", s.timeout)
	}
}

func TestUserMessageIsDistinctPerKind(t *testing.T) {
	kinds := []error{llm.ErrAuth, llm.ErrRateLimit, llm.ErrTimeout, llm.ErrMalformedResponse, llm.ErrUnavailable}
	seen := map[string]bool{}
	for _, k := range kinds {
		msg := UserMessage(llm.Classify("p", k))
		if seen[msg] {
			t.Errorf("duplicate message %q", msg)
		}
		seen[msg] = true
	}
}

func TestAdviseCarriesUserMessage(t *testing.T) {
	err := Advise(llm.Classify("p", &llm.StatusError{Code: 401}))
	msg, ok := notice.Message(err)
	if !ok || !strings.Contains(msg, "API key") {
		t.Errorf("unexpected advisory %q, %v", msg, ok)
	}
	if !errors.Is(err, llm.ErrAuth) {
		t.Error("advisory should keep the provider error in its chain")
	}
	if Advise(nil) != nil {
		t.Error("Advise(nil) should be nil")
	}
}

func TestParseTask(t *testing.T) {
	if task, ok := ParseTask(" Summarize "); !ok || task != TaskSummarize {
		t.Errorf("ParseTask = %q, %v", task, ok)
	}
	if _, ok := ParseTask("sing"); ok {
		t.Error("expected unknown task to fail")
	}
}

func TestSanitizeCapsLength(t *testing.T) {
	got := Sanitize(strings.Repeat("é", 50), 10)
	if got != strings.Repeat("é", 10) {
		t.Errorf("unexpected cap result %q", got)
	}
}

func TestGenerateSanitizesStoryFrameAndLore(t *testing.T) {
	f := &fakeProvider{results: []fakeResult{ok("x")}}
	s, _ := newService(f)
	s.WithRecall(recall.New(embeddings.NewLocalEmbedder(64)))
	now := time.Now()
	p := project.New("The \x1b[31mLantern\x1b[0m Road\x07", "fan\x00tasy", "A courier\u202e crosses\x1b]0;pwned\x07 a valley.", now)
	c := p.AddChapter("Departure", now)
	_ = p.UpdateChapter(c.ID, c.Title, "Ilsa looked at the valley.", "", now)
	p.AddEntity(project.KindCharacter, "Ilsa\x1b[2J", "A courier\x00 who never\u202e breaks a promise\x07", nil, now)
	p.AddMemory("Ilsa is\x1b]8;;http://evil\x07 left-handed\x00", now)

	res, err := s.Generate(context.Background(), Request{Task: TaskContinue, Project: p, ChapterID: c.ID})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Recalled) == 0 {
		t.Fatal("expected recalled lore")
	}

	var all strings.Builder
	for _, m := range f.calls[0].Messages {
		all.WriteString(m.Content)
	}
	prompt := all.String()
	for _, bad := range []string{"\x1b", "\x07", "\x00", "\u202e", "pwned", "evil"} {
		if strings.Contains(prompt, bad) {
			t.Errorf("prompt still contains %q", bad)
		}
	}
	for _, want := range []string{"Story: The Lantern Road (fantasy)", "Synopsis: A courier crosses a valley.", "courier who never breaks a promise", "Ilsa is left-handed"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt is missing %q:\n%s", want, prompt)
		}
	}
	for _, h := range res.Recalled {
		if strings.ContainsAny(h.Text+h.Title, "\x1b\x07\x00\u202e") {
			t.Errorf("recalled item not sanitized: %+v", h)
		}
	}
}

// longChapter returns a project whose only chapter is well over
// MaxTextRunes and ends with a marker line.
func longChapter() (*project.Project, *project.Chapter) {
	p, c := testProject()
	content := strings.Repeat("The valley was quiet. ", MaxTextRunes/10) + "\nThe bell rang at midnight."
	_ = p.UpdateChapter(c.ID, c.Title, content, "", time.Now())
	c, _ = p.Chapter(c.ID)
	return p, c
}

func TestGenerateContinueUsesChapterEnd(t *testing.T) {
	f := &fakeProvider{results: []fakeResult{ok("x")}}
	s, _ := newService(f)
	p, c := longChapter()

	if _, err := s.Generate(context.Background(), Request{Task: TaskContinue, Project: p, ChapterID: c.ID}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	prompt := f.calls[0].Messages[1].Content
	if !strings.Contains(prompt, "The bell rang at midnight.\n\"\"\"") {
		t.Errorf("continue prompt does not end with the chapter's last line:\n...%s", tail(prompt, 200))
	}
}

func TestGenerateRewriteRefusesOversizedPassage(t *testing.T) {
	f := &fakeProvider{results: []fakeResult{ok("x")}}
	s, _ := newService(f)
	p, c := longChapter()

	_, err := s.Generate(context.Background(), Request{Task: TaskRewrite, Project: p, ChapterID: c.ID})
	if !errors.Is(err, ErrInputTooLong) {
		t.Fatalf("expected ErrInputTooLong, got %v", err)
	}
	if len(f.calls) != 0 {
		t.Errorf("provider called %d times for an oversized rewrite", len(f.calls))
	}
	if msg := UserMessage(err); !strings.Contains(msg, "too long") {
		t.Errorf("unexpected advisory %q", msg)
	}

	selection := "The valley was quiet.\r\n"
	res, err := s.Generate(context.Background(), Request{Task: TaskRewrite, Project: p, ChapterID: c.ID, Text: selection})
	if err != nil {
		t.Fatalf("Generate selection: %v", err)
	}
	if res.Source != selection {
		t.Errorf("Source = %q, want the raw selection %q", res.Source, selection)
	}
}

func TestGenerateRewriteSourceIsChapterWhenNoSelection(t *testing.T) {
	f := &fakeProvider{results: []fakeResult{ok("x")}}
	s, _ := newService(f)
	p, c := testProject()

	res, err := s.Generate(context.Background(), Request{Task: TaskRewrite, Project: p, ChapterID: c.ID})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Source != c.Content {
		t.Errorf("Source = %q, want chapter content", res.Source)
	}
	res, err = s.Generate(context.Background(), Request{Task: TaskContinue, Project: p, ChapterID: c.ID})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Source != "" {
		t.Errorf("continue should carry no Source, got %q", res.Source)
	}
}

func TestSanitizeKeepsTextAfterUnterminatedOSC(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"terminated", "a\x1b]0;title\x07b", "ab"},
		{"string terminator", "a\x1b]0;title\x1b\\b", "ab"},
		{"unterminated", "before \x1b]0;after all", "before 0;after all"},
		{"terminator out of reach", "a\x1b]" + strings.Repeat("x", 600) + "\x07b", "a" + strings.Repeat("x", 600) + "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in, 0); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
