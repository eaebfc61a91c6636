// Package assist runs AI writing tasks for a project: it sanitizes input,
// bounds every provider call with the configured timeout, records usage and
// turns provider failures into user-safe advisories.
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ziadkadry99/storyforge/internal/config"
	"github.com/ziadkadry99/storyforge/internal/llm"
	"github.com/ziadkadry99/storyforge/internal/notice"
	"github.com/ziadkadry99/storyforge/internal/project"
	"github.com/ziadkadry99/storyforge/internal/recall"
	"github.com/ziadkadry99/storyforge/internal/usage"
)

// Task names an AI writing task.
type Task string

const (
	TaskContinue   Task = "continue"
	TaskRewrite    Task = "rewrite"
	TaskBrainstorm Task = "brainstorm"
	TaskDescribe   Task = "describe"
	TaskSummarize  Task = "summarize"
)

// Tasks lists every task in display order.
func Tasks() []Task {
	return []Task{TaskContinue, TaskRewrite, TaskBrainstorm, TaskDescribe, TaskSummarize}
}

// ParseTask maps a form value to a Task.
func ParseTask(s string) (Task, bool) {
	for _, t := range Tasks() {
		if string(t) == strings.ToLower(strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

var (
	// ErrEmptyInput is returned when a task has nothing to work from.
	ErrEmptyInput = errors.New("nothing to generate from")
	// ErrUnknownTask is returned for task names outside Tasks.
	ErrUnknownTask = errors.New("unknown task")
	// ErrInputTooLong is returned when a rewrite would have to drop part of
	// its passage.
	ErrInputTooLong = errors.New("passage too long")
)

// recallHits is how many lore items are added to a prompt.
const recallHits = 4

// Request describes one generation.
type Request struct {
	Task        Task
	Project     *project.Project
	ChapterID   string
	EntityID    string
	Text        string
	Instruction string
	Model       string
	// Temperature overrides the configured value when non-nil.
	Temperature *float64
}

// Result is a successful generation.
type Result struct {
	Task         Task
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Duration     time.Duration
	Recalled     []recall.Hit
	// Source is the unsanitized passage a rewrite replaces.
	Source       string
}

// Ledger records generation attempts.
type Ledger interface {
	Record(ctx context.Context, e usage.Entry) error
}

// Service runs tasks against one provider.
type Service struct {
	mu       sync.RWMutex
	cfg      *config.Config
	provider llm.Provider
	log      *zap.Logger
	recall   *recall.Index
	ledger   Ledger

	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
	now          func() time.Time
}

// New creates a Service. log may be nil.
func New(cfg *config.Config, provider llm.Provider, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		cfg:          cfg,
		provider:     provider,
		log:          log,
		timeout:      cfg.RequestTimeout(),
		maxRetries:   2,
		retryBackoff: time.Second,
		now:          time.Now,
	}
}

// WithRecall enables lore retrieval for prompts.
func (s *Service) WithRecall(idx *recall.Index) *Service {
	s.recall = idx
	return s
}

// WithLedger enables usage recording.
func (s *Service) WithLedger(l Ledger) *Service {
	s.ledger = l
	return s
}

// Reconfigure swaps in settings edited at runtime. The provider itself is
// fixed for the life of the Service.
func (s *Service) Reconfigure(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.timeout = cfg.RequestTimeout()
}

func (s *Service) settings() (*config.Config, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.timeout
}

// ProviderName reports which provider the service calls.
func (s *Service) ProviderName() string { return s.provider.Name() }

// Generate runs req. Provider failures are returned as classified llm
// errors; pass them to UserMessage or Advise for display.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	cfg, timeout := s.settings()
	pr, err := s.buildMessages(req)
	if err != nil {
		return nil, err
	}
	messages := pr.messages

	var hits []recall.Hit
	if s.recall != nil && cfg.RecallEnabled && req.Project != nil && pr.query != "" {
		hits, err = s.recall.Query(ctx, req.Project, pr.query, recallHits)
		if err != nil {
			s.log.Warn("lore recall failed", zap.String("project", req.Project.ID), zap.Error(err))
			hits = nil
		}
		for i := range hits {
			hits[i].Title = Sanitize(hits[i].Title, 200)
			hits[i].Text = Sanitize(hits[i].Text, 2000)
		}
		if block := recall.Format(hits); block != "" {
			messages = append([]llm.Message{messages[0], llm.System(block)}, messages[1:]...)
		}
	}

	temperature := cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	model := req.Model
	if model == "" {
		model = cfg.Model
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := s.now()
	resp, err := s.complete(ctx, llm.CompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   cfg.MaxTokens,
		Temperature: temperature,
	})
	elapsed := s.now().Sub(start)

	entry := usage.Entry{
		Task:     string(req.Task),
		Provider: s.provider.Name(),
		Model:    model,
		Duration: elapsed,
	}
	if req.Project != nil {
		entry.ProjectID = req.Project.ID
		entry.ChapterID = req.ChapterID
	}

	if err != nil {
		entry.Outcome = outcome(err)
		s.record(entry)
		s.log.Warn("generation failed",
			zap.String("task", string(req.Task)),
			zap.String("provider", s.provider.Name()),
			zap.String("outcome", entry.Outcome),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.Model != "" {
		model = resp.Model
	}
	cost := llm.EstimateCost(model, resp.InputTokens, resp.OutputTokens)
	entry.Model = model
	entry.InputTokens = resp.InputTokens
	entry.OutputTokens = resp.OutputTokens
	entry.CostUSD = cost
	entry.Outcome = usage.OutcomeOK
	s.record(entry)

	s.log.Debug("generation complete",
		zap.String("task", string(req.Task)),
		zap.String("model", model),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.Duration("elapsed", elapsed),
	)

	return &Result{
		Task:         req.Task,
		Text:         Sanitize(resp.Content, 0),
		Model:        model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		CostUSD:      cost,
		Duration:     elapsed,
		Recalled:     hits,
		Source:       pr.source,
	}, nil
}

// complete calls the provider, backing off on rate limits while the
// deadline allows.
func (s *Service) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	backoff := s.retryBackoff
	for attempt := 0; ; attempt++ {
		resp, err := s.provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		// Providers in this repo classify their errors; anything else is
		// classified here so callers see one of the known kinds.
		err = llm.Classify(s.provider.Name(), err)
		if !errors.Is(err, llm.ErrRateLimit) || attempt >= s.maxRetries {
			return nil, err
		}
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < backoff {
			return nil, err
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, llm.Classify(s.provider.Name(), ctx.Err())
		case <-timer.C:
		}
		backoff *= 2
	}
}

func (s *Service) record(e usage.Entry) {
	if s.ledger == nil {
		return
	}
	// The request context may already be expired; the ledger write is short.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.ledger.Record(ctx, e); err != nil {
		s.log.Warn("recording usage failed", zap.Error(err))
	}
}

// prompt is a built request and what it was built from.
type prompt struct {
	messages []llm.Message
	// query is the text used for lore recall.
	query    string
	// source is the raw passage a rewrite replaces.
	source   string
}

// buildMessages sanitizes the request into a prompt. Text is sanitized
// without a cap so each task can decide which part of it to keep.
func (s *Service) buildMessages(req Request) (prompt, error) {
	source := req.Text
	text := Sanitize(source, 0)
	instruction := Sanitize(req.Instruction, MaxInstructionRunes)
	p := req.Project

	var chapter *project.Chapter
	if p != nil && req.ChapterID != "" {
		c, ok := p.Chapter(req.ChapterID)
		if !ok {
			return prompt{}, fmt.Errorf("chapter %s: %w", req.ChapterID, project.ErrNoSuchItem)
		}
		chapter = c
		if text == "" {
			source = c.Content
			text = Sanitize(source, 0)
		}
	}
	chapterTitle := "Untitled"
	if chapter != nil {
		chapterTitle = Sanitize(chapter.Title, 200)
	}

	var body, query string
	switch req.Task {
	case TaskContinue:
		if text == "" {
			return prompt{}, ErrEmptyInput
		}
		guidance := ""
		if instruction != "" {
			guidance = "Direction from the author: " + instruction + "\n"
		}
		excerpt := tail(text, 4000)
		body = fmt.Sprintf(continueTemplate, chapterTitle, guidance, excerpt)
		query = tail(text, 1000) + " " + instruction

	case TaskRewrite:
		if text == "" {
			return prompt{}, ErrEmptyInput
		}
		if utf8.RuneCountInString(text) > MaxTextRunes {
			return prompt{}, fmt.Errorf("%w: over %d characters", ErrInputTooLong, MaxTextRunes)
		}
		body = fmt.Sprintf(rewriteTemplate, orDefault(instruction, "Tighten the prose and improve its rhythm."), text)
		query = text

	case TaskBrainstorm:
		if p == nil && instruction == "" {
			return prompt{}, ErrEmptyInput
		}
		var title, genre, synopsis, outline string
		if p != nil {
			title, genre = Sanitize(p.Title, 200), Sanitize(p.Genre, 100)
			synopsis, outline = Sanitize(p.Synopsis, 2000), Sanitize(p.Outline, 4000)
		}
		body = fmt.Sprintf(brainstormTemplate, orDefault(instruction, "what could happen next"),
			orDefault(title, "Untitled"), orDefault(genre, "unspecified"), orDefault(synopsis, "none yet"), orDefault(outline, "none yet"))
		query = instruction + " " + synopsis

	case TaskDescribe:
		if p == nil || req.EntityID == "" {
			return prompt{}, ErrEmptyInput
		}
		e, ok := p.Entity(req.EntityID)
		if !ok {
			return prompt{}, fmt.Errorf("entity %s: %w", req.EntityID, project.ErrNoSuchItem)
		}
		name := Sanitize(e.Name, 200)
		guidance := ""
		if instruction != "" {
			guidance = "Direction from the author: " + instruction
		}
		body = fmt.Sprintf(describeTemplate, e.Kind, name, orDefault(Sanitize(e.Description, 2000), "none"), guidance)
		query = name + " " + e.Description

	case TaskSummarize:
		if text == "" {
			return prompt{}, ErrEmptyInput
		}
		body = fmt.Sprintf(summarizeTemplate, chapterTitle, Sanitize(text, MaxTextRunes))

	default:
		return prompt{}, fmt.Errorf("%w: %q", ErrUnknownTask, req.Task)
	}

	pr := prompt{
		messages: []llm.Message{
			llm.System(systemPrompt),
			llm.User(storyHeader(p) + "\n" + body),
		},
		query: strings.TrimSpace(query),
	}
	if req.Task == TaskRewrite {
		pr.source = source
	}
	return pr, nil
}

func outcome(err error) string {
	switch llm.KindOf(err) {
	case llm.ErrAuth:
		return usage.OutcomeAuth
	case llm.ErrRateLimit:
		return usage.OutcomeRateLimit
	case llm.ErrTimeout:
		return usage.OutcomeTimeout
	case llm.ErrMalformedResponse:
		return usage.OutcomeMalformed
	default:
		return usage.OutcomeUnavailable
	}
}

// UserMessage returns text safe to show for err. Each provider failure
// kind has its own wording.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, llm.ErrAuth):
		return "The AI provider rejected the API key. Check the key for your provider in Settings."
	case errors.Is(err, llm.ErrRateLimit):
		return "The AI provider is rate limiting requests. Wait a minute and try again."
	case errors.Is(err, llm.ErrTimeout):
		return "The AI request timed out. Try again, or raise the request timeout in Settings."
	case errors.Is(err, llm.ErrMalformedResponse):
		return "The AI provider sent a response that could not be read. Try again."
	case errors.Is(err, llm.ErrUnavailable):
		return "The AI provider could not be reached. Check your connection and provider settings."
	case errors.Is(err, ErrEmptyInput):
		return "Add some text or an instruction before generating."
	case errors.Is(err, ErrInputTooLong):
		return fmt.Sprintf("That passage is too long to rewrite in one go. Select at most %d characters and try again.", MaxTextRunes)
	case errors.Is(err, project.ErrNoSuchItem):
		return "The selected chapter or entry no longer exists."
	default:
		return "The AI request failed."
	}
}

// Advise wraps err in an advisory carrying UserMessage(err).
func Advise(err error) error {
	if err == nil {
		return nil
	}
	return notice.Advise(err, UserMessage(err))
}
