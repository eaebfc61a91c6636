package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/storyforge/internal/assist"
	"github.com/ziadkadry99/storyforge/internal/notice"
	"github.com/ziadkadry99/storyforge/internal/session"
)

// The zero CheckOrigin only accepts same-origin upgrades.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// assistRequest is the incoming WebSocket message format.
type assistRequest struct {
	Type        string `json:"type"` // "generate"
	Task        string `json:"task"`
	Project     string `json:"project"`
	Chapter     string `json:"chapter,omitempty"`
	Entity      string `json:"entity,omitempty"`
	Text        string `json:"text,omitempty"`
	Instruction string `json:"instruction,omitempty"`
}

// assistResponse is the outgoing WebSocket message format.
type assistResponse struct {
	Type         string `json:"type"` // "result" or "error"
	Task         string `json:"task,omitempty"`
	Content      string `json:"content"`
	Model        string `json:"model,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}

// handleAssistSocket runs AI tasks over a WebSocket so the editor can show
// results without a page reload. Each message is handled in the caller's
// session; results are also stored as the session's pending generation.
func (s *Server) handleAssistSocket(w http.ResponseWriter, r *http.Request) {
	var sessionID string
	if c, err := r.Cookie(CookieName); err == nil {
		sessionID = c.Value
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFormBytes)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var req assistRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError(conn, "invalid message format")
			continue
		}
		if req.Type != "generate" {
			s.sendError(conn, "unknown message type: "+req.Type)
			continue
		}
		sessionID = s.generateOverSocket(r.Context(), conn, sessionID, req)
	}
}

// generateOverSocket handles one generate message and returns the session
// ID it ran in.
func (s *Server) generateOverSocket(ctx context.Context, conn *websocket.Conn, sessionID string, req assistRequest) string {
	sess, release := s.sessions.Acquire(sessionID)
	defer release()

	if s.assist == nil {
		s.sendError(conn, "AI assist is not configured. Run storyforge init to choose a provider.")
		return sess.ID()
	}
	task, ok := assist.ParseTask(req.Task)
	if !ok {
		s.sendError(conn, "unknown task: "+req.Task)
		return sess.ID()
	}
	cfg := s.app.Config()
	if wait := sess.Cooldowns().Remaining("assist.generate", cfg.GenerateCooldown()); wait > 0 {
		s.sendError(conn, fmt.Sprintf("You asked the AI a moment ago. Try again in %ds.", max(1, int((wait+time.Second-1)/time.Second))))
		return sess.ID()
	}
	p, err := s.app.OpenProject(req.Project)
	if err != nil {
		msg, _ := notice.Message(err)
		s.sendError(conn, msg)
		return sess.ID()
	}

	ov := sess.Overrides(session.Overrides{Model: cfg.Model, Temperature: cfg.Temperature})
	res, err := s.assist.Generate(ctx, assist.Request{
		Task:        task,
		Project:     p,
		ChapterID:   req.Chapter,
		EntityID:    req.Entity,
		Text:        req.Text,
		Instruction: req.Instruction,
		Model:       ov.Model,
		Temperature: &ov.Temperature,
	})
	if err != nil {
		s.sendError(conn, assist.UserMessage(err))
		return sess.ID()
	}

	sess.SetGeneration(&session.Generation{
		Task:         string(res.Task),
		Text:         res.Text,
		Source:       res.Source,
		ProjectID:    p.ID,
		ChapterID:    req.Chapter,
		EntityID:     req.Entity,
		Model:        res.Model,
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
		At:           time.Now(),
	})
	s.send(conn, assistResponse{
		Type:         "result",
		Task:         string(res.Task),
		Content:      res.Text,
		Model:        res.Model,
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
	})
	return sess.ID()
}

func (s *Server) send(conn *websocket.Conn, resp assistResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		s.log.Warn("websocket write failed", zap.Error(err))
	}
}

func (s *Server) sendError(conn *websocket.Conn, message string) {
	if message == "" {
		message = "The request failed."
	}
	s.send(conn, assistResponse{Type: "error", Content: message})
}
