package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docgate/docgate/internal/enhance"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// IsTerminal returns true for statuses that represent a final state.
// A job never leaves a terminal state; there is no cancellation.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Mode selects which prompt template a job uses.
type Mode string

const (
	// ModeAnalyze reviews pasted documentation (summary, key points, gaps).
	ModeAnalyze Mode = "analyze"
	// ModeGenerate produces documentation for pasted code.
	ModeGenerate Mode = "generate"
	// ModeContent drafts a full technical document from a topic and requirements.
	ModeContent Mode = "content"
)

var validModes = map[Mode]bool{
	ModeAnalyze:  true,
	ModeGenerate: true,
	ModeContent:  true,
}

type Job struct {
	ID          string          `json:"job_id"`
	Mode        Mode            `json:"mode"`
	Input       string          `json:"input"`
	Topic       string          `json:"topic,omitempty"`
	Status      Status          `json:"status"`
	Result      string          `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CallbackURL string          `json:"callback_url,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	// Enhance holds content-mode post-processing options (template framing,
	// citations, version header). Nil for the other modes.
	Enhance     *enhance.Options `json:"enhance,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// CreateRequest is the payload used to submit a new job.
type CreateRequest struct {
	Mode        Mode             `json:"mode"`
	Input       string           `json:"input"`
	Topic       string           `json:"topic,omitempty"`
	CallbackURL string           `json:"callback_url,omitempty"`
	Metadata    json.RawMessage  `json:"metadata,omitempty"`
	Enhance     *enhance.Options `json:"enhance,omitempty"`
	Sync        bool             `json:"sync,omitempty"`
}

// Validate checks the request before any job row is created or any upstream
// call is made. maxInputBytes <= 0 disables the size cap.
func (r *CreateRequest) Validate(maxInputBytes int) error {
	if r.Mode == "" {
		return errors.New("mode must not be empty")
	}
	if !validModes[r.Mode] {
		return fmt.Errorf("mode must be one of: %s, %s, %s", ModeAnalyze, ModeGenerate, ModeContent)
	}
	if strings.TrimSpace(r.Input) == "" {
		return errors.New("input must not be empty")
	}
	if maxInputBytes > 0 && len(r.Input) > maxInputBytes {
		return fmt.Errorf("input exceeds %d bytes", maxInputBytes)
	}
	if r.Mode == ModeContent && r.Topic == "" {
		return errors.New("topic must not be empty for content mode")
	}
	if r.Enhance != nil {
		if r.Mode != ModeContent {
			return errors.New("enhance options are only valid for content mode")
		}
		if r.Enhance.Template != "" && !enhance.KnownTemplate(r.Enhance.Template) {
			return fmt.Errorf("template must be one of: %s", strings.Join(enhance.TemplateNames(), ", "))
		}
	}
	return nil
}
