package agentd

import (
	"context"
	"errors"
	"strings"

	"github.com/Mtzions/Agentbackend/internal/core/project"
	"github.com/rs/zerolog"
)

// ErrEmptyContent is returned when a message carries no content.
var ErrEmptyContent = errors.New("content is required")

// MessageSpec is the input for appending a conversation record.
type MessageSpec struct {
	Role     project.Role          `json:"role,omitempty"`
	Source   project.MessageSource `json:"source,omitempty"`
	Content  string                `json:"content"`
	TaskID   string                `json:"task_id,omitempty"`
	RunID    string                `json:"run_id,omitempty"`
	Metadata map[string]any        `json:"metadata,omitempty"`
}

// MessageService manages the project conversation history.
type MessageService struct {
	projects *ProjectService
	log      zerolog.Logger
}

// NewMessageService creates a MessageService.
func NewMessageService(projects *ProjectService, log zerolog.Logger) *MessageService {
	return &MessageService{projects: projects, log: log}
}

// Append records a message. Role defaults to user, source to ui.
func (s *MessageService) Append(ctx context.Context, projectID string, spec MessageSpec) (project.Message, error) {
	if strings.TrimSpace(spec.Content) == "" {
		return project.Message{}, ErrEmptyContent
	}

	var msg project.Message
	err := s.projects.Update(ctx, projectID, func(p *project.Project) error {
		msg = project.Message{
			ID:        newID("msg"),
			Role:      spec.Role,
			Source:    spec.Source,
			Content:   spec.Content,
			TaskID:    spec.TaskID,
			RunID:     spec.RunID,
			Metadata:  spec.Metadata,
			CreatedAt: s.projects.now(),
		}
		if msg.Role == "" {
			msg.Role = project.RoleUser
		}
		if msg.Source == "" {
			msg.Source = project.SourceUI
		}
		p.Messages = append(p.Messages, msg)
		return nil
	})
	if err != nil {
		return project.Message{}, err
	}
	return msg, nil
}

// Recent returns the newest messages up to the configured window.
func (s *MessageService) Recent(ctx context.Context, projectID string) []project.Message {
	var msgs []project.Message
	s.projects.Read(ctx, projectID, func(p *project.Project) {
		msgs = p.RecentMessages(s.projects.cfg.Limits.RecentMessages)
	})
	return msgs
}
