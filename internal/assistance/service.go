package assistance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// RepositoryPort defines data access methods for assistance cases.
type RepositoryPort interface {
	Create(ctx context.Context, ficha Ficha) (Ficha, error)
	Get(ctx context.Context, id int64) (Ficha, error)
	UpdateStatus(ctx context.Context, id int64, status CaseStatus) error
	UpdateDescription(ctx context.Context, id int64, description string) error
	List(ctx context.Context, status CaseStatus, offset, limit int) ([]Ficha, int, error)
}

// AuditRecorder records case lifecycle changes.
type AuditRecorder interface {
	Record(ctx context.Context, actorID int64, action, entity string, entityID int64, detail string) error
}

// Service handles assistance case rules.
type Service struct {
	repo   RepositoryPort
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService builds Service instance. audit may be nil.
func NewService(repo RepositoryPort, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// Open creates a new case attributed to the acting user.
func (s *Service) Open(ctx context.Context, actorID int64, assistedName, document, description string) (Ficha, error) {
	assistedName = strings.TrimSpace(assistedName)
	description = strings.TrimSpace(description)
	if assistedName == "" {
		return Ficha{}, fmt.Errorf("%w: assisted name required", ErrInvalidCase)
	}
	if description == "" {
		return Ficha{}, fmt.Errorf("%w: description required", ErrInvalidCase)
	}
	ficha, err := s.repo.Create(ctx, Ficha{
		AssistedName: assistedName,
		Document:     strings.TrimSpace(document),
		Description:  description,
		OpenedBy:     actorID,
	})
	if err != nil {
		return Ficha{}, err
	}
	s.record(ctx, actorID, "assistance.open", ficha.ID, assistedName)
	return ficha, nil
}

// Transition moves a case through its lifecycle.
func (s *Service) Transition(ctx context.Context, actorID, id int64, to CaseStatus) (Ficha, error) {
	ficha, err := s.repo.Get(ctx, id)
	if err != nil {
		return Ficha{}, err
	}
	if !CanTransition(ficha.Status, to) {
		return Ficha{}, ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return Ficha{}, err
	}
	ficha.Status = to
	s.record(ctx, actorID, "assistance.status", id, string(to))
	return ficha, nil
}

// Annotate rewrites the case narrative.
func (s *Service) Annotate(ctx context.Context, actorID, id int64, description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return fmt.Errorf("%w: description required", ErrInvalidCase)
	}
	if err := s.repo.UpdateDescription(ctx, id, description); err != nil {
		return err
	}
	s.record(ctx, actorID, "assistance.annotate", id, "")
	return nil
}

// Get fetches one case.
func (s *Service) Get(ctx context.Context, id int64) (Ficha, error) {
	return s.repo.Get(ctx, id)
}

// List returns cases with an optional status filter.
func (s *Service) List(ctx context.Context, status CaseStatus, offset, limit int) ([]Ficha, int, error) {
	return s.repo.List(ctx, status, offset, limit)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, detail string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, actorID, action, "ficha", id, detail); err != nil && s.logger != nil {
		s.logger.Warn("audit assistance", slog.Any("error", err))
	}
}
