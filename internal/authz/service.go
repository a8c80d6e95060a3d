package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AuditRecorder records administrative permission changes.
type AuditRecorder interface {
	Record(ctx context.Context, actorID int64, action, entity string, entityID int64, detail string) error
}

// Service loads subject snapshots for the guard and applies override edits.
// Snapshots are cached briefly in Redis; concurrent loads for the same
// subject collapse into one repository call.
type Service struct {
	repo   Repository
	cache  *redis.Client
	eval   *Evaluator
	audit  AuditRecorder
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewService constructs a Service. cache may be nil, in which case every
// load goes to the repository.
func NewService(repo Repository, cache *redis.Client, eval *Evaluator, audit AuditRecorder, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{repo: repo, cache: cache, eval: eval, audit: audit, ttl: ttl, logger: logger}
}

// Evaluator exposes the evaluator bound to this service.
func (s *Service) Evaluator() *Evaluator {
	return s.eval
}

// Subject returns the snapshot for a user. A cache miss or cache failure
// falls through to the repository; a repository failure surfaces to the
// caller, which must treat the subject as absent (denial).
func (s *Service) Subject(ctx context.Context, userID int64) (*Subject, error) {
	if s.cache != nil {
		if payload, err := s.cache.Get(ctx, s.cacheKey(userID)).Bytes(); err == nil {
			var subject Subject
			if err := json.Unmarshal(payload, &subject); err == nil {
				return &subject, nil
			}
		} else if !errors.Is(err, redis.Nil) && s.logger != nil {
			s.logger.Warn("authz snapshot cache read", slog.Any("error", err))
		}
	}

	value, err, _ := s.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		subject, err := s.repo.Subject(ctx, userID)
		if err != nil {
			return nil, err
		}
		s.store(ctx, subject)
		return subject, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*Subject), nil
}

// SetOverrides replaces a user's override set, drops the cached snapshot
// and records who changed what.
func (s *Service) SetOverrides(ctx context.Context, actorID, userID int64, overrides OverrideSet) error {
	if err := s.repo.SaveOverrides(ctx, userID, overrides); err != nil {
		return err
	}
	s.Invalidate(ctx, userID)
	if s.audit != nil {
		detail := fmt.Sprintf("%d override(s)", len(overrides))
		if err := s.audit.Record(ctx, actorID, "permissions.override", "user", userID, detail); err != nil && s.logger != nil {
			s.logger.Warn("audit override edit", slog.Any("error", err))
		}
	}
	return nil
}

// Invalidate drops the cached snapshot for a user. Called after override
// edits and status transitions so the next check sees fresh data.
func (s *Service) Invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cacheKey(userID)).Err(); err != nil && !errors.Is(err, redis.Nil) && s.logger != nil {
		s.logger.Warn("authz snapshot invalidate", slog.Any("error", err))
	}
}

func (s *Service) store(ctx context.Context, subject *Subject) {
	if s.cache == nil || subject == nil {
		return
	}
	payload, err := json.Marshal(subject)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(subject.ID), payload, s.ttl).Err(); err != nil && s.logger != nil {
		s.logger.Warn("authz snapshot cache write", slog.Any("error", err))
	}
}

func (s *Service) cacheKey(userID int64) string {
	return "authz:subject:" + strconv.FormatInt(userID, 10)
}
