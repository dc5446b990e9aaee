// Package sessions tracks agent run history. Every worker launch becomes a
// session row; stopping or crashing closes it out.
package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/2811Yash/Voice-AI/internal/cache"
	"github.com/2811Yash/Voice-AI/internal/log"
	"github.com/2811Yash/Voice-AI/internal/sessions/domain"
)

const recentTTL = 30 * time.Second

// Service records agent runs and serves the session history listing.
// Reads go through a short-lived cache that is invalidated whenever a
// run starts or ends.
type Service struct {
	repo   domain.SessionRepository
	recent *cache.ReadThrough[[]*domain.Session, domain.ListFilter]
}

func NewService(repo domain.SessionRepository) *Service {
	s := &Service{repo: repo}
	s.recent = cache.NewReadThrough[[]*domain.Session, domain.ListFilter](
		cache.NewMemoryCache[[]*domain.Session]("sessions", cache.DefaultExpiration, cache.DefaultCleanupInterval),
		func(ctx context.Context, filter domain.ListFilter) ([]*domain.Session, error) {
			return s.repo.ListWithFilter(filter)
		},
		false,
	)
	return s
}

// RunStarted records a new running session and returns its GUID.
func (s *Service) RunStarted(ctx context.Context, model, voice string, pid int) (string, error) {
	session := domain.NewSession(uuid.NewString(), model, voice, pid)
	if err := s.repo.Save(session); err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}

	if err := s.recent.InvalidateAll(ctx); err != nil {
		log.Warn(log.CatDB, "failed to invalidate session cache", "error", err)
	}

	log.Info(log.CatDB, "session started", "guid", session.GUID(), "pid", pid)

	return session.GUID(), nil
}

// RunEnded closes out the session identified by guid. A run that exited
// without being asked to stop is recorded as crashed.
func (s *Service) RunEnded(ctx context.Context, guid string, crashed bool) error {
	session, err := s.repo.FindByGUID(guid)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	if crashed {
		session.MarkCrashed()
	} else {
		session.MarkStopped()
	}

	if err := s.repo.Save(session); err != nil {
		return fmt.Errorf("updating session: %w", err)
	}

	if err := s.recent.InvalidateAll(ctx); err != nil {
		log.Warn(log.CatDB, "failed to invalidate session cache", "error", err)
	}

	log.Info(log.CatDB, "session ended", "guid", guid, "state", session.State())

	return nil
}

// Recent returns up to limit sessions, newest first. Results are cached
// briefly; starting or ending a run invalidates the cache.
func (s *Service) Recent(ctx context.Context, limit int) ([]*domain.Session, error) {
	filter := domain.ListFilter{Limit: limit}
	key := fmt.Sprintf("sessions:recent:%d", limit)
	return s.recent.Get(ctx, key, filter, recentTTL)
}

// Find returns a single session by GUID, bypassing the cache.
func (s *Service) Find(ctx context.Context, guid string) (*domain.Session, error) {
	return s.repo.FindByGUID(guid)
}
