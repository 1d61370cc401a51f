package service

import (
	"context"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/repository"
)

// activityService implements ActivityService
type activityService struct {
	activityRepo repository.ActivityRepository
	ticketRepo   repository.TicketRepository
	eventRepo    repository.EventRepository
}

// NewActivityService creates a new ActivityService
func NewActivityService(
	activityRepo repository.ActivityRepository,
	ticketRepo repository.TicketRepository,
	eventRepo repository.EventRepository,
) ActivityService {
	return &activityService{
		activityRepo: activityRepo,
		ticketRepo:   ticketRepo,
		eventRepo:    eventRepo,
	}
}

// Record stores a feed entry
func (s *activityService) Record(ctx context.Context, entry *domain.ActivityEntry) error {
	return s.activityRepo.Push(ctx, entry)
}

// Recent returns the latest entries, newest first
func (s *activityService) Recent(ctx context.Context, limit int) ([]*domain.ActivityEntry, error) {
	return s.activityRepo.Recent(ctx, limit)
}

// Stats counts redemptions, optionally for one event
func (s *activityService) Stats(ctx context.Context, eventID *string) (*domain.TicketStats, error) {
	if eventID != nil {
		if _, err := s.eventRepo.GetByID(ctx, *eventID); err != nil {
			return nil, err
		}
	}
	return s.ticketRepo.Stats(ctx, eventID)
}
