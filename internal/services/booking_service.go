package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/homenest/booking-backend/internal/apperrors"
	"github.com/homenest/booking-backend/internal/cache"
	"github.com/homenest/booking-backend/internal/database"
	"github.com/homenest/booking-backend/internal/events"
	"github.com/homenest/booking-backend/internal/models"
)

// BookingService owns the booking state machine:
// pending -> confirmed -> completed, with cancellation allowed from
// pending and confirmed, and reschedule as a date-only mutation. Every
// transition goes through a repository compare-and-set, so concurrent
// competing mutations resolve to exactly one winner.
type BookingService struct {
	bookingRepo *database.BookingRepository
	agentRepo   *database.AgentRepository
	agentCache  *cache.AgentCache // nil disables caching
	publisher   events.Publisher
	minLeadTime time.Duration
	logger      *logrus.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookingRepo *database.BookingRepository,
	agentRepo *database.AgentRepository,
	agentCache *cache.AgentCache,
	publisher events.Publisher,
	minLeadTime time.Duration,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		agentRepo:   agentRepo,
		agentCache:  agentCache,
		publisher:   publisher,
		minLeadTime: minLeadTime,
		logger:      logger,
	}
}

// AssignAgent performs the pending -> confirmed transition. The agent
// must be available and cover at least one of the booking's service
// categories. Under concurrent callers exactly one succeeds; the others
// receive ErrConflict from the compare-and-set.
func (s *BookingService) AssignAgent(ctx context.Context, bookingID, agentID string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusPending {
		return nil, apperrors.ErrConflict
	}

	agent, err := s.agentRepo.GetByID(agentID)
	if err != nil {
		return nil, err
	}
	if !agent.Availability {
		return nil, apperrors.ErrConflict
	}
	if !agent.Serves(booking.ServiceCategories()) {
		return nil, apperrors.NewValidation("agent %s does not serve the booked categories", agentID)
	}

	if err := s.bookingRepo.ConfirmWithAgent(bookingID, agentID); err != nil {
		return nil, err
	}

	booking, err = s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"agent_id":   agentID,
	}).Info("Booking confirmed")

	s.invalidateAgentCache(ctx)
	publishBookingEvent(s.publisher, events.QueueBookingConfirmed, booking)
	return booking, nil
}

// CancelBooking performs the pending|confirmed -> cancelled transition.
// A non-nil userID restricts the operation to the booking's owner
// (customer surface); admins pass nil.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID string, reason *string, userID *string) (*models.Booking, error) {
	if userID != nil {
		if _, err := s.ownedBooking(bookingID, *userID); err != nil {
			return nil, err
		}
	}

	if err := s.bookingRepo.Cancel(bookingID, reason); err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("booking_id", bookingID).Info("Booking cancelled")

	publishBookingEvent(s.publisher, events.QueueBookingCancelled, booking)
	return booking, nil
}

// CompleteBooking performs the confirmed -> completed transition and
// credits the assigned agent's completed counter
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	if err := s.bookingRepo.Complete(bookingID); err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("booking_id", bookingID).Info("Booking completed")

	s.invalidateAgentCache(ctx)
	publishBookingEvent(s.publisher, events.QueueBookingCompleted, booking)
	return booking, nil
}

// RescheduleBooking moves the booking to a new date. The new date must
// respect the minimum lead time, and the booking must still be mutable.
// Resubmitting the current date is a no-op, not an error.
func (s *BookingService) RescheduleBooking(ctx context.Context, bookingID string, newDate time.Time, userID *string) (*models.Booking, error) {
	if err := validateLeadTime(newDate, s.minLeadTime); err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if userID != nil && booking.UserID != *userID {
		return nil, apperrors.ErrNotFound
	}
	if booking.ScheduledDate.Equal(newDate) {
		return booking, nil
	}
	if booking.IsTerminal() {
		return nil, apperrors.ErrConflict
	}

	if err := s.bookingRepo.Reschedule(bookingID, newDate); err != nil {
		return nil, err
	}

	booking, err = s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":     bookingID,
		"scheduled_date": newDate,
	}).Info("Booking rescheduled")

	return booking, nil
}

// GetBooking retrieves a booking. A non-nil userID restricts the read to
// the booking's owner.
func (s *BookingService) GetBooking(bookingID string, userID *string) (*models.Booking, error) {
	if userID != nil {
		return s.ownedBooking(bookingID, *userID)
	}
	return s.bookingRepo.GetByID(bookingID)
}

// MyBookings lists a customer's bookings, optionally filtered by status
func (s *BookingService) MyBookings(userID string, status *models.BookingStatus) ([]models.Booking, error) {
	return s.bookingRepo.GetByUserID(userID, status)
}

// ListPendingBookings lists all pending bookings for the admin queue
func (s *BookingService) ListPendingBookings() ([]models.Booking, error) {
	return s.bookingRepo.ListByStatus(models.BookingStatusPending)
}

// ListAvailableAgents lists available agents overlapping the given
// categories, served from the Redis cache when fresh
func (s *BookingService) ListAvailableAgents(ctx context.Context, categories []string) ([]models.Agent, error) {
	if s.agentCache != nil {
		if agents := s.agentCache.Get(ctx, categories); agents != nil {
			return agents, nil
		}
	}

	agents, err := s.agentRepo.ListAvailable(categories)
	if err != nil {
		return nil, err
	}

	if s.agentCache != nil {
		s.agentCache.Set(ctx, categories, agents)
	}
	return agents, nil
}

// ownedBooking fetches a booking and hides it from non-owners
func (s *BookingService) ownedBooking(bookingID, userID string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return booking, nil
}

func (s *BookingService) invalidateAgentCache(ctx context.Context) {
	if s.agentCache != nil {
		s.agentCache.Invalidate(ctx)
	}
}

// validateLeadTime enforces the minimum gap between now and a booking's
// scheduled date
func validateLeadTime(scheduled time.Time, minLead time.Duration) error {
	if !scheduled.After(time.Now().Add(minLead)) {
		return apperrors.NewValidation("scheduled date must be more than %s from now", minLead)
	}
	return nil
}

// publishBookingEvent publishes a lifecycle event from a goroutine.
// Publication is fire-and-forget: a notifier outage never rolls back or
// fails the committed transition.
func publishBookingEvent(publisher events.Publisher, queue string, booking *models.Booking) {
	event := events.BookingEvent{
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		Status:     string(booking.Status),
		AgentID:    booking.AgentID,
		OccurredAt: time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = publisher.Publish(ctx, queue, event)
	}()
}
