package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"sore/internal/dispute"
	"sore/internal/kol"
	"sore/internal/ledger"
	"sore/internal/logger"
	"sore/internal/metrics"
	"sore/internal/notification"
	"sore/internal/user"
)

const (
	settleMaxRetries = 3
	sweepBatchSize   = 100

	// orphanHoldAge is how old a hold without a booking row must be
	// before the sweep refunds it. Old enough that no in-flight create
	// can still commit the booking.
	orphanHoldAge = time.Hour
)

// errNotDue marks a sweep candidate that no longer qualifies once its row
// lock is held. The sweep counts it as a no-op, not a failure.
var errNotDue = errors.New("booking not due for auto-resolution")

type Service interface {
	CreateBooking(ctx context.Context, buyerID int, req CreateBookingRequest) (*Booking, error)
	UpdateStatus(ctx context.Context, bookingID, actorID int, req UpdateStatusRequest) (*Booking, error)
	GetBooking(ctx context.Context, id int) (*Booking, error)
	ListForBuyer(ctx context.Context, buyerID int) ([]Booking, error)
	ListForKOL(ctx context.Context, kolID, actorID int, actorRole string, status *Status) ([]Booking, error)
	ReportDispute(ctx context.Context, bookingID, actorID int, reason string) (*dispute.Dispute, error)
	ResolveDispute(ctx context.Context, disputeID, adminID int, req dispute.ResolveRequest) (*Booking, error)
	ListOpenDisputes(ctx context.Context) ([]dispute.Dispute, error)
	SweepExpirations(ctx context.Context, now time.Time) (*SweepResult, error)
	Analytics(ctx context.Context, since time.Time) (*Stats, error)
}

type service struct {
	repo     Repository
	kolRepo  kol.Repository
	userRepo user.Repository
	disputes dispute.Repository
	escrow   ledger.Adapter
	notify   notification.Publisher

	feePercent       int64
	acceptanceWindow time.Duration
}

func NewService(
	repo Repository,
	kolRepo kol.Repository,
	userRepo user.Repository,
	disputes dispute.Repository,
	escrow ledger.Adapter,
	notify notification.Publisher,
	feePercent int64,
	acceptanceWindow time.Duration,
) Service {
	return &service{
		repo:             repo,
		kolRepo:          kolRepo,
		userRepo:         userRepo,
		disputes:         disputes,
		escrow:           escrow,
		notify:           notify,
		feePercent:       feePercent,
		acceptanceWindow: acceptanceWindow,
	}
}

func (s *service) CreateBooking(ctx context.Context, buyerID int, req CreateBookingRequest) (*Booking, error) {
	k, err := s.kolRepo.GetByID(ctx, req.KOLID)
	if err != nil {
		return nil, err
	}

	if !k.IsAvailable {
		return nil, validationErrorf("kol is not accepting bookings")
	}
	if k.UserID == buyerID {
		return nil, validationErrorf("cannot book your own consultation slot")
	}
	if !req.FromTime.After(time.Now()) {
		return nil, validationErrorf("from_time must be in the future")
	}

	slots, err := ValidateWindow(req.FromTime, req.ToTime, k.MinBookingDuration, k.MaxBookingDuration)
	if err != nil {
		return nil, err
	}

	// Price is captured at creation; later pricing changes do not touch
	// this booking.
	b := &Booking{
		BuyerID:        buyerID,
		KOLID:          k.ID,
		PricePerSlot:   k.PricePerSlotCents,
		TotalSlots:     slots,
		TotalAmount:    k.PricePerSlotCents * int64(slots),
		FromTime:       req.FromTime,
		ToTime:         req.ToTime,
		Reason:         req.Reason,
		Status:         StatusPending,
		SessionEndTime: req.ToTime,
	}

	created, err := s.repo.Create(ctx, b, func(ctx context.Context, b *Booking) error {
		_, err := s.settle(ctx, func() (*ledger.Settlement, error) {
			return s.escrow.Lock(ctx, b.ID, buyerID, b.TotalAmount)
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingsCreatedTotal.Inc()
	logger.Info("booking created", "booking_id", created.ID, "buyer_id", buyerID, "kol_id", k.ID, "amount_cents", created.TotalAmount)

	s.notifyUser(ctx, k.UserID, notification.EventBookingRequested, created.ID,
		fmt.Sprintf("You have a new booking request for %s.", created.FromTime.Format("Jan 2, 2006 at 3:04 PM")))

	return created, nil
}

// UpdateStatus drives every caller-initiated transition. The decision,
// the escrow settlement and the status write all happen under the
// booking's row lock; settlement goes first so a crash between the two
// is reconciled by the idempotent ledger on retry.
func (s *service) UpdateStatus(ctx context.Context, bookingID, actorID int, req UpdateStatusRequest) (*Booking, error) {
	if !IsValidStatus(req.Status) {
		metrics.RecordInvalidTransition()
		return nil, ErrInvalidTransition
	}

	// Disputed is entered through the dispute endpoint and left through
	// resolution; Expired only through the sweep.
	if req.Status == StatusDisputed || req.Status == StatusExpired {
		return nil, ErrNotAllowed
	}

	// A rejection always records why; an unexplained refusal is not a
	// valid transition request.
	if req.Status == StatusRejected && req.RejectionReason == "" {
		return nil, validationErrorf("rejection_reason is required to reject a booking")
	}

	var from Status
	updated, err := s.repo.Transition(ctx, bookingID, func(ctx context.Context, b *Booking) (*Change, error) {
		from = b.Status

		if b.Status == StatusDisputed {
			return nil, ErrNotAllowed
		}
		if !CanTransition(b.Status, req.Status) {
			metrics.RecordInvalidTransition()
			return nil, ErrInvalidTransition
		}
		if err := s.authorize(ctx, b, actorID, req.Status); err != nil {
			return nil, err
		}
		if req.Status == StatusCompleted && time.Now().Before(b.SessionEndTime) {
			return nil, ErrSessionNotEnded
		}

		if err := s.applySettlement(ctx, b, req.Status); err != nil {
			return nil, err
		}

		change := &Change{To: req.Status}
		if req.Status == StatusRejected {
			reason := req.RejectionReason
			change.RejectionReason = &reason
		}
		return change, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(string(from), string(req.Status))
	logger.Info("booking transitioned", "booking_id", bookingID, "from", from, "to", req.Status, "actor_id", actorID)

	s.notifyTransition(ctx, updated, actorID)

	return updated, nil
}

// authorize enforces who may request which transition. The KOL accepts
// or rejects a pending booking and only the buyer may cancel it; the
// KOL's refusal path is rejection, which records a reason. Once
// accepted, either side may cancel or confirm completion after the
// session ends.
func (s *service) authorize(ctx context.Context, b *Booking, actorID int, to Status) error {
	isBuyer := b.BuyerID == actorID

	k, err := s.kolRepo.GetByID(ctx, b.KOLID)
	if err != nil {
		return err
	}
	isKOL := k.UserID == actorID

	switch to {
	case StatusAccepted, StatusRejected:
		if !isKOL {
			return ErrNotAllowed
		}
	case StatusCancelled:
		if b.Status == StatusPending {
			if !isBuyer {
				return ErrNotAllowed
			}
		} else if !isBuyer && !isKOL {
			return ErrNotAllowed
		}
	case StatusCompleted:
		if !isBuyer && !isKOL {
			return ErrNotAllowed
		}
	default:
		return ErrNotAllowed
	}

	return nil
}

// applySettlement moves escrowed funds for transitions that settle.
// Refunds go back to the buyer in full; payouts go to the KOL's user
// account minus the platform fee.
func (s *service) applySettlement(ctx context.Context, b *Booking, to Status) error {
	switch EffectOf(b.Status, to) {
	case SettleRefund:
		_, err := s.settle(ctx, func() (*ledger.Settlement, error) {
			return s.escrow.Release(ctx, b.ID, b.BuyerID)
		})
		return err
	case SettlePayout:
		k, err := s.kolRepo.GetByID(ctx, b.KOLID)
		if err != nil {
			return err
		}
		_, err = s.settle(ctx, func() (*ledger.Settlement, error) {
			return s.escrow.Payout(ctx, b.ID, k.UserID, s.feePercent)
		})
		return err
	}
	return nil
}

// settle calls a ledger operation with capped exponential backoff.
// Business refusals are permanent; timeouts surface as ErrLedgerTimeout
// so the caller can retry the whole transition, which the idempotent
// ledger absorbs.
func (s *service) settle(ctx context.Context, op func() (*ledger.Settlement, error)) (*ledger.Settlement, error) {
	var out *ledger.Settlement
	attempt := 0

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), settleMaxRetries), ctx)
	err := backoff.Retry(func() error {
		attempt++
		if attempt > 1 {
			metrics.SettlementRetriesTotal.Inc()
		}

		res, err := op()
		if err == nil {
			out = res
			return nil
		}
		if errors.Is(err, ledger.ErrInsufficientFunds) || errors.Is(err, ledger.ErrNoHold) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)

	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return nil, ErrInsufficientFunds
		case errors.Is(err, context.DeadlineExceeded):
			return nil, ErrLedgerTimeout
		}
		return nil, err
	}

	return out, nil
}

func (s *service) GetBooking(ctx context.Context, id int) (*Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListForBuyer(ctx context.Context, buyerID int) ([]Booking, error) {
	return s.repo.ListByBuyer(ctx, buyerID)
}

func (s *service) ListForKOL(ctx context.Context, kolID, actorID int, actorRole string, status *Status) ([]Booking, error) {
	k, err := s.kolRepo.GetByID(ctx, kolID)
	if err != nil {
		return nil, err
	}
	if k.UserID != actorID && actorRole != "admin" {
		return nil, ErrNotAllowed
	}

	return s.repo.ListByKOL(ctx, kolID, status)
}

// ReportDispute freezes an accepted booking. Funds stay held until an
// admin resolves the dispute one way or the other.
func (s *service) ReportDispute(ctx context.Context, bookingID, actorID int, reason string) (*dispute.Dispute, error) {
	var from Status
	updated, err := s.repo.Transition(ctx, bookingID, func(ctx context.Context, b *Booking) (*Change, error) {
		from = b.Status

		if b.DisputeReported {
			return nil, ErrAlreadyDisputed
		}
		if !CanTransition(b.Status, StatusDisputed) {
			metrics.RecordInvalidTransition()
			return nil, ErrInvalidTransition
		}

		k, err := s.kolRepo.GetByID(ctx, b.KOLID)
		if err != nil {
			return nil, err
		}
		if b.BuyerID != actorID && k.UserID != actorID {
			return nil, ErrNotAllowed
		}

		return &Change{To: StatusDisputed, DisputeReported: true}, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(string(from), string(StatusDisputed))

	d, err := s.disputes.Create(ctx, bookingID, actorID, reason)
	if err != nil {
		// The booking is frozen either way; the missing record only
		// costs the admin the reporter's reason.
		logger.Error("failed to record dispute", "booking_id", bookingID, "error", err)
		return nil, err
	}

	logger.Info("dispute reported", "booking_id", bookingID, "dispute_id", d.ID, "reporter_id", actorID)
	s.notifyTransition(ctx, updated, actorID)

	return d, nil
}

// ResolveDispute applies an admin's outcome to a disputed booking:
// completed pays the KOL, cancelled refunds the buyer.
func (s *service) ResolveDispute(ctx context.Context, disputeID, adminID int, req dispute.ResolveRequest) (*Booking, error) {
	d, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if d.Status != dispute.StatusOpen {
		return nil, dispute.ErrAlreadyResolved
	}

	target := StatusCancelled
	if req.Outcome == dispute.OutcomeCompleted {
		target = StatusCompleted
	}

	updated, err := s.repo.Transition(ctx, d.BookingID, func(ctx context.Context, b *Booking) (*Change, error) {
		if !CanTransition(b.Status, target) {
			metrics.RecordInvalidTransition()
			return nil, ErrInvalidTransition
		}
		if err := s.applySettlement(ctx, b, target); err != nil {
			return nil, err
		}
		return &Change{To: target}, nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.disputes.MarkResolved(ctx, disputeID, req.Outcome, req.Resolution, adminID); err != nil {
		logger.Error("failed to mark dispute resolved", "dispute_id", disputeID, "error", err)
		return nil, err
	}

	metrics.RecordTransition(string(StatusDisputed), string(target))
	logger.Info("dispute resolved", "dispute_id", disputeID, "booking_id", d.BookingID, "outcome", req.Outcome, "admin_id", adminID)

	s.notifyTransition(ctx, updated, adminID)

	return updated, nil
}

func (s *service) ListOpenDisputes(ctx context.Context) ([]dispute.Dispute, error) {
	return s.disputes.ListOpen(ctx)
}

// SweepExpirations resolves overdue bookings: pending past the acceptance
// window expire with a refund, accepted past their session end complete
// with a payout. Each candidate goes through the same locked transition
// path as caller-initiated changes, so a race with a live request is
// settled by whoever gets the lock first.
func (s *service) SweepExpirations(ctx context.Context, now time.Time) (*SweepResult, error) {
	metrics.SweepRunsTotal.Inc()

	ids, err := s.repo.DueForSweep(ctx, now.Add(-s.acceptanceWindow), now, sweepBatchSize)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	for _, id := range ids {
		var outcome Status

		updated, err := s.repo.Transition(ctx, id, func(ctx context.Context, b *Booking) (*Change, error) {
			switch {
			case CanAutoExpire(b, now, s.acceptanceWindow):
				outcome = StatusExpired
			case CanAutoComplete(b, now):
				outcome = StatusCompleted
			default:
				return nil, errNotDue
			}

			if err := s.applySettlement(ctx, b, outcome); err != nil {
				return nil, err
			}
			return &Change{To: outcome}, nil
		})
		if errors.Is(err, errNotDue) || errors.Is(err, ErrBookingNotFound) {
			continue
		}
		if err != nil {
			result.Failed++
			logger.Error("sweep failed to resolve booking", "booking_id", id, "error", err)
			continue
		}

		switch outcome {
		case StatusExpired:
			result.Expired++
		case StatusCompleted:
			result.Completed++
		}
		metrics.RecordTransition(string(invert(outcome)), string(outcome))
		metrics.RecordSweepResolution(string(outcome))
		s.notifyTransition(ctx, updated, 0)
	}

	// A crash between the lock commit and the booking commit leaves a
	// funded hold with no booking. Refund those too; best effort.
	if released, err := s.escrow.ReleaseOrphaned(ctx, now.Add(-orphanHoldAge)); err != nil {
		logger.Error("failed to release orphaned escrow holds", "error", err)
	} else if released > 0 {
		logger.Info("released orphaned escrow holds", "count", released)
	}

	if result.Expired > 0 || result.Completed > 0 || result.Failed > 0 {
		logger.Info("sweep finished", "expired", result.Expired, "completed", result.Completed, "failed", result.Failed)
	}

	return result, nil
}

// invert maps a sweep outcome back to the only status it can come from.
func invert(outcome Status) Status {
	if outcome == StatusExpired {
		return StatusPending
	}
	return StatusAccepted
}

func (s *service) Analytics(ctx context.Context, since time.Time) (*Stats, error) {
	return s.repo.Stats(ctx, since)
}

// notifyTransition emails the parties affected by a status change. Best
// effort: a failed publish is logged, never surfaced to the caller.
func (s *service) notifyTransition(ctx context.Context, b *Booking, actorID int) {
	if s.notify == nil {
		return
	}

	event, detail := transitionEvent(b)
	if event == "" {
		return
	}

	k, err := s.kolRepo.GetByID(ctx, b.KOLID)
	if err != nil {
		logger.Error("failed to load kol for notification", "booking_id", b.ID, "error", err)
		return
	}

	if b.BuyerID != actorID {
		s.notifyUser(ctx, b.BuyerID, event, b.ID, detail)
	}
	if k.UserID != actorID {
		s.notifyUser(ctx, k.UserID, event, b.ID, detail)
	}
}

func transitionEvent(b *Booking) (string, string) {
	switch b.Status {
	case StatusAccepted:
		return notification.EventBookingAccepted, "Your booking was accepted by the KOL."
	case StatusRejected:
		detail := "Your booking was rejected and the escrowed amount was refunded."
		if b.RejectionReason != nil {
			detail = fmt.Sprintf("Your booking was rejected: %s. The escrowed amount was refunded.", *b.RejectionReason)
		}
		return notification.EventBookingRejected, detail
	case StatusCancelled:
		return notification.EventBookingCancelled, "The booking was cancelled and the escrowed amount was refunded to the buyer."
	case StatusCompleted:
		return notification.EventBookingCompleted, "The session was completed and the KOL was paid out."
	case StatusDisputed:
		return notification.EventBookingDisputed, "The booking was disputed. Funds stay in escrow until an admin resolves it."
	case StatusExpired:
		return notification.EventBookingExpired, "The booking expired before the KOL responded and the escrowed amount was refunded."
	}
	return "", ""
}

func (s *service) notifyUser(ctx context.Context, userID int, event string, bookingID int, detail string) {
	if s.notify == nil {
		return
	}

	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		logger.Error("failed to load notification recipient", "user_id", userID, "error", err)
		return
	}

	e := notification.BookingEvent(event, bookingID, u.Email, u.Name, detail)
	if err := s.notify.Publish(ctx, e); err != nil {
		logger.Error("failed to publish notification", "booking_id", bookingID, "event", event, "error", err)
	}
}
