package renewal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/azydesilva/Ecorporate-sub004/internal/blob"
	"github.com/azydesilva/Ecorporate-sub004/internal/events"
	"github.com/azydesilva/Ecorporate-sub004/internal/messaging/kafka"
	"github.com/azydesilva/Ecorporate-sub004/internal/registration"
	registrationerrors "github.com/azydesilva/Ecorporate-sub004/internal/registration/errors"
	renewalerrors "github.com/azydesilva/Ecorporate-sub004/internal/renewal/errors"
	"github.com/azydesilva/Ecorporate-sub004/internal/shared/apperror"
	"github.com/azydesilva/Ecorporate-sub004/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=renewal_service.go -destination=mock/renewal_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, actorID, registrationID string, req CreateRenewalRequest) (RenewalPaymentResponse, error)
	Approve(ctx context.Context, approverID, id string, req ApproveRenewalRequest) (RenewalPaymentResponse, error)
	Reject(ctx context.Context, rejectorID, id string) (RenewalPaymentResponse, error)
	ListByRegistration(ctx context.Context, registrationID string) ([]RenewalPaymentResponse, error)
	SweepExpired(ctx context.Context) (int64, error)
}

type service struct {
	db      *sql.DB
	repo    Repository
	regRepo registration.Repository
	mirror  *registration.Mirror
	outbox  kafka.OutboxRepository
	bus     *events.Bus
	blobs   blob.Store
	logger  *zap.Logger
}

func NewService(db *sql.DB, repo Repository, regRepo registration.Repository, logger ...*zap.Logger) Service {
	return NewServiceWithDeps(db, repo, regRepo, nil, nil, nil, nil, logger...)
}

func NewServiceWithDeps(
	db *sql.DB,
	repo Repository,
	regRepo registration.Repository,
	mirror *registration.Mirror,
	outboxRepo kafka.OutboxRepository,
	bus *events.Bus,
	blobs blob.Store,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("renewal.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("renewal.service")
	}
	return &service{
		db:      db,
		repo:    repo,
		regRepo: regRepo,
		mirror:  mirror,
		outbox:  outboxRepo,
		bus:     bus,
		blobs:   blobs,
		logger:  l,
	}
}

func mapStoreError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Wrap(err, apperror.CodeTransient,
		apperror.ErrStoreUnavailable.Message, http.StatusServiceUnavailable)
}

// isDuplicatePending reports whether err is the partial unique index on
// pending payments firing: another submission won the race between the
// pre-check and the insert.
func isDuplicatePending(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate key value")
}

// Create registers a renewal attempt for an expired registration. Allowed
// only while no other attempt is pending: the pre-check inside the tx
// answers the common case and the partial unique index rejects the insert
// when a concurrent submission slips past it.
func (s *service) Create(
	ctx context.Context,
	actorID, registrationID string,
	req CreateRenewalRequest,
) (RenewalPaymentResponse, error) {
	s.logger.Debug("create renewal requested",
		zap.String("registration_id", registrationID),
		zap.String("actor_id", actorID),
	)

	regUUID, err := uuid.Parse(registrationID)
	if err != nil {
		return RenewalPaymentResponse{}, renewalerrors.ErrInvalidRegistrationID
	}
	if _, err := uuid.Parse(actorID); err != nil {
		return RenewalPaymentResponse{}, renewalerrors.ErrInvalidActorID
	}
	if req.Amount <= 0 {
		return RenewalPaymentResponse{}, renewalerrors.ErrInvalidAmount
	}
	if req.ReceiptRef == "" {
		return RenewalPaymentResponse{}, renewalerrors.ErrReceiptRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create renewal begin tx failed", zap.Error(err))
		return RenewalPaymentResponse{}, mapStoreError(err)
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	regTx := s.regRepo.WithTx(tx)

	reg, err := regTx.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RenewalPaymentResponse{}, registrationerrors.ErrRegistrationNotFound
		}
		return RenewalPaymentResponse{}, mapStoreError(err)
	}

	if !registration.Expired(reg, time.Now().UTC()) {
		return RenewalPaymentResponse{}, renewalerrors.ErrNotExpired
	}

	pending, err := qtx.HasPending(ctx, registrationID)
	if err != nil {
		s.logger.Error("create renewal pending check failed", zap.Error(err))
		return RenewalPaymentResponse{}, mapStoreError(err)
	}
	if pending {
		return RenewalPaymentResponse{}, renewalerrors.ErrRenewalAlreadyPending
	}

	var superseded *RenewalPayment
	if prior, err := qtx.FindLatestRejected(ctx, registrationID); err == nil {
		superseded = prior
	}

	p := &RenewalPayment{
		ID:             uuid.New(),
		RegistrationID: regUUID,
		Status:         StatusPending,
		Amount:         req.Amount,
		ReceiptRef:     req.ReceiptRef,
	}

	if err := qtx.Create(ctx, p); err != nil {
		if isDuplicatePending(err) {
			return RenewalPaymentResponse{}, renewalerrors.ErrRenewalAlreadyPending
		}
		s.logger.Error("create renewal persist failed", zap.Error(err))
		return RenewalPaymentResponse{}, mapStoreError(err)
	}

	if err := s.queueLifecycleEvent(ctx, tx, reg, actorID, "renewal_submitted"); err != nil {
		return RenewalPaymentResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create renewal commit failed", zap.Error(err))
		return RenewalPaymentResponse{}, mapStoreError(err)
	}

	if s.bus != nil {
		s.bus.Publish(events.KindRenewalSubmitted, events.Event{
			RegistrationID: registrationID,
		})
	}

	// The old rejected receipt is superseded by the new upload.
	if superseded != nil {
		blob.CleanupReceipt(ctx, s.blobs, superseded.ReceiptRef, s.logger)
	}

	s.logger.Info("create renewal success",
		zap.String("renewal_id", p.ID.String()),
		zap.String("registration_id", registrationID),
	)

	return mapToResponse(*p), nil
}

// Approve processes a staff approval: terminal state on the payment, fresh
// paid period on the registration, period counter advanced by one. Both rows
// and the outbox entry commit together; the bus hint goes out only after.
func (s *service) Approve(
	ctx context.Context,
	approverID, id string,
	req ApproveRenewalRequest,
) (RenewalPaymentResponse, error) {
	s.logger.Debug("approve renewal requested",
		zap.String("renewal_id", id),
		zap.String("approver_id", approverID),
	)

	approverUUID, err := uuid.Parse(approverID)
	if err != nil {
		return RenewalPaymentResponse{}, renewalerrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(id); err != nil {
		return RenewalPaymentResponse{}, renewalerrors.ErrInvalidPaymentID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("approve renewal begin tx failed", zap.Error(err))
		return RenewalPaymentResponse{}, mapStoreError(err)
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	regTx := s.regRepo.WithTx(tx)

	p, err := qtx.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RenewalPaymentResponse{}, renewalerrors.ErrPaymentNotFound
		}
		return RenewalPaymentResponse{}, mapStoreError(err)
	}
	if p.Status != StatusPending {
		return RenewalPaymentResponse{}, renewalerrors.ErrPaymentNotPending
	}

	now := time.Now().UTC()
	p.Status = StatusApproved
	p.ApprovedBy = &approverUUID
	p.ApprovedAt = &now

	reg, err := regTx.FindByID(ctx, p.RegistrationID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RenewalPaymentResponse{}, registrationerrors.ErrRegistrationNotFound
		}
		return RenewalPaymentResponse{}, mapStoreError(err)
	}

	if req.ExtensionDays != nil && *req.ExtensionDays > 0 {
		days := *req.ExtensionDays
		expireAt := now.AddDate(0, 0, days)

		// A late renewal starts a fresh full-length period from the approval
		// moment; the lapsed gap is not deducted.
		start := now
		reg.RegisterStartDate = &start
		reg.ExpireDate = &expireAt
		reg.ExpireDays = days
		reg.IsExpired = false
	}

	// Absent or never-renewed counts as zero, so the first renewal lands on 1.
	reg.SecretaryPeriodYear++

	if err := qtx.Update(ctx, p); err != nil {
		s.logger.Error("approve renewal persist payment failed", zap.Error(err))
		return RenewalPaymentResponse{}, mapStoreError(err)
	}
	if err := regTx.Save(ctx, reg); err != nil {
		s.logger.Error("approve renewal persist registration failed", zap.Error(err))
		return RenewalPaymentResponse{}, mapStoreError(err)
	}

	if err := s.queueLifecycleEvent(ctx, tx, reg, approverID, "renewal_approved"); err != nil {
		return RenewalPaymentResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("approve renewal commit failed", zap.Error(err))
		return RenewalPaymentResponse{}, mapStoreError(err)
	}

	s.mirror.Refresh(ctx, reg)
	if s.bus != nil {
		e := events.Event{RegistrationID: reg.ID.String()}
		s.bus.Publish(events.KindRegistrationUpdated, e)
		s.bus.Publish(events.KindAdminActionCompleted, e)
	}

	s.logger.Info("approve renewal success",
		zap.String("renewal_id", id),
		zap.String("registration_id", reg.ID.String()),
		zap.Int("secretary_period_year", reg.SecretaryPeriodYear),
	)

	return mapToResponse(*p), nil
}

// Reject closes a pending payment without touching the registration's expiry
// fields; the customer may submit a fresh attempt afterwards.
func (s *service) Reject(
	ctx context.Context,
	rejectorID, id string,
) (RenewalPaymentResponse, error) {
	s.logger.Debug("reject renewal requested",
		zap.String("renewal_id", id),
		zap.String("rejector_id", rejectorID),
	)

	rejectorUUID, err := uuid.Parse(rejectorID)
	if err != nil {
		return RenewalPaymentResponse{}, renewalerrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(id); err != nil {
		return RenewalPaymentResponse{}, renewalerrors.ErrInvalidPaymentID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RenewalPaymentResponse{}, mapStoreError(err)
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	p, err := qtx.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RenewalPaymentResponse{}, renewalerrors.ErrPaymentNotFound
		}
		return RenewalPaymentResponse{}, mapStoreError(err)
	}
	if p.Status != StatusPending {
		return RenewalPaymentResponse{}, renewalerrors.ErrPaymentNotPending
	}

	now := time.Now().UTC()
	p.Status = StatusRejected
	p.RejectedBy = &rejectorUUID
	p.RejectedAt = &now

	if err := qtx.Update(ctx, p); err != nil {
		s.logger.Error("reject renewal persist failed", zap.Error(err))
		return RenewalPaymentResponse{}, mapStoreError(err)
	}

	if err := tx.Commit(); err != nil {
		return RenewalPaymentResponse{}, mapStoreError(err)
	}

	if s.bus != nil {
		s.bus.Publish(events.KindAdminActionCompleted, events.Event{
			RegistrationID: p.RegistrationID.String(),
		})
	}

	s.logger.Info("reject renewal success", zap.String("renewal_id", id))
	return mapToResponse(*p), nil
}

func (s *service) ListByRegistration(ctx context.Context, registrationID string) ([]RenewalPaymentResponse, error) {
	if _, err := uuid.Parse(registrationID); err != nil {
		return nil, renewalerrors.ErrInvalidRegistrationID
	}

	payments, err := s.repo.FindAllByRegistration(ctx, registrationID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return mapToListResponse(payments), nil
}

// SweepExpired flips the stored expiry flag everywhere the paid period is
// over. Purely an optimization: read paths recompute expiry themselves.
func (s *service) SweepExpired(ctx context.Context) (int64, error) {
	updated, err := s.repo.MarkExpiredRegistrations(ctx)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
		return 0, mapStoreError(err)
	}

	if updated > 0 {
		s.logger.Info("expiry sweep updated registrations", zap.Int64("updated", updated))
	}
	return updated, nil
}

func (s *service) queueLifecycleEvent(
	ctx context.Context,
	tx *sql.Tx,
	reg *registration.Registration,
	actorID, eventType string,
) error {
	if s.outbox == nil {
		return nil
	}

	event := events.RegistrationLifecycleEvent{
		EventType:      eventType,
		RequestID:      contextutil.GetRequestID(ctx),
		RegistrationID: reg.ID.String(),
		Stage:          reg.CurrentStage,
		Status:         reg.Status,
		ActorID:        actorID,
		OccurredAt:     time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     event.RequestID,
		AggregateType: "registration",
		AggregateID:   reg.ID.String(),
		EventType:     eventType,
		Topic:         events.RegistrationLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}); err != nil {
		s.logger.Error("queue lifecycle event failed",
			zap.String("registration_id", reg.ID.String()),
			zap.Error(err),
		)
		return mapStoreError(err)
	}
	return nil
}
