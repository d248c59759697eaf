package registration

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/azydesilva/Ecorporate-sub004/internal/events"
	"github.com/azydesilva/Ecorporate-sub004/internal/messaging/kafka"
	registrationerrors "github.com/azydesilva/Ecorporate-sub004/internal/registration/errors"
	"github.com/azydesilva/Ecorporate-sub004/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

//go:generate mockgen -source=registration_service.go -destination=mock/registration_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, actorID string, req CreateRegistrationRequest) (RegistrationResponse, error)
	Get(ctx context.Context, id string) (RegistrationResponse, bool, error)
	List(ctx context.Context, f ListFilter) ([]RegistrationResponse, error)
	SubmitStage(ctx context.Context, actorID, id, stage string, req SubmitStageRequest) (RegistrationResponse, error)
	Replace(ctx context.Context, actorID, id string, req ReplaceRegistrationRequest) (RegistrationResponse, error)
	StaffAction(ctx context.Context, actorID, id, action string) (RegistrationResponse, error)
	BeginUpdate(ctx context.Context, actorID, id string) (RegistrationResponse, error)
	Cancel(ctx context.Context, actorID, id string) error
	SetPinned(ctx context.Context, actorID, id string, pinned bool) (RegistrationResponse, error)
	SetNoted(ctx context.Context, actorID, id string, noted bool) (RegistrationResponse, error)
	ContentAccess(ctx context.Context, id, stage string) (ContentAccessResponse, error)
}

type service struct {
	db     *sql.DB
	repo   Repository
	mirror *Mirror
	outbox kafka.OutboxRepository
	bus    *events.Bus
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, logger ...*zap.Logger) Service {
	return NewServiceWithDeps(db, repo, nil, nil, nil, logger...)
}

func NewServiceWithDeps(
	db *sql.DB,
	repo Repository,
	mirror *Mirror,
	outboxRepo kafka.OutboxRepository,
	bus *events.Bus,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("registration.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("registration.service")
	}
	return &service{
		db:     db,
		repo:   repo,
		mirror: mirror,
		outbox: outboxRepo,
		bus:    bus,
		sf:     &singleflight.Group{},
		logger: l,
	}
}

func (s *service) Create(
	ctx context.Context,
	actorID string,
	req CreateRegistrationRequest,
) (RegistrationResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("create registration requested",
		zap.String("request_id", rid),
		zap.String("actor_id", actorID),
	)

	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return RegistrationResponse{}, registrationerrors.ErrInvalidActorID
	}

	payload, err := MergePayload(nil, req.Payload)
	if err != nil {
		return RegistrationResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create registration begin tx failed", zap.Error(err))
		return RegistrationResponse{}, mapRepositoryError(err)
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	reg := &Registration{
		ID:           uuid.New(),
		CurrentStage: StageContactDetails,
		Status:       StatusPaymentProcessing,
		Payload:      payload,
		CreatedBy:    actorUUID,
	}

	if err := qtx.Create(ctx, reg); err != nil {
		s.logger.Error("create registration persist failed", zap.Error(err))
		return RegistrationResponse{}, mapRepositoryError(err)
	}

	if err := s.queueLifecycleEvent(ctx, tx, reg, actorID, "registration_created"); err != nil {
		return RegistrationResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create registration commit failed", zap.Error(err))
		return RegistrationResponse{}, mapRepositoryError(err)
	}

	s.afterCommit(ctx, reg, false)
	s.logger.Info("create registration success",
		zap.String("request_id", rid),
		zap.String("registration_id", reg.ID.String()),
	)

	return mapToResponse(*reg, time.Now().UTC()), nil
}

// Get serves the primary store first and only falls back to the redis mirror
// when the store is unreachable. The second return value is the stale flag: a
// mirror read is never passed off as fresh.
func (s *service) Get(ctx context.Context, id string) (RegistrationResponse, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return RegistrationResponse{}, false, registrationerrors.ErrInvalidRegistrationID
	}

	v, err, _ := s.sf.Do("get:"+id, func() (interface{}, error) {
		reg, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, mapRepositoryError(err)
		}
		s.mirror.Refresh(ctx, reg)
		return reg, nil
	})
	if err != nil {
		if IsTransient(err) {
			if cached := s.mirror.Get(ctx, id); cached != nil {
				s.logger.Warn("serving stale registration from mirror",
					zap.String("registration_id", id),
				)
				return mapToResponse(*cached, time.Now().UTC()), true, nil
			}
		}
		return RegistrationResponse{}, false, err
	}

	reg := v.(*Registration)
	return mapToResponse(*reg, time.Now().UTC()), false, nil
}

func (s *service) List(ctx context.Context, f ListFilter) ([]RegistrationResponse, error) {
	regs, err := s.repo.FindAll(ctx, f)
	if err != nil {
		s.logger.Error("list registrations failed", zap.Error(err))
		return nil, mapRepositoryError(err)
	}
	return mapToListResponse(regs, time.Now().UTC()), nil
}

func (s *service) SubmitStage(
	ctx context.Context,
	actorID, id, stage string,
	req SubmitStageRequest,
) (RegistrationResponse, error) {
	s.logger.Debug("submit stage requested",
		zap.String("registration_id", id),
		zap.String("actor_id", actorID),
		zap.String("stage", stage),
	)

	return s.mutate(ctx, actorID, id, "stage_submitted", false, func(r *Registration) error {
		if Expired(r, time.Now().UTC()) {
			return registrationerrors.ErrRenewalRequired
		}
		return ApplySubmission(r, stage, req.Payload)
	})
}

// Replace is the whole-record put. Unknown stage or status values fall open to
// the earliest safe state, the stored stage never regresses, and the opaque
// payload is carried through untouched. Last write wins; there is no version
// check (known limitation, see repository.Save).
func (s *service) Replace(
	ctx context.Context,
	actorID, id string,
	req ReplaceRegistrationRequest,
) (RegistrationResponse, error) {
	if req.ID != id {
		return RegistrationResponse{}, registrationerrors.ErrIDMismatch
	}
	regUUID, err := uuid.Parse(id)
	if err != nil {
		return RegistrationResponse{}, registrationerrors.ErrInvalidRegistrationID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RegistrationResponse{}, mapRepositoryError(err)
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	stage := NormalizeStage(req.CurrentStage)
	status := NormalizeStatus(req.Status)

	reg := &Registration{
		ID:           regUUID,
		CurrentStage: stage,
		Status:       status,

		PaymentApproved:        req.PaymentApproved,
		DetailsApproved:        req.DetailsApproved,
		CompanyDetailsRejected: req.CompanyDetailsRejected,
		CompanyDetailsLocked:   req.CompanyDetailsLocked,
		DocumentsApproved:      req.DocumentsApproved,
		DocumentsPublished:     req.DocumentsPublished,
		DocumentsAcknowledged:  req.DocumentsAcknowledged,
		ErocRegistered:         req.ErocRegistered,
		BalancePaymentApproved: req.BalancePaymentApproved,
		RegistrationCompleted:  req.RegistrationCompleted,
		IsUpdating:             req.IsUpdating,

		RegisterStartDate:       req.RegisterStartDate,
		ExpireDays:              req.ExpireDays,
		ExpireDate:              req.ExpireDate,
		IsExpired:               req.IsExpired,
		SecretaryPeriodYear:     req.SecretaryPeriodYear,
		Pinned:                  req.Pinned,
		Noted:                   req.Noted,
		SecretaryRecordsNotedAt: req.SecretaryRecordsNotedAt,

		Payload: req.Payload,
	}

	existing, err := qtx.FindByID(ctx, id)
	switch mapped := mapRepositoryError(err); {
	case err == nil:
		if StageIndex(existing.CurrentStage) > StageIndex(stage) {
			reg.CurrentStage = existing.CurrentStage
		}
		reg.CreatedBy = existing.CreatedBy
		reg.CreatedAt = existing.CreatedAt
	case mapped == registrationerrors.ErrRegistrationNotFound:
		// Replace of an unknown id creates the record, key-value style.
		actorUUID, aerr := uuid.Parse(actorID)
		if aerr != nil {
			return RegistrationResponse{}, registrationerrors.ErrInvalidActorID
		}
		reg.CreatedBy = actorUUID
	default:
		return RegistrationResponse{}, mapped
	}

	if err := qtx.Save(ctx, reg); err != nil {
		s.logger.Error("replace registration persist failed",
			zap.String("registration_id", id),
			zap.Error(err),
		)
		return RegistrationResponse{}, mapRepositoryError(err)
	}

	if err := s.queueLifecycleEvent(ctx, tx, reg, actorID, "registration_replaced"); err != nil {
		return RegistrationResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return RegistrationResponse{}, mapRepositoryError(err)
	}

	s.afterCommit(ctx, reg, true)
	return mapToResponse(*reg, time.Now().UTC()), nil
}

func (s *service) StaffAction(
	ctx context.Context,
	actorID, id, action string,
) (RegistrationResponse, error) {
	s.logger.Debug("staff action requested",
		zap.String("registration_id", id),
		zap.String("actor_id", actorID),
		zap.String("action", action),
	)

	return s.mutate(ctx, actorID, id, action, true, func(r *Registration) error {
		return ApplyStaffAction(r, action)
	})
}

func (s *service) BeginUpdate(
	ctx context.Context,
	actorID, id string,
) (RegistrationResponse, error) {
	return s.mutate(ctx, actorID, id, "update_information_started", false, func(r *Registration) error {
		if Expired(r, time.Now().UTC()) {
			return registrationerrors.ErrRenewalRequired
		}
		if r.IsUpdating {
			return nil
		}
		if !CanBeginUpdate(r) {
			return registrationerrors.ErrUpdateNotAllowed
		}
		r.IsUpdating = true
		return nil
	})
}

// Cancel removes a rejected registration from the active list. The record is
// soft deleted, not destroyed; hard deletion stays an administrative action
// outside the workflow.
func (s *service) Cancel(ctx context.Context, actorID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return registrationerrors.ErrInvalidRegistrationID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapRepositoryError(err)
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	reg, err := qtx.FindByID(ctx, id)
	if err != nil {
		return mapRepositoryError(err)
	}

	if NormalizeStatus(reg.Status) != StatusPaymentRejected && !reg.CompanyDetailsRejected {
		return registrationerrors.ErrCancelNotAllowed
	}

	if err := qtx.SoftDelete(ctx, id); err != nil {
		s.logger.Error("cancel registration persist failed",
			zap.String("registration_id", id),
			zap.Error(err),
		)
		return mapRepositoryError(err)
	}

	if err := s.queueLifecycleEvent(ctx, tx, reg, actorID, "registration_cancelled"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapRepositoryError(err)
	}

	s.mirror.Invalidate(ctx, id)
	if s.bus != nil {
		s.bus.Publish(events.KindRegistrationUpdated, events.Event{
			RegistrationID: id,
			Extra:          map[string]any{"cancelled": true},
		})
	}

	s.logger.Info("cancel registration success", zap.String("registration_id", id))
	return nil
}

func (s *service) SetPinned(
	ctx context.Context,
	actorID, id string,
	pinned bool,
) (RegistrationResponse, error) {
	return s.mutate(ctx, actorID, id, "annotation_updated", true, func(r *Registration) error {
		r.Pinned = pinned
		return nil
	})
}

func (s *service) SetNoted(
	ctx context.Context,
	actorID, id string,
	noted bool,
) (RegistrationResponse, error) {
	return s.mutate(ctx, actorID, id, "annotation_updated", true, func(r *Registration) error {
		r.Noted = noted
		if noted {
			now := time.Now().UTC()
			r.SecretaryRecordsNotedAt = &now
		} else {
			r.SecretaryRecordsNotedAt = nil
		}
		return nil
	})
}

// ContentAccess is the gate check every collaborator runs before showing a
// stage's content. Expiry is evaluated first: an expired registration gets a
// renewal prompt no matter which stage was asked for.
func (s *service) ContentAccess(ctx context.Context, id, stage string) (ContentAccessResponse, error) {
	if StageIndex(stage) < 0 {
		return ContentAccessResponse{}, registrationerrors.ErrUnknownStage
	}

	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ContentAccessResponse{}, mapRepositoryError(err)
	}

	status := NormalizeStatus(reg.Status)
	if Expired(reg, time.Now().UTC()) {
		return ContentAccessResponse{
			Stage:   stage,
			Granted: false,
			Reason:  "renewal-required",
			Status:  status,
		}, nil
	}

	if !StageUnlocked(reg, stage) {
		// Stage reached but still gated: the caller shows the processing
		// view derived for that stage, not the content.
		return ContentAccessResponse{
			Stage:   stage,
			Granted: false,
			Reason:  DeriveStatus(stage, reg),
			Status:  status,
		}, nil
	}

	return ContentAccessResponse{Stage: stage, Granted: true, Status: status}, nil
}

// mutate runs one logical mutation with the required ordering: load, apply,
// persist together with the outbox row, commit, and only then refresh the
// mirror and publish on the bus. A failed persistence aborts everything and
// publishes nothing.
func (s *service) mutate(
	ctx context.Context,
	actorID, id, eventType string,
	adminAction bool,
	apply func(r *Registration) error,
) (RegistrationResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return RegistrationResponse{}, registrationerrors.ErrInvalidRegistrationID
	}
	if _, err := uuid.Parse(actorID); err != nil {
		return RegistrationResponse{}, registrationerrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("mutation begin tx failed", zap.Error(err))
		return RegistrationResponse{}, mapRepositoryError(err)
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	reg, err := qtx.FindByID(ctx, id)
	if err != nil {
		return RegistrationResponse{}, mapRepositoryError(err)
	}

	if err := apply(reg); err != nil {
		s.logger.Warn("mutation rejected",
			zap.String("registration_id", id),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return RegistrationResponse{}, err
	}

	if err := qtx.Save(ctx, reg); err != nil {
		s.logger.Error("mutation persist failed",
			zap.String("registration_id", id),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return RegistrationResponse{}, mapRepositoryError(err)
	}

	if err := s.queueLifecycleEvent(ctx, tx, reg, actorID, eventType); err != nil {
		return RegistrationResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("mutation commit failed",
			zap.String("registration_id", id),
			zap.Error(err),
		)
		return RegistrationResponse{}, mapRepositoryError(err)
	}

	s.afterCommit(ctx, reg, adminAction)
	s.logger.Info("mutation success",
		zap.String("registration_id", id),
		zap.String("event_type", eventType),
		zap.String("stage", reg.CurrentStage),
		zap.String("status", reg.Status),
	)

	return mapToResponse(*reg, time.Now().UTC()), nil
}

func (s *service) queueLifecycleEvent(
	ctx context.Context,
	tx *sql.Tx,
	reg *Registration,
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
		s.logger.Error("marshal lifecycle event failed", zap.Error(err))
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
		return mapRepositoryError(err)
	}
	return nil
}

// afterCommit runs the post-persistence side effects: mirror refresh and the
// fire-and-forget bus hint. Listeners re-read the store; the event never
// carries the new state.
func (s *service) afterCommit(ctx context.Context, reg *Registration, adminAction bool) {
	s.mirror.Refresh(ctx, reg)

	if s.bus == nil {
		return
	}
	e := events.Event{RegistrationID: reg.ID.String()}
	s.bus.Publish(events.KindRegistrationUpdated, e)
	if adminAction {
		s.bus.Publish(events.KindAdminActionCompleted, e)
	}
}
