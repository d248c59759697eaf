package renewal_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/azydesilva/Ecorporate-sub004/internal/registration"
	registrationerrors "github.com/azydesilva/Ecorporate-sub004/internal/registration/errors"
	"github.com/azydesilva/Ecorporate-sub004/internal/renewal"
	renewalerrors "github.com/azydesilva/Ecorporate-sub004/internal/renewal/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeRenewalRepository struct {
	withTxFn             func(tx *sql.Tx) renewal.Repository
	createFn             func(ctx context.Context, p *renewal.RenewalPayment) error
	findByIDFn           func(ctx context.Context, id string) (*renewal.RenewalPayment, error)
	findAllFn            func(ctx context.Context, registrationID string) ([]renewal.RenewalPayment, error)
	hasPendingFn         func(ctx context.Context, registrationID string) (bool, error)
	findLatestRejectedFn func(ctx context.Context, registrationID string) (*renewal.RenewalPayment, error)
	updateFn             func(ctx context.Context, p *renewal.RenewalPayment) error
	markExpiredFn        func(ctx context.Context) (int64, error)
}

func (f *fakeRenewalRepository) WithTx(tx *sql.Tx) renewal.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeRenewalRepository) Create(ctx context.Context, p *renewal.RenewalPayment) error {
	if f.createFn != nil {
		return f.createFn(ctx, p)
	}
	return nil
}

func (f *fakeRenewalRepository) FindByID(ctx context.Context, id string) (*renewal.RenewalPayment, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRenewalRepository) FindAllByRegistration(ctx context.Context, registrationID string) ([]renewal.RenewalPayment, error) {
	if f.findAllFn != nil {
		return f.findAllFn(ctx, registrationID)
	}
	return nil, nil
}

func (f *fakeRenewalRepository) HasPending(ctx context.Context, registrationID string) (bool, error) {
	if f.hasPendingFn != nil {
		return f.hasPendingFn(ctx, registrationID)
	}
	return false, nil
}

func (f *fakeRenewalRepository) FindLatestRejected(ctx context.Context, registrationID string) (*renewal.RenewalPayment, error) {
	if f.findLatestRejectedFn != nil {
		return f.findLatestRejectedFn(ctx, registrationID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRenewalRepository) Update(ctx context.Context, p *renewal.RenewalPayment) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, p)
	}
	return nil
}

func (f *fakeRenewalRepository) MarkExpiredRegistrations(ctx context.Context) (int64, error) {
	if f.markExpiredFn != nil {
		return f.markExpiredFn(ctx)
	}
	return 0, nil
}

type fakeRegistrationRepository struct {
	findByIDFn func(ctx context.Context, id string) (*registration.Registration, error)
	saveFn     func(ctx context.Context, r *registration.Registration) error
}

func (f *fakeRegistrationRepository) WithTx(tx *sql.Tx) registration.Repository { return f }
func (f *fakeRegistrationRepository) Create(ctx context.Context, r *registration.Registration) error {
	return nil
}

func (f *fakeRegistrationRepository) FindByID(ctx context.Context, id string) (*registration.Registration, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRegistrationRepository) FindAll(ctx context.Context, fl registration.ListFilter) ([]registration.Registration, error) {
	return nil, nil
}

func (f *fakeRegistrationRepository) Save(ctx context.Context, r *registration.Registration) error {
	if f.saveFn != nil {
		return f.saveFn(ctx, r)
	}
	return nil
}

func (f *fakeRegistrationRepository) SoftDelete(ctx context.Context, id string) error { return nil }

type renewalServiceDeps struct {
	db      *sql.DB
	sqlMock sqlmock.Sqlmock
	service renewal.Service
	repo    *fakeRenewalRepository
	regRepo *fakeRegistrationRepository
}

func setupRenewalServiceTest(t *testing.T) *renewalServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakeRenewalRepository{}
	regRepo := &fakeRegistrationRepository{}
	svc := renewal.NewService(db, repo, regRepo)

	return &renewalServiceDeps{
		db:      db,
		sqlMock: sqlMock,
		service: svc,
		repo:    repo,
		regRepo: regRepo,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func expiredRegistration(id string) *registration.Registration {
	past := time.Now().UTC().AddDate(0, 0, -3)
	return &registration.Registration{
		ID:           uuid.MustParse(id),
		CurrentStage: registration.StageDocumentation,
		Status:       registration.StatusDocumentationProcessing,
		ExpireDate:   &past,
		ExpireDays:   365,
		CreatedBy:    uuid.New(),
	}
}

func TestRenewalService_Create(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New().String()
	registrationID := uuid.New().String()

	req := renewal.CreateRenewalRequest{Amount: 12500, ReceiptRef: "receipts/2026/08/r-001.pdf"}

	t.Run("success", func(t *testing.T) {
		deps := setupRenewalServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		deps.regRepo.findByIDFn = func(ctx context.Context, id string) (*registration.Registration, error) {
			return expiredRegistration(id), nil
		}
		deps.repo.createFn = func(ctx context.Context, p *renewal.RenewalPayment) error {
			assert.Equal(t, renewal.StatusPending, p.Status)
			assert.Equal(t, uuid.MustParse(registrationID), p.RegistrationID)
			assert.Equal(t, float64(12500), p.Amount)
			return nil
		}

		resp, err := deps.service.Create(ctx, actorID, registrationID, req)

		assert.NoError(t, err)
		assert.Equal(t, renewal.StatusPending, resp.Status)
		assert.Equal(t, registrationID, resp.RegistrationID)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative registration not expired", func(t *testing.T) {
		deps := setupRenewalServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		future := time.Now().UTC().AddDate(1, 0, 0)
		deps.regRepo.findByIDFn = func(ctx context.Context, id string) (*registration.Registration, error) {
			return &registration.Registration{
				ID:         uuid.MustParse(id),
				ExpireDate: &future,
				CreatedBy:  uuid.New(),
			}, nil
		}

		_, err := deps.service.Create(ctx, actorID, registrationID, req)

		assert.ErrorIs(t, err, renewalerrors.ErrNotExpired)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative concurrent submission loses to the unique index", func(t *testing.T) {
		deps := setupRenewalServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.regRepo.findByIDFn = func(ctx context.Context, id string) (*registration.Registration, error) {
			return expiredRegistration(id), nil
		}
		// Pre-check saw nothing, but another tx inserted its pending row first.
		deps.repo.createFn = func(ctx context.Context, p *renewal.RenewalPayment) error {
			return &pgconn.PgError{Code: "23505", ConstraintName: "uq_renewal_payments_pending"}
		}

		_, err := deps.service.Create(ctx, actorID, registrationID, req)

		assert.ErrorIs(t, err, renewalerrors.ErrRenewalAlreadyPending)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative a pending payment already exists", func(t *testing.T) {
		deps := setupRenewalServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.regRepo.findByIDFn = func(ctx context.Context, id string) (*registration.Registration, error) {
			return expiredRegistration(id), nil
		}
		deps.repo.hasPendingFn = func(ctx context.Context, id string) (bool, error) {
			return true, nil
		}

		_, err := deps.service.Create(ctx, actorID, registrationID, req)

		assert.ErrorIs(t, err, renewalerrors.ErrRenewalAlreadyPending)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative registration not found", func(t *testing.T) {
		deps := setupRenewalServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Create(ctx, actorID, registrationID, req)

		assert.ErrorIs(t, err, registrationerrors.ErrRegistrationNotFound)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative missing receipt", func(t *testing.T) {
		deps := setupRenewalServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Create(ctx, actorID, registrationID, renewal.CreateRenewalRequest{Amount: 100})
		assert.ErrorIs(t, err, renewalerrors.ErrReceiptRequired)
	})
}

func TestRenewalService_Approve(t *testing.T) {
	ctx := context.Background()
	approverID := uuid.New().String()
	paymentID := uuid.New().String()
	registrationID := uuid.New().String()

	pendingPayment := func() *renewal.RenewalPayment {
		return &renewal.RenewalPayment{
			ID:             uuid.MustParse(paymentID),
			RegistrationID: uuid.MustParse(registrationID),
			Status:         renewal.StatusPending,
			Amount:         12500,
			ReceiptRef:     "receipts/2026/08/r-001.pdf",
		}
	}

	t.Run("success starts a fresh paid period", func(t *testing.T) {
		deps := setupRenewalServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		deps.repo.findByIDFn = func(ctx context.Context, id string) (*renewal.RenewalPayment, error) {
			return pendingPayment(), nil
		}
		deps.regRepo.findByIDFn = func(ctx context.Context, id string) (*registration.Registration, error) {
			return expiredRegistration(id), nil
		}

		var savedReg *registration.Registration
		deps.regRepo.saveFn = func(ctx context.Context, r *registration.Registration) error {
			savedReg = r
			return nil
		}
		var savedPayment *renewal.RenewalPayment
		deps.repo.updateFn = func(ctx context.Context, p *renewal.RenewalPayment) error {
			savedPayment = p
			return nil
		}

		days := 365
		before := time.Now().UTC()
		resp, err := deps.service.Approve(ctx, approverID, paymentID, renewal.ApproveRenewalRequest{
			ExtensionDays: &days,
		})
		after := time.Now().UTC()

		assert.NoError(t, err)
		assert.Equal(t, renewal.StatusApproved, resp.Status)
		assert.Equal(t, approverID, *resp.ApprovedBy)

		assert.Equal(t, renewal.StatusApproved, savedPayment.Status)
		assert.NotNil(t, savedPayment.ApprovedAt)

		// The new period starts at the approval instant, full length, no
		// deduction for the lapsed gap.
		assert.NotNil(t, savedReg.RegisterStartDate)
		assert.False(t, savedReg.RegisterStartDate.Before(before))
		assert.False(t, savedReg.RegisterStartDate.After(after))
		assert.Equal(t, 365, savedReg.ExpireDays)
		assert.NotNil(t, savedReg.ExpireDate)
		assert.Equal(t, savedReg.RegisterStartDate.AddDate(0, 0, 365), *savedReg.ExpireDate)
		assert.False(t, savedReg.IsExpired)
		assert.Equal(t, 1, savedReg.SecretaryPeriodYear)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("period counter keeps climbing on later renewals", func(t *testing.T) {
		deps := setupRenewalServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		deps.repo.findByIDFn = func(ctx context.Context, id string) (*renewal.RenewalPayment, error) {
			return pendingPayment(), nil
		}
		deps.regRepo.findByIDFn = func(ctx context.Context, id string) (*registration.Registration, error) {
			reg := expiredRegistration(id)
			reg.SecretaryPeriodYear = 1
			return reg, nil
		}

		var savedReg *registration.Registration
		deps.regRepo.saveFn = func(ctx context.Context, r *registration.Registration) error {
			savedReg = r
			return nil
		}

		_, err := deps.service.Approve(ctx, approverID, paymentID, renewal.ApproveRenewalRequest{})

		assert.NoError(t, err)
		assert.Equal(t, 2, savedReg.SecretaryPeriodYear)
		// No extension days given: expiry bookkeeping stays as it was.
		assert.Equal(t, 365, savedReg.ExpireDays)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative payment already processed", func(t *testing.T) {
		deps := setupRenewalServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.repo.findByIDFn = func(ctx context.Context, id string) (*renewal.RenewalPayment, error) {
			p := pendingPayment()
			p.Status = renewal.StatusApproved
			return p, nil
		}

		_, err := deps.service.Approve(ctx, approverID, paymentID, renewal.ApproveRenewalRequest{})

		assert.ErrorIs(t, err, renewalerrors.ErrPaymentNotPending)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative payment not found", func(t *testing.T) {
		deps := setupRenewalServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Approve(ctx, approverID, paymentID, renewal.ApproveRenewalRequest{})

		assert.ErrorIs(t, err, renewalerrors.ErrPaymentNotFound)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestRenewalService_Reject(t *testing.T) {
	ctx := context.Background()
	rejectorID := uuid.New().String()
	paymentID := uuid.New().String()
	registrationID := uuid.New()

	t.Run("success leaves the registration untouched", func(t *testing.T) {
		deps := setupRenewalServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		deps.repo.findByIDFn = func(ctx context.Context, id string) (*renewal.RenewalPayment, error) {
			return &renewal.RenewalPayment{
				ID:             uuid.MustParse(paymentID),
				RegistrationID: registrationID,
				Status:         renewal.StatusPending,
			}, nil
		}

		regSaved := false
		deps.regRepo.saveFn = func(ctx context.Context, r *registration.Registration) error {
			regSaved = true
			return nil
		}

		resp, err := deps.service.Reject(ctx, rejectorID, paymentID)

		assert.NoError(t, err)
		assert.Equal(t, renewal.StatusRejected, resp.Status)
		assert.Equal(t, rejectorID, *resp.RejectedBy)
		assert.False(t, regSaved)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative already processed", func(t *testing.T) {
		deps := setupRenewalServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.repo.findByIDFn = func(ctx context.Context, id string) (*renewal.RenewalPayment, error) {
			return &renewal.RenewalPayment{
				ID:             uuid.MustParse(paymentID),
				RegistrationID: registrationID,
				Status:         renewal.StatusRejected,
			}, nil
		}

		_, err := deps.service.Reject(ctx, rejectorID, paymentID)

		assert.ErrorIs(t, err, renewalerrors.ErrPaymentNotPending)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestRenewalService_SweepExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("reports the number of flagged registrations", func(t *testing.T) {
		deps := setupRenewalServiceTest(t)
		defer deps.db.Close()

		deps.repo.markExpiredFn = func(ctx context.Context) (int64, error) {
			return 7, nil
		}

		updated, err := deps.service.SweepExpired(ctx)

		assert.NoError(t, err)
		assert.Equal(t, int64(7), updated)
	})

	t.Run("second pass over the same rows is a no-op", func(t *testing.T) {
		deps := setupRenewalServiceTest(t)
		defer deps.db.Close()

		calls := 0
		deps.repo.markExpiredFn = func(ctx context.Context) (int64, error) {
			calls++
			if calls == 1 {
				return 3, nil
			}
			return 0, nil
		}

		first, err := deps.service.SweepExpired(ctx)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), first)

		second, err := deps.service.SweepExpired(ctx)
		assert.NoError(t, err)
		assert.Zero(t, second)
	})
}
