package renewal

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

//go:generate mockgen -source=renewal_repo.go -destination=mock/renewal_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, p *RenewalPayment) error
	FindByID(ctx context.Context, id string) (*RenewalPayment, error)
	FindAllByRegistration(ctx context.Context, registrationID string) ([]RenewalPayment, error)
	HasPending(ctx context.Context, registrationID string) (bool, error)
	FindLatestRejected(ctx context.Context, registrationID string) (*RenewalPayment, error)
	Update(ctx context.Context, p *RenewalPayment) error
	MarkExpiredRegistrations(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	db := r.db.Session(&gorm.Session{NewDB: true})
	db.Statement.ConnPool = tx
	return &repository{db: db, tx: tx}
}

func (r *repository) Create(ctx context.Context, p *RenewalPayment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*RenewalPayment, error) {
	var p RenewalPayment
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *repository) FindAllByRegistration(ctx context.Context, registrationID string) ([]RenewalPayment, error) {
	var payments []RenewalPayment
	err := r.db.WithContext(ctx).
		Where("registration_id = ?", registrationID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

func (r *repository) HasPending(ctx context.Context, registrationID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&RenewalPayment{}).
		Where("registration_id = ?", registrationID).
		Where("status = ?", StatusPending).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindLatestRejected(ctx context.Context, registrationID string) (*RenewalPayment, error) {
	var p RenewalPayment
	err := r.db.WithContext(ctx).
		Where("registration_id = ?", registrationID).
		Where("status = ?", StatusRejected).
		Order("created_at DESC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) Update(ctx context.Context, p *RenewalPayment) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// MarkExpiredRegistrations is the sweep: flip the stored flag for every
// registration whose paid period is over. One guarded UPDATE, so running it
// twice (or concurrently) ends in the same state as running it once. The
// read-time predicate stays correct even if this never runs.
func (r *repository) MarkExpiredRegistrations(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE registrations
		SET is_expired = TRUE, updated_at = NOW()
		WHERE expire_date IS NOT NULL
		  AND is_expired = FALSE
		  AND expire_date < NOW()
		  AND deleted_at IS NULL
	`)
	return result.RowsAffected, result.Error
}
