package renewal

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// RenewalPayment is one secretary-fee renewal attempt. At most one pending
// payment may exist per registration, backed by the partial unique index on
// registration_id for status = 'pending'; a payment never changes again once
// it reaches approved or rejected.
type RenewalPayment struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RegistrationID uuid.UUID `gorm:"type:uuid;not null;index:idx_renewal_payments_registration;index:uq_renewal_payments_pending,unique,where:status = 'pending'"`

	Status     string  `gorm:"type:varchar(20);not null;default:'pending';index:idx_renewal_payments_registration"`
	Amount     float64 `gorm:"type:numeric(12,2);not null"`
	ReceiptRef string  `gorm:"type:varchar(255);not null"`

	ApprovedBy *uuid.UUID `gorm:"type:uuid"`
	RejectedBy *uuid.UUID `gorm:"type:uuid"`

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ApprovedAt *time.Time
	RejectedAt *time.Time
}

func (RenewalPayment) TableName() string {
	return "renewal_payments"
}
