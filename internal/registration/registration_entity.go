package registration

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Registration struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CurrentStage string    `gorm:"type:varchar(30);not null;default:'contact-details';index:idx_registrations_stage_status"`
	Status       string    `gorm:"type:varchar(40);not null;default:'payment-processing';index:idx_registrations_stage_status"`

	PaymentApproved        bool `gorm:"not null;default:false"`
	DetailsApproved        bool `gorm:"not null;default:false"`
	CompanyDetailsRejected bool `gorm:"not null;default:false"`
	CompanyDetailsLocked   bool `gorm:"not null;default:false"`
	DocumentsApproved      bool `gorm:"not null;default:false"`
	DocumentsPublished     bool `gorm:"not null;default:false"`
	DocumentsAcknowledged  bool `gorm:"not null;default:false"`
	ErocRegistered         bool `gorm:"not null;default:false"`
	BalancePaymentApproved bool `gorm:"not null;default:false"`
	RegistrationCompleted  bool `gorm:"not null;default:false"`

	// Set while a customer re-enters company-details from documentation.
	// The stored stage never regresses; resubmission clears this.
	IsUpdating bool `gorm:"not null;default:false"`

	RegisterStartDate   *time.Time `gorm:"type:timestamptz"`
	ExpireDays          int        `gorm:"not null;default:0"`
	ExpireDate          *time.Time `gorm:"type:timestamptz;index:idx_registrations_expiry"`
	IsExpired           bool       `gorm:"not null;default:false;index:idx_registrations_expiry"`
	SecretaryPeriodYear int        `gorm:"not null;default:0"`

	Pinned                  bool `gorm:"not null;default:false"`
	Noted                   bool `gorm:"not null;default:false"`
	SecretaryRecordsNotedAt *time.Time

	// Free-form case payload (names, directors, shareholders, document refs).
	// Opaque to the lifecycle core and round-trips unchanged, unknown keys included.
	Payload json.RawMessage `gorm:"type:jsonb"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index:idx_registrations_deleted_at"`
}

func (Registration) TableName() string {
	return "registrations"
}
