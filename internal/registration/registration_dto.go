package registration

import (
	"encoding/json"
	"time"
)

type CreateRegistrationRequest struct {
	Payload json.RawMessage `json:"payload"`
}

type SubmitStageRequest struct {
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// ReplaceRegistrationRequest is the whole-record put body. Every persisted
// field round-trips, the opaque payload included.
type ReplaceRegistrationRequest struct {
	ID           string `json:"id" binding:"required,uuid"`
	CurrentStage string `json:"current_stage" binding:"required"`
	Status       string `json:"status" binding:"required"`

	PaymentApproved        bool `json:"payment_approved"`
	DetailsApproved        bool `json:"details_approved"`
	CompanyDetailsRejected bool `json:"company_details_rejected"`
	CompanyDetailsLocked   bool `json:"company_details_locked"`
	DocumentsApproved      bool `json:"documents_approved"`
	DocumentsPublished     bool `json:"documents_published"`
	DocumentsAcknowledged  bool `json:"documents_acknowledged"`
	ErocRegistered         bool `json:"eroc_registered"`
	BalancePaymentApproved bool `json:"balance_payment_approved"`
	RegistrationCompleted  bool `json:"registration_completed"`
	IsUpdating             bool `json:"is_updating"`

	RegisterStartDate       *time.Time `json:"register_start_date"`
	ExpireDays              int        `json:"expire_days"`
	ExpireDate              *time.Time `json:"expire_date"`
	IsExpired               bool       `json:"is_expired"`
	SecretaryPeriodYear     int        `json:"secretary_period_year"`
	Pinned                  bool       `json:"pinned"`
	Noted                   bool       `json:"noted"`
	SecretaryRecordsNotedAt *time.Time `json:"secretary_records_noted_at"`

	Payload json.RawMessage `json:"payload"`
}

type AnnotateRequest struct {
	Value *bool `json:"value" binding:"required"`
}

type RegistrationResponse struct {
	ID           string `json:"id"`
	CurrentStage string `json:"current_stage"`
	Status       string `json:"status"`

	PaymentApproved        bool `json:"payment_approved"`
	DetailsApproved        bool `json:"details_approved"`
	CompanyDetailsRejected bool `json:"company_details_rejected"`
	CompanyDetailsLocked   bool `json:"company_details_locked"`
	DocumentsApproved      bool `json:"documents_approved"`
	DocumentsPublished     bool `json:"documents_published"`
	DocumentsAcknowledged  bool `json:"documents_acknowledged"`
	ErocRegistered         bool `json:"eroc_registered"`
	BalancePaymentApproved bool `json:"balance_payment_approved"`
	RegistrationCompleted  bool `json:"registration_completed"`
	IsUpdating             bool `json:"is_updating"`

	RegisterStartDate       *time.Time `json:"register_start_date,omitempty"`
	ExpireDays              int        `json:"expire_days"`
	ExpireDate              *time.Time `json:"expire_date,omitempty"`
	IsExpired               bool       `json:"is_expired"`
	SecretaryPeriodYear     int        `json:"secretary_period_year"`
	Pinned                  bool       `json:"pinned"`
	Noted                   bool       `json:"noted"`
	SecretaryRecordsNotedAt *time.Time `json:"secretary_records_noted_at,omitempty"`

	Payload json.RawMessage `json:"payload,omitempty"`

	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ContentAccessResponse struct {
	Stage   string `json:"stage"`
	Granted bool   `json:"granted"`
	// Reason is set when access is refused: "renewal-required" for an expired
	// paid period, otherwise the gated processing status.
	Reason string `json:"reason,omitempty"`
	Status string `json:"status"`
}

func mapToResponse(r Registration, now time.Time) RegistrationResponse {
	return RegistrationResponse{
		ID:           r.ID.String(),
		CurrentStage: r.CurrentStage,
		Status:       NormalizeStatus(r.Status),

		PaymentApproved:        r.PaymentApproved,
		DetailsApproved:        r.DetailsApproved,
		CompanyDetailsRejected: r.CompanyDetailsRejected,
		CompanyDetailsLocked:   r.CompanyDetailsLocked,
		DocumentsApproved:      r.DocumentsApproved,
		DocumentsPublished:     r.DocumentsPublished,
		DocumentsAcknowledged:  r.DocumentsAcknowledged,
		ErocRegistered:         r.ErocRegistered,
		BalancePaymentApproved: r.BalancePaymentApproved,
		RegistrationCompleted:  r.RegistrationCompleted,
		IsUpdating:             r.IsUpdating,

		RegisterStartDate:       r.RegisterStartDate,
		ExpireDays:              r.ExpireDays,
		ExpireDate:              r.ExpireDate,
		IsExpired:               Expired(&r, now),
		SecretaryPeriodYear:     r.SecretaryPeriodYear,
		Pinned:                  r.Pinned,
		Noted:                   r.Noted,
		SecretaryRecordsNotedAt: r.SecretaryRecordsNotedAt,

		Payload: r.Payload,

		CreatedBy: r.CreatedBy.String(),
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func mapToListResponse(regs []Registration, now time.Time) []RegistrationResponse {
	resp := make([]RegistrationResponse, 0, len(regs))
	for _, r := range regs {
		resp = append(resp, mapToResponse(r, now))
	}
	return resp
}
