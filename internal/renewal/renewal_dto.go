package renewal

import "time"

type CreateRenewalRequest struct {
	Amount     float64 `json:"amount" binding:"required,gt=0"`
	ReceiptRef string  `json:"receipt_ref" binding:"required"`
}

type ApproveRenewalRequest struct {
	// ExtensionDays, when set, starts a fresh full-length paid period from
	// the approval instant. Lapsed time is not carried forward.
	ExtensionDays *int `json:"extension_days" binding:"omitempty,gt=0"`
}

type RenewalPaymentResponse struct {
	ID             string  `json:"id"`
	RegistrationID string  `json:"registration_id"`
	Status         string  `json:"status"`
	Amount         float64 `json:"amount"`
	ReceiptRef     string  `json:"receipt_ref"`
	ApprovedBy     *string `json:"approved_by,omitempty"`
	RejectedBy     *string `json:"rejected_by,omitempty"`
	ApprovedAt     *string `json:"approved_at,omitempty"`
	RejectedAt     *string `json:"rejected_at,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

type SweepResponse struct {
	Updated int64 `json:"updated"`
}

func mapToResponse(p RenewalPayment) RenewalPaymentResponse {
	resp := RenewalPaymentResponse{
		ID:             p.ID.String(),
		RegistrationID: p.RegistrationID.String(),
		Status:         p.Status,
		Amount:         p.Amount,
		ReceiptRef:     p.ReceiptRef,
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.ApprovedBy != nil {
		s := p.ApprovedBy.String()
		resp.ApprovedBy = &s
	}
	if p.RejectedBy != nil {
		s := p.RejectedBy.String()
		resp.RejectedBy = &s
	}
	if p.ApprovedAt != nil {
		s := p.ApprovedAt.UTC().Format(time.RFC3339)
		resp.ApprovedAt = &s
	}
	if p.RejectedAt != nil {
		s := p.RejectedAt.UTC().Format(time.RFC3339)
		resp.RejectedAt = &s
	}
	return resp
}

func mapToListResponse(payments []RenewalPayment) []RenewalPaymentResponse {
	resp := make([]RenewalPaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, mapToResponse(p))
	}
	return resp
}
