package registration

import (
	"encoding/json"

	registrationerrors "github.com/azydesilva/Ecorporate-sub004/internal/registration/errors"
)

const (
	StageContactDetails = "contact-details"
	StageCompanyDetails = "company-details"
	StageDocumentation  = "documentation"
	StageIncorporate    = "incorporate"
)

const (
	StatusPaymentProcessing       = "payment-processing"
	StatusPaymentRejected         = "payment-rejected"
	StatusDocumentationProcessing = "documentation-processing"
	StatusIncorporationProcessing = "incorporation-processing"
	StatusCompleted               = "completed"
)

// Staff actions, each flipping one approval flag false -> true exactly once.
const (
	ActionApprovePayment        = "approve-payment"
	ActionRejectPayment         = "reject-payment"
	ActionApproveDetails        = "approve-details"
	ActionRejectDetails         = "reject-details"
	ActionLockDetails           = "lock-details"
	ActionPublishDocuments      = "publish-documents"
	ActionApproveDocuments      = "approve-documents"
	ActionAcknowledgeDocuments  = "acknowledge-documents"
	ActionRegisterEroc          = "register-eroc"
	ActionApproveBalancePayment = "approve-balance-payment"
	ActionComplete              = "complete"
)

var stageOrder = []string{
	StageContactDetails,
	StageCompanyDetails,
	StageDocumentation,
	StageIncorporate,
}

// StageIndex returns the position of a stage in the workflow, or -1 for an
// unknown stage name.
func StageIndex(stage string) int {
	for i, s := range stageOrder {
		if s == stage {
			return i
		}
	}
	return -1
}

// NextStage returns the stage after s. The last stage is its own successor.
func NextStage(s string) string {
	idx := StageIndex(s)
	if idx < 0 || idx >= len(stageOrder)-1 {
		return StageIncorporate
	}
	return stageOrder[idx+1]
}

// NormalizeStage maps any stored stage name onto a known one. Unknown names
// fall open to contact-details, the earliest stage.
func NormalizeStage(stage string) string {
	if StageIndex(stage) < 0 {
		return StageContactDetails
	}
	return stage
}

// NormalizeStatus maps any stored status onto a known value. Unrecognized
// values fall open to payment-processing, the earliest safe state, never to
// completed.
func NormalizeStatus(status string) string {
	switch status {
	case StatusPaymentProcessing,
		StatusPaymentRejected,
		StatusDocumentationProcessing,
		StatusIncorporationProcessing,
		StatusCompleted:
		return status
	default:
		return StatusPaymentProcessing
	}
}

// DeriveStatus is the single authoritative mapping from (stage, approval
// flags) to the customer-facing status. Every mutation path goes through it;
// explicit payment rejection is the only status set outside this table.
func DeriveStatus(stage string, r *Registration) string {
	if r.RegistrationCompleted {
		return StatusCompleted
	}

	switch stage {
	case StageContactDetails:
		return StatusPaymentProcessing
	case StageCompanyDetails:
		if !r.PaymentApproved {
			return StatusPaymentProcessing
		}
		return StatusDocumentationProcessing
	case StageDocumentation:
		if !r.DocumentsPublished {
			return StatusDocumentationProcessing
		}
		return StatusIncorporationProcessing
	case StageIncorporate:
		return StatusIncorporationProcessing
	default:
		return StatusPaymentProcessing
	}
}

// StageUnlocked reports whether the content of a stage is visible to the
// customer. The stage index advances on submission, but content stays gated
// behind the matching staff approval. A completed registration always grants
// the incorporate stage regardless of stage bookkeeping drift.
func StageUnlocked(r *Registration, stage string) bool {
	if NormalizeStatus(r.Status) == StatusCompleted && stage == StageIncorporate {
		return true
	}

	switch stage {
	case StageContactDetails:
		return true
	case StageCompanyDetails:
		return r.PaymentApproved
	case StageDocumentation:
		return r.DocumentsPublished
	case StageIncorporate:
		return r.RegistrationCompleted
	default:
		return false
	}
}

// MergePayload merges src into dst key by key, last write wins. Keys absent
// from src survive untouched so the core never strips fields it does not
// understand.
func MergePayload(dst, src json.RawMessage) (json.RawMessage, error) {
	if len(src) == 0 {
		return dst, nil
	}

	merged := map[string]any{}
	if len(dst) > 0 {
		if err := json.Unmarshal(dst, &merged); err != nil {
			return nil, registrationerrors.ErrInvalidPayload
		}
	}

	incoming := map[string]any{}
	if err := json.Unmarshal(src, &incoming); err != nil {
		return nil, registrationerrors.ErrInvalidPayload
	}
	for k, v := range incoming {
		merged[k] = v
	}

	return json.Marshal(merged)
}

// ApplySubmission mutates r in place for a customer stage submission: merge
// the payload, advance the stage monotonically, re-derive status. Replays of
// an already-advanced stage still merge fields (last write wins, which is what
// the Update Information resubmit relies on) but never move the stage back.
func ApplySubmission(r *Registration, stage string, payload json.RawMessage) error {
	if StageIndex(stage) < 0 {
		return registrationerrors.ErrUnknownStage
	}

	if NormalizeStatus(r.Status) == StatusPaymentRejected {
		return registrationerrors.ErrRegistrationRejected
	}
	if r.CompanyDetailsRejected && stage != StageCompanyDetails {
		return registrationerrors.ErrRegistrationRejected
	}
	if stage == StageCompanyDetails && r.CompanyDetailsLocked {
		return registrationerrors.ErrCompanyDetailsLocked
	}

	merged, err := MergePayload(r.Payload, payload)
	if err != nil {
		return err
	}
	r.Payload = merged

	next := NextStage(stage)
	if StageIndex(next) > StageIndex(r.CurrentStage) {
		r.CurrentStage = next
	}

	if stage == StageCompanyDetails {
		// Resubmission path: clears a details rejection and ends re-entry.
		r.CompanyDetailsRejected = false
		r.IsUpdating = false
	}

	r.Status = DeriveStatus(r.CurrentStage, r)
	return nil
}

// ApplyStaffAction mutates r for one staff gate action. Flags go false -> true
// exactly once; replaying an already-applied action is a conflict, and a
// rejection after the matching approval is an invalid state.
func ApplyStaffAction(r *Registration, action string) error {
	switch action {
	case ActionApprovePayment:
		if r.PaymentApproved {
			return registrationerrors.ErrActionAlreadyApplied
		}
		r.PaymentApproved = true
	case ActionRejectPayment:
		if r.PaymentApproved {
			return registrationerrors.ErrRejectAfterApproval
		}
		r.Status = StatusPaymentRejected
		return nil
	case ActionApproveDetails:
		if r.DetailsApproved {
			return registrationerrors.ErrActionAlreadyApplied
		}
		r.DetailsApproved = true
		r.CompanyDetailsRejected = false
	case ActionRejectDetails:
		if r.DetailsApproved {
			return registrationerrors.ErrRejectAfterApproval
		}
		r.CompanyDetailsRejected = true
	case ActionLockDetails:
		if r.CompanyDetailsLocked {
			return registrationerrors.ErrActionAlreadyApplied
		}
		r.CompanyDetailsLocked = true
	case ActionPublishDocuments:
		if r.DocumentsPublished {
			return registrationerrors.ErrActionAlreadyApplied
		}
		r.DocumentsPublished = true
	case ActionApproveDocuments:
		if r.DocumentsApproved {
			return registrationerrors.ErrActionAlreadyApplied
		}
		r.DocumentsApproved = true
	case ActionAcknowledgeDocuments:
		if r.DocumentsAcknowledged {
			return registrationerrors.ErrActionAlreadyApplied
		}
		r.DocumentsAcknowledged = true
	case ActionRegisterEroc:
		if r.ErocRegistered {
			return registrationerrors.ErrActionAlreadyApplied
		}
		r.ErocRegistered = true
	case ActionApproveBalancePayment:
		if r.BalancePaymentApproved {
			return registrationerrors.ErrActionAlreadyApplied
		}
		r.BalancePaymentApproved = true
	case ActionComplete:
		if r.RegistrationCompleted {
			return registrationerrors.ErrActionAlreadyApplied
		}
		r.RegistrationCompleted = true
	default:
		return registrationerrors.ErrUnknownAction
	}

	// A sticky payment rejection survives unrelated staff actions; only the
	// payment approval itself clears it.
	if NormalizeStatus(r.Status) == StatusPaymentRejected && action != ActionApprovePayment {
		return nil
	}
	r.Status = DeriveStatus(r.CurrentStage, r)
	return nil
}

// CanBeginUpdate reports whether the customer may re-enter company-details
// from documentation. Blocked once EROC registration or the balance payment
// approval has happened.
func CanBeginUpdate(r *Registration) bool {
	return r.CurrentStage == StageDocumentation &&
		!r.ErocRegistered &&
		!r.BalancePaymentApproved &&
		!r.CompanyDetailsLocked
}
