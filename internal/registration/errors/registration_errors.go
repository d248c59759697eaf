package registrationerrors

import (
	"net/http"

	"github.com/azydesilva/Ecorporate-sub004/internal/shared/apperror"
)

var (
	ErrInvalidRegistrationID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid registration id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrRegistrationNotFound = apperror.New(
		apperror.CodeNotFound,
		"registration not found",
		http.StatusNotFound,
	)
	ErrUnknownStage = apperror.New(
		apperror.CodeInvalidInput,
		"unknown workflow stage",
		http.StatusBadRequest,
	)
	ErrUnknownAction = apperror.New(
		apperror.CodeInvalidInput,
		"unknown staff action",
		http.StatusBadRequest,
	)
	ErrInvalidPayload = apperror.New(
		apperror.CodeInvalidInput,
		"case payload must be a JSON object",
		http.StatusBadRequest,
	)
	ErrActionAlreadyApplied = apperror.New(
		apperror.CodeConflict,
		"this approval has already been granted",
		http.StatusConflict,
	)
	ErrRejectAfterApproval = apperror.New(
		apperror.CodeInvalidState,
		"cannot reject after the matching approval has been granted",
		http.StatusBadRequest,
	)
	ErrRegistrationRejected = apperror.New(
		apperror.CodeInvalidState,
		"registration has been rejected, resubmit company details or cancel",
		http.StatusBadRequest,
	)
	ErrCompanyDetailsLocked = apperror.New(
		apperror.CodeInvalidState,
		"company details are locked by staff and cannot be changed",
		http.StatusBadRequest,
	)
	ErrCancelNotAllowed = apperror.New(
		apperror.CodeInvalidState,
		"only a rejected registration can be cancelled",
		http.StatusBadRequest,
	)
	ErrUpdateNotAllowed = apperror.New(
		apperror.CodeInvalidState,
		"company details can no longer be updated for this registration",
		http.StatusBadRequest,
	)
	ErrRenewalRequired = apperror.New(
		apperror.CodeInvalidState,
		"secretary service period has expired, submit a renewal to continue",
		http.StatusForbidden,
	)
	ErrIDMismatch = apperror.New(
		apperror.CodeInvalidInput,
		"record id does not match the request path",
		http.StatusBadRequest,
	)
)
