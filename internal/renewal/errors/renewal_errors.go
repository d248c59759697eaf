package renewalerrors

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
	ErrInvalidPaymentID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid renewal payment id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidAmount = apperror.New(
		apperror.CodeInvalidInput,
		"amount must be greater than zero",
		http.StatusBadRequest,
	)
	ErrReceiptRequired = apperror.New(
		apperror.CodeInvalidInput,
		"receipt reference is required",
		http.StatusBadRequest,
	)
	ErrPaymentNotFound = apperror.New(
		apperror.CodeNotFound,
		"renewal payment not found",
		http.StatusNotFound,
	)
	ErrNotExpired = apperror.New(
		apperror.CodeInvalidState,
		"registration is not expired, renewal is not needed",
		http.StatusBadRequest,
	)
	ErrRenewalAlreadyPending = apperror.New(
		apperror.CodeConflict,
		"a renewal payment is already pending for this registration",
		http.StatusConflict,
	)
	ErrPaymentNotPending = apperror.New(
		apperror.CodeInvalidState,
		"renewal payment has already been processed",
		http.StatusBadRequest,
	)
)
