package registration

import (
	"errors"
	"net/http"
	"strings"

	registrationerrors "github.com/azydesilva/Ecorporate-sub004/internal/registration/errors"
	"github.com/azydesilva/Ecorporate-sub004/internal/shared/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return registrationerrors.ErrRegistrationNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return apperror.Wrap(err, apperror.CodeConflict,
				"registration record conflicts with an existing one", http.StatusConflict)
		}
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "duplicate key value") {
		return apperror.Wrap(err, apperror.CodeConflict,
			"registration record conflicts with an existing one", http.StatusConflict)
	}

	// Remaining repository failures are I/O against the record store. The
	// mutation aborted whole, so the caller may retry it from scratch.
	return apperror.Wrap(err, apperror.CodeTransient,
		apperror.ErrStoreUnavailable.Message, http.StatusServiceUnavailable)
}

// IsTransient reports whether err came from the degraded store path, which is
// when the redis mirror may serve a stale read instead.
func IsTransient(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == apperror.CodeTransient
}
