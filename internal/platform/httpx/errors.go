package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var transition *shared.TransitionError
	var stock *shared.InsufficientStockError

	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &stock):
		Problem(w, http.StatusConflict, "Insufficient Stock", stock.Error())
	case errors.Is(err, shared.ErrInsufficientStock):
		Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.As(err, &transition):
		Problem(w, http.StatusConflict, "Invalid Transition", transition.Error())
	case errors.Is(err, shared.ErrInvalidTransition):
		Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, shared.ErrInvalidRole):
		Problem(w, http.StatusBadRequest, "Invalid Role", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
