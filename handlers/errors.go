package handlers

import (
	"errors"
	"net/http"

	"telecare/services/availability"
	"telecare/services/booking"
	"telecare/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusTooEarly is 425, used while a call is still propagating.
const statusTooEarly = 425

var statusByCode = map[booking.Code]int{
	booking.CodeBookingNotFound:          http.StatusNotFound,
	booking.CodeProfessionalNotFound:     http.StatusNotFound,
	booking.CodeSlotUnavailable:          http.StatusConflict,
	booking.CodeDuplicateActiveBooking:   http.StatusConflict,
	booking.CodeDuplicateActiveEmergency: http.StatusConflict,
	booking.CodeEmergencyNotAccepted:     http.StatusConflict,
	booking.CodeIllegalTransition:        http.StatusConflict,
	booking.CodeInsufficientBalance:      http.StatusPaymentRequired,
	booking.CodeUnauthorized:             http.StatusForbidden,
	booking.CodeEmergencyExpired:         http.StatusGone,
	booking.CodeCallNotReady:             statusTooEarly,
	booking.CodeSessionJoinTimeout:       http.StatusGatewayTimeout,
	booking.CodeInvalidRequest:           http.StatusBadRequest,
}

// respondError renders err with the status matching its kind.
func respondError(c *gin.Context, err error) {
	var be *booking.Error
	switch {
	case errors.As(err, &be):
		status, ok := statusByCode[be.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		utils.JSONError(c, status, string(be.Code), be.Message)
	case errors.Is(err, availability.ErrProfessionalNotFound):
		utils.JSONError(c, http.StatusNotFound, string(booking.CodeProfessionalNotFound), err.Error())
	case errors.Is(err, availability.ErrInvalidDate), errors.Is(err, availability.ErrInvalidTemplate),
		errors.Is(err, availability.ErrInvalidProfile):
		utils.JSONError(c, http.StatusBadRequest, string(booking.CodeInvalidRequest), err.Error())
	default:
		getLogger(c).Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal_error", "Something went wrong. Please try again.")
	}
}

func badRequest(c *gin.Context, err error) {
	utils.JSONError(c, http.StatusBadRequest, string(booking.CodeInvalidRequest), err.Error())
}
