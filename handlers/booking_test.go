package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"telecare/middleware"
	"telecare/models"
	"telecare/services/booking"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBookings answers the commands under test; anything else panics.
type stubBookings struct {
	booking.BookingService
	err        error
	lastReq    models.CreateBookingRequest
	lastUser   string
	lastReason string
	updates    []models.Booking
}

func (s *stubBookings) Create(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.Booking{ID: "b1", PatientID: req.PatientID, Status: models.StatusPendingConfirmation}, nil
}

func (s *stubBookings) Confirm(ctx context.Context, id, professionalID string) (*models.Booking, error) {
	s.lastUser = professionalID
	if s.err != nil {
		return nil, s.err
	}
	return &models.Booking{ID: id, Status: models.StatusConfirmed}, nil
}

func (s *stubBookings) Cancel(ctx context.Context, id, actorID, reason string) (*models.Booking, error) {
	s.lastUser = actorID
	s.lastReason = reason
	if s.err != nil {
		return nil, s.err
	}
	return &models.Booking{ID: id, Status: models.StatusCancelled}, nil
}

func (s *stubBookings) JoinCall(ctx context.Context, id, actorID string) (*models.JoinCallResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.JoinCallResponse{BookingID: id, SessionID: "sess-1"}, nil
}

func (s *stubBookings) WatchBooking(ctx context.Context, id string) (<-chan models.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan models.Booking, len(s.updates))
	for _, u := range s.updates {
		ch <- u
	}
	close(ch)
	return ch, nil
}

func newTestRouter(svc booking.BookingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewBookingHandler(svc)
	r.GET("/bookings/:id/stream", h.StreamBookingHandler)
	cmd := r.Group("")
	cmd.Use(middleware.RequireActor())
	cmd.POST("/bookings", h.CreateBookingHandler)
	cmd.POST("/bookings/:id/confirm", h.ConfirmHandler)
	cmd.POST("/bookings/:id/cancel", h.CancelHandler)
	cmd.POST("/bookings/:id/join", h.JoinCallHandler)
	return r
}

func do(r http.Handler, method, path, actor, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(middleware.ActorHeader, actor)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateBookingHandler_UsesActorAsPatient(t *testing.T) {
	svc := &stubBookings{}
	r := newTestRouter(svc)

	w := do(r, http.MethodPost, "/bookings", "pat-1", `{"professionalId":"pro-1","date":"2025-06-02","time":"09:00","patientId":"spoofed"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "pat-1", svc.lastReq.PatientID)

	var b models.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, "b1", b.ID)
}

func TestCreateBookingHandler_Validation(t *testing.T) {
	r := newTestRouter(&stubBookings{})

	w := do(r, http.MethodPost, "/bookings", "", `{"professionalId":"pro-1","date":"2025-06-02","time":"09:00"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/bookings", "pat-1", `{"date":"2025-06-02"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err      error
		status   int
		wantCode string
	}{
		{booking.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable"},
		{booking.ErrInsufficientBalance, http.StatusPaymentRequired, "insufficient_balance"},
		{booking.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
		{booking.ErrEmergencyExpired, http.StatusGone, "emergency_expired"},
		{booking.ErrCallNotReady, 425, "call_not_ready"},
		{booking.ErrSessionJoinTimeout, http.StatusGatewayTimeout, "session_join_timeout"},
		{booking.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
		{booking.ErrIllegalTransition, http.StatusConflict, "illegal_transition"},
		{errors.New("mongo down"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			r := newTestRouter(&stubBookings{err: tt.err})
			w := do(r, http.MethodPost, "/bookings/b1/join", "pat-1", "")
			assert.Equal(t, tt.status, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["error"])
		})
	}
}

func TestConfirmHandler_PassesActor(t *testing.T) {
	svc := &stubBookings{}
	r := newTestRouter(svc)

	w := do(r, http.MethodPost, "/bookings/b1/confirm", "pro-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pro-1", svc.lastUser)
}

func TestCancelHandler_ReasonBody(t *testing.T) {
	svc := &stubBookings{}
	r := newTestRouter(svc)

	w := do(r, http.MethodPost, "/bookings/b1/cancel", "pat-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", svc.lastReason)

	w = do(r, http.MethodPost, "/bookings/b1/cancel", "pat-1", `{"reason":"feeling better"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "feeling better", svc.lastReason)

	svc.lastUser = ""
	w = do(r, http.MethodPost, "/bookings/b1/cancel", "pat-1", `{"reason":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.lastUser, "malformed body must not reach the service")

	w = do(r, http.MethodPost, "/bookings/b1/cancel", "pat-1", `{"reason":42}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamBookingHandler_WritesEvents(t *testing.T) {
	svc := &stubBookings{updates: []models.Booking{
		{ID: "b1", Status: models.StatusPendingConfirmation},
		{ID: "b1", Status: models.StatusConfirmed},
	}}
	r := newTestRouter(svc)

	w := do(r, http.MethodGet, "/bookings/b1/stream", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event:booking"))
	assert.Contains(t, body, `"status":"confirmed"`)

	svc.err = booking.ErrBookingNotFound
	w = do(r, http.MethodGet, "/bookings/b1/stream", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
