package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sore/internal/dispute"
)

type MockService struct{ mock.Mock }

func (m *MockService) CreateBooking(ctx context.Context, buyerID int, req CreateBookingRequest) (*Booking, error) {
	args := m.Called(ctx, buyerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockService) UpdateStatus(ctx context.Context, bookingID, actorID int, req UpdateStatusRequest) (*Booking, error) {
	args := m.Called(ctx, bookingID, actorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockService) GetBooking(ctx context.Context, id int) (*Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockService) ListForBuyer(ctx context.Context, buyerID int) ([]Booking, error) {
	args := m.Called(ctx, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Booking), args.Error(1)
}

func (m *MockService) ListForKOL(ctx context.Context, kolID, actorID int, actorRole string, status *Status) ([]Booking, error) {
	args := m.Called(ctx, kolID, actorID, actorRole, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Booking), args.Error(1)
}

func (m *MockService) ReportDispute(ctx context.Context, bookingID, reporterID int, reason string) (*dispute.Dispute, error) {
	args := m.Called(ctx, bookingID, reporterID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispute.Dispute), args.Error(1)
}

func (m *MockService) ResolveDispute(ctx context.Context, disputeID, adminID int, req dispute.ResolveRequest) (*Booking, error) {
	args := m.Called(ctx, disputeID, adminID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockService) ListOpenDisputes(ctx context.Context) ([]dispute.Dispute, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dispute.Dispute), args.Error(1)
}

func (m *MockService) SweepExpirations(ctx context.Context, now time.Time) (*SweepResult, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SweepResult), args.Error(1)
}

func (m *MockService) Analytics(ctx context.Context, since time.Time) (*Stats, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Stats), args.Error(1)
}

func setupHandlerTest(userID int) (*MockService, *gin.Engine) {
	gin.SetMode(gin.TestMode)

	service := new(MockService)
	handler := NewHandler(service)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("user_role", "user")
		c.Next()
	})
	router.POST("/bookings", handler.CreateBooking)
	router.GET("/bookings/:bookingID", handler.GetBooking)
	router.PUT("/bookings/:bookingID/status", handler.UpdateStatus)
	router.POST("/bookings/:bookingID/dispute", handler.ReportDispute)

	return service, router
}

func performJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlerCreateBooking(t *testing.T) {
	service, router := setupHandlerTest(10)

	from := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	service.On("CreateBooking", mock.Anything, 10, mock.AnythingOfType("booking.CreateBookingRequest")).
		Return(&Booking{ID: 7, BuyerID: 10, KOLID: 3, Status: StatusPending, TotalAmount: 20000}, nil)

	w := performJSON(router, http.MethodPost, "/bookings", CreateBookingRequest{
		KOLID:    3,
		FromTime: from,
		ToTime:   from.Add(time.Hour),
		Reason:   "portfolio review",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var b Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, 7, b.ID)
	assert.Equal(t, StatusPending, b.Status)
}

func TestHandlerCreateBookingInsufficientFunds(t *testing.T) {
	service, router := setupHandlerTest(10)

	from := time.Now().Add(24 * time.Hour)
	service.On("CreateBooking", mock.Anything, 10, mock.Anything).
		Return(nil, ErrInsufficientFunds)

	w := performJSON(router, http.MethodPost, "/bookings", CreateBookingRequest{
		KOLID:    3,
		FromTime: from,
		ToTime:   from.Add(time.Hour),
		Reason:   "portfolio review",
	})

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient wallet balance")
}

func TestHandlerCreateBookingInvalidBody(t *testing.T) {
	service, router := setupHandlerTest(10)

	w := performJSON(router, http.MethodPost, "/bookings", gin.H{"kol_id": 3})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlerUpdateStatusForbidden(t *testing.T) {
	service, router := setupHandlerTest(10)

	service.On("UpdateStatus", mock.Anything, 7, 10, UpdateStatusRequest{Status: StatusAccepted}).
		Return(nil, ErrNotAllowed)

	w := performJSON(router, http.MethodPut, "/bookings/7/status", UpdateStatusRequest{Status: StatusAccepted})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandlerUpdateStatusConflict(t *testing.T) {
	service, router := setupHandlerTest(20)

	service.On("UpdateStatus", mock.Anything, 7, 20, mock.Anything).
		Return(nil, ErrInvalidTransition)

	w := performJSON(router, http.MethodPut, "/bookings/7/status", UpdateStatusRequest{Status: StatusCompleted})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid booking status transition")
}

func TestHandlerGetBookingNotFound(t *testing.T) {
	service, router := setupHandlerTest(10)

	service.On("GetBooking", mock.Anything, 99).Return(nil, ErrBookingNotFound)

	w := performJSON(router, http.MethodGet, "/bookings/99", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerGetBookingBadID(t *testing.T) {
	service, router := setupHandlerTest(10)

	w := performJSON(router, http.MethodGet, "/bookings/not-a-number", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "GetBooking", mock.Anything, mock.Anything)
}

func TestHandlerReportDispute(t *testing.T) {
	service, router := setupHandlerTest(10)

	service.On("ReportDispute", mock.Anything, 7, 10, "kol never showed up").
		Return(&dispute.Dispute{ID: 1, BookingID: 7, Status: dispute.StatusOpen}, nil)

	w := performJSON(router, http.MethodPost, "/bookings/7/dispute", DisputeRequest{Reason: "kol never showed up"})

	assert.Equal(t, http.StatusCreated, w.Code)

	var d dispute.Dispute
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, dispute.StatusOpen, d.Status)
}

func TestHandlerReportDisputeTwice(t *testing.T) {
	service, router := setupHandlerTest(10)

	service.On("ReportDispute", mock.Anything, 7, 10, mock.Anything).
		Return(nil, ErrAlreadyDisputed)

	w := performJSON(router, http.MethodPost, "/bookings/7/dispute", DisputeRequest{Reason: "again"})

	assert.Equal(t, http.StatusConflict, w.Code)
}
