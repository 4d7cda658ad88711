package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSessionUseCase struct {
	mock.Mock
}

func (m *MockSessionUseCase) List(ctx context.Context, day domain.Weekday) ([]domain.Session, error) {
	args := m.Called(ctx, day)
	return args.Get(0).([]domain.Session), args.Error(1)
}

func (m *MockSessionUseCase) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func newGetContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

var pilates = domain.Session{
	ID:          "s1",
	Name:        "Pilates",
	Instructor:  "Ana",
	DayOfWeek:   domain.Wednesday,
	StartTime:   domain.ClockTime{Hour: 18, Minute: 30},
	Capacity:    10,
	BookedCount: 7,
}

func TestSessionHandler_list(t *testing.T) {
	service := &MockSessionUseCase{}
	handler := NewSessionHandler(service)
	c, w := newGetContext("/sessions?day=Mi%C3%A9rcoles")

	service.On("List", mock.Anything, domain.Wednesday).Return([]domain.Session{pilates}, nil).Once()

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "18:30", resp[0]["start_time"])
	assert.Equal(t, float64(3), resp[0]["available_spots"])
	service.AssertExpectations(t)
}

func TestSessionHandler_list_AllDays(t *testing.T) {
	service := &MockSessionUseCase{}
	handler := NewSessionHandler(service)
	c, w := newGetContext("/sessions")

	service.On("List", mock.Anything, domain.Weekday("")).Return([]domain.Session{}, nil).Once()

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestSessionHandler_list_InvalidDay(t *testing.T) {
	service := &MockSessionUseCase{}
	handler := NewSessionHandler(service)
	c, w := newGetContext("/sessions?day=someday")

	handler.list(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, codeInvalidDay, decodeError(t, w).Code)
	service.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestSessionHandler_get(t *testing.T) {
	service := &MockSessionUseCase{}
	handler := NewSessionHandler(service)

	service.On("GetByID", mock.Anything, "s1").Return(&pilates, nil).Once()
	service.On("GetByID", mock.Anything, "nope").Return(nil, domain.ErrSessionNotFound).Once()

	c, w := newGetContext("/sessions/s1")
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	handler.get(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newGetContext("/sessions/nope")
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	handler.get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, codeSessionNotFound, decodeError(t, w).Code)
}
