package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/Domenick1991/classbooking/internal/service/booking"
	"github.com/Domenick1991/classbooking/internal/service/waitlist"
	"github.com/gin-gonic/gin"
)

// ClientIDHeader identifies the caller for rate limiting. The remote IP is
// used when it is absent.
const ClientIDHeader = "X-Client-ID"

type BookingHandler struct {
	bookings booking.BookingUseCase
	waitlist waitlist.WaitlistUseCase
}

type reserveRequest struct {
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email" binding:"required"`
	Age           int    `json:"age" binding:"required"`
	HealthNotes   string `json:"health_notes"`
	WantsReminder bool   `json:"wants_reminder"`
	DeviceToken   string `json:"device_token"`
}

type bookingResponse struct {
	Key          string `json:"key"`
	SessionID    string `json:"session_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	CreatedAt    string `json:"created_at"`
	ReminderSent bool   `json:"reminder_sent"`
	Reminder     bool   `json:"reminder"`
}

type waitlistResponse struct {
	Key       string `json:"key"`
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	Reminder  bool   `json:"reminder"`
}

func NewBookingHandler(bookings booking.BookingUseCase, waitlist waitlist.WaitlistUseCase) *BookingHandler {
	return &BookingHandler{bookings: bookings, waitlist: waitlist}
}

// Register mounts the handlers under the sessions group.
func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/:id/bookings", h.reserve)
	router.POST("/:id/waitlist", h.joinWaitlist)
}

func (h *BookingHandler) input(c *gin.Context) (booking.ReserveInput, bool) {
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
		return booking.ReserveInput{}, false
	}
	return booking.ReserveInput{
		SessionID: c.Param("id"),
		ClientID:  clientID(c),
		Member: domain.Member{
			Name:        req.Name,
			Email:       req.Email,
			Age:         req.Age,
			HealthNotes: req.HealthNotes,
		},
		WantsReminder: req.WantsReminder,
		DeviceToken:   req.DeviceToken,
	}, true
}

func (h *BookingHandler) reserve(c *gin.Context) {
	in, ok := h.input(c)
	if !ok {
		return
	}

	b, err := h.bookings.Reserve(c.Request.Context(), in)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bookingResponse{
		Key:          b.Key,
		SessionID:    b.SessionID,
		Name:         b.MemberName,
		Email:        b.MemberEmail,
		CreatedAt:    b.CreatedAt.Format(time.RFC3339),
		ReminderSent: b.ReminderSent,
		Reminder:     b.HasDeviceToken(),
	})
}

func (h *BookingHandler) joinWaitlist(c *gin.Context) {
	in, ok := h.input(c)
	if !ok {
		return
	}

	e, err := h.waitlist.JoinWaitlist(c.Request.Context(), in)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, waitlistResponse{
		Key:       e.Key,
		SessionID: e.SessionID,
		Name:      e.MemberName,
		Email:     e.MemberEmail,
		Status:    string(e.Status),
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
		Reminder:  e.DeviceToken != "",
	})
}

func clientID(c *gin.Context) string {
	if id := c.GetHeader(ClientIDHeader); id != "" {
		return id
	}
	return c.ClientIP()
}
