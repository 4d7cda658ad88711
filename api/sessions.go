package api

import (
	"net/http"

	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/Domenick1991/classbooking/internal/service/sessions"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	service sessions.SessionUseCase
}

func NewSessionHandler(service sessions.SessionUseCase) *SessionHandler {
	return &SessionHandler{service: service}
}

func (h *SessionHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
}

type sessionResponse struct {
	domain.Session
	AvailableSpots int `json:"available_spots"`
}

func newSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{Session: s, AvailableSpots: s.AvailableSpots()}
}

func (h *SessionHandler) list(c *gin.Context) {
	var day domain.Weekday
	if raw := c.Query("day"); raw != "" {
		parsed, err := domain.ParseWeekday(raw)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		day = parsed
	}

	list, err := h.service.List(c.Request.Context(), day)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	resp := make([]sessionResponse, 0, len(list))
	for _, s := range list {
		resp = append(resp, newSessionResponse(s))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) get(c *gin.Context) {
	session, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(*session))
}
