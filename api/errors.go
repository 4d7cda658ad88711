package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidMember      = "invalid_member"
	codeInvalidDay         = "invalid_day"
	codeSessionNotFound    = "session_not_found"
	codeSessionFull        = "session_full"
	codeAlreadyBooked      = "already_booked"
	codeAlreadyWaitlisted  = "already_waitlisted"
	codeRateLimited        = "rate_limited"
	codeTryAgain           = "try_again"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, errorResponse{Error: msg, Code: code})
}

// writeDomainError maps service errors to a status and a stable code.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidMember):
		writeError(c, http.StatusBadRequest, codeInvalidMember, err.Error())
	case errors.Is(err, domain.ErrInvalidWeekday):
		writeError(c, http.StatusBadRequest, codeInvalidDay, err.Error())
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(c, http.StatusNotFound, codeSessionNotFound, "session not found")
	case errors.Is(err, domain.ErrSessionFull):
		writeError(c, http.StatusConflict, codeSessionFull, "session is full")
	case errors.Is(err, domain.ErrAlreadyBooked):
		writeError(c, http.StatusConflict, codeAlreadyBooked, "already booked for this session")
	case errors.Is(err, domain.ErrAlreadyWaitlisted):
		writeError(c, http.StatusConflict, codeAlreadyWaitlisted, "already on the waitlist for this session")
	case errors.Is(err, domain.ErrRateLimitExceeded):
		writeError(c, http.StatusTooManyRequests, codeRateLimited, "daily reservation attempts exceeded")
	case errors.Is(err, domain.ErrTransientConflict):
		writeError(c, http.StatusServiceUnavailable, codeTryAgain, "please try again")
	default:
		log.Printf("request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		writeError(c, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
