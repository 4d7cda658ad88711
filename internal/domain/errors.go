package domain

import "errors"

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionFull          = errors.New("session is fully booked")
	ErrAlreadyBooked        = errors.New("member already booked this session")
	ErrAlreadyWaitlisted    = errors.New("member already on the waitlist for this session")
	ErrRateLimitExceeded    = errors.New("daily reservation attempt limit reached")
	ErrTransientConflict    = errors.New("concurrent update conflict, please try again")
	ErrNotificationDelivery = errors.New("notification delivery failed")
	ErrInvalidMember        = errors.New("invalid member data")
	ErrInvalidWeekday       = errors.New("invalid weekday")
	ErrInvalidClockTime     = errors.New("invalid start time")
)
