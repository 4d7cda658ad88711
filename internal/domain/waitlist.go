package domain

import "time"

type WaitlistStatus string

const WaitlistStatusWaiting WaitlistStatus = "waiting"

// WaitlistEntry is a pending request for a full session. Key is the
// normalized member email and is unique within SessionID.
type WaitlistEntry struct {
	Key         string
	SessionID   string
	MemberName  string
	MemberEmail string
	MemberAge   int
	CreatedAt   time.Time
	Status      WaitlistStatus
	DeviceToken string
}
