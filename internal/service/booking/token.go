package booking

import (
	"context"
	"errors"
	"strings"
)

const maxDeviceTokenLength = 4096

var (
	errMissingDeviceToken = errors.New("device token missing")
	errInvalidDeviceToken = errors.New("device token malformed")
)

// RequestTokenResolver accepts the token the client registered with the
// push provider and sent along with its request.
type RequestTokenResolver struct{}

func (RequestTokenResolver) Resolve(_ context.Context, raw string) (string, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return "", errMissingDeviceToken
	}
	if len(token) > maxDeviceTokenLength || strings.ContainsAny(token, " \t\r\n") {
		return "", errInvalidDeviceToken
	}
	return token, nil
}
