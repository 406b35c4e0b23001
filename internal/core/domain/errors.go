package domain

import "errors"

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrNotAuthenticated = errors.New("not authenticated")
var ErrSessionExpired = errors.New("session expired")
var ErrUpstreamUnavailable = errors.New("upstream unavailable")
var ErrFallbackActivated = errors.New("fallback mode activated")
var ErrUnknownCategory = errors.New("unknown fallback category")
var ErrOrderNotFound = errors.New("order not found")
var ErrNotificationRejected = errors.New("notification rejected by upstream")
