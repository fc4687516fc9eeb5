package tracker

import "errors"

// Named errors surfaced to the page as error events. None of these are fatal;
// every one is recovered locally and the user can retry.
var (
	ErrPermissionDenied      = errors.New("permission denied")
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	ErrMockLocationDetected  = errors.New("mock location detected")
	ErrTimezoneTamper        = errors.New("timezone tamper detected")
	ErrTrialLimitReached     = errors.New("trial limit reached")
	ErrClonedAppSuspected    = errors.New("cloned app suspected")
	ErrOutsideActiveWindow   = errors.New("outside active window")
)
