package domain

import "errors"

var (
	ErrConfigIncomplete        = errors.New("smtp config incomplete")
	ErrVerifyFailed            = errors.New("smtp verify failed")
	ErrSendFailed              = errors.New("smtp send failed")
	ErrSendFailedAfterFallback = errors.New("smtp send failed after fallback")
	ErrTestFailed              = errors.New("smtp test failed")
	// ErrMessageRejected marks send failures caused by the message itself
	// (unbuildable headers, permanently rejected recipients), not the account.
	ErrMessageRejected = errors.New("message rejected")
)
