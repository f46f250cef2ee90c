package domain

import "errors"

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrPurposeNotFound      = errors.New("purpose not found")
	ErrEmptyDraft           = errors.New("draft text is empty")

	// ErrInvalidBillingResponse marks an invoice or verification payload
	// that failed schema validation. Attempt-fatal, never retried.
	ErrInvalidBillingResponse = errors.New("invalid billing response")

	// ErrWalletPayment marks a failure raised by the automatic-payment
	// capability. Attempt-fatal; the draft is preserved for retry.
	ErrWalletPayment = errors.New("wallet payment failed")

	// ErrUnsupportedExtraction marks attachment types whose text extraction
	// needs an external engine (PDF).
	ErrUnsupportedExtraction = errors.New("unsupported attachment extraction")
)
