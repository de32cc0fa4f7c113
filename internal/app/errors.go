package app

import "errors"

var (
	// ErrQuotaExceeded means a non-premium caller has used up the free tier.
	ErrQuotaExceeded = errors.New("free usage limit reached")
	// ErrPremiumRequired means the operation is gated on subscription tier.
	ErrPremiumRequired = errors.New("premium plan required")
	// ErrNoResumeText means the uploaded PDF yielded no extractable text.
	ErrNoResumeText = errors.New("no extractable text in pdf")
)
