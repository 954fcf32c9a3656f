package entity

import "github.com/rotisserie/eris"

// Standard domain errors
var (
	// Fatal for the request: masking could not be guaranteed.
	ErrNormalization = eris.New("normalization failed")
	// Input was well-formed enough to mask but is refused (injection, length).
	ErrInputRejected        = eris.New("input rejected")
	ErrRateLimitExceeded    = eris.New("rate limit exceeded: too many requests in session window")
	ErrRetrieverUnavailable = eris.New("candidate retriever unavailable")
	ErrGenerationTimeout    = eris.New("generation timed out")
	ErrGenerationFault      = eris.New("generation failed")
	ErrNonDeterministic     = eris.New("generator reported non-deterministic decoding")
	ErrSafetyViolation      = eris.New("safety gate violation")
	ErrRetrievalExhausted   = eris.New("no policy passages above relevance floor")
	ErrConfigInvalid        = eris.New("invalid configuration")
	// The only error a caller of HandleQuery ever sees.
	ErrServiceUnavailable = eris.New("service unavailable")
)
