package shipping

import "errors"

var (
	ErrCarrierUnavailable = errors.New("carrier rate service unavailable")
	ErrMalformedQuote     = errors.New("carrier returned a malformed quote")
)
