package launch

import "errors"

// Errors returned by the service. Handlers map them to HTTP statuses.
var (
	// ErrInvalidInput is returned when a request fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingFields is returned when a create request lacks a required field.
	ErrMissingFields = errors.New("Missing required fields")

	// ErrExceedsMaxSupply is returned when a mint would pass the maxSupply cap.
	ErrExceedsMaxSupply = errors.New("Exceeds max supply")

	// ErrAirdropFailed is returned when the faucet transfer has no status.
	ErrAirdropFailed = errors.New("Airdrop failed")

	// ErrRateLimited is returned when an address asks for airdrops too often.
	ErrRateLimited = errors.New("too many airdrop requests")

	// ErrBlockhashExpired is returned when a transaction can no longer land.
	// The client must rebuild it.
	ErrBlockhashExpired = errors.New("blockhash expired")

	// ErrTransactionFailed is returned when a submitted transaction executed with an error.
	ErrTransactionFailed = errors.New("transaction failed")
)

// IsClientError reports whether err was caused by the request rather than the service.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrMissingFields) ||
		errors.Is(err, ErrExceedsMaxSupply)
}
