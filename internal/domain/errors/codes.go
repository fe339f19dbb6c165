package errors

// Error codes shared across the service.
const (
	ErrInternal           = "INTERNAL"
	ErrNotFound           = "NOT_FOUND"
	ErrValidation         = "VALIDATION"
	ErrUnsupportedGateway = "UNSUPPORTED_GATEWAY"
	ErrGateway            = "GATEWAY"
	ErrGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	ErrSignature          = "SIGNATURE"
	ErrInvalidState       = "INVALID_STATE"
	ErrConflict           = "CONFLICT"
)
