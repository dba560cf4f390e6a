package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeMissingField      = "MISSING_FIELD"
	ErrCodeInvalidQuantity   = "INVALID_QUANTITY"
	ErrCodeProductNotFound   = "PRODUCT_NOT_FOUND"
	ErrCodeCartNotFound      = "CART_NOT_FOUND"
	ErrCodeCartExpired       = "CART_EXPIRED"
	ErrCodeCartEmpty         = "CART_EMPTY"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeAddressNotFound   = "ADDRESS_NOT_FOUND"
	ErrCodeShippingNotFound  = "SHIPPING_NOT_FOUND"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodePaymentGateway    = "PAYMENT_GATEWAY"
	ErrCodeOwnership         = "OWNERSHIP"
	ErrCodeTooManyAttempts   = "TOO_MANY_PAYMENT_ATTEMPTS"
	ErrCodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidQuantity   = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrProductNotFound   = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrCartNotFound      = NewDomainError(ErrCodeCartNotFound, "Cart not found")
	ErrCartExpired       = NewDomainError(ErrCodeCartExpired, "Cart has expired")
	ErrCartEmpty         = NewDomainError(ErrCodeCartEmpty, "Cart has no items")
	ErrOrderNotFound     = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrAddressNotFound   = NewDomainError(ErrCodeAddressNotFound, "Address not found")
	ErrShippingNotFound  = NewDomainError(ErrCodeShippingNotFound, "Shipping method not found")
	ErrInsufficientStock = NewDomainError(ErrCodeInsufficientStock, "Insufficient stock for the requested quantity")
	ErrPaymentGateway    = NewDomainError(ErrCodePaymentGateway, "Payment gateway request failed")
	ErrOwnership         = NewDomainError(ErrCodeOwnership, "Resource belongs to a different identity")
	ErrTooManyAttempts   = NewDomainError(ErrCodeTooManyAttempts, "Payment attempt limit reached for this cart")
	ErrInvalidTransition = NewDomainError(ErrCodeInvalidTransition, "Order status transition not allowed")
)
