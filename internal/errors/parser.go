package errors

import (
	"context"
	"errors"
	"strings"

	"github.com/ikkim/gomarketplace-cart/internal/app/cartctx"
	"github.com/ikkim/gomarketplace-cart/internal/app/repository"
	"github.com/ikkim/gomarketplace-cart/internal/app/service"
	"github.com/ikkim/gomarketplace-cart/internal/storage"
	"gorm.io/gorm"
)

// ErrorInfo is the HTTP view of an error.
type ErrorInfo struct {
	Status  int    // HTTP status code
	Code    string // code from codes.go
	Message string // client-facing message
}

// ParseError maps an error to a status, code and message. Backend details are
// kept out of the message.
func ParseError(err error, op string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Status:  500,
			Code:    InternalServerError,
			Message: "Something went wrong",
		}
	}

	// 1. Cart outcomes
	if errors.Is(err, service.ErrProductNotFound) {
		return ErrorInfo{Status: 404, Code: CartItemNotFound, Message: "Product is not in the cart"}
	}
	if errors.Is(err, service.ErrAlreadyHydrated) {
		return ErrorInfo{Status: 409, Code: CartAlreadyHydrated, Message: "Cart was already loaded"}
	}
	var cfgErr *cartctx.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ErrorInfo{Status: 500, Code: InternalConfigError, Message: cfgErr.Message}
	}

	// 2. Persistence
	if errors.Is(err, repository.ErrMalformedCart) {
		return ErrorInfo{Status: 500, Code: CartMalformed, Message: "Stored cart could not be read"}
	}
	if errors.Is(err, service.ErrPersistFailed) {
		return ErrorInfo{Status: 500, Code: CartPersistFailed, Message: "Cart was updated but could not be saved"}
	}
	if errors.Is(err, storage.ErrEmptyKey) {
		return ErrorInfo{Status: 500, Code: InternalConfigError, Message: "Cart storage key is not configured"}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Status: 404, Code: CartItemNotFound, Message: getNotFoundMessage(op)}
	}

	// 3. Deadlines
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorInfo{Status: 504, Code: InternalTimeout, Message: "Storage did not answer in time"}
	}

	// 4. Network/connection errors
	errStrLower := strings.ToLower(err.Error())
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "i/o timeout") {
		return ErrorInfo{
			Status:  503,
			Code:    InternalStorageError,
			Message: "Storage is unavailable, please try again later",
		}
	}

	// 5. Fallback
	return ErrorInfo{
		Status:  500,
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(op),
	}
}

func getNotFoundMessage(op string) string {
	if strings.Contains(strings.ToLower(op), "cart") {
		return "Cart not found"
	}
	return "Requested data not found"
}

func getDefaultErrorMessage(op string) string {
	contextLower := strings.ToLower(op)

	switch {
	case strings.Contains(contextLower, "add"):
		return "Failed to add product to cart, please try again later"
	case strings.Contains(contextLower, "increment"), strings.Contains(contextLower, "decrement"):
		return "Failed to update quantity, please try again later"
	case strings.Contains(contextLower, "hydrate"), strings.Contains(contextLower, "load"):
		return "Failed to load cart, please try again later"
	}
	return "Something went wrong, please try again later"
}

// ParseAndRespond parses err and writes the matching ErrorResponse.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, err error, op string) {
	errorInfo := ParseError(err, op)
	c.JSON(errorInfo.Status, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
