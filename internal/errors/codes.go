package errors

// Error code constants returned in ErrorResponse.Error.
// Format: CATEGORY_SPECIFIC_DETAIL
// Clients map these codes to their own messages.

const (
	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT" // bad request body
	ValidationInvalidID    = "VALIDATION_INVALID_ID"    // empty or malformed product id
	ValidationRequired     = "VALIDATION_REQUIRED"      // missing field

	// ==================== Cart (CART_) ====================
	CartItemNotFound    = "CART_ITEM_NOT_FOUND"   // id not in cart
	CartPersistFailed   = "CART_PERSIST_FAILED"   // write to storage failed
	CartMalformed       = "CART_MALFORMED"        // persisted value does not parse
	CartAlreadyHydrated = "CART_ALREADY_HYDRATED" // second hydrate

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError  = "INTERNAL_SERVER_ERROR"  // unexpected failure
	InternalStorageError = "INTERNAL_STORAGE_ERROR" // backend unreachable
	InternalTimeout      = "INTERNAL_TIMEOUT"       // deadline exceeded
	InternalConfigError  = "INTERNAL_CONFIG_ERROR"  // no cart provider
)
