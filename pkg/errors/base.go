package errors

import "net/http"

func init() {
	RegisterService(ServiceCommon, "common")
}

// ============================================================================
// Request Errors (Category: 01)
// ============================================================================

var (
	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 0),
		HTTP:      http.StatusBadRequest,
		MessageEN: "Bad request",
		MessageAR: "طلب غير صالح",
	})

	// ErrInvalidParam indicates an invalid parameter.
	ErrInvalidParam = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryRequest, 1),
		HTTP:      http.StatusBadRequest,
		MessageEN: "Invalid parameter",
		MessageAR: "معامل غير صالح",
	})
)

// ============================================================================
// Authentication Errors (Category: 02)
// ============================================================================

var (
	// ErrUnauthorized indicates missing credentials.
	ErrUnauthorized = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryAuth, 0),
		HTTP:      http.StatusUnauthorized,
		MessageEN: "Unauthorized",
		MessageAR: "غير مصرح",
	})

	// ErrInvalidToken indicates a token that failed verification.
	ErrInvalidToken = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryAuth, 1),
		HTTP:      http.StatusUnauthorized,
		MessageEN: "Invalid token",
		MessageAR: "رمز غير صالح",
	})

	// ErrTokenExpired indicates an expired token.
	ErrTokenExpired = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryAuth, 2),
		HTTP:      http.StatusUnauthorized,
		MessageEN: "Token expired",
		MessageAR: "انتهت صلاحية الرمز",
	})
)

// ============================================================================
// Internal Errors (Category: 07)
// ============================================================================

var (
	// ErrInternal indicates an unexpected server error.
	ErrInternal = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 0),
		HTTP:      http.StatusInternalServerError,
		MessageEN: "Internal server error",
		MessageAR: "خطأ داخلي في الخادم",
	})

	// ErrPanic indicates a recovered panic.
	ErrPanic = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryInternal, 2),
		HTTP:      http.StatusInternalServerError,
		MessageEN: "Internal server error",
		MessageAR: "خطأ داخلي في الخادم",
	})
)

// ============================================================================
// Database & Network Errors (Category: 08, 10)
// ============================================================================

var (
	// ErrDatabase indicates a storage failure.
	ErrDatabase = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryDatabase, 0),
		HTTP:      http.StatusInternalServerError,
		MessageEN: "Database error",
		MessageAR: "خطأ في قاعدة البيانات",
	})

	// ErrServiceUnavailable indicates a dependency that cannot be reached.
	ErrServiceUnavailable = Register(&Errno{
		Code:      MakeCode(ServiceCommon, CategoryNetwork, 0),
		HTTP:      http.StatusServiceUnavailable,
		MessageEN: "Service unavailable",
		MessageAR: "الخدمة غير متاحة",
	})
)
