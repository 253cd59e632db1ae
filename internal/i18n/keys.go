// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired        = "auth.required"
	KeyAuthInvalidToken    = "auth.invalid_token"
	KeyAuthTokenExpired    = "auth.token_expired"
	KeyAuthLoginSuccess    = "auth.login_success"
	KeyAuthLogoutSuccess   = "auth.logout_success"
	KeyAuthRegisterSuccess = "auth.register_success"
	KeyAuthOTPSent         = "auth.otp_sent"
	KeyAuthPasswordReset   = "auth.password_reset"

	// User Management
	KeyUserProfileUpdated  = "user.profile_updated"
	KeyUserPasswordChanged = "user.password_changed"
	KeyUserAvatarUpdated   = "user.avatar_updated"

	// Products
	KeyProductCreated      = "product.created"
	KeyProductUpdated      = "product.updated"
	KeyProductDeleted      = "product.deleted"
	KeyProductImageAdded   = "product.image_added"
	KeyProductImageDeleted = "product.image_deleted"
	KeyReviewPosted        = "product.review_posted"

	// Categories
	KeyCategoryCreated = "category.created"
	KeyCategoryDeleted = "category.deleted"

	// Orders
	KeyOrderPlaced        = "order.placed"
	KeyOrderStatusChanged = "order.status_changed"

	// Admin
	KeyAdminAccessDenied  = "admin.access_denied"
	KeyAdminOrdersCleared = "admin.orders_acknowledged"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// Upstream
	KeyExternalServiceFailed = "external.failed"
)
