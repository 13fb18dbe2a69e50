package constants

const (
	// Context Keys
	ContextKeyViewer     = "viewer"
	ContextKeyLogger     = "logger"
	ContextKeyCategories = "sidebarCategories"
	ContextKeyTags       = "sidebarTags"

	// Session Keys
	SessionKeyUserID       = "user_id"
	SessionKeySuccessFlash = "success_flash"

	// SessionName is the cookie holding the session.
	SessionName = "dbsite_session"
)
