package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/"

	// Auth Routes - Login & Logout
	RouteLogin      = "/login"
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// API Routes
	RouteAPISession = "/api/auth/session"

	// Protected landing page, the default post-login destination
	RouteDashboard = "/dashboard"

	RouteHealth = "/healthz"
)

// Query and form parameter names
const (
	paramCallbackURL = "callbackUrl"
	paramError       = "error"
	paramEmail       = "email"
	paramPassword    = "password"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"

	msgInvalidLogin = "Invalid email or password"
)
