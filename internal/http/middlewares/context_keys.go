package middlewares

// gin context keys
const (
	CtxRequestID = "request_id"
	CtxUserID    = "auth.userID"
	CtxRole      = "auth.role"
	CtxUser      = "auth.user"
)

// SessionCookieName is the cookie the session token travels in.
const SessionCookieName = "token"
