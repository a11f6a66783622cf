package contextkeys

type contextKey string

const (
	SessionIDKey contextKey = "SessionID"
	UsernameKey  contextKey = "Username"
	RequestIDKey contextKey = "RequestID"
)
