package shelf

// Session is the authenticated identity every shelf operation runs as.
// It is built once per request by the auth middleware and passed down
// explicitly; the zero value and nil are both unauthenticated.
type Session struct {
	UserID   uint
	Username string
}

// NewSession binds a session to a resolved user.
func NewSession(userID uint, username string) *Session {
	return &Session{UserID: userID, Username: username}
}

// Authenticated reports whether the session carries a user.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != 0
}

func (s *Session) require() error {
	if !s.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}
