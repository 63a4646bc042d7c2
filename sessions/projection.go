package sessions

// Session is the read-only view of a token handed to page code.
// Consumers that observe Error must treat the session as unusable.
type Session struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	University   string   `json:"university"`
	Career       string   `json:"career"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Error        ErrorTag `json:"error,omitempty"`
}

// Project maps a token to its page-facing view. It performs no I/O.
func Project(t *Token) *Session {
	if t == nil {
		return nil
	}
	return &Session{
		ID:           t.UserID,
		Email:        t.Email,
		University:   t.University,
		Career:       t.Career,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Error:        t.Error,
	}
}
