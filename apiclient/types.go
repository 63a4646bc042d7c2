package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Route paths on the remote API
const (
	PathLogin        = "/login"
	PathTokenRefresh = "/token/refresh"
	PathProfile      = "/profile"
)

// UserID accepts both numeric and string identifiers from the API.
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user id must be a string or number: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful POST /login.
type LoginResponse struct {
	ID         UserID `json:"id"`
	Email      string `json:"email"`
	University string `json:"university"`
	Career     string `json:"career"`
	Access     string `json:"access"`
	Refresh    string `json:"refresh"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string  `json:"access"`
	Refresh *string `json:"refresh,omitempty"`
}

// Profile is the signed-in student's public profile (GET /profile).
type Profile struct {
	ID        UserID `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Headline  string `json:"headline"`
}

func (p *Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
