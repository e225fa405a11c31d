package model

// User is the authenticated analyst or director as returned by /auth/me
type User struct {
	ID         string     `json:"id" yaml:"id"`
	Username   string     `json:"username" yaml:"username"`
	Email      string     `json:"email" yaml:"email"`
	FullName   string     `json:"full_name" yaml:"full_name"`
	Role       string     `json:"role" yaml:"role"`
	Department string     `json:"department,omitempty" yaml:"department,omitempty"`
	Position   string     `json:"position,omitempty" yaml:"position,omitempty"`
	IsActive   bool       `json:"is_active" yaml:"is_active"`
	LastLogin  *Timestamp `json:"last_login,omitempty" yaml:"-"`
}

// DisplayName returns the full name, falling back to the username
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// TokenResponse is the body returned by /auth/login and /auth/refresh
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds
	User        *User  `json:"user,omitempty"`
}
