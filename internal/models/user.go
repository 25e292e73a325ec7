package models

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UserClaims is what the service reads from a verified token; the identity
// provider owns the rest of the user record.
type UserClaims struct {
	ID    string `json:"sub"`
	Role  string `json:"role"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u UserClaims) IsAdmin() bool {
	return u.Role == RoleAdmin
}
