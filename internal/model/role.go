package model

// Role is the caller type asserted by the identity provider.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// Identity is the verified caller attached to every authenticated request.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}
