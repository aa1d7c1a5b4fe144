package model

import "time"

// Role is the authority granted to a user. Route access is decided from it.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User represents an application user record as stored in the
// `users` table. The json tags are omitted here because these structs
// are used internally by the repository and service layers; handlers
// define separate response types so PasswordHash never leaves the
// process.
//
// Fields:
//
//	ID           – opaque, stable identifier (UUID string).
//	Email        – unique, case-sensitive; used as the token subject.
//	Firstname    – given name.
//	Secondname   – family name.
//	Role         – ADMIN or USER.
//	PasswordHash – bcrypt hash of the password.
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           string    // users.id
	Email        string    // users.email
	Firstname    string    // users.firstname
	Secondname   string    // users.secondname
	Role         Role      // users.role
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
}
