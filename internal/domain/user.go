package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Caller is the authenticated identity handed to every engine
// operation by the transport layer. Users and admins live in separate
// tables, so the role tag tells the services which table the ID refers to.
type Caller struct {
	ID   int
	Role Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

type User struct {
	ID               int       `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	FullName         string    `json:"full_name"`
	PhoneNumber      string    `json:"phone_number"`
	IsActive         bool      `json:"is_active"`
	RegistrationDate time.Time `json:"registration_date"`
	LastLogin        null.Time `json:"last_login"`
}

type Admin struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	IsActive     bool      `json:"is_active"`
	CreatedDate  time.Time `json:"created_date"`
	LastLogin    null.Time `json:"last_login"`
}

type RegisterUserDTO struct {
	Username    string `json:"username" binding:"required,min=3,max=100"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6,max=100"`
	FullName    string `json:"full_name" binding:"required,max=100"`
	PhoneNumber string `json:"phone_number" binding:"required,max=15"`
}

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponseDTO struct {
	Token    string `json:"token"`
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
