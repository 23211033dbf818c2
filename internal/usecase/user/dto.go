package user

import domain "user-api/internal/domain/user"

// CreateUserRequest represents the request payload for creating a new user.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,min=2"`
}

// UpdateUserRequest represents the request payload for updating an existing user.
// Nil fields were not supplied and are left unchanged.
type UpdateUserRequest struct {
	ID       int64   `json:"-"`
	Email    *string `json:"email" validate:"omitnil,email"`
	Password *string `json:"password" validate:"omitnil,min=8"`
	Name     *string `json:"name" validate:"omitnil,min=2"`
}

// User is a sanitized user: it has no password field.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ListUsersResponse holds every row of the user table, sanitized.
type ListUsersResponse struct {
	Users []domain.Row
}

func toUser(u *domain.User) *User {
	return &User{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
	}
}
