package model

// User is an application user. Providers (the people performing a
// diligência) are users too.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	LastName string `json:"last_name,omitempty"`
	Email    string `json:"email"`
	Type     string `json:"type"`
	Birthday string `json:"birthday,omitempty"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.Name
	}
	return u.Name + " " + u.LastName
}

// IsAdmin reports whether the user has the admin role. The role comes from
// the server; it is never derived from token claims.
func (u User) IsAdmin() bool {
	return u.Type == UserTypeAdmin
}

// UserUpdate is the body of a profile update.
type UserUpdate struct {
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Email    string `json:"email"`
	Birthday string `json:"birthday"`
}

// NewUser is the body of a user creation. The API checks that the two
// passwords match as well.
type NewUser struct {
	Name                 string `json:"name"`
	LastName             string `json:"last_name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Type                 string `json:"type"`
	Birthday             string `json:"birthday,omitempty"`
}
