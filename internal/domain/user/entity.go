package user

// PasswordColumn is the column holding the password hash.
const PasswordColumn = "password"

// User represents a user entity in the system.
type User struct {
	ID       int64  `json:"id"`    // ID is assigned by the database and never changes
	Email    string `json:"email"` // Email is the contact address of the user
	Password string `json:"-"`     // Password holds the bcrypt hash and is write-only
	Name     string `json:"name"`  // Name is the display name of the user
}

// Patch carries the fields supplied for a partial update.
// A nil field was not supplied and stays unchanged.
type Patch struct {
	Email    *string
	Password *string
	Name     *string
}

// Empty reports whether no field was supplied.
func (p Patch) Empty() bool {
	return p.Email == nil && p.Password == nil && p.Name == nil
}

// Columns returns the supplied fields keyed by column name.
func (p Patch) Columns() map[string]any {
	cols := make(map[string]any, 3)
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.Password != nil {
		cols[PasswordColumn] = *p.Password
	}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	return cols
}

// Row is a raw table row keyed by column name.
type Row map[string]any

// Sanitize removes the password column from the row.
func (r Row) Sanitize() Row {
	delete(r, PasswordColumn)
	return r
}
