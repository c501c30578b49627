package model

// User is a local account. PasswordHash is empty for accounts created
// through a federated login; such accounts always carry at least one
// provider identifier. BirthDate is 0 when never supplied.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone,omitempty"`
	BirthDate    int64  `json:"birth_date,omitempty"`
	RoleID       int64  `json:"role_id"`
	GoogleID     string `json:"-"`
	FacebookID   string `json:"-"`
	TwitterID    string `json:"-"`
	LinkedInID   string `json:"-"`
	Ctime        int64  `json:"ctime"`
	Mtime        int64  `json:"mtime"`
}
