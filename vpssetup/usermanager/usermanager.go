package usermanager

// User represents an individual user account on the system.
type User struct {
	Username string // user login name
	UID      int    // user ID
	GID      int    // group ID
	Comment  string // user full name or comment
	HomeDir  string // user home directory
	Shell    string // user's shell
}

// UserManager encompasses the account operations provisioning needs.
type UserManager interface {
	// Fetches the details of a user based on username
	GetUser(username string) (User, error)

	// Reports whether the account already exists
	Exists(username string) (bool, error)

	// Adds a new user with a home directory and login shell
	AddUser(user User) error
}
