package usersvc

import "errors"

// User is a registered credential pair. The password is kept and compared
// verbatim; it is not hashed.
type User struct {
	Name     string
	Password string
}

type UserRepository interface {
	Create(u User) error
	Find(username string) (User, error)
}

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyExists   = errors.New("username already exists")
	ErrUserNotFound    = errors.New("user not found")
)
