//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"time"

	"viztalk/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(email, username, hashedPassword string) (string, error)
	GetUserByEmail(email string) (User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// User is the repository-level representation of an account. The public
// directory entry lives separately as a Profile.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func userKey(email string) []byte {
	return []byte("user:" + email)
}

// CreateUser persists a new account keyed by email and returns the generated
// participant identifier. The existence check and the write share one update
// transaction, so two concurrent registrations cannot both win.
func (u UserRepository) CreateUser(email, username, hashedPassword string) (string, error) {
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(user)
	if err != nil {
		return "", err
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(email)); err == nil {
			return errors.ErrUserAlreadyExists
		} else if !goerrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(userKey(email), data)
	})
	if goerrors.Is(err, badger.ErrConflict) {
		return "", errors.ErrUserAlreadyExists
	}
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (u UserRepository) GetUserByEmail(email string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(email))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return User{}, errors.ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}
