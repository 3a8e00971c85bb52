//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"
	"time"

	"forum-lab/domain"
	"forum-lab/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(username, email, hashedPassword string) (domain.User, error)
	FindByID(id uuid.UUID) (domain.User, error)
	FindByUsername(username string) (domain.User, error)
	FindByEmail(email string) (domain.User, error)
	UpdateRoles(id uuid.UUID, roles []string) (domain.User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

type diskUser struct {
	ID           string   `cbor:"id"`
	Username     string   `cbor:"username"`
	Email        string   `cbor:"email"`
	PasswordHash string   `cbor:"password_hash"`
	Roles        []string `cbor:"roles"`
	CreatedAt    int64    `cbor:"created_at"`
}

// The record lives under the id key; username and email keys only hold the
// id so lookups by either stay one extra Get away.
func userKey(id string) []byte       { return []byte("user:id:" + id) }
func usernameKey(name string) []byte { return []byte("user:name:" + name) }
func emailKey(email string) []byte   { return []byte("user:email:" + email) }

// CreateUser persists a new account. Both the username and the email must be
// free; the check and the three writes share one transaction, so two
// concurrent registrations cannot both win the same name.
func (u UserRepository) CreateUser(username, email, hashedPassword string) (domain.User, error) {
	user := domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Roles:        []string{"user"},
		CreatedAt:    time.Now().UTC(),
	}
	data, err := cbor.Marshal(fromDomainUser(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(usernameKey(username)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if _, err := txn.Get(emailKey(email)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(userKey(user.ID.String()), data); err != nil {
			return err
		}
		if err := txn.Set(usernameKey(username), []byte(user.ID.String())); err != nil {
			return err
		}
		return txn.Set(emailKey(email), []byte(user.ID.String()))
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrUserAlreadyExists) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return user, nil
}

func (u UserRepository) FindByID(id uuid.UUID) (domain.User, error) {
	return u.fetch(userKey(id.String()))
}

func (u UserRepository) FindByUsername(username string) (domain.User, error) {
	return u.fetchIndexed(usernameKey(username))
}

func (u UserRepository) FindByEmail(email string) (domain.User, error) {
	return u.fetchIndexed(emailKey(email))
}

// UpdateRoles rewrites the role list of an existing account, used for admin
// promotion and demotion. Everything else on the record stays as it is.
func (u UserRepository) UpdateRoles(id uuid.UUID, roles []string) (domain.User, error) {
	var updated domain.User
	err := u.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id.String()))
		if err != nil {
			return err
		}
		var disk diskUser
		if err := item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &disk)
		}); err != nil {
			return err
		}
		disk.Roles = roles
		data, err := cbor.Marshal(disk)
		if err != nil {
			return err
		}
		if err := txn.Set(userKey(id.String()), data); err != nil {
			return err
		}
		updated, err = toDomainUser(disk)
		return err
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return updated, nil
}

func (u UserRepository) fetch(key []byte) (domain.User, error) {
	var disk diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &disk)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return toDomainUser(disk)
}

func (u UserRepository) fetchIndexed(indexKey []byte) (domain.User, error) {
	var id string
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return u.fetch(userKey(id))
}

func fromDomainUser(user domain.User) diskUser {
	return diskUser{
		ID:           user.ID.String(),
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Roles:        user.Roles,
		CreatedAt:    user.CreatedAt.Unix(),
	}
}

func toDomainUser(disk diskUser) (domain.User, error) {
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:           id,
		Username:     disk.Username,
		Email:        disk.Email,
		PasswordHash: disk.PasswordHash,
		Roles:        disk.Roles,
		CreatedAt:    time.Unix(disk.CreatedAt, 0).UTC(),
	}, nil
}
