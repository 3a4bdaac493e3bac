//go:generate go run go.uber.org/mock/mockgen -source=profile.go -destination=../mocks/mock_profile_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"time"

	"viztalk/domain"
	"viztalk/errors"

	"github.com/dgraph-io/badger/v4"
)

type IProfileRepository interface {
	Upsert(profile domain.Profile) error
	Get(participantID string) (domain.Profile, error)
	List(excludeID string) ([]domain.Profile, error)
}

type ProfileRepository struct {
	db *badger.DB
}

func NewProfileRepository(db *badger.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

type diskProfile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	AvatarColor string    `json:"avatar_color"`
	CreatedAt   time.Time `json:"created_at"`
}

func profileKey(participantID string) []byte {
	return []byte("profile:" + participantID)
}

func (p ProfileRepository) Upsert(profile domain.Profile) error {
	bytes, err := json.Marshal(fromProfile(profile))
	if err != nil {
		return err
	}
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(profileKey(profile.ID), bytes)
	})
}

func (p ProfileRepository) Get(participantID string) (domain.Profile, error) {
	var disk diskProfile
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(profileKey(participantID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &disk)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Profile{}, errors.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, err
	}
	return toProfile(disk), nil
}

// List returns every directory entry except the excluded participant,
// which backs the "everyone but me" contact list.
func (p ProfileRepository) List(excludeID string) ([]domain.Profile, error) {
	var profiles []domain.Profile
	err := p.db.View(func(txn *badger.Txn) error {
		prefix := []byte("profile:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var disk diskProfile
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &disk)
			})
			if err != nil {
				return err
			}
			if disk.ID == excludeID {
				continue
			}
			profiles = append(profiles, toProfile(disk))
		}
		return nil
	})
	return profiles, err
}

func fromProfile(profile domain.Profile) diskProfile {
	return diskProfile{
		ID:          profile.ID,
		Username:    profile.Username,
		AvatarColor: profile.AvatarColor,
		CreatedAt:   profile.CreatedAt,
	}
}

func toProfile(disk diskProfile) domain.Profile {
	return domain.Profile{
		ID:          disk.ID,
		Username:    disk.Username,
		AvatarColor: disk.AvatarColor,
		CreatedAt:   disk.CreatedAt.UTC(),
	}
}
