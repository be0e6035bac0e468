package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/uninotes/core/session"
	"github.com/trezcool/uninotes/core/user"
)

type profileRepository struct {
	db *DB
}

var _ user.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *DB) user.Repository {
	return &profileRepository{db: db}
}

// joined returns p with its faculty and program names. Caller must hold the lock.
func (repo *profileRepository) joined(p user.Profile) user.Profile {
	p.FacultyName = repo.db.faculties[p.FacultyID].Name
	p.ProdiName = repo.db.prodis[p.ProdiID].Name
	return p
}

func (repo *profileRepository) CreateProfile(_ context.Context, p user.Profile) (user.Profile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.profiles[p.ID]; ok {
		return user.Profile{}, session.ErrEmailTaken
	}
	for _, other := range repo.db.profiles {
		if other.Email == p.Email {
			return user.Profile{}, session.ErrEmailTaken
		}
	}
	p.Role = user.NormalizeRole(string(p.Role))
	repo.db.profiles[p.ID] = &p
	return repo.joined(p), nil
}

func (repo *profileRepository) GetProfile(_ context.Context, id string) (user.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.profiles[id]; ok {
		return repo.joined(*p), nil
	}
	return user.Profile{}, user.ErrNotFound
}

func (repo *profileRepository) GetProfileByEmail(_ context.Context, email string) (user.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, p := range repo.db.profiles {
		if p.Email == email {
			return repo.joined(*p), nil
		}
	}
	return user.Profile{}, user.ErrNotFound
}

func (repo *profileRepository) QueryProfiles(_ context.Context) ([]user.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	profiles := make([]user.Profile, 0, len(repo.db.profiles))
	for _, p := range repo.db.profiles {
		profiles = append(profiles, repo.joined(*p))
	}
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].Role != profiles[j].Role {
			return profiles[i].Role < profiles[j].Role
		}
		return profiles[i].Email < profiles[j].Email
	})
	return profiles, nil
}

func (repo *profileRepository) UpdateRole(_ context.Context, id string, role user.Role) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	p, ok := repo.db.profiles[id]
	if !ok {
		return user.ErrNotFound
	}
	p.Role = role
	return nil
}

func (repo *profileRepository) UpdateAvatar(_ context.Context, id, url string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	p, ok := repo.db.profiles[id]
	if !ok {
		return user.ErrNotFound
	}
	p.AvatarURL = url
	return nil
}
