package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/session"
	"github.com/trezcool/uninotes/core/user"
)

const profileSelect = `
SELECT p.id_user, p.email, p.full_name, p.role, p.user_profile, p.id_faculty, p.id_prodi, p.created_at,
       f.faculty_name, pr.prodi_name
FROM profiles p
LEFT JOIN faculties f ON f.id_faculty = p.id_faculty
LEFT JOIN prodi pr ON pr.id_prodi = p.id_prodi`

type profileRow struct {
	ID          string         `db:"id_user"`
	Email       string         `db:"email"`
	FullName    sql.NullString `db:"full_name"`
	Role        sql.NullString `db:"role"`
	AvatarURL   sql.NullString `db:"user_profile"`
	FacultyID   sql.NullString `db:"id_faculty"`
	ProdiID     sql.NullString `db:"id_prodi"`
	CreatedAt   time.Time      `db:"created_at"`
	FacultyName sql.NullString `db:"faculty_name"`
	ProdiName   sql.NullString `db:"prodi_name"`
}

func (r profileRow) profile() user.Profile {
	return user.Profile{
		ID:          r.ID,
		Email:       r.Email,
		FullName:    r.FullName.String,
		Role:        user.NormalizeRole(r.Role.String),
		AvatarURL:   r.AvatarURL.String,
		FacultyID:   r.FacultyID.String,
		ProdiID:     r.ProdiID.String,
		FacultyName: r.FacultyName.String,
		ProdiName:   r.ProdiName.String,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type profileRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(exec core.DBExecutor) user.Repository {
	return &profileRepository{exec: exec}
}

func (repo profileRepository) get(ctx context.Context, where string, arg interface{}) (user.Profile, error) {
	var row profileRow
	q := repo.exec.Rebind(profileSelect + " WHERE " + where)
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, arg); err != nil {
		return user.Profile{}, trapNoRowsErr(err, user.ErrNotFound)
	}
	return row.profile(), nil
}

func (repo profileRepository) CreateProfile(ctx context.Context, p user.Profile) (user.Profile, error) {
	q := repo.exec.Rebind(`
INSERT INTO profiles (id_user, email, full_name, role, id_faculty, id_prodi, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.exec.ExecContext(ctx, q,
		p.ID, p.Email, p.FullName, string(user.NormalizeRole(string(p.Role))),
		nullString(p.FacultyID), nullString(p.ProdiID), p.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.Profile{}, session.ErrEmailTaken
		}
		return user.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return repo.GetProfile(ctx, p.ID)
}

func (repo profileRepository) GetProfile(ctx context.Context, id string) (user.Profile, error) {
	return repo.get(ctx, "p.id_user = ?", id)
}

func (repo profileRepository) GetProfileByEmail(ctx context.Context, email string) (user.Profile, error) {
	return repo.get(ctx, "lower(p.email) = lower(?)", email)
}

func (repo profileRepository) QueryProfiles(ctx context.Context) ([]user.Profile, error) {
	var rows []profileRow
	ord := core.DBOrdering{Field: "p.role", Ascending: true}
	q := profileSelect + " ORDER BY " + ord.String() + ", p.email"
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting profiles")
	}
	profiles := make([]user.Profile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, r.profile())
	}
	return profiles, nil
}

func (repo profileRepository) update(ctx context.Context, id, column string, value interface{}) error {
	q := repo.exec.Rebind("UPDATE profiles SET " + column + " = ? WHERE id_user = ?")
	res, err := repo.exec.ExecContext(ctx, q, value, id)
	if err != nil {
		return errors.Wrapf(err, "updating profile %s", column)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo profileRepository) UpdateRole(ctx context.Context, id string, role user.Role) error {
	return repo.update(ctx, id, "role", string(role))
}

func (repo profileRepository) UpdateAvatar(ctx context.Context, id, url string) error {
	return repo.update(ctx, id, "user_profile", url)
}
