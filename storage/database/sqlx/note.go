package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/note"
)

const noteSelect = `
SELECT n.id_catatan, n.id_user, n.judul, n.deskripsi, n.catatan_type, n.file_catatan,
       n.id_faculty, n.id_prodi, n.id_semester, n.id_courses, n.created_at,
       p.full_name, c.matkul_code, c.matkul_name, f.faculty_name, pr.prodi_name
FROM notes n
LEFT JOIN profiles p ON p.id_user = n.id_user
LEFT JOIN courses c ON c.id_courses = n.id_courses
LEFT JOIN faculties f ON f.id_faculty = n.id_faculty
LEFT JOIN prodi pr ON pr.id_prodi = n.id_prodi`

type noteRow struct {
	ID           string         `db:"id_catatan"`
	UploaderID   sql.NullString `db:"id_user"`
	Title        string         `db:"judul"`
	Description  sql.NullString `db:"deskripsi"`
	FileType     string         `db:"catatan_type"`
	FileURL      string         `db:"file_catatan"`
	FacultyID    sql.NullString `db:"id_faculty"`
	ProdiID      sql.NullString `db:"id_prodi"`
	SemesterID   sql.NullString `db:"id_semester"`
	CourseID     sql.NullString `db:"id_courses"`
	CreatedAt    time.Time      `db:"created_at"`
	UploaderName sql.NullString `db:"full_name"`
	CourseCode   sql.NullString `db:"matkul_code"`
	CourseTitle  sql.NullString `db:"matkul_name"`
	FacultyName  sql.NullString `db:"faculty_name"`
	ProdiName    sql.NullString `db:"prodi_name"`
}

func (r noteRow) note() note.Note {
	ft, ok := note.ParseFileType(r.FileType)
	if !ok {
		ft = note.FileTypePDF
	}
	n := note.Note{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description.String,
		FileType:     ft,
		FileURL:      r.FileURL,
		CreatedAt:    r.CreatedAt.UTC(),
		UploaderID:   r.UploaderID.String,
		UploaderName: r.UploaderName.String,
		CourseID:     r.CourseID.String,
		CourseCode:   r.CourseCode.String,
		CourseTitle:  r.CourseTitle.String,
		FacultyID:    r.FacultyID.String,
		FacultyName:  r.FacultyName.String,
		ProdiID:      r.ProdiID.String,
		ProdiName:    r.ProdiName.String,
		SemesterID:   r.SemesterID.String,
	}
	n.FillDefaults()
	return n
}

type noteRepository struct {
	exec core.DBExecutor
}

var _ note.Repository = (*noteRepository)(nil) // interface compliance check

func NewNoteRepository(exec core.DBExecutor) note.Repository {
	return &noteRepository{exec: exec}
}

func (repo noteRepository) CreateNote(ctx context.Context, n note.Note) (note.Note, error) {
	q := repo.exec.Rebind(`
INSERT INTO notes (id_user, judul, deskripsi, catatan_type, file_catatan, id_faculty, id_prodi, id_semester, id_courses, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id_catatan`)
	var id string
	err := sqlx.GetContext(ctx, repo.exec, &id, q,
		nullString(n.UploaderID), n.Title, nullString(n.Description), string(n.FileType), n.FileURL,
		nullString(n.FacultyID), nullString(n.ProdiID), nullString(n.SemesterID), nullString(n.CourseID),
		n.CreatedAt.UTC(),
	)
	if err != nil {
		return note.Note{}, errors.Wrap(err, "inserting note")
	}
	return repo.GetNote(ctx, id)
}

func (repo noteRepository) GetNote(ctx context.Context, id string) (note.Note, error) {
	var r noteRow
	q := repo.exec.Rebind(noteSelect + " WHERE n.id_catatan = ?")
	if err := sqlx.GetContext(ctx, repo.exec, &r, q, id); err != nil {
		return note.Note{}, trapNoRowsErr(err, note.ErrNotFound)
	}
	return r.note(), nil
}

func (repo noteRepository) UpdateNote(ctx context.Context, n note.Note) (note.Note, error) {
	q := repo.exec.Rebind(`
UPDATE notes SET judul = ?, deskripsi = ?, catatan_type = ?, file_catatan = ?
WHERE id_catatan = ?`)
	res, err := repo.exec.ExecContext(ctx, q, n.Title, nullString(n.Description), string(n.FileType), n.FileURL, n.ID)
	if err != nil {
		return note.Note{}, errors.Wrap(err, "updating note")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return note.Note{}, note.ErrNotFound
	}
	return repo.GetNote(ctx, n.ID)
}

func (repo noteRepository) DeleteNote(ctx context.Context, id string) error {
	q := repo.exec.Rebind("DELETE FROM notes WHERE id_catatan = ?")
	res, err := repo.exec.ExecContext(ctx, q, id)
	if err != nil {
		return errors.Wrap(err, "deleting note")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return note.ErrNotFound
	}
	return nil
}

func (repo noteRepository) QueryNotes(ctx context.Context, filter note.QueryFilter) ([]note.Note, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.CourseID != "" {
		conds = append(conds, "n.id_courses = ?")
		args = append(args, filter.CourseID)
	}
	if filter.UploaderID != "" {
		conds = append(conds, "n.id_user = ?")
		args = append(args, filter.UploaderID)
	}

	q := noteSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	ord := core.DBOrdering{Field: "n.created_at"}
	q += " ORDER BY " + ord.String() + ", n.id_catatan DESC"
	if filter.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []noteRow
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, repo.exec.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting notes")
	}
	notes := make([]note.Note, 0, len(rows))
	for _, r := range rows {
		notes = append(notes, r.note())
	}
	return notes, nil
}
