package inmemdb

import (
	"context"
	"sort"
	"strconv"

	"github.com/trezcool/uninotes/core/note"
)

type noteRepository struct {
	db *DB
}

var _ note.Repository = (*noteRepository)(nil) // interface compliance check

func NewNoteRepository(db *DB) note.Repository {
	return &noteRepository{db: db}
}

// joined returns n with its uploader, course, faculty and program. Caller must hold the lock.
func (repo *noteRepository) joined(n note.Note) note.Note {
	if p, ok := repo.db.profiles[n.UploaderID]; ok {
		n.UploaderName = p.FullName
	}
	if c, ok := repo.db.courses[n.CourseID]; ok {
		n.CourseCode = c.Code
		n.CourseTitle = c.Title
	}
	n.FacultyName = repo.db.faculties[n.FacultyID].Name
	n.ProdiName = repo.db.prodis[n.ProdiID].Name
	n.FillDefaults()
	return n
}

func (repo *noteRepository) CreateNote(_ context.Context, n note.Note) (note.Note, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.noteSeq++
	n.ID = strconv.Itoa(repo.db.noteSeq)
	repo.db.notes[n.ID] = &n
	return repo.joined(n), nil
}

func (repo *noteRepository) GetNote(_ context.Context, id string) (note.Note, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.notes[id]; ok {
		return repo.joined(*n), nil
	}
	return note.Note{}, note.ErrNotFound
}

func (repo *noteRepository) UpdateNote(_ context.Context, n note.Note) (note.Note, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.notes[n.ID]
	if !ok {
		return note.Note{}, note.ErrNotFound
	}
	orig.Title = n.Title
	orig.Description = n.Description
	orig.FileType = n.FileType
	orig.FileURL = n.FileURL
	return repo.joined(*orig), nil
}

func (repo *noteRepository) DeleteNote(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.notes[id]; !ok {
		return note.ErrNotFound
	}
	delete(repo.db.notes, id)
	return nil
}

func (repo *noteRepository) QueryNotes(_ context.Context, filter note.QueryFilter) ([]note.Note, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	notes := make([]note.Note, 0)
	for _, n := range repo.db.notes {
		if filter.CourseID != "" && n.CourseID != filter.CourseID {
			continue
		}
		if filter.UploaderID != "" && n.UploaderID != filter.UploaderID {
			continue
		}
		notes = append(notes, repo.joined(*n))
	}
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].CreatedAt.After(notes[j].CreatedAt)
		}
		return lessID(notes[j].ID, notes[i].ID)
	})
	if filter.Limit > 0 && len(notes) > filter.Limit {
		notes = notes[:filter.Limit]
	}
	return notes, nil
}
