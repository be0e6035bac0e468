package note

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/academic"
	"github.com/trezcool/uninotes/core/user"
)

// RecentLimit is the number of notes on the timeline.
const RecentLimit = 6

var (
	spaceRegex = regexp.MustCompile(`\s`)

	// errors
	ErrNotFound         = core.NewNotFoundError("note")
	ErrAuthRequired     = core.NewAuthError("authentication required")
	ErrNotOwner         = core.NewForbiddenError("not the owner of this note")
	ErrFileRequired     = core.NewFieldError("file", "this field is required")
	ErrFileTooLarge     = core.NewFieldError("file", "file is too large")
	ErrFileNotPDF       = core.NewFieldError("file", "file must be a PDF document")
	ErrFileNotImage     = core.NewFieldError("file", "file must be an image")
	ErrFileTypeNeedFile = core.NewFieldError("file", "a new file is required when changing the file type")
)

type (
	// QueryFilter applies AND operation on the set fields. Results are ordered newest first.
	QueryFilter struct {
		CourseID   string
		UploaderID string
		Limit      int
	}

	Repository interface {
		CreateNote(ctx context.Context, n Note) (Note, error)
		// GetNote returns the note joined with uploader, course, faculty and program.
		GetNote(ctx context.Context, id string) (Note, error)
		UpdateNote(ctx context.Context, n Note) (Note, error)
		DeleteNote(ctx context.Context, id string) error
		QueryNotes(ctx context.Context, filter QueryFilter) ([]Note, error)
	}

	CourseGetter interface {
		Course(ctx context.Context, id string) (academic.Course, error)
	}

	Service struct {
		repo     Repository
		courses  CourseGetter
		store    core.ObjectStore
		validate *validator.Validate
		logger   core.Logger
		bucket   string
		maxSize  int64
	}
)

func NewService(
	repo Repository,
	courses CourseGetter,
	store core.ObjectStore,
	validate *validator.Validate,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		courses:  courses,
		store:    store,
		validate: validate,
		logger:   logger,
		bucket:   conf.Storage.NotesBucket,
		maxSize:  conf.Storage.MaxNoteSize,
	}
}

func (svc *Service) checkFile(ft FileType, file *core.File) error {
	if file == nil || file.Body == nil || file.Size <= 0 {
		return ErrFileRequired
	}
	if file.Size > svc.maxSize {
		return ErrFileTooLarge
	}
	if !ft.Accepts(file.ContentType) {
		if ft == FileTypePDF {
			return ErrFileNotPDF
		}
		return ErrFileNotImage
	}
	return nil
}

// ObjectKey is the storage key of an uploaded note file.
func ObjectKey(fileName string) string {
	return fmt.Sprintf("%d_%s", core.NowFunc().UnixMilli(), spaceRegex.ReplaceAllString(fileName, "_"))
}

func (svc *Service) upload(ctx context.Context, file *core.File) (string, error) {
	u, err := svc.store.Put(ctx, svc.bucket, ObjectKey(file.Name), file.Body, file.Size, file.ContentType)
	return u, errors.Wrap(err, "uploading note file")
}

// removeFile deletes a stored file. Failures leave an orphan object and are only logged.
func (svc *Service) removeFile(ctx context.Context, fileURL string) {
	if fileURL == "" {
		return
	}
	key := path.Base(fileURL)
	if u, err := url.Parse(fileURL); err == nil {
		if k, err := url.PathUnescape(path.Base(u.Path)); err == nil {
			key = k
		}
	}
	if err := svc.store.Delete(ctx, svc.bucket, key); err != nil {
		svc.logger.Warn(fmt.Sprintf("deleting note file %q: %v", key, err), err)
	}
}

// Upload stores the file and creates the note. Faculty, program and semester default to the course's.
func (svc *Service) Upload(ctx context.Context, cu *user.CurrentUser, nn NewNote, file *core.File) (Note, error) {
	if cu == nil {
		return Note{}, ErrAuthRequired
	}
	if err := nn.Validate(svc.validate); err != nil {
		return Note{}, err
	}
	if err := svc.checkFile(nn.FileType, file); err != nil {
		return Note{}, err
	}

	course, err := svc.courses.Course(ctx, nn.CourseID)
	if err != nil {
		if core.IsNotFound(err) {
			return Note{}, core.NewFieldError("course_id", "unknown course")
		}
		return Note{}, errors.Wrap(err, "getting course")
	}

	fileURL, err := svc.upload(ctx, file)
	if err != nil {
		return Note{}, err
	}

	n := Note{
		Title:       nn.Title,
		Description: nn.Description,
		FileType:    nn.FileType,
		FileURL:     fileURL,
		CreatedAt:   core.NowFunc().UTC(),
		UploaderID:  cu.ID,
		CourseID:    course.ID,
		FacultyID:   firstNonEmpty(nn.FacultyID, course.FacultyID),
		ProdiID:     firstNonEmpty(nn.ProdiID, course.ProdiID),
		SemesterID:  firstNonEmpty(nn.SemesterID, course.SemesterID),
	}
	created, err := svc.repo.CreateNote(ctx, n)
	if err != nil {
		svc.removeFile(ctx, fileURL)
		return Note{}, errors.Wrap(err, "creating note")
	}
	return created, nil
}

// Update edits a note of the current user. file is optional unless the file type changes.
func (svc *Service) Update(ctx context.Context, cu *user.CurrentUser, id string, un UpdateNote, file *core.File) (Note, error) {
	if cu == nil {
		return Note{}, ErrAuthRequired
	}
	if err := un.Validate(svc.validate); err != nil {
		return Note{}, err
	}

	n, err := svc.repo.GetNote(ctx, id)
	if err != nil {
		return Note{}, errors.Wrap(err, "getting note")
	}
	if n.UploaderID != cu.ID {
		return Note{}, ErrNotOwner
	}

	if un.Title != "" {
		n.Title = un.Title
	}
	if un.Description != nil {
		n.Description = *un.Description
	}
	typeChanged := un.FileType != "" && un.FileType != n.FileType
	if typeChanged {
		n.FileType = un.FileType
	}

	oldURL := ""
	if file != nil {
		if err = svc.checkFile(n.FileType, file); err != nil {
			return Note{}, err
		}
		oldURL = n.FileURL
		if n.FileURL, err = svc.upload(ctx, file); err != nil {
			return Note{}, err
		}
	} else if typeChanged {
		return Note{}, ErrFileTypeNeedFile
	}

	updated, err := svc.repo.UpdateNote(ctx, n)
	if err != nil {
		if file != nil {
			svc.removeFile(ctx, n.FileURL)
		}
		return Note{}, errors.Wrap(err, "updating note")
	}
	if oldURL != "" {
		svc.removeFile(ctx, oldURL)
	}
	return updated, nil
}

// Delete removes a note. Owners can delete their notes, moderators any note.
func (svc *Service) Delete(ctx context.Context, cu *user.CurrentUser, id string) (Note, error) {
	if cu == nil {
		return Note{}, ErrAuthRequired
	}
	n, err := svc.repo.GetNote(ctx, id)
	if err != nil {
		return Note{}, errors.Wrap(err, "getting note")
	}
	if n.UploaderID != cu.ID && !cu.CanModerate() {
		return Note{}, ErrNotOwner
	}
	if err = svc.repo.DeleteNote(ctx, n.ID); err != nil {
		return Note{}, errors.Wrap(err, "deleting note")
	}
	svc.removeFile(ctx, n.FileURL)
	return n, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Note, error) {
	return svc.repo.GetNote(ctx, id)
}

// ByCourse returns the notes of a course, newest first.
func (svc *Service) ByCourse(ctx context.Context, courseID string) ([]Note, error) {
	return svc.repo.QueryNotes(ctx, QueryFilter{CourseID: core.CleanString(courseID)})
}

// ByUploader returns the notes uploaded by a user, newest first.
func (svc *Service) ByUploader(ctx context.Context, uploaderID string) ([]Note, error) {
	return svc.repo.QueryNotes(ctx, QueryFilter{UploaderID: uploaderID})
}

// Recent returns the timeline: the newest notes of all courses.
func (svc *Service) Recent(ctx context.Context) ([]Recent, error) {
	notes, err := svc.repo.QueryNotes(ctx, QueryFilter{Limit: RecentLimit})
	if err != nil {
		return nil, err
	}
	recent := make([]Recent, 0, len(notes))
	for _, n := range notes {
		recent = append(recent, n.Recent())
	}
	return recent, nil
}

// AllPosts returns every note, newest first, for moderation.
func (svc *Service) AllPosts(ctx context.Context) ([]Note, error) {
	return svc.repo.QueryNotes(ctx, QueryFilter{})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = core.CleanString(v); v != "" {
			return v
		}
	}
	return ""
}
