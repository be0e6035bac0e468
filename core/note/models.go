package note

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/uninotes/core"
)

// FileType is the kind of file attached to a note.
type FileType string

const (
	FileTypePDF FileType = "PDF"
	FileTypeIMG FileType = "IMG"
)

// Placeholders for joined fields that are missing.
const (
	DefaultUploaderName = "Student"
	DefaultCourseTitle  = "General course"
	Placeholder         = "-"
)

// ParseFileType normalizes a stored file type.
func ParseFileType(s string) (FileType, bool) {
	switch FileType(strings.ToUpper(core.CleanString(s))) {
	case FileTypePDF:
		return FileTypePDF, true
	case FileTypeIMG:
		return FileTypeIMG, true
	}
	return "", false
}

// Accepts tells whether a file of contentType can be attached as ft.
func (ft FileType) Accepts(contentType string) bool {
	switch ft {
	case FileTypePDF:
		return contentType == "application/pdf"
	case FileTypeIMG:
		return strings.HasPrefix(contentType, "image/")
	}
	return false
}

type Note struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	FileType     FileType  `json:"file_type"`
	FileURL      string    `json:"file_url"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UploaderID   string    `json:"uploader_id"`
	UploaderName string    `json:"uploader_name"`
	CourseID     string    `json:"course_id"`
	CourseCode   string    `json:"course_code"`
	CourseTitle  string    `json:"course_title"`
	FacultyID    string    `json:"faculty_id"`
	FacultyName  string    `json:"faculty_name"`
	ProdiID      string    `json:"prodi_id"`
	ProdiName    string    `json:"prodi_name"`
	SemesterID   string    `json:"semester_id"`
}

// FillDefaults sets placeholders on missing joined fields.
func (n *Note) FillDefaults() {
	if n.UploaderName == "" {
		n.UploaderName = DefaultUploaderName
	}
	if n.CourseCode == "" {
		n.CourseCode = Placeholder
	}
	if n.CourseTitle == "" {
		n.CourseTitle = Placeholder
	}
	if n.FacultyName == "" {
		n.FacultyName = Placeholder
	}
	if n.ProdiName == "" {
		n.ProdiName = Placeholder
	}
}

// Recent is a timeline item.
type Recent struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Author   string    `json:"author"`
	Date     time.Time `json:"date"`
	FileType FileType  `json:"file_type"`
}

func (n Note) Recent() Recent {
	category := n.CourseTitle
	if category == "" || category == Placeholder {
		category = DefaultCourseTitle
	}
	return Recent{
		ID:       n.ID,
		Title:    n.Title,
		Category: category,
		Author:   n.UploaderName,
		Date:     n.CreatedAt,
		FileType: n.FileType,
	}
}

// NewNote contains information needed to upload a note.
type NewNote struct {
	Title       string   `json:"title" validate:"required,notblank"`
	Description string   `json:"description"`
	FileType    FileType `json:"file_type" validate:"required,oneof=PDF IMG"`
	CourseID    string   `json:"course_id" validate:"required"`
	FacultyID   string   `json:"faculty_id"`
	ProdiID     string   `json:"prodi_id"`
	SemesterID  string   `json:"semester_id"`
}

func (nn *NewNote) Validate(validate *validator.Validate) error {
	nn.Title = core.CleanString(nn.Title)
	nn.Description = core.CleanString(nn.Description)
	nn.FileType = FileType(strings.ToUpper(core.CleanString(string(nn.FileType))))
	nn.CourseID = core.CleanString(nn.CourseID)
	return validate.Struct(nn)
}

// UpdateNote defines what may be changed on a note. Empty fields are left unchanged.
type UpdateNote struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	FileType    FileType `json:"file_type" validate:"omitempty,oneof=PDF IMG"`
}

func (un *UpdateNote) Validate(validate *validator.Validate) error {
	un.Title = core.CleanString(un.Title)
	un.FileType = FileType(strings.ToUpper(core.CleanString(string(un.FileType))))
	if un.Description != nil {
		d := core.CleanString(*un.Description)
		un.Description = &d
	}
	return validate.Struct(un)
}
