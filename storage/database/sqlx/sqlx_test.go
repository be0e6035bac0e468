package sqlxrepos

import (
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/uninotes/core/note"
)

func Test_trapNoRowsErr(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: sql.ErrNoRows, want: note.ErrNotFound},
		{name: "wrapped no rows", err: errors.Wrap(sql.ErrNoRows, "getting note"), want: note.ErrNotFound},
		{name: "other error", err: other, want: other},
		{name: "nil", err: nil, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trapNoRowsErr(tt.err, note.ErrNotFound))
		})
	}
}

func Test_isUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: pqUniqueViolation}))
	assert.True(t, isUniqueViolation(errors.Wrap(&pq.Error{Code: pqUniqueViolation}, "inserting")))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func Test_containsPattern(t *testing.T) {
	assert.Equal(t, "%data%", containsPattern("data"))
	assert.Equal(t, `%100\%\_off\\%`, containsPattern(`100%_off\`))
}

func Test_nullString(t *testing.T) {
	assert.Equal(t, sql.NullString{}, nullString(""))
	assert.Equal(t, sql.NullString{String: "x", Valid: true}, nullString("x"))
}
