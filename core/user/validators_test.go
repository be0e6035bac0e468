package user_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/user"
	"github.com/trezcool/uninotes/tests"
)

func TestNewAccount_Validate(t *testing.T) {
	validate, translator := testutil.NewValidator()

	account := func(pwd string) user.NewAccount {
		return user.NewAccount{
			FullName:        "  Jonathan Doe ",
			Email:           " Jon@Example.com",
			FacultyID:       "1",
			ProdiID:         "1",
			Password:        pwd,
			PasswordConfirm: pwd,
		}
	}

	tests := []struct {
		name      string
		account   user.NewAccount
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{name: "valid", account: account("Zq8#kLm2vW")},
		{
			name: "too short", account: account("ab1#x"),
			wantField: "password", wantTag: "pwdminlen", wantMsg: "password must contain at least 6 characters",
		},
		{name: "inner whitespace", account: account("correct horse")},
		{
			name: "whitespace only", account: account("        "),
			wantField: "password", wantTag: "pwdblank", wantMsg: "password must not be blank",
		},
		{
			name: "short whitespace only", account: account("  "),
			wantField: "password", wantTag: "pwdblank", wantMsg: "password must not be blank",
		},
		{
			name: "similar to name", account: account("JonathanDoe"),
			wantField: "password", wantTag: "pwdtoosim", wantMsg: "password cannot be similar to user attributes",
		},
		{
			name: "similar to email", account: account("jon@example"),
			wantField: "password", wantTag: "pwdtoosim", wantMsg: "password cannot be similar to user attributes",
		},
		{
			name: "confirmation mismatch",
			account: func() user.NewAccount {
				a := account("Zq8#kLm2vW")
				a.PasswordConfirm = "Zq8#kLm2vX"
				return a
			}(),
			wantField: "password_confirm", wantTag: "eqfield",
		},
		{
			name: "blank name",
			account: func() user.NewAccount {
				a := account("Zq8#kLm2vW")
				a.FullName = "   "
				return a
			}(),
			wantField: "full_name", wantTag: "required", wantMsg: "this field is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			na := tt.account
			err := na.Validate(validate)
			if tt.wantField == "" {
				assert.NoError(t, err)
				assert.Equal(t, "Jonathan Doe", na.FullName)
				assert.Equal(t, "jon@example.com", na.Email)
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			if !assert.True(t, ok, "want validator.ValidationErrors; got %T", err) {
				return
			}
			assert.Len(t, vErrs, 1)
			assert.Equal(t, tt.wantField, vErrs[0].Field())
			assert.Equal(t, tt.wantTag, vErrs[0].Tag())
			if tt.wantMsg != "" {
				vErr := core.TranslateValidationErrors(err, translator).(*core.ValidationError)
				assert.Equal(t, tt.wantMsg, vErr.Fields[0].Error)
			}
		})
	}
}

func TestChangePassword_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	cp := user.ChangePassword{CurrentPassword: "Old#Pass1", Password: "Old#Pass1", PasswordConfirm: "Old#Pass1"}
	err := cp.Validate(validate)
	if vErrs, ok := err.(validator.ValidationErrors); assert.True(t, ok) {
		assert.Equal(t, "nefield", vErrs[0].Tag())
	}

	cp = user.ChangePassword{CurrentPassword: "Old#Pass1", Password: "n3w", PasswordConfirm: "n3w"}
	err = cp.Validate(validate)
	if vErrs, ok := err.(validator.ValidationErrors); assert.True(t, ok) {
		assert.Equal(t, "pwdminlen", vErrs[0].Tag())
	}

	cp = user.ChangePassword{CurrentPassword: "Old#Pass1", Password: "N3w#Pass2", PasswordConfirm: "N3w#Pass2"}
	assert.NoError(t, cp.Validate(validate))
}
