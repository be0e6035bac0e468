package moderation_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/academic"
	"github.com/trezcool/uninotes/core/audit"
	"github.com/trezcool/uninotes/core/moderation"
	"github.com/trezcool/uninotes/core/note"
	"github.com/trezcool/uninotes/core/user"
	emailsvc "github.com/trezcool/uninotes/services/email"
	storagesvc "github.com/trezcool/uninotes/services/storage"
	inmemdb "github.com/trezcool/uninotes/storage/database/inmem"
	testutil "github.com/trezcool/uninotes/tests"
)

type testEnv struct {
	deps     moderation.Deps
	notes    *note.Service
	profiles user.Repository
	mailSvc  *emailsvc.ConsoleServiceMock
	logger   *testutil.Logger
	super    user.Profile
	admin    user.Profile
	jane     user.Profile
	john     user.Profile
}

func setup(t *testing.T) testEnv {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	testutil.SeedAcademics(db)

	conf := testutil.NewConfig()
	logger := testutil.NewLogger()
	core.ParseEmailTemplates(logger, true)
	validate, _ := testutil.NewValidator()
	store := storagesvc.NewMemoryStore(conf.Storage.PublicBaseURL)
	profiles := inmemdb.NewProfileRepository(db)
	notes := note.NewService(
		inmemdb.NewNoteRepository(db),
		academic.NewService(inmemdb.NewAcademicRepository(db)),
		store, validate, logger, conf,
	)
	mailSvc := emailsvc.NewConsoleServiceMock(logger, conf)

	return testEnv{
		deps: moderation.Deps{
			Users:   user.NewService(profiles, store, conf),
			Notes:   notes,
			Audit:   audit.NewRingStore(conf.Audit.Capacity),
			MailSvc: mailSvc,
			Logger:  logger,
		},
		notes:    notes,
		profiles: profiles,
		mailSvc:  mailSvc,
		logger:   logger,
		super:    testutil.CreateProfile(t, profiles, "super", "Sue Per", "super@example.com", user.RoleSuperAdmin),
		admin:    testutil.CreateProfile(t, profiles, "admin", "Ada Admin", "admin@example.com", user.RoleAdmin),
		jane:     testutil.CreateProfile(t, profiles, "jane", "Jane Roe", "jane@example.com", user.RoleUser),
		john:     testutil.CreateProfile(t, profiles, "john", "John Roe", "john@example.com", user.RoleUser),
	}
}

func (env testEnv) upload(t *testing.T, p user.Profile, title string) note.Note {
	file := &core.File{Name: title + ".pdf", ContentType: "application/pdf", Size: 4, Body: bytes.NewReader([]byte("%PDF"))}
	n, err := env.notes.Upload(context.Background(), p.CurrentUser(), note.NewNote{Title: title, FileType: "PDF", CourseID: "1"}, file)
	require.NoError(t, err)
	return n
}

func (env testEnv) dashboard(t *testing.T, actor user.Profile) *moderation.Dashboard {
	d, err := moderation.NewDashboard(actor.CurrentUser(), env.deps)
	require.NoError(t, err)
	require.NoError(t, d.Load(context.Background()))
	return d
}

func roleOf(t *testing.T, d *moderation.Dashboard, id string) user.Role {
	for _, p := range d.Users() {
		if p.ID == id {
			return p.Role
		}
	}
	t.Fatalf("user %q not listed", id)
	return ""
}

func TestNewDashboard(t *testing.T) {
	env := setup(t)

	_, err := moderation.NewDashboard(nil, env.deps)
	assert.Equal(t, user.ErrInsufficientPrivilege, err)
	_, err = moderation.NewDashboard(env.jane.CurrentUser(), env.deps)
	assert.Equal(t, user.ErrInsufficientPrivilege, err)
	_, err = moderation.NewDashboard(env.admin.CurrentUser(), env.deps)
	assert.NoError(t, err)
}

func TestDashboard_Load(t *testing.T) {
	env := setup(t)
	env.upload(t, env.jane, "a")
	env.upload(t, env.john, "b")
	env.upload(t, env.jane, "c")

	d := env.dashboard(t, env.admin)
	assert.Len(t, d.Users(), 4)
	assert.Len(t, d.Posts(), 3)
	assert.Equal(t, moderation.Stats{TotalPosts: 3, TotalUsers: 4, TotalAdmins: 2}, d.Stats())
}

func TestDashboard_ChangeRole(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	d := env.dashboard(t, env.super)

	t.Run("promote", func(t *testing.T) {
		change, err := d.ChangeRole(ctx, env.jane.ID, user.RoleAdmin)
		require.NoError(t, err)
		assert.True(t, change.Promotion())
		assert.Equal(t, user.RoleAdmin, roleOf(t, d, env.jane.ID))
		assert.Equal(t, 3, d.Stats().TotalAdmins)

		entries, err := d.AuditLog(ctx, 0)
		require.NoError(t, err)
		if assert.Len(t, entries, 1) {
			assert.Equal(t, audit.ActionPromoteUser, entries[0].ActionType)
			assert.Equal(t, env.super.Email, entries[0].ActingAdminEmail)
			assert.Equal(t, env.jane.ID, entries[0].TargetID)
		}

		sent := env.mailSvc.SentMessages()
		if assert.Len(t, sent, 1) {
			assert.Equal(t, env.jane.Email, sent[0].To[0].Address)
			assert.Equal(t, "role_changed", sent[0].TemplateName)
			assert.Contains(t, sent[0].TextContent, `from "user" to "admin"`)
		}
	})

	t.Run("same role records nothing", func(t *testing.T) {
		_, err := d.ChangeRole(ctx, env.jane.ID, user.RoleAdmin)
		require.NoError(t, err)
		entries, _ := d.AuditLog(ctx, 0)
		assert.Len(t, entries, 1)
		assert.Len(t, env.mailSvc.SentMessages(), 1)
	})

	t.Run("demote", func(t *testing.T) {
		change, err := d.ChangeRole(ctx, env.admin.ID, user.RoleUser)
		require.NoError(t, err)
		assert.False(t, change.Promotion())
		assert.Equal(t, user.RoleUser, roleOf(t, d, env.admin.ID))

		entries, _ := d.AuditLog(ctx, 0)
		if assert.Len(t, entries, 2) {
			assert.Equal(t, audit.ActionDemoteAdmin, entries[0].ActionType)
			assert.Equal(t, env.admin.ID, entries[0].TargetID)
		}
	})

	t.Run("rejections record nothing", func(t *testing.T) {
		_, err := d.ChangeRole(ctx, env.super.ID, user.RoleUser)
		assert.Equal(t, user.ErrProtectedAccount, err)
		_, err = d.ChangeRole(ctx, env.john.ID, user.RoleSuperAdmin)
		assert.Equal(t, user.ErrInvalidRole, err)

		entries, _ := d.AuditLog(ctx, 0)
		assert.Len(t, entries, 2)
		assert.Equal(t, user.RoleSuperAdmin, roleOf(t, d, env.super.ID))
	})
}

func TestDashboard_DeletePost(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	mine := env.upload(t, env.admin, "mine")
	janes := env.upload(t, env.jane, "janes")

	d := env.dashboard(t, env.admin)

	_, err := d.DeletePost(ctx, janes.ID)
	require.NoError(t, err)
	assert.Len(t, d.Posts(), 1)
	assert.Equal(t, 1, d.Stats().TotalPosts)

	sent := env.mailSvc.SentMessages()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, env.jane.Email, sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, `"janes"`)
	}

	// no email for own posts
	_, err = d.DeletePost(ctx, mine.ID)
	require.NoError(t, err)
	assert.Len(t, env.mailSvc.SentMessages(), 1)

	entries, err := d.AuditLog(ctx, 10)
	require.NoError(t, err)
	if assert.Len(t, entries, 2) {
		assert.Equal(t, audit.ActionDeletePost, entries[0].ActionType)
		assert.Equal(t, mine.ID, entries[0].TargetID)
		assert.Equal(t, janes.ID, entries[1].TargetID)
	}

	_, err = d.DeletePost(ctx, janes.ID)
	assert.True(t, core.IsNotFound(err))
}

type failingStore struct{ audit.Store }

func (failingStore) Append(context.Context, audit.Entry) error { return errors.New("store down") }

func TestDashboard_AuditFailureIsLogged(t *testing.T) {
	env := setup(t)
	env.deps.Audit = failingStore{Store: audit.NewRingStore(1)}
	d := env.dashboard(t, env.super)

	_, err := d.ChangeRole(context.Background(), env.jane.ID, user.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, env.logger.Entries("ERROR"), 1)

	p, err := env.profiles.GetProfile(context.Background(), env.jane.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, p.Role)
}
