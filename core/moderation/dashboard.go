package moderation

import (
	"context"
	"fmt"
	"net/mail"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/audit"
	"github.com/trezcool/uninotes/core/note"
	"github.com/trezcool/uninotes/core/user"
)

type (
	Users interface {
		QueryAll(ctx context.Context) ([]user.Profile, error)
		ChangeRole(ctx context.Context, actor *user.CurrentUser, targetID string, newRole user.Role) (user.RoleChange, error)
	}

	Notes interface {
		AllPosts(ctx context.Context) ([]note.Note, error)
		Delete(ctx context.Context, cu *user.CurrentUser, id string) (note.Note, error)
	}

	Deps struct {
		Users   Users
		Notes   Notes
		Audit   audit.Store
		MailSvc core.EmailService
		Logger  core.Logger
	}

	Stats struct {
		TotalPosts  int `json:"total_posts"`
		TotalUsers  int `json:"total_users"`
		TotalAdmins int `json:"total_admins"`
	}

	// Dashboard is the moderation state of one acting admin.
	// The users and posts lists are updated in place after each successful action.
	Dashboard struct {
		actor *user.CurrentUser
		deps  Deps

		mu       sync.RWMutex
		profiles []user.Profile
		posts    []note.Note
	}
)

func NewDashboard(actor *user.CurrentUser, deps Deps) (*Dashboard, error) {
	if !actor.CanModerate() {
		return nil, user.ErrInsufficientPrivilege
	}
	return &Dashboard{actor: actor, deps: deps}, nil
}

// Load fetches the users and posts lists.
func (d *Dashboard) Load(ctx context.Context) error {
	var (
		profiles []user.Profile
		posts    []note.Note
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = d.deps.Users.QueryAll(gctx)
		return errors.Wrap(err, "querying users")
	})
	g.Go(func() error {
		var err error
		posts, err = d.deps.Notes.AllPosts(gctx)
		return errors.Wrap(err, "querying posts")
	})
	if err := g.Wait(); err != nil {
		return err
	}

	d.mu.Lock()
	d.profiles = profiles
	d.posts = posts
	d.mu.Unlock()
	return nil
}

func (d *Dashboard) Users() []user.Profile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]user.Profile{}, d.profiles...)
}

func (d *Dashboard) Posts() []note.Note {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]note.Note{}, d.posts...)
}

func (d *Dashboard) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s := Stats{TotalPosts: len(d.posts), TotalUsers: len(d.profiles)}
	for _, p := range d.profiles {
		if p.Role.IsModerator() {
			s.TotalAdmins++
		}
	}
	return s
}

// AuditLog returns the newest audit entries.
func (d *Dashboard) AuditLog(ctx context.Context, limit int) ([]audit.Entry, error) {
	return d.deps.Audit.List(ctx, limit)
}

// ChangeRole promotes or demotes a user. A successful change appends exactly one audit entry.
func (d *Dashboard) ChangeRole(ctx context.Context, targetID string, newRole user.Role) (user.RoleChange, error) {
	change, err := d.deps.Users.ChangeRole(ctx, d.actor, targetID, newRole)
	if err != nil {
		return user.RoleChange{}, err
	}
	if !change.Changed() {
		return change, nil
	}

	d.mu.Lock()
	for i := range d.profiles {
		if d.profiles[i].ID == change.UserID {
			d.profiles[i].Role = change.To
			break
		}
	}
	d.mu.Unlock()

	action := audit.ActionDemoteAdmin
	if change.Promotion() {
		action = audit.ActionPromoteUser
	}
	d.record(ctx, action, change.UserID)

	d.notify(change.FullName, change.Email, "Your account role changed", "role_changed", map[string]interface{}{
		"Name": change.FullName,
		"From": string(change.From),
		"To":   string(change.To),
		"By":   d.actor.Email,
	})
	return change, nil
}

// DeletePost removes any note and notifies its uploader.
func (d *Dashboard) DeletePost(ctx context.Context, id string) (note.Note, error) {
	n, err := d.deps.Notes.Delete(ctx, d.actor, id)
	if err != nil {
		return note.Note{}, err
	}

	var uploader *user.Profile
	d.mu.Lock()
	for i := range d.posts {
		if d.posts[i].ID == n.ID {
			d.posts = append(d.posts[:i], d.posts[i+1:]...)
			break
		}
	}
	for i := range d.profiles {
		if d.profiles[i].ID == n.UploaderID {
			p := d.profiles[i]
			uploader = &p
			break
		}
	}
	d.mu.Unlock()

	d.record(ctx, audit.ActionDeletePost, n.ID)

	if uploader != nil && uploader.ID != d.actor.ID {
		d.notify(uploader.FullName, uploader.Email, "Your note was removed", "post_removed", map[string]interface{}{
			"Name":  uploader.FullName,
			"Title": n.Title,
			"By":    d.actor.Email,
		})
	}
	return n, nil
}

// record appends to the audit log. The action already happened so failures are only logged.
func (d *Dashboard) record(ctx context.Context, action, targetID string) {
	e := audit.NewEntry(d.actor.Email, action, targetID)
	if err := d.deps.Audit.Append(ctx, e); err != nil {
		d.deps.Logger.Error(fmt.Sprintf("appending audit entry: %v", err), err, map[string]interface{}{"entry": e}, *d.actor)
	}
}

func (d *Dashboard) notify(name, email, subject, tmpl string, data map[string]interface{}) {
	if d.deps.MailSvc == nil || email == "" {
		return
	}
	d.deps.MailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: name, Address: email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: data,
	})
}
