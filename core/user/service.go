package user

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/uninotes/core"
)

var (
	// errors
	ErrNotFound              = core.NewNotFoundError("user")
	ErrInsufficientPrivilege = core.NewForbiddenError("insufficient privilege")
	ErrProtectedAccount      = core.NewForbiddenError("protected account")
	ErrSelfRoleChange        = core.NewForbiddenError("cannot change own role")
	ErrInvalidRole           = core.NewFieldError("role", "role must be one of [user admin]")
	ErrAvatarNotImage        = core.NewFieldError("avatar", "avatar must be an image")
	ErrAvatarTooLarge        = core.NewFieldError("avatar", "avatar is too large")
)

type (
	Repository interface {
		CreateProfile(ctx context.Context, p Profile) (Profile, error)
		// GetProfile returns the profile joined with its faculty and program names.
		GetProfile(ctx context.Context, id string) (Profile, error)
		GetProfileByEmail(ctx context.Context, email string) (Profile, error)
		// QueryProfiles returns all profiles ordered by role.
		QueryProfiles(ctx context.Context) ([]Profile, error)
		UpdateRole(ctx context.Context, id string, role Role) error
		UpdateAvatar(ctx context.Context, id, url string) error
	}

	Service struct {
		repo          Repository
		store         core.ObjectStore
		avatarsBucket string
		maxAvatarSize int64
	}
)

func NewService(repo Repository, store core.ObjectStore, conf *core.Config) *Service {
	return &Service{
		repo:          repo,
		store:         store,
		avatarsBucket: conf.Storage.AvatarsBucket,
		maxAvatarSize: conf.Storage.MaxAvatarSize,
	}
}

// GetProfile returns the profile joined with its faculty and program names.
func (svc *Service) GetProfile(ctx context.Context, id string) (Profile, error) {
	return svc.repo.GetProfile(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Profile, error) {
	return svc.repo.QueryProfiles(ctx)
}

// Create inserts the profile of a freshly registered identity with role `user`.
func (svc *Service) Create(ctx context.Context, id string, na NewAccount) (Profile, error) {
	return svc.repo.CreateProfile(ctx, Profile{
		ID:        id,
		Email:     na.Email,
		FullName:  na.FullName,
		Role:      RoleUser,
		FacultyID: na.FacultyID,
		ProdiID:   na.ProdiID,
		CreatedAt: core.NowFunc().UTC(),
	})
}

// ChangeRole promotes a user to admin or demotes an admin to user.
// Checks run in order: the actor must moderate, the target must not be a super_admin,
// the target must not be the actor, and the new role must be user or admin.
func (svc *Service) ChangeRole(ctx context.Context, actor *CurrentUser, targetID string, newRole Role) (RoleChange, error) {
	if !actor.CanModerate() {
		return RoleChange{}, ErrInsufficientPrivilege
	}

	target, err := svc.repo.GetProfile(ctx, targetID)
	if err != nil {
		return RoleChange{}, errors.Wrap(err, "getting target profile")
	}
	if target.Role == RoleSuperAdmin {
		return RoleChange{}, ErrProtectedAccount
	}
	if target.ID == actor.ID {
		return RoleChange{}, ErrSelfRoleChange
	}
	if newRole != RoleUser && newRole != RoleAdmin {
		return RoleChange{}, ErrInvalidRole
	}

	change := RoleChange{UserID: target.ID, Email: target.Email, FullName: target.FullName, From: target.Role, To: newRole}
	if !change.Changed() {
		return change, nil
	}
	if err = svc.repo.UpdateRole(ctx, target.ID, newRole); err != nil {
		return RoleChange{}, errors.Wrap(err, "updating role")
	}
	return change, nil
}

// UpdateAvatar uploads an image to the avatars bucket and sets it as the user's avatar.
func (svc *Service) UpdateAvatar(ctx context.Context, usr *CurrentUser, file core.File) (string, error) {
	if !strings.HasPrefix(file.ContentType, "image/") {
		return "", ErrAvatarNotImage
	}
	if file.Size > svc.maxAvatarSize {
		return "", ErrAvatarTooLarge
	}

	ext := strings.TrimPrefix(path.Ext(file.Name), ".")
	if ext == "" {
		ext = strings.TrimPrefix(file.ContentType, "image/")
	}
	key := fmt.Sprintf("%s-%d.%s", usr.ID, core.NowFunc().UnixMilli(), ext)

	url, err := svc.store.Put(ctx, svc.avatarsBucket, key, file.Body, file.Size, file.ContentType)
	if err != nil {
		return "", errors.Wrap(err, "uploading avatar")
	}
	if err = svc.repo.UpdateAvatar(ctx, usr.ID, url); err != nil {
		return "", errors.Wrap(err, "updating avatar url")
	}
	return url, nil
}

// SetRole sets any role on the user with this email, super_admin included.
// It bypasses the moderation checks and is reserved to operators.
func (svc *Service) SetRole(ctx context.Context, email string, role Role) (RoleChange, error) {
	if !role.Valid() {
		return RoleChange{}, core.NewFieldError("role", "role must be one of [user admin super_admin]")
	}
	p, err := svc.repo.GetProfileByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return RoleChange{}, errors.Wrap(err, "getting profile")
	}
	change := RoleChange{UserID: p.ID, Email: p.Email, FullName: p.FullName, From: p.Role, To: role}
	if !change.Changed() {
		return change, nil
	}
	if err = svc.repo.UpdateRole(ctx, p.ID, role); err != nil {
		return RoleChange{}, errors.Wrap(err, "updating role")
	}
	return change, nil
}
