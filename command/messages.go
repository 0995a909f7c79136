package command

import (
	"strings"

	"github.com/goliatone/go-puthelp/core"
)

const (
	TypeSignIn             = "puthelp.command.auth.signin"
	TypeSignUp             = "puthelp.command.auth.signup"
	TypeSignOut            = "puthelp.command.auth.signout"
	TypeChangePassword     = "puthelp.command.auth.change_password"
	TypeRestoreSession     = "puthelp.command.auth.restore"
	TypeCreateContent      = "puthelp.command.content.create"
	TypeUpdateContent      = "puthelp.command.content.update"
	TypePublishContent     = "puthelp.command.content.publish"
	TypeDeleteContent      = "puthelp.command.content.delete"
	TypeSaveCategory       = "puthelp.command.category.save"
	TypeDeleteCategory     = "puthelp.command.category.delete"
	TypeSaveFieldOfStudy   = "puthelp.command.field_of_study.save"
	TypeDeleteFieldOfStudy = "puthelp.command.field_of_study.delete"
	TypeUpdateUserRole     = "puthelp.command.admin.user_role"
	TypeUpdateUserStatus   = "puthelp.command.admin.user_status"
	TypeDeleteUser         = "puthelp.command.admin.user_delete"
	TypeModerateContent    = "puthelp.command.admin.moderate"
)

type SignInMessage struct {
	Request core.SignInRequest
}

func (SignInMessage) Type() string { return TypeSignIn }

func (m SignInMessage) Validate() error {
	return commandWrapValidation(m.Request.Validate(), "command: invalid sign in")
}

type SignUpMessage struct {
	Request core.SignUpRequest
}

func (SignUpMessage) Type() string { return TypeSignUp }

func (m SignUpMessage) Validate() error {
	return commandWrapValidation(m.Request.Validate(), "command: invalid sign up")
}

// SignOutMessage ends the session. Local skips the backend call.
type SignOutMessage struct {
	Local bool
}

func (SignOutMessage) Type() string { return TypeSignOut }

func (SignOutMessage) Validate() error { return nil }

type ChangePasswordMessage struct {
	Request core.ChangePasswordRequest
}

func (ChangePasswordMessage) Type() string { return TypeChangePassword }

func (m ChangePasswordMessage) Validate() error {
	return commandWrapValidation(m.Request.Validate(), "command: invalid password change")
}

type RestoreSessionMessage struct{}

func (RestoreSessionMessage) Type() string { return TypeRestoreSession }

func (RestoreSessionMessage) Validate() error { return nil }

type CreateContentMessage struct {
	Request core.ContentRequest
}

func (CreateContentMessage) Type() string { return TypeCreateContent }

func (m CreateContentMessage) Validate() error {
	return commandWrapValidation(m.Request.Validate(), "command: invalid content")
}

type UpdateContentMessage struct {
	ContentID int64
	Request   core.ContentRequest
}

func (UpdateContentMessage) Type() string { return TypeUpdateContent }

func (m UpdateContentMessage) Validate() error {
	if err := requirePositive("content_id", m.ContentID); err != nil {
		return err
	}
	return commandWrapValidation(m.Request.Validate(), "command: invalid content")
}

type PublishContentMessage struct {
	ContentID int64
}

func (PublishContentMessage) Type() string { return TypePublishContent }

func (m PublishContentMessage) Validate() error {
	return requirePositive("content_id", m.ContentID)
}

type DeleteContentMessage struct {
	ContentID int64
}

func (DeleteContentMessage) Type() string { return TypeDeleteContent }

func (m DeleteContentMessage) Validate() error {
	return requirePositive("content_id", m.ContentID)
}

// SaveCategoryMessage creates the category when ID is zero and updates it
// otherwise.
type SaveCategoryMessage struct {
	ID       int64
	Category core.Category
}

func (SaveCategoryMessage) Type() string { return TypeSaveCategory }

func (m SaveCategoryMessage) Validate() error {
	if m.ID < 0 {
		return commandValidationError("id", "id must not be negative")
	}
	return commandWrapValidation(m.Category.Validate(), "command: invalid category")
}

type DeleteCategoryMessage struct {
	ID int64
}

func (DeleteCategoryMessage) Type() string { return TypeDeleteCategory }

func (m DeleteCategoryMessage) Validate() error {
	return requirePositive("id", m.ID)
}

// SaveFieldOfStudyMessage creates the field of study when ID is zero and
// updates it otherwise.
type SaveFieldOfStudyMessage struct {
	ID           int64
	FieldOfStudy core.FieldOfStudy
}

func (SaveFieldOfStudyMessage) Type() string { return TypeSaveFieldOfStudy }

func (m SaveFieldOfStudyMessage) Validate() error {
	if m.ID < 0 {
		return commandValidationError("id", "id must not be negative")
	}
	return commandWrapValidation(m.FieldOfStudy.Validate(), "command: invalid field of study")
}

type DeleteFieldOfStudyMessage struct {
	ID int64
}

func (DeleteFieldOfStudyMessage) Type() string { return TypeDeleteFieldOfStudy }

func (m DeleteFieldOfStudyMessage) Validate() error {
	return requirePositive("id", m.ID)
}

type UpdateUserRoleMessage struct {
	UserID int64
	Role   string
}

func (UpdateUserRoleMessage) Type() string { return TypeUpdateUserRole }

func (m UpdateUserRoleMessage) Validate() error {
	if err := requirePositive("user_id", m.UserID); err != nil {
		return err
	}
	switch strings.ToUpper(strings.TrimSpace(m.Role)) {
	case core.RoleStudent, core.RoleModerator, core.RoleAdmin:
		return nil
	default:
		return commandValidationError("role", "role must be STUDENT, MODERATOR or ADMIN")
	}
}

type UpdateUserStatusMessage struct {
	UserID int64
	Active bool
}

func (UpdateUserStatusMessage) Type() string { return TypeUpdateUserStatus }

func (m UpdateUserStatusMessage) Validate() error {
	return requirePositive("user_id", m.UserID)
}

type DeleteUserMessage struct {
	UserID int64
}

func (DeleteUserMessage) Type() string { return TypeDeleteUser }

func (m DeleteUserMessage) Validate() error {
	return requirePositive("user_id", m.UserID)
}

type ModerateContentMessage struct {
	ContentID int64
	Request   core.ModerationRequest
}

func (ModerateContentMessage) Type() string { return TypeModerateContent }

func (m ModerateContentMessage) Validate() error {
	if err := requirePositive("content_id", m.ContentID); err != nil {
		return err
	}
	return commandWrapValidation(m.Request.Validate(), "command: invalid moderation")
}
