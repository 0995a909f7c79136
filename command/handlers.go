package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-puthelp/core"
)

type AuthService interface {
	SignIn(ctx context.Context, req core.SignInRequest) (core.AuthResponse, error)
	SignUp(ctx context.Context, req core.SignUpRequest) (core.MessageResponse, error)
	SignOut(ctx context.Context) error
	SignOutLocal(ctx context.Context) error
	ChangePassword(ctx context.Context, req core.ChangePasswordRequest) (core.MessageResponse, error)
	RestoreSession(ctx context.Context) (*core.UserProfile, error)
}

type ContentAuthor interface {
	Create(ctx context.Context, req core.ContentRequest) (core.Content, error)
	Update(ctx context.Context, id int64, req core.ContentRequest) (core.Content, error)
	Publish(ctx context.Context, id int64) (core.Content, error)
	Delete(ctx context.Context, id int64) (core.MessageResponse, error)
}

// CatalogEditor is implemented by the category and field of study services.
type CatalogEditor[T any] interface {
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, id int64, item T) (T, error)
	Delete(ctx context.Context, id int64) (core.MessageResponse, error)
}

type AdminService interface {
	UpdateUserRole(ctx context.Context, userID int64, role string) (core.UserProfile, error)
	UpdateUserStatus(ctx context.Context, userID int64, active bool) (core.UserProfile, error)
	DeleteUser(ctx context.Context, userID int64) (core.MessageResponse, error)
	Moderate(ctx context.Context, contentID int64, req core.ModerationRequest) (core.Content, error)
}

type SignInCommand struct {
	service AuthService
}

func NewSignInCommand(service AuthService) *SignInCommand {
	return &SignInCommand{service: service}
}

func (c *SignInCommand) Execute(ctx context.Context, msg SignInMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: auth service is required")
	}
	out, err := c.service.SignIn(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SignUpCommand struct {
	service AuthService
}

func NewSignUpCommand(service AuthService) *SignUpCommand {
	return &SignUpCommand{service: service}
}

func (c *SignUpCommand) Execute(ctx context.Context, msg SignUpMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: auth service is required")
	}
	out, err := c.service.SignUp(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SignOutCommand struct {
	service AuthService
}

func NewSignOutCommand(service AuthService) *SignOutCommand {
	return &SignOutCommand{service: service}
}

func (c *SignOutCommand) Execute(ctx context.Context, msg SignOutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: auth service is required")
	}
	if msg.Local {
		return c.service.SignOutLocal(ctx)
	}
	return c.service.SignOut(ctx)
}

type ChangePasswordCommand struct {
	service AuthService
}

func NewChangePasswordCommand(service AuthService) *ChangePasswordCommand {
	return &ChangePasswordCommand{service: service}
}

func (c *ChangePasswordCommand) Execute(ctx context.Context, msg ChangePasswordMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: auth service is required")
	}
	out, err := c.service.ChangePassword(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RestoreSessionCommand struct {
	service AuthService
}

func NewRestoreSessionCommand(service AuthService) *RestoreSessionCommand {
	return &RestoreSessionCommand{service: service}
}

// Execute stores the restored profile, or a nil profile when the session
// could not be restored.
func (c *RestoreSessionCommand) Execute(ctx context.Context, _ RestoreSessionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: auth service is required")
	}
	out, err := c.service.RestoreSession(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CreateContentCommand struct {
	service ContentAuthor
}

func NewCreateContentCommand(service ContentAuthor) *CreateContentCommand {
	return &CreateContentCommand{service: service}
}

func (c *CreateContentCommand) Execute(ctx context.Context, msg CreateContentMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: content service is required")
	}
	out, err := c.service.Create(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateContentCommand struct {
	service ContentAuthor
}

func NewUpdateContentCommand(service ContentAuthor) *UpdateContentCommand {
	return &UpdateContentCommand{service: service}
}

func (c *UpdateContentCommand) Execute(ctx context.Context, msg UpdateContentMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: content service is required")
	}
	out, err := c.service.Update(ctx, msg.ContentID, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type PublishContentCommand struct {
	service ContentAuthor
}

func NewPublishContentCommand(service ContentAuthor) *PublishContentCommand {
	return &PublishContentCommand{service: service}
}

func (c *PublishContentCommand) Execute(ctx context.Context, msg PublishContentMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: content service is required")
	}
	out, err := c.service.Publish(ctx, msg.ContentID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteContentCommand struct {
	service ContentAuthor
}

func NewDeleteContentCommand(service ContentAuthor) *DeleteContentCommand {
	return &DeleteContentCommand{service: service}
}

func (c *DeleteContentCommand) Execute(ctx context.Context, msg DeleteContentMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: content service is required")
	}
	out, err := c.service.Delete(ctx, msg.ContentID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SaveCategoryCommand struct {
	service CatalogEditor[core.Category]
}

func NewSaveCategoryCommand(service CatalogEditor[core.Category]) *SaveCategoryCommand {
	return &SaveCategoryCommand{service: service}
}

func (c *SaveCategoryCommand) Execute(ctx context.Context, msg SaveCategoryMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: category service is required")
	}
	return saveCatalogItem(ctx, c.service, msg.ID, msg.Category)
}

type DeleteCategoryCommand struct {
	service CatalogEditor[core.Category]
}

func NewDeleteCategoryCommand(service CatalogEditor[core.Category]) *DeleteCategoryCommand {
	return &DeleteCategoryCommand{service: service}
}

func (c *DeleteCategoryCommand) Execute(ctx context.Context, msg DeleteCategoryMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: category service is required")
	}
	out, err := c.service.Delete(ctx, msg.ID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SaveFieldOfStudyCommand struct {
	service CatalogEditor[core.FieldOfStudy]
}

func NewSaveFieldOfStudyCommand(service CatalogEditor[core.FieldOfStudy]) *SaveFieldOfStudyCommand {
	return &SaveFieldOfStudyCommand{service: service}
}

func (c *SaveFieldOfStudyCommand) Execute(ctx context.Context, msg SaveFieldOfStudyMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: field of study service is required")
	}
	return saveCatalogItem(ctx, c.service, msg.ID, msg.FieldOfStudy)
}

type DeleteFieldOfStudyCommand struct {
	service CatalogEditor[core.FieldOfStudy]
}

func NewDeleteFieldOfStudyCommand(service CatalogEditor[core.FieldOfStudy]) *DeleteFieldOfStudyCommand {
	return &DeleteFieldOfStudyCommand{service: service}
}

func (c *DeleteFieldOfStudyCommand) Execute(ctx context.Context, msg DeleteFieldOfStudyMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: field of study service is required")
	}
	out, err := c.service.Delete(ctx, msg.ID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateUserRoleCommand struct {
	service AdminService
}

func NewUpdateUserRoleCommand(service AdminService) *UpdateUserRoleCommand {
	return &UpdateUserRoleCommand{service: service}
}

func (c *UpdateUserRoleCommand) Execute(ctx context.Context, msg UpdateUserRoleMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: admin service is required")
	}
	out, err := c.service.UpdateUserRole(ctx, msg.UserID, msg.Role)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateUserStatusCommand struct {
	service AdminService
}

func NewUpdateUserStatusCommand(service AdminService) *UpdateUserStatusCommand {
	return &UpdateUserStatusCommand{service: service}
}

func (c *UpdateUserStatusCommand) Execute(ctx context.Context, msg UpdateUserStatusMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: admin service is required")
	}
	out, err := c.service.UpdateUserStatus(ctx, msg.UserID, msg.Active)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteUserCommand struct {
	service AdminService
}

func NewDeleteUserCommand(service AdminService) *DeleteUserCommand {
	return &DeleteUserCommand{service: service}
}

func (c *DeleteUserCommand) Execute(ctx context.Context, msg DeleteUserMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: admin service is required")
	}
	out, err := c.service.DeleteUser(ctx, msg.UserID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ModerateContentCommand struct {
	service AdminService
}

func NewModerateContentCommand(service AdminService) *ModerateContentCommand {
	return &ModerateContentCommand{service: service}
}

func (c *ModerateContentCommand) Execute(ctx context.Context, msg ModerateContentMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: admin service is required")
	}
	out, err := c.service.Moderate(ctx, msg.ContentID, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func saveCatalogItem[T any](ctx context.Context, service CatalogEditor[T], id int64, item T) error {
	var (
		out T
		err error
	)
	if id == 0 {
		out, err = service.Create(ctx, item)
	} else {
		out, err = service.Update(ctx, id, item)
	}
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
