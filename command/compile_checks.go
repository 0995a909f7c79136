package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[SignInMessage]             = (*SignInCommand)(nil)
	_ gocmd.Commander[SignUpMessage]             = (*SignUpCommand)(nil)
	_ gocmd.Commander[SignOutMessage]            = (*SignOutCommand)(nil)
	_ gocmd.Commander[ChangePasswordMessage]     = (*ChangePasswordCommand)(nil)
	_ gocmd.Commander[RestoreSessionMessage]     = (*RestoreSessionCommand)(nil)
	_ gocmd.Commander[CreateContentMessage]      = (*CreateContentCommand)(nil)
	_ gocmd.Commander[UpdateContentMessage]      = (*UpdateContentCommand)(nil)
	_ gocmd.Commander[PublishContentMessage]     = (*PublishContentCommand)(nil)
	_ gocmd.Commander[DeleteContentMessage]      = (*DeleteContentCommand)(nil)
	_ gocmd.Commander[SaveCategoryMessage]       = (*SaveCategoryCommand)(nil)
	_ gocmd.Commander[DeleteCategoryMessage]     = (*DeleteCategoryCommand)(nil)
	_ gocmd.Commander[SaveFieldOfStudyMessage]   = (*SaveFieldOfStudyCommand)(nil)
	_ gocmd.Commander[DeleteFieldOfStudyMessage] = (*DeleteFieldOfStudyCommand)(nil)
	_ gocmd.Commander[UpdateUserRoleMessage]     = (*UpdateUserRoleCommand)(nil)
	_ gocmd.Commander[UpdateUserStatusMessage]   = (*UpdateUserStatusCommand)(nil)
	_ gocmd.Commander[DeleteUserMessage]         = (*DeleteUserCommand)(nil)
	_ gocmd.Commander[ModerateContentMessage]    = (*ModerateContentCommand)(nil)
)
