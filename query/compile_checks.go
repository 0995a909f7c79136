package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-puthelp/core"
	"github.com/goliatone/go-puthelp/portal"
)

var (
	_ gocmd.Querier[CurrentUserMessage, *core.UserProfile]           = (*CurrentUserQuery)(nil)
	_ gocmd.Querier[CheckAccessMessage, core.GuardDecision]          = (*CheckAccessQuery)(nil)
	_ gocmd.Querier[ListPublishedContentMessage, portal.ContentPage] = (*ListPublishedContentQuery)(nil)
	_ gocmd.Querier[GetPublishedContentMessage, core.Content]        = (*GetPublishedContentQuery)(nil)
	_ gocmd.Querier[SearchContentMessage, portal.ContentPage]        = (*SearchContentQuery)(nil)
	_ gocmd.Querier[ListMyContentMessage, portal.ContentPage]        = (*ListMyContentQuery)(nil)
	_ gocmd.Querier[ActiveCategoriesMessage, []core.Category]        = (*ActiveCategoriesQuery)(nil)
	_ gocmd.Querier[ActiveFieldsOfStudyMessage, []core.FieldOfStudy] = (*ActiveFieldsOfStudyQuery)(nil)
	_ gocmd.Querier[SystemStatsMessage, core.SystemStats]            = (*SystemStatsQuery)(nil)
	_ gocmd.Querier[ListUsersMessage, core.Page[core.UserProfile]]   = (*ListUsersQuery)(nil)
	_ gocmd.Querier[ListAdminContentMessage, portal.ContentPage]     = (*ListAdminContentQuery)(nil)
)
