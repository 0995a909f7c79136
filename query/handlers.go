package query

import (
	"context"

	"github.com/goliatone/go-puthelp/core"
	"github.com/goliatone/go-puthelp/portal"
)

type ProfileReader interface {
	CurrentUser(ctx context.Context) (*core.UserProfile, error)
}

type AccessChecker interface {
	Check(ctx context.Context, roles ...string) core.GuardDecision
}

type PublishedContentReader interface {
	ListPublished(ctx context.Context, q portal.PublishedContentQuery) (portal.ContentPage, error)
	GetPublished(ctx context.Context, id int64) (core.Content, error)
	Search(ctx context.Context, term string, req portal.PageRequest) (portal.ContentPage, error)
}

type AuthorContentReader interface {
	ListMine(ctx context.Context, q portal.MyContentQuery) (portal.ContentPage, error)
}

type CatalogReader[T any] interface {
	Active(ctx context.Context) ([]T, error)
}

type AdminReader interface {
	Stats(ctx context.Context) (core.SystemStats, error)
	Users(ctx context.Context, q portal.UserQuery) (core.Page[core.UserProfile], error)
	Content(ctx context.Context, q portal.AdminContentQuery) (portal.ContentPage, error)
}

type CurrentUserQuery struct {
	reader ProfileReader
}

func NewCurrentUserQuery(reader ProfileReader) *CurrentUserQuery {
	return &CurrentUserQuery{reader: reader}
}

func (q *CurrentUserQuery) Query(ctx context.Context, _ CurrentUserMessage) (*core.UserProfile, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: profile reader is required")
	}
	return q.reader.CurrentUser(ctx)
}

type CheckAccessQuery struct {
	guard AccessChecker
}

func NewCheckAccessQuery(guard AccessChecker) *CheckAccessQuery {
	return &CheckAccessQuery{guard: guard}
}

func (q *CheckAccessQuery) Query(ctx context.Context, msg CheckAccessMessage) (core.GuardDecision, error) {
	if q == nil || q.guard == nil {
		return "", queryDependencyError("query: access guard is required")
	}
	return q.guard.Check(ctx, msg.Roles...), nil
}

type ListPublishedContentQuery struct {
	reader PublishedContentReader
}

func NewListPublishedContentQuery(reader PublishedContentReader) *ListPublishedContentQuery {
	return &ListPublishedContentQuery{reader: reader}
}

func (q *ListPublishedContentQuery) Query(
	ctx context.Context,
	msg ListPublishedContentMessage,
) (portal.ContentPage, error) {
	if q == nil || q.reader == nil {
		return portal.ContentPage{}, queryDependencyError("query: content reader is required")
	}
	return q.reader.ListPublished(ctx, msg.Query)
}

type GetPublishedContentQuery struct {
	reader PublishedContentReader
}

func NewGetPublishedContentQuery(reader PublishedContentReader) *GetPublishedContentQuery {
	return &GetPublishedContentQuery{reader: reader}
}

func (q *GetPublishedContentQuery) Query(ctx context.Context, msg GetPublishedContentMessage) (core.Content, error) {
	if q == nil || q.reader == nil {
		return core.Content{}, queryDependencyError("query: content reader is required")
	}
	return q.reader.GetPublished(ctx, msg.ContentID)
}

type SearchContentQuery struct {
	reader PublishedContentReader
}

func NewSearchContentQuery(reader PublishedContentReader) *SearchContentQuery {
	return &SearchContentQuery{reader: reader}
}

func (q *SearchContentQuery) Query(ctx context.Context, msg SearchContentMessage) (portal.ContentPage, error) {
	if q == nil || q.reader == nil {
		return portal.ContentPage{}, queryDependencyError("query: content reader is required")
	}
	return q.reader.Search(ctx, msg.Term, msg.Page)
}

type ListMyContentQuery struct {
	reader AuthorContentReader
}

func NewListMyContentQuery(reader AuthorContentReader) *ListMyContentQuery {
	return &ListMyContentQuery{reader: reader}
}

func (q *ListMyContentQuery) Query(ctx context.Context, msg ListMyContentMessage) (portal.ContentPage, error) {
	if q == nil || q.reader == nil {
		return portal.ContentPage{}, queryDependencyError("query: content reader is required")
	}
	return q.reader.ListMine(ctx, msg.Query)
}

type ActiveCategoriesQuery struct {
	reader CatalogReader[core.Category]
}

func NewActiveCategoriesQuery(reader CatalogReader[core.Category]) *ActiveCategoriesQuery {
	return &ActiveCategoriesQuery{reader: reader}
}

func (q *ActiveCategoriesQuery) Query(ctx context.Context, _ ActiveCategoriesMessage) ([]core.Category, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: category reader is required")
	}
	return q.reader.Active(ctx)
}

type ActiveFieldsOfStudyQuery struct {
	reader CatalogReader[core.FieldOfStudy]
}

func NewActiveFieldsOfStudyQuery(reader CatalogReader[core.FieldOfStudy]) *ActiveFieldsOfStudyQuery {
	return &ActiveFieldsOfStudyQuery{reader: reader}
}

func (q *ActiveFieldsOfStudyQuery) Query(
	ctx context.Context,
	_ ActiveFieldsOfStudyMessage,
) ([]core.FieldOfStudy, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: field of study reader is required")
	}
	return q.reader.Active(ctx)
}

type SystemStatsQuery struct {
	reader AdminReader
}

func NewSystemStatsQuery(reader AdminReader) *SystemStatsQuery {
	return &SystemStatsQuery{reader: reader}
}

func (q *SystemStatsQuery) Query(ctx context.Context, _ SystemStatsMessage) (core.SystemStats, error) {
	if q == nil || q.reader == nil {
		return core.SystemStats{}, queryDependencyError("query: admin reader is required")
	}
	return q.reader.Stats(ctx)
}

type ListUsersQuery struct {
	reader AdminReader
}

func NewListUsersQuery(reader AdminReader) *ListUsersQuery {
	return &ListUsersQuery{reader: reader}
}

func (q *ListUsersQuery) Query(ctx context.Context, msg ListUsersMessage) (core.Page[core.UserProfile], error) {
	if q == nil || q.reader == nil {
		return core.Page[core.UserProfile]{}, queryDependencyError("query: admin reader is required")
	}
	return q.reader.Users(ctx, msg.Query)
}

type ListAdminContentQuery struct {
	reader AdminReader
}

func NewListAdminContentQuery(reader AdminReader) *ListAdminContentQuery {
	return &ListAdminContentQuery{reader: reader}
}

func (q *ListAdminContentQuery) Query(ctx context.Context, msg ListAdminContentMessage) (portal.ContentPage, error) {
	if q == nil || q.reader == nil {
		return portal.ContentPage{}, queryDependencyError("query: admin reader is required")
	}
	return q.reader.Content(ctx, msg.Query)
}
