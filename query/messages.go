package query

import (
	"strings"

	"github.com/goliatone/go-puthelp/portal"
)

const (
	TypeCurrentUser          = "puthelp.query.auth.current_user"
	TypeCheckAccess          = "puthelp.query.auth.check_access"
	TypeListPublishedContent = "puthelp.query.content.published.list"
	TypeGetPublishedContent  = "puthelp.query.content.published.get"
	TypeSearchContent        = "puthelp.query.content.search"
	TypeListMyContent        = "puthelp.query.content.mine"
	TypeActiveCategories     = "puthelp.query.category.active"
	TypeActiveFieldsOfStudy  = "puthelp.query.field_of_study.active"
	TypeSystemStats          = "puthelp.query.admin.stats"
	TypeListUsers            = "puthelp.query.admin.users"
	TypeListAdminContent     = "puthelp.query.admin.content"
)

type CurrentUserMessage struct{}

func (CurrentUserMessage) Type() string { return TypeCurrentUser }

func (CurrentUserMessage) Validate() error { return nil }

// CheckAccessMessage asks whether the session may reach a resource requiring
// any of Roles. No roles means any signed-in user.
type CheckAccessMessage struct {
	Roles []string
}

func (CheckAccessMessage) Type() string { return TypeCheckAccess }

func (m CheckAccessMessage) Validate() error {
	for _, role := range m.Roles {
		if strings.TrimSpace(role) == "" {
			return queryValidationError("roles", "roles must not be blank")
		}
	}
	return nil
}

type ListPublishedContentMessage struct {
	Query portal.PublishedContentQuery
}

func (ListPublishedContentMessage) Type() string { return TypeListPublishedContent }

func (m ListPublishedContentMessage) Validate() error {
	return validatePage(m.Query.PageRequest)
}

type GetPublishedContentMessage struct {
	ContentID int64
}

func (GetPublishedContentMessage) Type() string { return TypeGetPublishedContent }

func (m GetPublishedContentMessage) Validate() error {
	if m.ContentID <= 0 {
		return queryValidationError("content_id", "content_id must be positive")
	}
	return nil
}

type SearchContentMessage struct {
	Term string
	Page portal.PageRequest
}

func (SearchContentMessage) Type() string { return TypeSearchContent }

func (m SearchContentMessage) Validate() error {
	if strings.TrimSpace(m.Term) == "" {
		return queryValidationError("term", "search term is required")
	}
	return validatePage(m.Page)
}

type ListMyContentMessage struct {
	Query portal.MyContentQuery
}

func (ListMyContentMessage) Type() string { return TypeListMyContent }

func (m ListMyContentMessage) Validate() error {
	return validatePage(m.Query.PageRequest)
}

type ActiveCategoriesMessage struct{}

func (ActiveCategoriesMessage) Type() string { return TypeActiveCategories }

func (ActiveCategoriesMessage) Validate() error { return nil }

type ActiveFieldsOfStudyMessage struct{}

func (ActiveFieldsOfStudyMessage) Type() string { return TypeActiveFieldsOfStudy }

func (ActiveFieldsOfStudyMessage) Validate() error { return nil }

type SystemStatsMessage struct{}

func (SystemStatsMessage) Type() string { return TypeSystemStats }

func (SystemStatsMessage) Validate() error { return nil }

type ListUsersMessage struct {
	Query portal.UserQuery
}

func (ListUsersMessage) Type() string { return TypeListUsers }

func (m ListUsersMessage) Validate() error {
	return validatePage(m.Query.PageRequest)
}

type ListAdminContentMessage struct {
	Query portal.AdminContentQuery
}

func (ListAdminContentMessage) Type() string { return TypeListAdminContent }

func (m ListAdminContentMessage) Validate() error {
	if m.Query.AuthorID < 0 {
		return queryValidationError("author_id", "author_id must not be negative")
	}
	return validatePage(m.Query.PageRequest)
}

func validatePage(req portal.PageRequest) error {
	if req.Page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if req.Size < 0 {
		return queryValidationError("size", "size must be >= 0")
	}
	return nil
}
