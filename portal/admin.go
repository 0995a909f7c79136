package portal

import (
	"context"
	"net/http"
	"strconv"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-puthelp/core"
	"github.com/goliatone/go-puthelp/transport"
)

const (
	adminUsersPath   = "/auth/admin/users"
	adminContentPath = "/content/admin"
	adminStatsPath   = "/admin/stats"
)

type UserQuery struct {
	PageRequest
	Search string
	Role   string
}

type AdminContentQuery struct {
	PageRequest
	Search   string
	Status   core.ContentStatus
	Type     core.ContentType
	AuthorID int64
}

// AdminService covers the administrator endpoints. The backend enforces the
// ADMIN role; callers may check it earlier with core.AccessGuard.
type AdminService struct {
	svc service
}

func NewAdminService(rest *transport.RESTClient, opts ...Option) *AdminService {
	return &AdminService{svc: newService(rest, opts...)}
}

func (s *AdminService) Stats(ctx context.Context) (core.SystemStats, error) {
	return call[core.SystemStats](ctx, s.svc, "admin_stats", transport.Request{
		Method: http.MethodGet,
		Path:   adminStatsPath,
	}, nil)
}

func (s *AdminService) Users(ctx context.Context, q UserQuery) (core.Page[core.UserProfile], error) {
	page, err := q.resolve(newestFirst)
	if err != nil {
		return core.Page[core.UserProfile]{}, err
	}
	values := page.query(true)
	setIfNotEmpty(values, "search", q.Search)
	if q.Role != "" {
		role, err := knownRole(q.Role)
		if err != nil {
			return core.Page[core.UserProfile]{}, err
		}
		values.Set("role", role)
	}
	return call[core.Page[core.UserProfile]](ctx, s.svc, "admin_list_users", transport.Request{
		Method: http.MethodGet,
		Path:   adminUsersPath,
		Query:  values,
	}, map[string]any{"page": page.Page})
}

func (s *AdminService) UpdateUserRole(ctx context.Context, userID int64, role string) (core.UserProfile, error) {
	if err := requireID("userId", userID); err != nil {
		return core.UserProfile{}, err
	}
	role, err := knownRole(role)
	if err != nil {
		return core.UserProfile{}, err
	}
	return call[core.UserProfile](ctx, s.svc, "admin_update_user_role", transport.Request{
		Method: http.MethodPut,
		Path:   idPath(adminUsersPath, userID, "role"),
		Body:   core.RoleUpdateRequest{Role: role},
	}, map[string]any{"user_id": userID, "role": role})
}

func (s *AdminService) UpdateUserStatus(ctx context.Context, userID int64, active bool) (core.UserProfile, error) {
	if err := requireID("userId", userID); err != nil {
		return core.UserProfile{}, err
	}
	return call[core.UserProfile](ctx, s.svc, "admin_update_user_status", transport.Request{
		Method: http.MethodPut,
		Path:   idPath(adminUsersPath, userID, "status"),
		Body:   core.StatusUpdateRequest{IsActive: active},
	}, map[string]any{"user_id": userID, "active": active})
}

func (s *AdminService) DeleteUser(ctx context.Context, userID int64) (core.MessageResponse, error) {
	if err := requireID("userId", userID); err != nil {
		return core.MessageResponse{}, err
	}
	return call[core.MessageResponse](ctx, s.svc, "admin_delete_user", transport.Request{
		Method: http.MethodDelete,
		Path:   idPath(adminUsersPath, userID),
	}, map[string]any{"user_id": userID})
}

// Content lists every content item across authors and statuses.
func (s *AdminService) Content(ctx context.Context, q AdminContentQuery) (ContentPage, error) {
	page, err := q.resolve(newestFirst)
	if err != nil {
		return ContentPage{}, err
	}
	if err := validateFilters(q.Status, q.Type); err != nil {
		return ContentPage{}, err
	}
	values := page.query(true)
	setIfNotEmpty(values, "search", q.Search)
	setIfNotEmpty(values, "status", string(q.Status))
	setIfNotEmpty(values, "type", string(q.Type))
	if q.AuthorID > 0 {
		values.Set("authorId", strconv.FormatInt(q.AuthorID, 10))
	}
	return call[ContentPage](ctx, s.svc, "admin_list_content", transport.Request{
		Method: http.MethodGet,
		Path:   adminContentPath,
		Query:  values,
	}, map[string]any{"page": page.Page})
}

func (s *AdminService) Moderate(ctx context.Context, contentID int64, req core.ModerationRequest) (core.Content, error) {
	if err := requireID("contentId", contentID); err != nil {
		return core.Content{}, err
	}
	if err := req.Validate(); err != nil {
		return core.Content{}, err
	}
	return call[core.Content](ctx, s.svc, "admin_moderate_content", transport.Request{
		Method: http.MethodPost,
		Path:   idPath(adminContentPath, contentID, "moderate"),
		Body:   req,
	}, map[string]any{"content_id": contentID, "action": string(req.Action)})
}

func knownRole(role string) (string, error) {
	switch name := core.NormalizeRoleName(role); name {
	case core.RoleStudent, core.RoleModerator, core.RoleAdmin:
		return name, nil
	}
	return "", badInput("role is invalid", goerrors.FieldError{Field: "role", Message: "role must be STUDENT, MODERATOR or ADMIN"})
}
