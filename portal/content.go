package portal

import (
	"context"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-puthelp/core"
	"github.com/goliatone/go-puthelp/transport"
)

const (
	contentPath       = "/content"
	publicContentPath = "/content/public"
)

type ContentPage = core.Page[core.Content]

type PublishedContentQuery struct {
	PageRequest
	Type core.ContentType
}

// MyContentQuery filters the signed-in author's own content.
type MyContentQuery struct {
	PageRequest
	Search string
	Status core.ContentStatus
	Type   core.ContentType
}

type ContentService struct {
	svc service
}

func NewContentService(rest *transport.RESTClient, opts ...Option) *ContentService {
	return &ContentService{svc: newService(rest, opts...)}
}

func (s *ContentService) ListPublished(ctx context.Context, q PublishedContentQuery) (ContentPage, error) {
	page, err := q.resolve(newestFirst)
	if err != nil {
		return ContentPage{}, err
	}
	if err := validateFilters("", q.Type); err != nil {
		return ContentPage{}, err
	}
	values := page.query(true)
	setIfNotEmpty(values, "type", string(q.Type))
	return call[ContentPage](ctx, s.svc, "content_list_published", transport.Request{
		Method: http.MethodGet,
		Path:   publicContentPath,
		Query:  values,
	}, map[string]any{"page": page.Page, "type": string(q.Type)})
}

func (s *ContentService) GetPublished(ctx context.Context, id int64) (core.Content, error) {
	if err := requireID("id", id); err != nil {
		return core.Content{}, err
	}
	return call[core.Content](ctx, s.svc, "content_get_published", transport.Request{
		Method: http.MethodGet,
		Path:   idPath(publicContentPath, id),
	}, map[string]any{"content_id": id})
}

// ListByFieldOfStudy lists published content of one field of study.
func (s *ContentService) ListByFieldOfStudy(ctx context.Context, fieldOfStudyID int64, req PageRequest) (ContentPage, error) {
	return s.listPublishedUnder(ctx, "content_list_by_field_of_study", "kierunek", fieldOfStudyID, req)
}

func (s *ContentService) ListByCategory(ctx context.Context, categoryID int64, req PageRequest) (ContentPage, error) {
	return s.listPublishedUnder(ctx, "content_list_by_category", "category", categoryID, req)
}

func (s *ContentService) listPublishedUnder(ctx context.Context, operation string, segment string, id int64, req PageRequest) (ContentPage, error) {
	if err := requireID(segment+"Id", id); err != nil {
		return ContentPage{}, err
	}
	page, err := req.resolve(newestFirst)
	if err != nil {
		return ContentPage{}, err
	}
	return call[ContentPage](ctx, s.svc, operation, transport.Request{
		Method: http.MethodGet,
		Path:   idPath(publicContentPath+"/"+segment, id),
		Query:  page.query(false),
	}, map[string]any{segment + "_id": id, "page": page.Page})
}

func (s *ContentService) Search(ctx context.Context, term string, req PageRequest) (ContentPage, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return ContentPage{}, badInput("search term is required", goerrors.FieldError{Field: "q", Message: "search term is required"})
	}
	page, err := req.resolve(newestFirst)
	if err != nil {
		return ContentPage{}, err
	}
	values := page.query(false)
	values.Set("q", term)
	return call[ContentPage](ctx, s.svc, "content_search", transport.Request{
		Method: http.MethodGet,
		Path:   publicContentPath + "/search",
		Query:  values,
	}, map[string]any{"page": page.Page})
}

func (s *ContentService) Create(ctx context.Context, req core.ContentRequest) (core.Content, error) {
	if err := req.Validate(); err != nil {
		return core.Content{}, err
	}
	return call[core.Content](ctx, s.svc, "content_create", transport.Request{
		Method: http.MethodPost,
		Path:   contentPath,
		Body:   req,
	}, map[string]any{"type": string(req.Type)})
}

func (s *ContentService) Update(ctx context.Context, id int64, req core.ContentRequest) (core.Content, error) {
	if err := requireID("id", id); err != nil {
		return core.Content{}, err
	}
	if err := req.Validate(); err != nil {
		return core.Content{}, err
	}
	return call[core.Content](ctx, s.svc, "content_update", transport.Request{
		Method: http.MethodPut,
		Path:   idPath(contentPath, id),
		Body:   req,
	}, map[string]any{"content_id": id})
}

func (s *ContentService) Publish(ctx context.Context, id int64) (core.Content, error) {
	if err := requireID("id", id); err != nil {
		return core.Content{}, err
	}
	return call[core.Content](ctx, s.svc, "content_publish", transport.Request{
		Method: http.MethodPost,
		Path:   idPath(contentPath, id, "publish"),
		Body:   map[string]any{},
	}, map[string]any{"content_id": id})
}

func (s *ContentService) Delete(ctx context.Context, id int64) (core.MessageResponse, error) {
	if err := requireID("id", id); err != nil {
		return core.MessageResponse{}, err
	}
	return call[core.MessageResponse](ctx, s.svc, "content_delete", transport.Request{
		Method: http.MethodDelete,
		Path:   idPath(contentPath, id),
	}, map[string]any{"content_id": id})
}

func (s *ContentService) ListMine(ctx context.Context, q MyContentQuery) (ContentPage, error) {
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
	return call[ContentPage](ctx, s.svc, "content_list_mine", transport.Request{
		Method: http.MethodGet,
		Path:   contentPath + "/my",
		Query:  values,
	}, map[string]any{"page": page.Page})
}

// Get returns a content item by id regardless of status, subject to the
// caller's ownership or role.
func (s *ContentService) Get(ctx context.Context, id int64) (core.Content, error) {
	if err := requireID("id", id); err != nil {
		return core.Content{}, err
	}
	return call[core.Content](ctx, s.svc, "content_get", transport.Request{
		Method: http.MethodGet,
		Path:   idPath(contentPath, id),
	}, map[string]any{"content_id": id})
}

func validateFilters(status core.ContentStatus, contentType core.ContentType) error {
	var fields []goerrors.FieldError
	if status != "" && !status.Valid() {
		fields = append(fields, goerrors.FieldError{Field: "status", Message: "status is invalid"})
	}
	if contentType != "" && !contentType.Valid() {
		fields = append(fields, goerrors.FieldError{Field: "type", Message: "type is invalid"})
	}
	if len(fields) > 0 {
		return badInput("content filter is invalid", fields...)
	}
	return nil
}
