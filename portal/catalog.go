package portal

import (
	"context"
	"net/http"

	"github.com/goliatone/go-puthelp/core"
	"github.com/goliatone/go-puthelp/transport"
)

const (
	categoriesPath    = "/categories"
	fieldsOfStudyPath = "/kieruneks"
)

type validatable interface {
	Validate() error
}

// catalog serves the dictionary resources that share one endpoint shape:
// a public list of active entries, an admin paged list and CRUD by id.
type catalog[T validatable] struct {
	svc  service
	path string
	name string
}

func (c catalog[T]) active(ctx context.Context) ([]T, error) {
	return call[[]T](ctx, c.svc, c.name+"_list_active", transport.Request{
		Method: http.MethodGet,
		Path:   c.path + "/public",
	}, nil)
}

func (c catalog[T]) list(ctx context.Context, req PageRequest) (core.Page[T], error) {
	page, err := req.resolve(byName)
	if err != nil {
		return core.Page[T]{}, err
	}
	return call[core.Page[T]](ctx, c.svc, c.name+"_list", transport.Request{
		Method: http.MethodGet,
		Path:   c.path,
		Query:  page.query(true),
	}, map[string]any{"page": page.Page})
}

func (c catalog[T]) create(ctx context.Context, item T) (T, error) {
	if err := item.Validate(); err != nil {
		var zero T
		return zero, err
	}
	return call[T](ctx, c.svc, c.name+"_create", transport.Request{
		Method: http.MethodPost,
		Path:   c.path,
		Body:   item,
	}, nil)
}

func (c catalog[T]) update(ctx context.Context, id int64, item T) (T, error) {
	var zero T
	if err := requireID("id", id); err != nil {
		return zero, err
	}
	if err := item.Validate(); err != nil {
		return zero, err
	}
	return call[T](ctx, c.svc, c.name+"_update", transport.Request{
		Method: http.MethodPut,
		Path:   idPath(c.path, id),
		Body:   item,
	}, map[string]any{"id": id})
}

func (c catalog[T]) delete(ctx context.Context, id int64) (core.MessageResponse, error) {
	if err := requireID("id", id); err != nil {
		return core.MessageResponse{}, err
	}
	return call[core.MessageResponse](ctx, c.svc, c.name+"_delete", transport.Request{
		Method: http.MethodDelete,
		Path:   idPath(c.path, id),
	}, map[string]any{"id": id})
}

type CategoryService struct {
	catalog catalog[core.Category]
}

func NewCategoryService(rest *transport.RESTClient, opts ...Option) *CategoryService {
	return &CategoryService{catalog: catalog[core.Category]{
		svc:  newService(rest, opts...),
		path: categoriesPath,
		name: "category",
	}}
}

// Active lists the categories visible to everyone.
func (s *CategoryService) Active(ctx context.Context) ([]core.Category, error) {
	return s.catalog.active(ctx)
}

func (s *CategoryService) List(ctx context.Context, req PageRequest) (core.Page[core.Category], error) {
	return s.catalog.list(ctx, req)
}

func (s *CategoryService) Create(ctx context.Context, category core.Category) (core.Category, error) {
	return s.catalog.create(ctx, category)
}

func (s *CategoryService) Update(ctx context.Context, id int64, category core.Category) (core.Category, error) {
	return s.catalog.update(ctx, id, category)
}

func (s *CategoryService) Delete(ctx context.Context, id int64) (core.MessageResponse, error) {
	return s.catalog.delete(ctx, id)
}

// FieldOfStudyService manages the backend "kierunek" resource.
type FieldOfStudyService struct {
	catalog catalog[core.FieldOfStudy]
}

func NewFieldOfStudyService(rest *transport.RESTClient, opts ...Option) *FieldOfStudyService {
	return &FieldOfStudyService{catalog: catalog[core.FieldOfStudy]{
		svc:  newService(rest, opts...),
		path: fieldsOfStudyPath,
		name: "field_of_study",
	}}
}

func (s *FieldOfStudyService) Active(ctx context.Context) ([]core.FieldOfStudy, error) {
	return s.catalog.active(ctx)
}

func (s *FieldOfStudyService) List(ctx context.Context, req PageRequest) (core.Page[core.FieldOfStudy], error) {
	return s.catalog.list(ctx, req)
}

func (s *FieldOfStudyService) Create(ctx context.Context, field core.FieldOfStudy) (core.FieldOfStudy, error) {
	return s.catalog.create(ctx, field)
}

func (s *FieldOfStudyService) Update(ctx context.Context, id int64, field core.FieldOfStudy) (core.FieldOfStudy, error) {
	return s.catalog.update(ctx, id, field)
}

func (s *FieldOfStudyService) Delete(ctx context.Context, id int64) (core.MessageResponse, error) {
	return s.catalog.delete(ctx, id)
}
