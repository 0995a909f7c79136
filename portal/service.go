// Package portal holds the resource services of the PUT Help API. Services
// are stateless request builders over a transport.RESTClient; credential
// attachment and refresh happen in the client's transport.
package portal

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-puthelp/core"
	"github.com/goliatone/go-puthelp/transport"
)

const (
	DefaultPageSize = 10

	SortAsc  = "asc"
	SortDesc = "desc"
)

// PageRequest selects a page of a listing. Zero values fall back to the
// defaults of the endpoint being called.
type PageRequest struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

var (
	newestFirst = PageRequest{Size: DefaultPageSize, SortBy: "createdAt", SortDir: SortDesc}
	byName      = PageRequest{Size: DefaultPageSize, SortBy: "name", SortDir: SortAsc}
)

func (p PageRequest) resolve(defaults PageRequest) (PageRequest, error) {
	var fields []goerrors.FieldError
	if p.Page < 0 {
		fields = append(fields, goerrors.FieldError{Field: "page", Message: "page must not be negative"})
	}
	if p.Size <= 0 {
		p.Size = defaults.Size
	}
	if strings.TrimSpace(p.SortBy) == "" {
		p.SortBy = defaults.SortBy
	}
	p.SortDir = strings.ToLower(strings.TrimSpace(p.SortDir))
	if p.SortDir == "" {
		p.SortDir = defaults.SortDir
	}
	if p.SortDir != "" && p.SortDir != SortAsc && p.SortDir != SortDesc {
		fields = append(fields, goerrors.FieldError{Field: "sortDir", Message: "sortDir must be asc or desc"})
	}
	if len(fields) > 0 {
		return p, badInput("page request is invalid", fields...)
	}
	return p, nil
}

func (p PageRequest) query(sorted bool) url.Values {
	values := url.Values{}
	values.Set("page", strconv.Itoa(p.Page))
	values.Set("size", strconv.Itoa(p.Size))
	if sorted {
		values.Set("sortBy", strings.TrimSpace(p.SortBy))
		values.Set("sortDir", p.SortDir)
	}
	return values
}

type Option func(*service)

func WithObserver(observer *core.Observer) Option {
	return func(s *service) {
		if observer != nil {
			s.observer = observer
		}
	}
}

type service struct {
	rest     *transport.RESTClient
	observer *core.Observer
}

func newService(rest *transport.RESTClient, opts ...Option) service {
	svc := service{rest: rest, observer: core.NewObserver(nil, nil)}
	for _, opt := range opts {
		if opt != nil {
			opt(&svc)
		}
	}
	return svc
}

func call[T any](ctx context.Context, svc service, operation string, req transport.Request, fields map[string]any) (out T, err error) {
	startedAt := time.Now()
	defer func() {
		svc.observer.Observe(ctx, startedAt, operation, err, fields)
	}()
	if svc.rest == nil {
		return out, goerrors.New("portal: service requires a rest client", goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.ErrorInternal)
	}
	return transport.Call[T](ctx, svc.rest, req)
}

// Services bundles every resource service over one REST client.
type Services struct {
	Content       *ContentService
	Categories    *CategoryService
	FieldsOfStudy *FieldOfStudyService
	Admin         *AdminService
}

func New(rest *transport.RESTClient, opts ...Option) *Services {
	return &Services{
		Content:       NewContentService(rest, opts...),
		Categories:    NewCategoryService(rest, opts...),
		FieldsOfStudy: NewFieldOfStudyService(rest, opts...),
		Admin:         NewAdminService(rest, opts...),
	}
}

func requireID(name string, id int64) error {
	if id > 0 {
		return nil
	}
	return badInput(name+" is invalid", goerrors.FieldError{Field: name, Message: name + " must be positive"})
}

func badInput(message string, fields ...goerrors.FieldError) error {
	return goerrors.NewValidation(message, fields...).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ErrorBadInput)
}

func setIfNotEmpty(values url.Values, key string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		values.Set(key, value)
	}
}

func idPath(prefix string, id int64, suffix ...string) string {
	path := prefix + "/" + strconv.FormatInt(id, 10)
	for _, part := range suffix {
		path += "/" + part
	}
	return path
}
