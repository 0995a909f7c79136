package puthelp

import (
	"fmt"
	"net/http"

	"github.com/goliatone/go-puthelp/auth"
	puthelpcommand "github.com/goliatone/go-puthelp/command"
	"github.com/goliatone/go-puthelp/core"
	"github.com/goliatone/go-puthelp/portal"
	puthelpquery "github.com/goliatone/go-puthelp/query"
	"github.com/goliatone/go-puthelp/transport"
)

// Client is a ready-to-use PUT Help client: one authenticated HTTP pipeline
// shared by the auth client and every resource service.
type Client struct {
	service *Service
	http    *http.Client
	rest    *transport.RESTClient
	auth    *auth.Client
	portal  *portal.Services
}

type ClientOption func(*clientOptions)

type clientOptions struct {
	base http.RoundTripper
}

// WithBaseTransport sets the round tripper under the authentication
// pipeline. Defaults to http.DefaultTransport.
func WithBaseTransport(base http.RoundTripper) ClientOption {
	return func(o *clientOptions) {
		o.base = base
	}
}

// NewClient wires the transport, auth client and resource services over the
// service session. The auth client becomes the session refresher unless the
// service already has one.
func NewClient(service *Service, opts ...ClientOption) (*Client, error) {
	if service == nil {
		return nil, fmt.Errorf("puthelp: service is required")
	}
	cfg := clientOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	config := service.Config()
	observer := service.Observer()
	httpClient := transport.NewHTTPClient(config, cfg.base, service.Session(), service.Coordinator(), observer)
	rest := transport.NewRESTClient(config.BaseURL, httpClient)
	if config.HTTP.MaxResponseBodyBytes > 0 {
		rest.MaxResponseBodyBytes = config.HTTP.MaxResponseBodyBytes
	}

	authClient := auth.NewClient(rest, service.Session(),
		auth.WithPaths(config.Auth),
		auth.WithObserver(observer),
		auth.WithSessionRefresher(service.Coordinator()),
	)
	if !service.HasRefresher() {
		service.BindRefresher(authClient)
	}

	return &Client{
		service: service,
		http:    httpClient,
		rest:    rest,
		auth:    authClient,
		portal:  portal.New(rest, portal.WithObserver(observer)),
	}, nil
}

// New builds the service and the client in one step.
func New(cfg Config, opts ...Option) (*Client, error) {
	service, err := NewService(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return NewClient(service)
}

func (c *Client) Service() *Service {
	if c == nil {
		return nil
	}
	return c.service
}

// HTTPClient returns the authenticated client for calls outside the
// resource services.
func (c *Client) HTTPClient() *http.Client {
	if c == nil {
		return nil
	}
	return c.http
}

func (c *Client) REST() *transport.RESTClient {
	if c == nil {
		return nil
	}
	return c.rest
}

func (c *Client) Auth() *auth.Client {
	if c == nil {
		return nil
	}
	return c.auth
}

func (c *Client) Portal() *portal.Services {
	if c == nil {
		return nil
	}
	return c.portal
}

type Commands struct {
	SignIn             *puthelpcommand.SignInCommand
	SignUp             *puthelpcommand.SignUpCommand
	SignOut            *puthelpcommand.SignOutCommand
	ChangePassword     *puthelpcommand.ChangePasswordCommand
	RestoreSession     *puthelpcommand.RestoreSessionCommand
	CreateContent      *puthelpcommand.CreateContentCommand
	UpdateContent      *puthelpcommand.UpdateContentCommand
	PublishContent     *puthelpcommand.PublishContentCommand
	DeleteContent      *puthelpcommand.DeleteContentCommand
	SaveCategory       *puthelpcommand.SaveCategoryCommand
	DeleteCategory     *puthelpcommand.DeleteCategoryCommand
	SaveFieldOfStudy   *puthelpcommand.SaveFieldOfStudyCommand
	DeleteFieldOfStudy *puthelpcommand.DeleteFieldOfStudyCommand
	UpdateUserRole     *puthelpcommand.UpdateUserRoleCommand
	UpdateUserStatus   *puthelpcommand.UpdateUserStatusCommand
	DeleteUser         *puthelpcommand.DeleteUserCommand
	ModerateContent    *puthelpcommand.ModerateContentCommand
}

type Queries struct {
	CurrentUser          *puthelpquery.CurrentUserQuery
	CheckAccess          *puthelpquery.CheckAccessQuery
	ListPublishedContent *puthelpquery.ListPublishedContentQuery
	GetPublishedContent  *puthelpquery.GetPublishedContentQuery
	SearchContent        *puthelpquery.SearchContentQuery
	ListMyContent        *puthelpquery.ListMyContentQuery
	ActiveCategories     *puthelpquery.ActiveCategoriesQuery
	ActiveFieldsOfStudy  *puthelpquery.ActiveFieldsOfStudyQuery
	SystemStats          *puthelpquery.SystemStatsQuery
	ListUsers            *puthelpquery.ListUsersQuery
	ListAdminContent     *puthelpquery.ListAdminContentQuery
}

// Facade exposes the client operations as go-command handlers.
type Facade struct {
	client   *Client
	commands Commands
	queries  Queries
}

func NewFacade(client *Client) (*Facade, error) {
	if client == nil || client.auth == nil || client.portal == nil {
		return nil, fmt.Errorf("puthelp: client is required")
	}
	authClient := client.auth
	services := client.portal
	var guard puthelpquery.AccessChecker
	if g := client.service.Guard(); g != nil {
		guard = g
	}

	facade := &Facade{client: client}
	facade.commands = Commands{
		SignIn:             puthelpcommand.NewSignInCommand(authClient),
		SignUp:             puthelpcommand.NewSignUpCommand(authClient),
		SignOut:            puthelpcommand.NewSignOutCommand(authClient),
		ChangePassword:     puthelpcommand.NewChangePasswordCommand(authClient),
		RestoreSession:     puthelpcommand.NewRestoreSessionCommand(authClient),
		CreateContent:      puthelpcommand.NewCreateContentCommand(services.Content),
		UpdateContent:      puthelpcommand.NewUpdateContentCommand(services.Content),
		PublishContent:     puthelpcommand.NewPublishContentCommand(services.Content),
		DeleteContent:      puthelpcommand.NewDeleteContentCommand(services.Content),
		SaveCategory:       puthelpcommand.NewSaveCategoryCommand(services.Categories),
		DeleteCategory:     puthelpcommand.NewDeleteCategoryCommand(services.Categories),
		SaveFieldOfStudy:   puthelpcommand.NewSaveFieldOfStudyCommand(services.FieldsOfStudy),
		DeleteFieldOfStudy: puthelpcommand.NewDeleteFieldOfStudyCommand(services.FieldsOfStudy),
		UpdateUserRole:     puthelpcommand.NewUpdateUserRoleCommand(services.Admin),
		UpdateUserStatus:   puthelpcommand.NewUpdateUserStatusCommand(services.Admin),
		DeleteUser:         puthelpcommand.NewDeleteUserCommand(services.Admin),
		ModerateContent:    puthelpcommand.NewModerateContentCommand(services.Admin),
	}
	facade.queries = Queries{
		CurrentUser:          puthelpquery.NewCurrentUserQuery(authClient),
		CheckAccess:          puthelpquery.NewCheckAccessQuery(guard),
		ListPublishedContent: puthelpquery.NewListPublishedContentQuery(services.Content),
		GetPublishedContent:  puthelpquery.NewGetPublishedContentQuery(services.Content),
		SearchContent:        puthelpquery.NewSearchContentQuery(services.Content),
		ListMyContent:        puthelpquery.NewListMyContentQuery(services.Content),
		ActiveCategories:     puthelpquery.NewActiveCategoriesQuery(services.Categories),
		ActiveFieldsOfStudy:  puthelpquery.NewActiveFieldsOfStudyQuery(services.FieldsOfStudy),
		SystemStats:          puthelpquery.NewSystemStatsQuery(services.Admin),
		ListUsers:            puthelpquery.NewListUsersQuery(services.Admin),
		ListAdminContent:     puthelpquery.NewListAdminContentQuery(services.Admin),
	}
	return facade, nil
}

func (f *Facade) Client() *Client {
	if f == nil {
		return nil
	}
	return f.client
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

var _ core.Refresher = (*auth.Client)(nil)
