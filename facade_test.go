package puthelp

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	gocmd "github.com/goliatone/go-command"
	puthelpcommand "github.com/goliatone/go-puthelp/command"
	"github.com/goliatone/go-puthelp/core"
	"github.com/goliatone/go-puthelp/internal/portaltest"
	puthelpquery "github.com/goliatone/go-puthelp/query"
)

func myContentRoutes(r chi.Router) {
	r.Get("/content/my", func(w http.ResponseWriter, r *http.Request) {
		portaltest.WriteJSON(w, http.StatusOK, map[string]any{
			"content":       []map[string]any{{"id": 7, "title": "Notes by " + portaltest.Username(r)}},
			"totalElements": 1,
			"totalPages":    1,
			"size":          10,
			"number":        0,
		})
	})
}

func newTestFacade(t *testing.T, backend *portaltest.Backend, opts ...Option) *Facade {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BaseURL = backend.URL
	client, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	facade, err := NewFacade(client)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	return facade
}

func TestFacade_SignInThenQueryThroughSharedSession(t *testing.T) {
	backend := portaltest.New(t, portaltest.WithRoutes(myContentRoutes))
	backend.AddUser(portaltest.User{Username: "ola", Password: "secret1", Roles: []string{"MODERATOR"}})
	facade := newTestFacade(t, backend)

	collector := gocmd.NewResult[core.AuthResponse]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	err := facade.Commands().SignIn.Execute(ctx, puthelpcommand.SignInMessage{
		Request: core.SignInRequest{Username: "ola", Password: "secret1"},
	})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	resp, ok := collector.Load()
	if !ok || resp.AccessToken == "" {
		t.Fatalf("expected stored auth response, got %+v ok=%v", resp, ok)
	}

	user, err := facade.Queries().CurrentUser.Query(context.Background(), puthelpquery.CurrentUserMessage{})
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if user == nil || user.Username != "ola" {
		t.Fatalf("unexpected current user %+v", user)
	}

	decision, err := facade.Queries().CheckAccess.Query(context.Background(), puthelpquery.CheckAccessMessage{
		Roles: []string{"MODERATOR", "ADMIN"},
	})
	if err != nil {
		t.Fatalf("check access: %v", err)
	}
	if decision != GuardAllow {
		t.Fatalf("expected allow, got %q", decision)
	}

	decision, _ = facade.Queries().CheckAccess.Query(context.Background(), puthelpquery.CheckAccessMessage{
		Roles: []string{"ADMIN"},
	})
	if decision != GuardRedirectHome {
		t.Fatalf("expected redirect home for missing role, got %q", decision)
	}

	page, err := facade.Queries().ListMyContent.Query(context.Background(), puthelpquery.ListMyContentMessage{})
	if err != nil {
		t.Fatalf("list my content: %v", err)
	}
	if len(page.Content) != 1 || page.Content[0].Title != "Notes by ola" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestFacade_RecoversFromRevokedAccessToken(t *testing.T) {
	backend := portaltest.New(t, portaltest.WithRoutes(myContentRoutes))
	backend.AddUser(portaltest.User{Username: "kuba", Password: "secret1"})
	facade := newTestFacade(t, backend)

	_, err := facade.Client().Auth().SignIn(context.Background(), core.SignInRequest{Username: "kuba", Password: "secret1"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	backend.ExpireAccess("kuba")

	if _, err := facade.Queries().ListMyContent.Query(context.Background(), puthelpquery.ListMyContentMessage{}); err != nil {
		t.Fatalf("expected replay after refresh, got %v", err)
	}
	if calls := backend.RefreshCalls.Load(); calls != 1 {
		t.Fatalf("expected one refresh, got %d", calls)
	}
	stored, err := facade.Client().Service().Session().GetAccessToken(context.Background())
	if err != nil {
		t.Fatalf("read access token: %v", err)
	}
	if stored != backend.AccessToken("kuba") {
		t.Fatalf("expected rotated access token to be stored")
	}
}

func TestFacade_CheckAccessWithoutSession(t *testing.T) {
	backend := portaltest.New(t)
	facade := newTestFacade(t, backend)

	decision, err := facade.Queries().CheckAccess.Query(context.Background(), puthelpquery.CheckAccessMessage{})
	if err != nil {
		t.Fatalf("check access: %v", err)
	}
	if decision != GuardRedirectLogin {
		t.Fatalf("expected redirect to login, got %q", decision)
	}
}

func TestNewClient_KeepsConfiguredRefresher(t *testing.T) {
	backend := portaltest.New(t)
	called := 0
	refresher := core.RefresherFunc(func(context.Context, string) (core.AuthResponse, error) {
		called++
		return core.AuthResponse{AccessToken: "custom-access", RefreshToken: "custom-refresh"}, nil
	})
	cfg := DefaultConfig()
	cfg.BaseURL = backend.URL
	service, err := NewService(cfg, WithRefresher(refresher))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := NewClient(service); err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := service.Session().SetCredentials(context.Background(), "old", "refresh"); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}
	cred, err := service.RefreshSession(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if called != 1 || cred.AccessToken != "custom-access" {
		t.Fatalf("expected configured refresher to run, called=%d cred=%+v", called, cred)
	}
}

func TestNewClient_BindsAuthClientAsRefresher(t *testing.T) {
	backend := portaltest.New(t)
	cfg := DefaultConfig()
	cfg.BaseURL = backend.URL
	service, err := NewService(cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if service.HasRefresher() {
		t.Fatalf("expected no refresher before the client is built")
	}
	if _, err := NewClient(service); err != nil {
		t.Fatalf("new client: %v", err)
	}
	if !service.HasRefresher() {
		t.Fatalf("expected auth client to be bound as refresher")
	}
}

func TestNewFacade_RequiresClient(t *testing.T) {
	facade, err := NewFacade(nil)
	if err == nil {
		t.Fatalf("expected nil client error")
	}
	if facade != nil {
		t.Fatalf("expected nil facade on error")
	}
	if _, err := NewClient(nil); err == nil {
		t.Fatalf("expected nil service error")
	}
}

func TestSetup_ReadsEnvironment(t *testing.T) {
	t.Setenv("PUTHELP_BASE_URL", "https://puthelp.example.com/api")
	t.Setenv("PUTHELP_REFRESH_MAX_ATTEMPTS", "4")

	service, err := Setup(Config{})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	cfg := service.Config()
	if cfg.BaseURL != "https://puthelp.example.com/api" {
		t.Fatalf("expected base url from env, got %q", cfg.BaseURL)
	}
	if cfg.Refresh.MaxAttempts != 4 {
		t.Fatalf("expected max attempts from env, got %d", cfg.Refresh.MaxAttempts)
	}
	if cfg.Auth.RefreshPath != DefaultConfig().Auth.RefreshPath {
		t.Fatalf("expected default refresh path, got %q", cfg.Auth.RefreshPath)
	}
}

func TestSetup_RuntimeConfigWins(t *testing.T) {
	t.Setenv("PUTHELP_SERVICE_NAME", "from-env")

	service, err := Setup(Config{ServiceName: "from-runtime"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if name := service.Config().ServiceName; name != "from-runtime" {
		t.Fatalf("expected runtime service name, got %q", name)
	}
}
