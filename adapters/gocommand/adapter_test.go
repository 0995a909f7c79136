package gocommand

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-command"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	puthelp "github.com/goliatone/go-puthelp"
	puthelpcommand "github.com/goliatone/go-puthelp/command"
	"github.com/goliatone/go-puthelp/core"
	"github.com/goliatone/go-puthelp/internal/portaltest"
	puthelpquery "github.com/goliatone/go-puthelp/query"
)

type invalidMessage struct{}

func (invalidMessage) Type() string { return "" }

type failingMessage struct{}

func (failingMessage) Type() string { return "puthelp.test.fail" }

func (failingMessage) Validate() error { return errors.New("invalid payload") }

type pingMessage struct {
	ID string
}

func (pingMessage) Type() string { return "puthelp.test.ping" }

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(puthelpquery.CurrentUserMessage{}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessageContract(invalidMessage{}); err == nil {
		t.Fatalf("expected empty type to fail contract validation")
	}
	if err := ValidateMessageContract(failingMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
	if err := ValidateMessageContract(puthelpcommand.SignInMessage{}); err == nil {
		t.Fatalf("expected empty sign-in request to fail validation")
	}
}

func TestRegistryAndDispatchWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	executed := 0
	resolverCalls := 0

	cmd := command.CommandFunc[pingMessage](func(context.Context, pingMessage) error {
		executed++
		return nil
	})

	sub, err := RegisterAndSubscribe(adapter, cmd)
	if err != nil {
		t.Fatalf("register and subscribe: %v", err)
	}
	defer sub.Unsubscribe()
	if err := adapter.AddResolver("custom", func(any, command.CommandMeta, *command.Registry) error {
		resolverCalls++
		return nil
	}); err != nil {
		t.Fatalf("add resolver: %v", err)
	}
	if !adapter.HasResolver("custom") {
		t.Fatalf("expected custom resolver to be registered")
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	if resolverCalls == 0 {
		t.Fatalf("expected resolver hook to run during initialization")
	}

	if err := Dispatch(context.Background(), pingMessage{ID: "m1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if executed != 1 {
		t.Fatalf("expected command execution count=1, got %d", executed)
	}
}

func newFacade(t *testing.T) (*portaltest.Backend, *puthelp.Facade) {
	t.Helper()
	backend := portaltest.New(t)
	cfg := puthelp.DefaultConfig()
	cfg.BaseURL = backend.URL
	client, err := puthelp.New(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	facade, err := puthelp.NewFacade(client)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	return backend, facade
}

func TestRegisterFacade_DispatchesClientOperations(t *testing.T) {
	backend, facade := newFacade(t)
	backend.AddUser(portaltest.User{Username: "zosia", Password: "secret1", Roles: []string{"ADMIN"}})

	adapter := NewRegistryAdapter(command.NewRegistry())
	subscriptions, err := RegisterFacade(adapter, facade)
	if err != nil {
		t.Fatalf("register facade: %v", err)
	}
	t.Cleanup(func() { Unsubscribe(subscriptions) })
	if len(subscriptions) != 28 {
		t.Fatalf("expected 28 subscriptions, got %d", len(subscriptions))
	}

	ctx := context.Background()
	if err := Dispatch(ctx, puthelpcommand.SignInMessage{
		Request: core.SignInRequest{Username: "zosia", Password: "secret1"},
	}); err != nil {
		t.Fatalf("dispatch sign in: %v", err)
	}

	user, err := Query[puthelpquery.CurrentUserMessage, *core.UserProfile](ctx, puthelpquery.CurrentUserMessage{})
	if err != nil {
		t.Fatalf("query current user: %v", err)
	}
	if user == nil || user.Username != "zosia" {
		t.Fatalf("unexpected user %+v", user)
	}

	decision, err := Query[puthelpquery.CheckAccessMessage, core.GuardDecision](ctx, puthelpquery.CheckAccessMessage{
		Roles: []string{"ADMIN"},
	})
	if err != nil {
		t.Fatalf("query access: %v", err)
	}
	if decision != core.GuardAllow {
		t.Fatalf("expected allow, got %q", decision)
	}

	if err := Dispatch(ctx, puthelpcommand.SignOutMessage{Local: true}); err != nil {
		t.Fatalf("dispatch sign out: %v", err)
	}
	decision, _ = Query[puthelpquery.CheckAccessMessage, core.GuardDecision](ctx, puthelpquery.CheckAccessMessage{})
	if decision != core.GuardRedirectLogin {
		t.Fatalf("expected redirect to login after sign out, got %q", decision)
	}
}

func TestRegisterFacade_RequiresFacade(t *testing.T) {
	if _, err := RegisterFacade(NewRegistryAdapter(nil), nil); err == nil {
		t.Fatalf("expected facade error")
	}
	_, facade := newFacade(t)
	if _, err := RegisterFacade(nil, facade); err == nil {
		t.Fatalf("expected registry error")
	}
}

func TestQueueResolverMirrorsClientCommands(t *testing.T) {
	_, facade := newFacade(t)
	adapter := NewRegistryAdapter(command.NewRegistry())
	queueRegistry := jobqueuecommand.NewRegistry()

	if err := adapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := adapter.RegisterCommand(facade.Commands().RestoreSession); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if _, ok := queueRegistry.Get(puthelpcommand.TypeRestoreSession); !ok {
		t.Fatalf("expected restore command to be mirrored into queue registry")
	}
}
