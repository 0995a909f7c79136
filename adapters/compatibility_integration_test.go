package adapters_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	puthelp "github.com/goliatone/go-puthelp"
	"github.com/goliatone/go-puthelp/adapters/gocommand"
	"github.com/goliatone/go-puthelp/adapters/gojob"
	"github.com/goliatone/go-puthelp/adapters/gologger"
	"github.com/goliatone/go-puthelp/adapters/zaplogger"
	puthelpcommand "github.com/goliatone/go-puthelp/command"
	"github.com/goliatone/go-puthelp/core"
	"github.com/goliatone/go-puthelp/internal/portaltest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRuntimeCompatibility_ZapGoJobRefreshRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := portaltest.New(t)
	backend.AddUser(portaltest.User{Username: "marta", Password: "secret1"})
	access, refresh := backend.IssueExpired("marta")

	observed, logs := observer.New(zapcore.DebugLevel)
	provider := zaplogger.NewProvider(zaplogger.Wrap(zap.New(observed)))
	_, _, jobProvider, jobLogger := gologger.ResolveForJob("", provider, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	q := &compatQueue{}
	metrics := core.NewMemoryMetricsRecorder()
	cfg := puthelp.DefaultConfig()
	cfg.BaseURL = backend.URL
	service, err := puthelp.NewService(cfg,
		puthelp.WithLoggerProvider(provider),
		puthelp.WithMetricsRecorder(metrics),
		puthelp.WithJobEnqueuer(gojob.NewEnqueuerAdapter(q)),
		puthelp.WithJobDequeuer(gojob.NewDequeuerAdapter(q, gojob.RetryPolicy{MaxAttempts: 3})),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := puthelp.NewClient(service); err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := service.Session().SetCredentials(ctx, access, refresh); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}

	enqueued, err := service.ScheduleRefresh(ctx)
	if err != nil || !enqueued {
		t.Fatalf("expected refresh job enqueued, got %v %v", enqueued, err)
	}
	if len(q.pending) != 1 || q.pending[0].JobID != gojob.JobIDSessionRefresh {
		t.Fatalf("expected go-job session refresh message, got %+v", q.pending)
	}

	processed, err := service.ProcessRefreshJob(ctx)
	if err != nil || !processed {
		t.Fatalf("expected refresh job processed, got %v %v", processed, err)
	}
	if q.acked != 1 {
		t.Fatalf("expected job ack, got %d", q.acked)
	}
	if calls := backend.RefreshCalls.Load(); calls != 1 {
		t.Fatalf("expected one backend refresh, got %d", calls)
	}
	stored, _ := service.Session().GetAccessToken(ctx)
	if stored != backend.AccessToken("marta") {
		t.Fatalf("expected refreshed access token to be stored")
	}
	if metrics.Counter("puthelp.session_refresh.total") != 1 {
		t.Fatalf("expected refresh metric, got %d", metrics.Counter("puthelp.session_refresh.total"))
	}

	var refreshLogged bool
	for _, entry := range logs.All() {
		if entry.LoggerName == "puthelp" && entry.Message == "session_refresh succeeded" {
			refreshLogged = true
		}
	}
	if !refreshLogged {
		t.Fatalf("expected refresh outcome logged through zap")
	}
}

func TestRuntimeCompatibility_FacadeCommandsMirrorIntoJobQueue(t *testing.T) {
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

	queueRegistry := jobqueuecommand.NewRegistry()
	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := adapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	subscriptions, err := gocommand.RegisterFacade(adapter, facade)
	if err != nil {
		t.Fatalf("register facade: %v", err)
	}
	defer gocommand.Unsubscribe(subscriptions)
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}

	for _, messageType := range []string{
		puthelpcommand.TypeSignOut,
		puthelpcommand.TypePublishContent,
		puthelpcommand.TypeModerateContent,
	} {
		if _, ok := queueRegistry.Get(messageType); !ok {
			t.Fatalf("expected %s mirrored into go-job queue registry", messageType)
		}
	}
}

type compatQueue struct {
	pending []*job.ExecutionMessage
	acked   int
}

func (q *compatQueue) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	q.pending = append(q.pending, msg)
	return nil
}

func (q *compatQueue) Dequeue(context.Context) (queue.Delivery, error) {
	if len(q.pending) == 0 {
		return nil, nil
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	return &compatDelivery{queue: q, msg: msg}, nil
}

type compatDelivery struct {
	queue *compatQueue
	msg   *job.ExecutionMessage
}

func (d *compatDelivery) Message() *job.ExecutionMessage {
	return d.msg
}

func (d *compatDelivery) Ack(context.Context) error {
	d.queue.acked++
	return nil
}

func (d *compatDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	if opts.Requeue {
		d.queue.pending = append(d.queue.pending, d.msg)
	}
	return nil
}
