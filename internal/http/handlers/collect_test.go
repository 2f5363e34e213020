package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"sitepulse/internal/analytics"
	"sitepulse/internal/cache"
	"sitepulse/internal/config"
	dbpkg "sitepulse/internal/db"
	httpctx "sitepulse/internal/http/ctx"
)

type fakeInserter struct {
	inserted chan *dbpkg.Event
	err      error
}

func newFakeInserter() *fakeInserter {
	return &fakeInserter{inserted: make(chan *dbpkg.Event, 1)}
}

func (f *fakeInserter) InsertEvent(_ context.Context, e *dbpkg.Event) error {
	f.inserted <- e
	return f.err
}

type fakeCoreStore struct{}

func (fakeCoreStore) DeviceSubjectCounts(context.Context, analytics.Match) ([]analytics.DeviceSubjectCount, error) {
	return nil, nil
}

func (fakeCoreStore) LatestBySubject(context.Context, string) (analytics.SubjectEvent, bool, error) {
	return analytics.SubjectEvent{}, false, nil
}

func (fakeCoreStore) CountBySubject(context.Context, string) (uint64, error) { return 0, nil }

type fakeCoreRegistry struct{}

func (fakeCoreRegistry) AppIDsOwnedBy(context.Context, uint) ([]uint, error) { return nil, nil }

func (fakeCoreRegistry) AppOwner(context.Context, uint) (uint, bool, error) { return 0, false, nil }

func testService(mem cache.Store) *analytics.Service {
	engine := analytics.NewEngine(fakeCoreStore{}, fakeCoreRegistry{})
	return analytics.NewService(engine, fakeCoreStore{}, mem, time.Minute, zerolog.Nop())
}

func testConfig() *config.Config {
	return &config.Config{CacheTTL: time.Minute, IngestTimeout: time.Second}
}

func postCtx(body string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetRequestURI("/api/analytics/collect")
	ctx.Request.SetBodyString(body)
	return &ctx
}

func TestCollectRequiresApp(t *testing.T) {
	mem := cache.NewMemory()
	defer mem.Close()
	handler := Collect(newFakeInserter(), testService(mem), testConfig(), zerolog.Nop())

	ctx := postCtx(`{"event":"click"}`)
	handler(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusUnauthorized {
		t.Errorf("status = %d, want 401", ctx.Response.StatusCode())
	}
}

func TestCollectRejectsBadJSON(t *testing.T) {
	mem := cache.NewMemory()
	defer mem.Close()
	handler := Collect(newFakeInserter(), testService(mem), testConfig(), zerolog.Nop())

	ctx := postCtx(`{nope`)
	httpctx.SetApp(ctx, &dbpkg.App{ID: 10})
	handler(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Errorf("status = %d, want 400", ctx.Response.StatusCode())
	}
}

func TestCollectRejectsMissingEventName(t *testing.T) {
	mem := cache.NewMemory()
	defer mem.Close()
	handler := Collect(newFakeInserter(), testService(mem), testConfig(), zerolog.Nop())

	ctx := postCtx(`{"url":"https://example.com"}`)
	httpctx.SetApp(ctx, &dbpkg.App{ID: 10})
	handler(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Errorf("status = %d, want 400", ctx.Response.StatusCode())
	}
}

func TestCollectAcceptsAndPersistsAsync(t *testing.T) {
	mem := cache.NewMemory()
	defer mem.Close()
	inserter := newFakeInserter()
	handler := Collect(inserter, testService(mem), testConfig(), zerolog.Nop())

	ctx := postCtx(`{"event":"click","device":"mobile","userId":"u1","metadata":{"browser":"Firefox","os":"Linux"}}`)
	httpctx.SetApp(ctx, &dbpkg.App{ID: 10})
	handler(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusAccepted {
		t.Fatalf("status = %d, want 202", ctx.Response.StatusCode())
	}

	select {
	case rec := <-inserter.inserted:
		if rec.AppID != 10 || rec.EventName != "click" || rec.Device != "mobile" || rec.SubjectUserID != "u1" {
			t.Errorf("persisted record = %+v", rec)
		}
		if rec.Metadata["browser"] != "Firefox" {
			t.Errorf("metadata = %v", rec.Metadata)
		}
	case <-time.After(time.Second):
		t.Fatal("event was never persisted")
	}
}

func TestCollectInvalidatesNarrowSummaryKey(t *testing.T) {
	mem := cache.NewMemory()
	defer mem.Close()
	inserter := newFakeInserter()
	handler := Collect(inserter, testService(mem), testConfig(), zerolog.Nop())

	narrow := analytics.DeriveKey(analytics.KindSummary, "", "click", "10", "", "")
	_ = mem.Set(context.Background(), narrow, []byte(`{}`), time.Minute)

	ctx := postCtx(`{"event":"click"}`)
	httpctx.SetApp(ctx, &dbpkg.App{ID: 10})
	handler(ctx)

	if _, ok, _ := mem.Get(context.Background(), narrow); ok {
		t.Error("summary key was not invalidated by ingestion")
	}
	<-inserter.inserted
}
