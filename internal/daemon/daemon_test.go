package daemon_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"alttag/internal/daemon"
	"alttag/internal/images"
	"alttag/internal/processor"
	"alttag/internal/queue"
	"alttag/internal/services/captioner"
	"alttag/internal/testsupport"
)

type stubProvider struct{}

func (stubProvider) GenerateCaption(context.Context, captioner.Request) (captioner.Result, error) {
	return captioner.Result{Caption: "a quiet courtyard", Confidence: 0.9, Raw: "{}"}, nil
}

// blockingProvider holds each caption call until released, signalling when
// the first call begins.
type blockingProvider struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (p *blockingProvider) GenerateCaption(context.Context, captioner.Request) (captioner.Result, error) {
	p.once.Do(func() { close(p.started) })
	<-p.release
	return captioner.Result{Caption: "a quiet courtyard", Confidence: 0.9, Raw: "{}"}, nil
}

func newDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDB(t, cfg)
	queueStore := queue.NewStore(db, 15*time.Minute)
	imageStore := images.NewStore(db)
	proc := processor.New(cfg, queueStore, imageStore, stubProvider{}, nil)

	d, err := daemon.New(cfg, queueStore, proc, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Status().Running {
		t.Fatal("status not running after start")
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second start should fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("status still running after stop")
	}
	d.Stop()
}

func TestStartRefusesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDB(t, cfg)
	queueStore := queue.NewStore(db, 15*time.Minute)
	imageStore := images.NewStore(db)
	proc := processor.New(cfg, queueStore, imageStore, stubProvider{}, nil)

	first, err := daemon.New(cfg, queueStore, proc, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	second, err := daemon.New(cfg, queueStore, proc, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock while the first held it")
	}

	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("start after lock release: %v", err)
	}
	second.Stop()
}

func TestStopReturnsWhileBatchInFlight(t *testing.T) {
	provider := &blockingProvider{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}

	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Schedule = "@every 1s"
	db := testsupport.MustOpenDB(t, cfg)
	queueStore := queue.NewStore(db, 15*time.Minute)
	imageStore := images.NewStore(db)
	proc := processor.New(cfg, queueStore, imageStore, provider, nil)

	d, err := daemon.New(cfg, queueStore, proc, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	img := testsupport.NewImage(t, imageStore, images.NewImage{SourceURL: "https://pics.test/plaza.jpg"})
	testsupport.MustEnqueue(t, queueStore, img.ID)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-provider.started:
	case <-time.After(10 * time.Second):
		d.Stop()
		t.Fatal("scheduled batch never started")
	}

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()

	// Leave room for another tick to fire while Stop is waiting on the
	// in-flight batch; it must not wedge against the daemon mutex.
	time.Sleep(1500 * time.Millisecond)
	close(provider.release)

	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		t.Fatal("Stop did not return after the batch finished")
	}
	if d.Status().Running {
		t.Fatal("status still running after stop")
	}
}

func TestDaemonRunOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRequireReview(true))
	db := testsupport.MustOpenDB(t, cfg)
	queueStore := queue.NewStore(db, 15*time.Minute)
	imageStore := images.NewStore(db)
	proc := processor.New(cfg, queueStore, imageStore, stubProvider{}, nil)

	d, err := daemon.New(cfg, queueStore, proc, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	img := testsupport.NewImage(t, imageStore, images.NewImage{SourceURL: "https://pics.test/yard.jpg"})
	job := testsupport.MustEnqueue(t, queueStore, img.ID)

	processed, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}
	row, err := queueStore.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if row.Status != queue.StatusGenerated {
		t.Fatalf("status = %s, want generated", row.Status)
	}
}
