// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/training"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestHTTPServerService_ServeAndShutdown(t *testing.T) {
	addr := freeAddr(t)
	srv := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	}
	svc := NewHTTPServerService(srv, time.Second, zerolog.Nop())
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	var resp *http.Response
	var err error
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = http.Get("http://" + addr + "/")
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestHTTPServerService_ListenFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	svc := NewHTTPServerService(&http.Server{Addr: l.Addr().String(), ReadHeaderTimeout: time.Second}, 0, zerolog.Nop())
	if err := svc.Serve(context.Background()); err == nil {
		t.Error("Serve() on a busy port returned nil")
	}
}

type fakeRunner struct {
	mu       sync.Mutex
	submits  []string
	conflict map[string]bool
	fail     map[string]bool
}

func (f *fakeRunner) Submit(_ context.Context, model string) (*training.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, model)
	if f.conflict[model] {
		return nil, recommend.ErrConflictingJob
	}
	return &training.Job{ID: fmt.Sprintf("train_%s_%d", model, len(f.submits)), ModelName: model}, nil
}

func (f *fakeRunner) Wait(_ context.Context, id string) (*training.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	model := f.submits[len(f.submits)-1]
	status := training.StatusCompleted
	if f.fail[model] {
		status = training.StatusFailed
	}
	return &training.Job{ID: id, ModelName: model, Status: status}, nil
}

func (f *fakeRunner) submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submits...)
}

func TestRetrainService_StartupCycle(t *testing.T) {
	runner := &fakeRunner{
		conflict: map[string]bool{"item_based_cf": true},
		fail:     map[string]bool{"neural_cf": true},
	}
	cycles := make(chan CycleResult, 1)
	svc := NewRetrainService(runner, RetrainConfig{
		TrainOnStartup: true,
		Models:         []string{"hybrid", "item_based_cf", "neural_cf"},
	}, zerolog.Nop())
	svc.cycles = cycles

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	select {
	case res := <-cycles:
		want := CycleResult{Completed: 1, Failed: 1, Skipped: 1}
		if res != want {
			t.Errorf("cycle = %+v, want %+v", res, want)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("startup cycle did not run")
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v", err)
	}
	if got := runner.submitted(); len(got) != 3 {
		t.Errorf("submitted = %v", got)
	}
}

func TestRetrainService_Interval(t *testing.T) {
	runner := &fakeRunner{}
	cycles := make(chan CycleResult, 4)
	svc := NewRetrainService(runner, RetrainConfig{
		Interval: 20 * time.Millisecond,
		Models:   []string{"user_based_cf"},
	}, zerolog.Nop())
	svc.cycles = cycles

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Serve(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case res := <-cycles:
			if res.Completed != 1 {
				t.Errorf("cycle %d = %+v", i, res)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("cycle %d did not run", i)
		}
	}
	if svc.String() != "retrain-scheduler" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestRetrainService_NoScheduleWaitsForCancel(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewRetrainService(runner, RetrainConfig{Models: []string{"hybrid"}}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() error = %v", err)
	}
	if len(runner.submitted()) != 0 {
		t.Errorf("submitted without schedule or startup: %v", runner.submitted())
	}
}

func TestMaintenanceService(t *testing.T) {
	var runs atomic.Int32
	svc := NewMaintenanceService("checkpoint", 10*time.Millisecond, func(context.Context) error {
		if runs.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	}, zerolog.Nop())
	if svc.String() != "checkpoint" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v", err)
	}
	if runs.Load() < 3 {
		t.Errorf("task ran %d times; a failure stopped the loop", runs.Load())
	}
}

func TestBadgerValueLogGC_InMemory(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("badger.Open() error = %v", err)
	}
	defer db.Close()

	if err := BadgerValueLogGC(db, 0.5)(context.Background()); err != nil {
		t.Errorf("GC task error = %v", err)
	}
}
