package telegram

import (
	"context"
	"errors"
	"testing"
)

func TestLifecycleStopsAfterFailedStart(t *testing.T) {
	boom := errors.New("address already in use")
	var served, stopped bool
	err := lifecycle(context.Background(), RunOptions{
		OnStart: func(context.Context, Runtime) error { return boom },
		OnStop:  func(context.Context, Runtime) error { stopped = true; return nil },
	}, Runtime{}, func(context.Context) error {
		served = true
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want start error", err)
	}
	if served {
		t.Fatal("serve must not run after a failed start")
	}
	if !stopped {
		t.Fatal("OnStop must run after a failed start")
	}
}

func TestLifecycleJoinsStopError(t *testing.T) {
	startErr, stopErr := errors.New("start"), errors.New("stop")
	err := lifecycle(context.Background(), RunOptions{
		OnStart: func(context.Context, Runtime) error { return startErr },
		OnStop:  func(context.Context, Runtime) error { return stopErr },
	}, Runtime{}, func(context.Context) error { return nil })
	if !errors.Is(err, startErr) || !errors.Is(err, stopErr) {
		t.Fatalf("err = %v, want both errors", err)
	}
}

func TestLifecycleTreatsCancellationAsCleanExit(t *testing.T) {
	var order []string
	err := lifecycle(context.Background(), RunOptions{
		OnStart: func(context.Context, Runtime) error { order = append(order, "start"); return nil },
		OnStop:  func(context.Context, Runtime) error { order = append(order, "stop"); return nil },
	}, Runtime{}, func(context.Context) error {
		order = append(order, "serve")
		return context.Canceled
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if len(order) != 3 || order[0] != "start" || order[1] != "serve" || order[2] != "stop" {
		t.Fatalf("order = %v", order)
	}
}
