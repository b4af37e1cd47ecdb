package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/passagelab/classroom-api/internal/core/domain"
)

type recordingService struct {
	mu     sync.Mutex
	events []domain.LoginEvent
	done   chan struct{}
	want   int
}

func (r *recordingService) Process(ctx context.Context, e domain.LoginEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if len(r.events) == r.want && r.done != nil {
		close(r.done)
	}
	return nil
}

func TestDispatcher_ProcessesInOrderPerUser(t *testing.T) {
	svc := &recordingService{done: make(chan struct{}), want: 3}
	d := NewDispatcher(2, svc, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		d.Enqueue(domain.LoginEvent{UserID: "u1", At: base.Add(time.Duration(i) * time.Minute)})
	}

	select {
	case <-svc.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("events were not processed")
	}
	cancel()
	d.Stop()

	for i, e := range svc.events {
		if !e.At.Equal(base.Add(time.Duration(i) * time.Minute)) {
			t.Fatalf("event %d out of order: %v", i, e.At)
		}
	}
}

func TestDispatcher_ShardIndexStable(t *testing.T) {
	d := NewDispatcher(8, nil, zerolog.Nop())
	first := d.shardIndex("user-42")
	for i := 0; i < 10; i++ {
		if got := d.shardIndex("user-42"); got != first {
			t.Fatalf("shard changed: %d != %d", got, first)
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("shard out of range: %d", first)
	}
}

func TestDispatcher_EnqueueDropsWhenFull(t *testing.T) {
	d := NewDispatcher(1, nil, zerolog.Nop())
	for i := 0; i < channelBuffer+5; i++ {
		d.Enqueue(domain.LoginEvent{UserID: "u1"})
	}
	if got := len(d.workers[0]); got != channelBuffer {
		t.Fatalf("expected buffer to hold %d events, got %d", channelBuffer, got)
	}
}

func TestNewDispatcher_DefaultWorkers(t *testing.T) {
	if d := NewDispatcher(0, nil, zerolog.Nop()); len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
}

func TestDispatcher_StopDrainsBufferedEvents(t *testing.T) {
	svc := &recordingService{}
	d := NewDispatcher(2, svc, zerolog.Nop())

	users := []string{"u1", "u2", "u3", "u4"}
	for i := 0; i < 50; i++ {
		d.Enqueue(domain.LoginEvent{UserID: users[i%len(users)]})
	}

	// Cancelling the start context must neither stop the workers nor reach Process.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)
	d.Stop()

	if len(svc.events) != 50 {
		t.Fatalf("expected all 50 buffered events to be processed, got %d", len(svc.events))
	}
}

func TestDispatcher_EnqueueAfterStop(t *testing.T) {
	svc := &recordingService{}
	d := NewDispatcher(1, svc, zerolog.Nop())
	d.Start(context.Background())
	d.Stop()
	d.Stop()

	d.Enqueue(domain.LoginEvent{UserID: "u1"})
	if len(svc.events) != 0 {
		t.Fatalf("events after Stop must be dropped, got %d", len(svc.events))
	}
}
