package cleanup

import (
	"context"
	"log"
	"time"

	roomservice "github.com/dropfour/server/internal/service/room"
)

// Worker periodically sweeps inactive rooms out of the store.
type Worker struct {
	rooms    *roomservice.Service
	interval time.Duration
}

func NewWorker(rooms *roomservice.Service, interval time.Duration) *Worker {
	return &Worker{rooms: rooms, interval: interval}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	log.Println("[CLEANUP] Background worker started")
	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Println("[CLEANUP] Background worker stopped")
			return
		}
	}
}

func (w *Worker) run(ctx context.Context) {
	if _, err := w.rooms.CleanupInactiveRooms(ctx); err != nil {
		log.Printf("[CLEANUP] Sweep failed: %v", err)
	}
}
