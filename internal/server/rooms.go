package server

import (
	"context"
	"sync"
)

// ActiveRoom serializes message processing for one room.
type ActiveRoom struct {
	mu sync.Mutex // one message at a time per room

	cancelMu sync.Mutex
	cancel   context.CancelFunc // cancels the in-flight message, if any
	gen      uint64             // bumped by Reset; waiters from an older gen are dropped
}

// RoomManager tracks rooms that have received messages since startup.
type RoomManager struct {
	mu    sync.Mutex
	rooms map[string]*ActiveRoom
}

// NewRoomManager creates a new RoomManager.
func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms: make(map[string]*ActiveRoom),
	}
}

// GetOrCreate returns the active room for roomID, creating it on first use.
func (rm *RoomManager) GetOrCreate(roomID string) *ActiveRoom {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if ar, ok := rm.rooms[roomID]; ok {
		return ar
	}
	ar := &ActiveRoom{}
	rm.rooms[roomID] = ar
	return ar
}

// Run executes fn while holding the room's lock. The context passed to fn is
// cancelled by Reset, CloseAll, or when ctx ends. A call still waiting for the
// lock when the room is reset returns context.Canceled without running fn.
func (ar *ActiveRoom) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	gen := ar.generation()

	ar.mu.Lock()
	defer ar.mu.Unlock()

	if ar.generation() != gen {
		return context.Canceled
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	ar.setCancel(cancel)
	defer func() {
		cancel()
		ar.setCancel(nil)
	}()
	return fn(ctx)
}

// Interrupt cancels the in-flight message, if any.
func (ar *ActiveRoom) Interrupt() {
	ar.cancelMu.Lock()
	defer ar.cancelMu.Unlock()
	if ar.cancel != nil {
		ar.cancel()
	}
}

// reset cancels the in-flight message and drops every queued one.
func (ar *ActiveRoom) reset() {
	ar.cancelMu.Lock()
	defer ar.cancelMu.Unlock()
	ar.gen++
	if ar.cancel != nil {
		ar.cancel()
	}
}

func (ar *ActiveRoom) generation() uint64 {
	ar.cancelMu.Lock()
	defer ar.cancelMu.Unlock()
	return ar.gen
}

func (ar *ActiveRoom) setCancel(cancel context.CancelFunc) {
	ar.cancelMu.Lock()
	ar.cancel = cancel
	ar.cancelMu.Unlock()
}

// Reset cancels in-flight work for a room and drops messages queued behind it.
// The room entry is kept so later messages still wait for the cancelled one
// to unwind before they run.
func (rm *RoomManager) Reset(roomID string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if ar, ok := rm.rooms[roomID]; ok {
		ar.reset()
	}
}

// CloseAll cancels all active rooms.
func (rm *RoomManager) CloseAll() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, ar := range rm.rooms {
		ar.reset()
	}
}
