// internal/game/room_store.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// RoomStore manages the active rooms in memory only.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*Room
}

// NewRoomStore returns an in-memory store for Rooms.
func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[uuid.UUID]*Room),
	}
}

// AddRoom stores the room.
func (s *RoomStore) AddRoom(r *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
}

// GetRoom retrieves a room if it exists.
func (s *RoomStore) GetRoom(id uuid.UUID) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	return r, ok
}

// DeleteRoom removes a room from memory.
func (s *RoomStore) DeleteRoom(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
}

// Len returns the number of live rooms.
func (s *RoomStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
