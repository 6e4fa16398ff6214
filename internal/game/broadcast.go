package game

import (
	"log"

	"github.com/quizcast/quizcast-backend/internal"
)

// Broadcast fan-out. Delivery is best-effort: a connection that is not
// open at send time is skipped, never queued or retried. Rosters are
// snapshotted under the read lock and writes happen outside it.

func (s *RoomStore) BroadcastToRoom(roomId string, msg any) {
	s.broadcastRoom(roomId, msg, nil)
}

func (s *RoomStore) BroadcastToRoomExcept(roomId string, msg any, except *internal.Client) {
	s.broadcastRoom(roomId, msg, except)
}

func (s *RoomStore) broadcastRoom(roomId string, msg any, except *internal.Client) {
	s.mu.RLock()
	room, ok := s.rooms[roomId]
	if !ok {
		s.mu.RUnlock()
		return
	}
	clients := make([]*internal.Client, 0, len(room.Participants))
	for c := range room.Participants {
		if c != except {
			clients = append(clients, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range clients {
		if !c.Open() {
			continue
		}
		if err := c.SafeWriteJSON(msg); err != nil {
			log.Printf("[Broadcast] room=%s client=%s: %v", roomId, c.Id, err)
		}
	}
}

// BroadcastToAll sends to every open connection across every room. Used
// for global room-list updates.
func (s *RoomStore) BroadcastToAll(msg any) {
	s.mu.RLock()
	var clients []*internal.Client
	for _, room := range s.rooms {
		for c := range room.Participants {
			clients = append(clients, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range clients {
		if !c.Open() {
			continue
		}
		if err := c.SafeWriteJSON(msg); err != nil {
			log.Printf("[Broadcast] client=%s: %v", c.Id, err)
		}
	}
}
