package game

import (
	"log"
	"sort"
	"sync"

	"github.com/quizcast/quizcast-backend/internal"
	"github.com/quizcast/quizcast-backend/internal/utils"
)

const roomIdLength = 7

// SessionCloser disposes a room's game session and timers. The RoomStore
// calls it whenever a room is removed, so deleting a room can never leak a
// live timer. The Engine implements it.
type SessionCloser interface {
	CloseSession(roomId string)
}

// RoomStore owns the set of rooms and every roster. All roster mutation
// goes through its lock; the Engine and the router only hold the store.
type RoomStore struct {
	mu       sync.RWMutex
	rooms    map[string]*internal.Room
	registry *Registry
	closer   SessionCloser
}

func NewRoomStore(registry *Registry) *RoomStore {
	return &RoomStore{
		rooms:    make(map[string]*internal.Room),
		registry: registry,
	}
}

// SetSessionCloser wires the engine in after construction. Must be called
// before the store starts taking traffic.
func (s *RoomStore) SetSessionCloser(c SessionCloser) {
	s.closer = c
}

func (s *RoomStore) Registry() *Registry {
	return s.registry
}

// CreateRoom creates a room with the creator as its sole admin. This is the
// authority-granting operation: the creator's admin role is never
// re-checked afterwards.
func (s *RoomStore) CreateRoom(name string, creator *internal.Client) *internal.Room {
	teamName := s.registry.NameOrDefault(creator)

	s.mu.Lock()
	roomId := utils.GenerateID(roomIdLength)
	for _, taken := s.rooms[roomId]; taken; _, taken = s.rooms[roomId] {
		roomId = utils.GenerateID(roomIdLength)
	}
	room := &internal.Room{
		Id:   roomId,
		Name: name,
		Participants: map[*internal.Client]internal.Participant{
			creator: {TeamName: teamName, Role: internal.RoleAdmin},
		},
	}
	s.rooms[roomId] = room
	summary := room.Summary()
	s.mu.Unlock()

	log.Printf("[CreateRoom] room=%s name=%q admin=%q", roomId, name, teamName)

	if err := creator.SafeWriteJSON(internal.RoomCreatedEvent{
		Type:     "room_created",
		RoomId:   roomId,
		RoomName: name,
	}); err != nil {
		log.Printf("[CreateRoom] room=%s: failed to notify creator: %v", roomId, err)
	}
	if err := creator.SafeWriteJSON(internal.RoomJoinedEvent{
		Type:     "room_joined",
		RoomId:   roomId,
		Role:     internal.RoleAdmin,
		TeamName: teamName,
		Room:     summary,
	}); err != nil {
		log.Printf("[CreateRoom] room=%s: failed to send room_joined: %v", roomId, err)
	}

	s.BroadcastToRoom(roomId, internal.ParticipantsListEvent{
		Type:         "participants_list",
		RoomId:       roomId,
		Participants: s.Participants(roomId),
	})

	return room
}

// JoinRoom inserts or overwrites the participant entry for the connection.
// Fails if the room does not exist, or if role=admin and the room already
// has an admin. A connection participates in at most one room: joining a
// new room implicitly leaves any other.
func (s *RoomStore) JoinRoom(roomId string, client *internal.Client, role internal.Role) bool {
	teamName := s.registry.NameOrDefault(client)

	s.mu.Lock()
	room, ok := s.rooms[roomId]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if role == internal.RoleAdmin {
		for _, p := range room.Participants {
			if p.Role == internal.RoleAdmin {
				s.mu.Unlock()
				log.Printf("[JoinRoom] room=%s: admin seat already taken, rejecting %q", roomId, teamName)
				return false
			}
		}
	}

	left := s.detachLocked(client, roomId)
	room.Participants[client] = internal.Participant{TeamName: teamName, Role: role}
	summary := room.Summary()
	s.mu.Unlock()

	for _, ev := range left {
		s.emitDeparture(ev)
	}

	log.Printf("[JoinRoom] room=%s: %q joined as %s", roomId, teamName, role)

	if err := client.SafeWriteJSON(internal.RoomJoinedEvent{
		Type:     "room_joined",
		RoomId:   roomId,
		Role:     role,
		TeamName: teamName,
		Room:     summary,
	}); err != nil {
		log.Printf("[JoinRoom] room=%s: failed to confirm join to %q: %v", roomId, teamName, err)
	}

	s.BroadcastToRoom(roomId, internal.ParticipantsListEvent{
		Type:         "participants_list",
		RoomId:       roomId,
		Participants: s.Participants(roomId),
	})
	s.BroadcastToAll(internal.ListRoomsEvent{
		Type:  "list_rooms",
		Rooms: s.ListRoomSummaries(),
	})
	return true
}

// departure records what a roster removal left behind, so the follow-up
// broadcasts can run without the store lock held.
type departure struct {
	roomId      string
	wasAdmin    bool
	roomDeleted bool
}

// detachLocked removes the client from every room except the one given.
// Caller holds s.mu. Deleted-room session cleanup happens here too; the
// engine's CloseSession takes no store locks.
func (s *RoomStore) detachLocked(client *internal.Client, exceptRoomId string) []departure {
	var events []departure
	for roomId, room := range s.rooms {
		if roomId == exceptRoomId {
			continue
		}
		p, ok := room.Participants[client]
		if !ok {
			continue
		}
		delete(room.Participants, client)
		ev := departure{roomId: roomId, wasAdmin: p.Role == internal.RoleAdmin}
		if len(room.Participants) == 0 {
			delete(s.rooms, roomId)
			ev.roomDeleted = true
			if s.closer != nil {
				s.closer.CloseSession(roomId)
			}
			log.Printf("[RoomStore] room=%s: roster empty, room deleted", roomId)
		}
		events = append(events, ev)
	}
	return events
}

// emitDeparture sends the roster/advisory broadcasts for one removal.
func (s *RoomStore) emitDeparture(ev departure) {
	if ev.roomDeleted {
		s.BroadcastToAll(internal.ListRoomsEvent{
			Type:  "list_rooms",
			Rooms: s.ListRoomSummaries(),
		})
		return
	}
	s.BroadcastToRoom(ev.roomId, internal.ParticipantsListEvent{
		Type:         "participants_list",
		RoomId:       ev.roomId,
		Participants: s.Participants(ev.roomId),
	})
	if ev.wasAdmin {
		// The room stays adminless until someone explicitly joins as admin;
		// the single-admin check is the only gate.
		s.BroadcastToRoom(ev.roomId, internal.ConnectionEvent{
			Type:    "connection",
			Message: "Admin has disconnected. Room is now available for a new admin.",
		})
	}
}

// RemoveParticipant purges the connection from the registry and from every
// roster. Removing the last participant deletes the room outright.
// Idempotent.
func (s *RoomStore) RemoveParticipant(client *internal.Client) {
	s.registry.Remove(client)

	s.mu.Lock()
	left := s.detachLocked(client, "")
	s.mu.Unlock()

	for _, ev := range left {
		s.emitDeparture(ev)
	}
}

// DeleteRoom notifies members, clears their registry linkage, disposes the
// room's game session and removes the room. Returns false if absent.
func (s *RoomStore) DeleteRoom(roomId string) bool {
	s.mu.Lock()
	room, ok := s.rooms[roomId]
	if !ok {
		s.mu.Unlock()
		return false
	}
	members := make([]*internal.Client, 0, len(room.Participants))
	for c := range room.Participants {
		members = append(members, c)
	}
	delete(s.rooms, roomId)
	if s.closer != nil {
		s.closer.CloseSession(roomId)
	}
	s.mu.Unlock()

	log.Printf("[DeleteRoom] room=%s: deleted with %d members", roomId, len(members))

	ev := internal.RoomDeletedEvent{Type: "room_deleted", RoomId: roomId}
	for _, c := range members {
		s.registry.Remove(c)
		if !c.Open() {
			continue
		}
		if err := c.SafeWriteJSON(ev); err != nil {
			log.Printf("[DeleteRoom] room=%s: notify failed: %v", roomId, err)
		}
	}

	s.BroadcastToAll(internal.ListRoomsEvent{
		Type:  "list_rooms",
		Rooms: s.ListRoomSummaries(),
	})
	return true
}

// LoadQuiz replaces the room's quiz wholesale. Returns false if the room is
// absent. Authorization is the router's job.
func (s *RoomStore) LoadQuiz(roomId string, quiz *internal.Quiz) bool {
	s.mu.Lock()
	room, ok := s.rooms[roomId]
	if !ok {
		s.mu.Unlock()
		return false
	}
	room.Quiz = quiz
	s.mu.Unlock()

	log.Printf("[LoadQuiz] room=%s: quiz %q with %d questions", roomId, quiz.Name, len(quiz.Questions))

	s.BroadcastToRoom(roomId, internal.QuizLoadedEvent{
		Type:   "quiz_loaded",
		RoomId: roomId,
		Quiz:   quiz,
	})
	s.BroadcastToAll(internal.ListRoomsEvent{
		Type:  "list_rooms",
		Rooms: s.ListRoomSummaries(),
	})
	return true
}

// KickPlayer removes the named team from the room's roster and returns
// its connection so the router can notify it. Nil if not found.
func (s *RoomStore) KickPlayer(roomId, teamName string) *internal.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomId]
	if !ok {
		return nil
	}
	for c, p := range room.Participants {
		if p.TeamName == teamName {
			delete(room.Participants, c)
			log.Printf("[KickPlayer] room=%s: kicked %q", roomId, teamName)
			return c
		}
	}
	return nil
}

func (s *RoomStore) SetDisplayName(client *internal.Client, name string) {
	s.registry.SetName(client, name)
}

// SummaryOf returns the room's public projection.
func (s *RoomStore) SummaryOf(roomId string) (internal.RoomSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomId]
	if !ok {
		return internal.RoomSummary{}, false
	}
	return room.Summary(), true
}

// QuizFor returns the room's loaded quiz. The pointer is safe to hold:
// quizzes are replaced wholesale, never mutated in place.
func (s *RoomStore) QuizFor(roomId string) (*internal.Quiz, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomId]
	if !ok || room.Quiz == nil {
		return nil, false
	}
	return room.Quiz, true
}

// PlayerCount reports how many role=player participants the room has.
func (s *RoomStore) PlayerCount(roomId string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomId]
	if !ok {
		return 0
	}
	return room.PlayerCount()
}

// PlayerTeamNames returns the team names of role=player participants,
// used to seed scores at game start.
func (s *RoomStore) PlayerTeamNames(roomId string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomId]
	if !ok {
		return nil
	}
	var names []string
	for _, p := range room.Participants {
		if p.Role == internal.RolePlayer {
			names = append(names, p.TeamName)
		}
	}
	return names
}

// AdminOf returns the room's admin connection, if one is seated.
func (s *RoomStore) AdminOf(roomId string) *internal.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomId]
	if !ok {
		return nil
	}
	for c, p := range room.Participants {
		if p.Role == internal.RoleAdmin {
			return c
		}
	}
	return nil
}

// RoomRole reports the connection's role within the room, if any.
func (s *RoomStore) RoomRole(roomId string, client *internal.Client) (internal.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomId]
	if !ok {
		return "", false
	}
	p, ok := room.Participants[client]
	if !ok {
		return "", false
	}
	return p.Role, true
}

// Participants returns the roster as it was recorded at join time, admin
// first, then by team name. Registering a new display name does not rename
// existing entries.
func (s *RoomStore) Participants(roomId string) []internal.Participant {
	s.mu.RLock()
	room, ok := s.rooms[roomId]
	if !ok {
		s.mu.RUnlock()
		return []internal.Participant{}
	}
	list := make([]internal.Participant, 0, len(room.Participants))
	for _, p := range room.Participants {
		list = append(list, p)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if (list[i].Role == internal.RoleAdmin) != (list[j].Role == internal.RoleAdmin) {
			return list[i].Role == internal.RoleAdmin
		}
		return list[i].TeamName < list[j].TeamName
	})
	return list
}

// ListRoomSummaries projects every room for list_rooms and the health
// endpoint, sorted by id for stable output.
func (s *RoomStore) ListRoomSummaries() []internal.RoomSummary {
	s.mu.RLock()
	summaries := make([]internal.RoomSummary, 0, len(s.rooms))
	for _, room := range s.rooms {
		summaries = append(summaries, room.Summary())
	}
	s.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Id < summaries[j].Id })
	return summaries
}
