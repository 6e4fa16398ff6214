package websockets

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/quizcast/quizcast-backend/internal"
	"github.com/quizcast/quizcast-backend/internal/game"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler is the transport edge: it upgrades connections, parses inbound
// messages and dispatches them to the store and engine. Authorization for
// admin-only operations happens here; the core stays permission-free.
type Handler struct {
	store  *game.RoomStore
	engine *game.Engine
}

func NewHandler(store *game.RoomStore, engine *game.Engine) *Handler {
	return &Handler{store: store, engine: engine}
}

// HandleWebSocket upgrades the HTTP connection and runs the read loop
// until the client goes away.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade failed: ", err)
		return
	}

	client := internal.NewClient(uuid.NewString(), conn)
	log.Printf("[HandleWebSocket] client=%s connected", client.Id)

	if err := client.SafeWriteJSON(internal.ConnectionEvent{
		Type:    "connection",
		Message: "Connected to WebSocket server",
	}); err != nil {
		log.Printf("[HandleWebSocket] client=%s: welcome failed: %v", client.Id, err)
	}

	h.readLoop(client)
}

func (h *Handler) readLoop(client *internal.Client) {
	defer func() {
		client.Close()
		h.store.RemoveParticipant(client)
		log.Printf("[readLoop] client=%s disconnected", client.Id)
	}()

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[readLoop] client=%s: read error: %v", client.Id, err)
			}
			return
		}
		h.dispatch(client, raw)
	}
}

// dispatch decodes the envelope, then the per-type payload, and routes the
// message. Malformed input never closes the connection; the sender gets an
// error reply instead.
func (h *Handler) dispatch(client *internal.Client, raw []byte) {
	var env internal.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.sendError(client, "Invalid message format")
		return
	}

	if env.Type != "list_rooms" {
		log.Printf("[dispatch] client=%s type=%s", client.Id, env.Type)
	}

	switch env.Type {
	case "create_room":
		var msg internal.CreateRoomMsg
		if !h.decode(raw, &msg) || msg.RoomName == "" {
			h.sendError(client, "Invalid message format")
			return
		}
		h.store.CreateRoom(msg.RoomName, client)

	case "join_room":
		var msg internal.JoinRoomMsg
		if !h.decode(raw, &msg) || msg.RoomId == "" || !internal.ValidRole(msg.Role) {
			h.sendError(client, "Invalid message format")
			return
		}
		if !h.store.JoinRoom(msg.RoomId, client, msg.Role) {
			if msg.Role == internal.RoleAdmin {
				h.sendError(client, "Room already has an admin")
			} else {
				h.sendError(client, "Failed to join room")
			}
		}

	case "register":
		var msg internal.RegisterMsg
		if !h.decode(raw, &msg) || msg.TeamName == "" {
			h.sendError(client, "Invalid message format")
			return
		}
		h.store.SetDisplayName(client, msg.TeamName)
		h.send(client, internal.ConnectionEvent{
			Type:    "connection",
			Message: "Registration successful",
		})
		if msg.RoomId != "" {
			if h.store.JoinRoom(msg.RoomId, client, internal.RolePlayer) {
				h.store.BroadcastToRoom(msg.RoomId, internal.ConnectionEvent{
					Type:    "connection",
					Message: "Team " + msg.TeamName + " has joined the room",
				})
			}
		}

	case "load_quiz":
		var msg internal.LoadQuizMsg
		if !h.decode(raw, &msg) || msg.RoomId == "" {
			h.sendError(client, "Invalid message format")
			return
		}
		if !h.requireAdmin(client, msg.RoomId, "Only admins can load quizzes") {
			return
		}
		if !msg.Quiz.Valid() {
			h.sendError(client, "Failed to load quiz")
			return
		}
		if !h.store.LoadQuiz(msg.RoomId, msg.Quiz) {
			h.sendError(client, "Failed to load quiz")
		}

	case "delete_room":
		var msg internal.RoomIdMsg
		if !h.decode(raw, &msg) || msg.RoomId == "" {
			h.sendError(client, "Invalid message format")
			return
		}
		if !h.requireAdmin(client, msg.RoomId, "Only admins can delete rooms") {
			return
		}
		if !h.store.DeleteRoom(msg.RoomId) {
			h.sendError(client, "Room not found or could not be deleted")
		}

	case "list_rooms":
		h.send(client, internal.ListRoomsEvent{
			Type:  "list_rooms",
			Rooms: h.store.ListRoomSummaries(),
		})

	case "list_participants":
		var msg internal.RoomIdMsg
		if !h.decode(raw, &msg) || msg.RoomId == "" {
			h.sendError(client, "Invalid message format")
			return
		}
		h.send(client, internal.ParticipantsListEvent{
			Type:         "participants_list",
			RoomId:       msg.RoomId,
			Participants: h.store.Participants(msg.RoomId),
		})

	case "leave_room":
		var msg internal.RoomIdMsg
		if !h.decode(raw, &msg) {
			h.sendError(client, "Invalid message format")
			return
		}
		h.store.RemoveParticipant(client)
		h.send(client, internal.ConnectionEvent{
			Type:    "connection",
			Message: "Left room successfully",
		})

	case "kick_player":
		var msg internal.KickPlayerMsg
		if !h.decode(raw, &msg) || msg.RoomId == "" || msg.TeamName == "" {
			h.sendError(client, "Invalid message format")
			return
		}
		if !h.requireAdmin(client, msg.RoomId, "Only admins can kick players") {
			return
		}
		kicked := h.store.KickPlayer(msg.RoomId, msg.TeamName)
		if kicked == nil {
			h.sendError(client, "Player not found or could not be kicked")
			return
		}
		h.send(kicked, internal.PlayerKickedEvent{
			Type:     "player_kicked",
			RoomId:   msg.RoomId,
			TeamName: msg.TeamName,
		})
		h.store.Registry().Remove(kicked)
		h.store.BroadcastToRoom(msg.RoomId, internal.ConnectionEvent{
			Type:    "connection",
			Message: msg.TeamName + " has been kicked from the room",
		})
		h.store.BroadcastToRoom(msg.RoomId, internal.ParticipantsListEvent{
			Type:         "participants_list",
			RoomId:       msg.RoomId,
			Participants: h.store.Participants(msg.RoomId),
		})

	case "start_game":
		var msg internal.RoomIdMsg
		if !h.decode(raw, &msg) || msg.RoomId == "" {
			h.sendError(client, "Invalid message format")
			return
		}
		if !h.requireAdmin(client, msg.RoomId, "Only admins can start the game") {
			return
		}
		if _, ok := h.store.QuizFor(msg.RoomId); !ok {
			h.sendError(client, "No quiz loaded for this room")
			return
		}
		h.engine.StartGame(msg.RoomId)

	case "next_round":
		var msg internal.RoomIdMsg
		if !h.decode(raw, &msg) || msg.RoomId == "" {
			h.sendError(client, "Invalid message format")
			return
		}
		if !h.requireAdmin(client, msg.RoomId, "Only admins can advance rounds") {
			return
		}
		h.engine.HandleNextRound(msg.RoomId)

	case "submit_answer":
		var msg internal.SubmitAnswerMsg
		if !h.decode(raw, &msg) || msg.RoomId == "" || msg.TeamName == "" {
			h.sendError(client, "Invalid message format")
			return
		}
		h.engine.HandleAnswer(msg.RoomId, msg.TeamName, msg.Answer)

	case "adjust_points":
		var msg internal.AdjustPointsMsg
		if !h.decode(raw, &msg) || msg.RoomId == "" || msg.TeamName == "" {
			h.sendError(client, "Invalid message format")
			return
		}
		if !h.requireAdmin(client, msg.RoomId, "Only admins can adjust points") {
			return
		}
		h.engine.HandlePointAdjustment(msg.RoomId, msg.TeamName, msg.PointAdjustment)

	case "button_pressed":
		var msg internal.ButtonPressedMsg
		if !h.decode(raw, &msg) || msg.RoomId == "" || msg.TeamName == "" {
			h.sendError(client, "Invalid message format")
			return
		}
		h.engine.HandleButtonPress(msg.RoomId, msg.TeamName)

	case "admin_judgement":
		var msg internal.AdminJudgementMsg
		if !h.decode(raw, &msg) || msg.RoomId == "" || msg.TeamName == "" {
			h.sendError(client, "Invalid message format")
			return
		}
		if !h.requireAdmin(client, msg.RoomId, "Only admins can judge answers") {
			return
		}
		h.engine.HandleAdminJudgement(msg.RoomId, msg.TeamName, msg.Correct)

	default:
		h.send(client, internal.EchoEvent{Type: "echo", Data: raw})
	}
}

// decode unmarshals the full raw message into the per-type struct.
func (h *Handler) decode(raw []byte, v any) bool {
	return json.Unmarshal(raw, v) == nil
}

// requireAdmin gates admin-only operations, replying with an error to
// everyone else.
func (h *Handler) requireAdmin(client *internal.Client, roomId, denial string) bool {
	role, ok := h.store.RoomRole(roomId, client)
	if !ok || role != internal.RoleAdmin {
		h.sendError(client, denial)
		return false
	}
	return true
}

func (h *Handler) send(client *internal.Client, msg any) {
	if err := client.SafeWriteJSON(msg); err != nil {
		log.Printf("[send] client=%s: %v", client.Id, err)
	}
}

func (h *Handler) sendError(client *internal.Client, text string) {
	h.send(client, internal.ErrorEvent{Type: "error", Error: text})
}
