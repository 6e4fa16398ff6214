package internal

import "encoding/json"

// Inbound messages are flat JSON objects with a type discriminant. The
// router decodes the envelope first, then re-decodes the raw payload into
// the per-type struct below.

type Envelope struct {
	Type string `json:"type"`
}

type CreateRoomMsg struct {
	RoomName string `json:"roomName"`
}

type JoinRoomMsg struct {
	RoomId string `json:"roomId"`
	Role   Role   `json:"role"`
}

type RegisterMsg struct {
	TeamName string `json:"teamName"`
	RoomId   string `json:"roomId,omitempty"`
}

type LoadQuizMsg struct {
	RoomId string `json:"roomId"`
	Quiz   *Quiz  `json:"quiz"`
}

type RoomIdMsg struct {
	RoomId string `json:"roomId"`
}

type KickPlayerMsg struct {
	RoomId   string `json:"roomId"`
	TeamName string `json:"teamName"`
}

type SubmitAnswerMsg struct {
	RoomId   string `json:"roomId"`
	TeamName string `json:"teamName"`
	Answer   int    `json:"answer"`
}

type AdjustPointsMsg struct {
	RoomId          string `json:"roomId"`
	TeamName        string `json:"teamName"`
	PointAdjustment int    `json:"pointAdjustment"`
}

type ButtonPressedMsg struct {
	RoomId   string `json:"roomId"`
	TeamName string `json:"teamName"`
}

type AdminJudgementMsg struct {
	RoomId   string `json:"roomId"`
	TeamName string `json:"teamName"`
	Correct  bool   `json:"correct"`
}

// Outbound payloads. Field names match the wire contract the clients were
// built against.

type ConnectionEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type EchoEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type RoomCreatedEvent struct {
	Type     string `json:"type"`
	RoomId   string `json:"roomId"`
	RoomName string `json:"roomName"`
}

type RoomJoinedEvent struct {
	Type     string      `json:"type"`
	RoomId   string      `json:"roomId"`
	Role     Role        `json:"role"`
	TeamName string      `json:"teamName,omitempty"`
	Room     RoomSummary `json:"room"`
}

type RoomDeletedEvent struct {
	Type   string `json:"type"`
	RoomId string `json:"roomId"`
}

type QuizLoadedEvent struct {
	Type   string `json:"type"`
	RoomId string `json:"roomId"`
	Quiz   *Quiz  `json:"quiz"`
}

type ListRoomsEvent struct {
	Type  string        `json:"type"`
	Rooms []RoomSummary `json:"rooms"`
}

type ParticipantsListEvent struct {
	Type         string        `json:"type"`
	RoomId       string        `json:"roomId"`
	Participants []Participant `json:"participants"`
}

type PlayerKickedEvent struct {
	Type     string `json:"type"`
	RoomId   string `json:"roomId"`
	TeamName string `json:"teamName"`
}

type GameStartedEvent struct {
	Type      string    `json:"type"`
	RoomId    string    `json:"roomId"`
	StartTime string    `json:"startTime"`
	GameState GameState `json:"gameState"`
}

type NextQuestionStartEvent struct {
	Type              string    `json:"type"`
	RoomId            string    `json:"roomId"`
	RemainingTime     int64     `json:"remainingTime"`
	NextQuestionIndex int       `json:"nextQuestionIndex"`
	GameState         GameState `json:"gameState"`
}

type NextQuestionStopEvent struct {
	Type              string    `json:"type"`
	RoomId            string    `json:"roomId"`
	NextQuestionIndex int       `json:"nextQuestionIndex"`
	GameState         GameState `json:"gameState"`
}

// ShowQuestionEvent carries either the full question (admin) or the
// redacted view (players and viewers), hence the any-typed field.
type ShowQuestionEvent struct {
	Type          string    `json:"type"`
	RoomId        string    `json:"roomId"`
	Question      any       `json:"question"`
	QuestionIndex int       `json:"questionIndex"`
	GameState     GameState `json:"gameState"`
}

type RoundStartEvent struct {
	Type          string    `json:"type"`
	RoomId        string    `json:"roomId"`
	RoundTime     int       `json:"roundTime"`
	QuestionIndex int       `json:"questionIndex"`
	GameState     GameState `json:"gameState"`
}

type RoundEndEvent struct {
	Type          string         `json:"type"`
	RoomId        string         `json:"roomId"`
	QuestionIndex int            `json:"questionIndex"`
	GameState     GameState      `json:"gameState"`
	RoundScores   map[string]int `json:"roundScores,omitempty"`
}

type GameEndedEvent struct {
	Type      string    `json:"type"`
	RoomId    string    `json:"roomId"`
	GameState GameState `json:"gameState"`
}

type GameStateUpdateEvent struct {
	Type      string    `json:"type"`
	RoomId    string    `json:"roomId"`
	GameState GameState `json:"gameState"`
}

type ButtonPressedEvent struct {
	Type     string `json:"type"`
	RoomId   string `json:"roomId"`
	TeamName string `json:"teamName"`
}
