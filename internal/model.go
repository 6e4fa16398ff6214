package internal

import "time"

const (
	// Delay between game_started and the first question's countdown.
	StartDelay = 3 * time.Second
	// Length of the pre-question countdown.
	CountdownDuration = 3 * time.Second

	// A correct answer at t=0 is worth MaxAnswerPoints, decaying linearly
	// to MaxAnswerPoints-AnswerPointsDecay at the buzzer.
	MaxAnswerPoints   = 1000
	AnswerPointsDecay = 500

	// Fixed award for a correct first_to_press judgement.
	ButtonPressPoints = 1000

	// Display name used for connections that never registered one.
	DefaultTeamName = "Gamemaster 🚀"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RolePlayer Role = "player"
	RoleViewer Role = "viewer"
)

// ValidRole reports whether a role string from the wire is one of the
// closed set. Roles are never trusted without this check.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RolePlayer, RoleViewer:
		return true
	}
	return false
}

type QuestionKind string

const (
	KindMultiple     QuestionKind = "multiple"
	KindGeo          QuestionKind = "geo"
	KindFirstToPress QuestionKind = "first_to_press"
)

type Question struct {
	Question      string       `json:"question"`
	Type          QuestionKind `json:"type"`
	Alternatives  []string     `json:"alternatives"`
	RoundTime     int          `json:"roundTime"`
	CorrectAnswer int          `json:"correctAnswer"`
}

// Redacted returns the player-facing view of the question: the correct
// answer index is withheld until the round is over.
func (q Question) Redacted() RedactedQuestion {
	return RedactedQuestion{
		Question:     q.Question,
		Type:         q.Type,
		Alternatives: q.Alternatives,
		RoundTime:    q.RoundTime,
	}
}

type RedactedQuestion struct {
	Question     string       `json:"question"`
	Type         QuestionKind `json:"type"`
	Alternatives []string     `json:"alternatives"`
	RoundTime    int          `json:"roundTime"`
}

type Quiz struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Valid checks the structural shape of a quiz supplied over the wire.
// Content beyond shape is not validated.
func (q *Quiz) Valid() bool {
	if q == nil || q.Name == "" || len(q.Questions) == 0 {
		return false
	}
	for _, question := range q.Questions {
		if question.RoundTime <= 0 {
			return false
		}
		switch question.Type {
		case KindMultiple, KindGeo, KindFirstToPress:
		default:
			return false
		}
	}
	return true
}

// Participant is a connection's role+name binding within one room.
type Participant struct {
	TeamName string `json:"teamName"`
	Role     Role   `json:"role"`
}

// Room owns its roster and, once loaded, a quiz definition. Access is
// serialized by the RoomStore's lock; Room itself carries no mutex.
type Room struct {
	Id           string
	Name         string
	Participants map[*Client]Participant
	Quiz         *Quiz
}

// RoomSummary is the public projection of a room used in list_rooms,
// room_joined and the health endpoint.
type RoomSummary struct {
	Id               string `json:"id"`
	Name             string `json:"name"`
	ParticipantCount int    `json:"participantCount"`
	Quiz             *Quiz  `json:"quiz,omitempty"`
}

func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		Id:               r.Id,
		Name:             r.Name,
		ParticipantCount: len(r.Participants),
		Quiz:             r.Quiz,
	}
}

// PlayerCount counts roster entries with role=player. Admins and viewers
// never score and never gate round auto-end.
func (r *Room) PlayerCount() int {
	n := 0
	for _, p := range r.Participants {
		if p.Role == RolePlayer {
			n++
		}
	}
	return n
}

// GameState is the per-room snapshot broadcast with every game event.
type GameState struct {
	CurrentRoom     RoomSummary    `json:"currentRoom"`
	IsGameStarted   bool           `json:"isGameStarted"`
	CurrentQuestion int            `json:"currentQuestion"`
	TeamPoints      map[string]int `json:"teamPoints"`
	StartTime       string         `json:"startTime"`
}
