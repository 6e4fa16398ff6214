package game

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/quizcast/quizcast-backend/internal"
)

// GameSession is the mutable per-room state of an in-progress game. It
// exists only between StartGame and room deletion (or a restart, which
// replaces it).
type GameSession struct {
	CurrentQuestion int
	TeamPoints      map[string]int
	StartTime       string

	// Per-round bookkeeping, cleared when a new question is shown.
	answered     map[string]struct{}
	disqualified map[string]struct{}

	// remaining counts down once per second while a round is active; it is
	// the clock answers are scored against.
	remaining   int
	roundActive bool
	finished    bool

	// generation fences timer callbacks: a callback armed for an older
	// session (restart, deletion) is discarded on arrival.
	generation uint64
}

// Engine drives the timed question/answer loop, one state machine per
// room. All operations are no-ops on missing room/session/quiz; permission
// checks happen at the router.
//
// Lock discipline: the engine never holds mu while calling into the
// RoomStore. Mutate under mu, snapshot, unlock, then broadcast.
type Engine struct {
	store *RoomStore

	mu       sync.Mutex
	sessions map[string]*GameSession
	timers   map[string]*phaseTimer
	lastGen  uint64

	// Timing knobs, overridable in tests.
	StartDelay time.Duration
	Countdown  time.Duration
}

func NewEngine(store *RoomStore) *Engine {
	return &Engine{
		store:      store,
		sessions:   make(map[string]*GameSession),
		timers:     make(map[string]*phaseTimer),
		StartDelay: internal.StartDelay,
		Countdown:  internal.CountdownDuration,
	}
}

// snapshotLocked builds the broadcastable game state. Caller holds e.mu.
// The points map is copied so marshalling never races a mutation.
func snapshotLocked(summary internal.RoomSummary, sess *GameSession) internal.GameState {
	points := make(map[string]int, len(sess.TeamPoints))
	for k, v := range sess.TeamPoints {
		points[k] = v
	}
	return internal.GameState{
		CurrentRoom:     summary,
		IsGameStarted:   true,
		CurrentQuestion: sess.CurrentQuestion,
		TeamPoints:      points,
		StartTime:       sess.StartTime,
	}
}

// StartGame initializes a session and schedules the first question.
// Requires an existing room with a loaded quiz; no-op otherwise. Starting
// twice resets the loop from question 0.
func (e *Engine) StartGame(roomId string) {
	if _, ok := e.store.QuizFor(roomId); !ok {
		return
	}
	summary, ok := e.store.SummaryOf(roomId)
	if !ok {
		return
	}
	players := e.store.PlayerTeamNames(roomId)

	e.mu.Lock()
	e.lastGen++
	gen := e.lastGen
	sess := &GameSession{
		TeamPoints:   make(map[string]int, len(players)),
		StartTime:    time.Now().Format(time.RFC3339),
		answered:     make(map[string]struct{}),
		disqualified: make(map[string]struct{}),
		generation:   gen,
	}
	for _, name := range players {
		sess.TeamPoints[name] = 0
	}
	e.sessions[roomId] = sess
	state := snapshotLocked(summary, sess)
	e.mu.Unlock()

	log.Printf("[StartGame] room=%s: game started with %d players", roomId, len(players))

	e.store.BroadcastToRoom(roomId, internal.GameStartedEvent{
		Type:      "game_started",
		RoomId:    roomId,
		StartTime: state.StartTime,
		GameState: state,
	})

	e.startTimer(roomId, e.StartDelay, nil, func() {
		e.showQuestion(roomId, 0, gen)
	})
}

// showQuestion enters the countdown phase for the given question index.
func (e *Engine) showQuestion(roomId string, questionIndex int, gen uint64) {
	quiz, ok := e.store.QuizFor(roomId)
	if !ok || questionIndex >= len(quiz.Questions) {
		return
	}
	summary, ok := e.store.SummaryOf(roomId)
	if !ok {
		return
	}

	e.mu.Lock()
	sess := e.sessions[roomId]
	if sess == nil || sess.generation != gen || sess.finished {
		e.mu.Unlock()
		return
	}
	sess.CurrentQuestion = questionIndex
	sess.answered = make(map[string]struct{})
	sess.disqualified = make(map[string]struct{})
	sess.roundActive = false
	state := snapshotLocked(summary, sess)
	e.mu.Unlock()

	e.store.BroadcastToRoom(roomId, internal.NextQuestionStartEvent{
		Type:              "next_question_start",
		RoomId:            roomId,
		RemainingTime:     e.Countdown.Milliseconds(),
		NextQuestionIndex: questionIndex,
		GameState:         state,
	})

	e.startTimer(roomId, e.Countdown, nil, func() {
		e.revealQuestion(roomId, questionIndex, gen)
	})
}

// revealQuestion ends the countdown, publishes the question and opens the
// round.
func (e *Engine) revealQuestion(roomId string, questionIndex int, gen uint64) {
	quiz, ok := e.store.QuizFor(roomId)
	if !ok || questionIndex >= len(quiz.Questions) {
		return
	}
	summary, ok := e.store.SummaryOf(roomId)
	if !ok {
		return
	}
	question := quiz.Questions[questionIndex]

	e.mu.Lock()
	sess := e.sessions[roomId]
	if sess == nil || sess.generation != gen || sess.finished {
		e.mu.Unlock()
		return
	}
	sess.remaining = question.RoundTime
	sess.roundActive = true
	state := snapshotLocked(summary, sess)
	e.mu.Unlock()

	e.store.BroadcastToRoom(roomId, internal.NextQuestionStopEvent{
		Type:              "next_question_stop",
		RoomId:            roomId,
		NextQuestionIndex: questionIndex,
		GameState:         state,
	})

	// Players and viewers get the question without the answer index; the
	// admin needs the full question to judge and present.
	admin := e.store.AdminOf(roomId)
	e.store.BroadcastToRoomExcept(roomId, internal.ShowQuestionEvent{
		Type:          "show_question",
		RoomId:        roomId,
		Question:      question.Redacted(),
		QuestionIndex: questionIndex,
		GameState:     state,
	}, admin)
	if admin != nil {
		if err := admin.SafeWriteJSON(internal.ShowQuestionEvent{
			Type:          "show_question",
			RoomId:        roomId,
			Question:      question,
			QuestionIndex: questionIndex,
			GameState:     state,
		}); err != nil {
			log.Printf("[revealQuestion] room=%s: admin send failed: %v", roomId, err)
		}
	}

	e.store.BroadcastToRoom(roomId, internal.RoundStartEvent{
		Type:          "round_start",
		RoomId:        roomId,
		RoundTime:     question.RoundTime,
		QuestionIndex: questionIndex,
		GameState:     state,
	})

	log.Printf("[revealQuestion] room=%s: question %d live for %ds", roomId, questionIndex, question.RoundTime)

	e.startTimer(roomId, time.Duration(question.RoundTime)*time.Second,
		func() { e.tickRound(roomId, gen) },
		func() { e.endRoundByTimeout(roomId, questionIndex, gen) },
	)
}

// tickRound decrements the round clock once per second.
func (e *Engine) tickRound(roomId string, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess := e.sessions[roomId]
	if sess == nil || sess.generation != gen || !sess.roundActive {
		return
	}
	if sess.remaining > 0 {
		sess.remaining--
	}
}

// endRoundByTimeout fires when the deadline elapses with players still
// unanswered. The deadline always wins a race with a late answer: the
// round is closed under the lock before any broadcast.
func (e *Engine) endRoundByTimeout(roomId string, questionIndex int, gen uint64) {
	summary, ok := e.store.SummaryOf(roomId)
	if !ok {
		return
	}

	e.mu.Lock()
	sess := e.sessions[roomId]
	if sess == nil || sess.generation != gen || !sess.roundActive {
		e.mu.Unlock()
		return
	}
	sess.roundActive = false
	state := snapshotLocked(summary, sess)
	e.mu.Unlock()

	log.Printf("[endRoundByTimeout] room=%s: question %d timed out", roomId, questionIndex)

	e.store.BroadcastToRoom(roomId, internal.RoundEndEvent{
		Type:          "round_end",
		RoomId:        roomId,
		QuestionIndex: questionIndex,
		GameState:     state,
	})
}

// answerPoints implements the time-decay scoring rule: an immediate
// correct answer is worth 1000, one at the buzzer 500.
func answerPoints(elapsed, roundTime int) int {
	fraction := float64(elapsed) / float64(roundTime)
	return int(math.Round(internal.MaxAnswerPoints - fraction*internal.AnswerPointsDecay))
}

// HandleAnswer records a team's answer for the current round. Idempotent
// per team per round; only an exact match with the correct index scores.
// When every player has answered the round ends immediately.
func (e *Engine) HandleAnswer(roomId, teamName string, answer int) {
	quiz, ok := e.store.QuizFor(roomId)
	if !ok {
		return
	}
	summary, ok := e.store.SummaryOf(roomId)
	if !ok {
		return
	}
	playerCount := e.store.PlayerCount(roomId)

	e.mu.Lock()
	sess := e.sessions[roomId]
	if sess == nil || !sess.roundActive || sess.CurrentQuestion >= len(quiz.Questions) {
		e.mu.Unlock()
		return
	}
	if _, dup := sess.answered[teamName]; dup {
		e.mu.Unlock()
		return
	}
	sess.answered[teamName] = struct{}{}

	question := quiz.Questions[sess.CurrentQuestion]
	points := 0
	if answer == question.CorrectAnswer {
		elapsed := question.RoundTime - sess.remaining
		points = answerPoints(elapsed, question.RoundTime)
		sess.TeamPoints[teamName] += points
		log.Printf("[HandleAnswer] room=%s: %q scored %d (answered at %ds)", roomId, teamName, points, elapsed)
	}

	questionIndex := sess.CurrentQuestion
	allAnswered := len(sess.answered) >= playerCount
	var state internal.GameState
	if allAnswered {
		sess.roundActive = false
		state = snapshotLocked(summary, sess)
	}
	e.mu.Unlock()

	if !allAnswered {
		return
	}

	log.Printf("[HandleAnswer] room=%s: all %d players answered, ending round", roomId, playerCount)
	e.cancelTimer(roomId)
	e.store.BroadcastToRoom(roomId, internal.RoundEndEvent{
		Type:          "round_end",
		RoomId:        roomId,
		QuestionIndex: questionIndex,
		GameState:     state,
		RoundScores:   map[string]int{teamName: points},
	})
}

// HandleButtonPress announces who buzzed first on a first_to_press
// question. Teams already judged wrong this round are ignored. Pressing
// never ends the round or awards points by itself.
func (e *Engine) HandleButtonPress(roomId, teamName string) {
	quiz, ok := e.store.QuizFor(roomId)
	if !ok {
		return
	}

	e.mu.Lock()
	sess := e.sessions[roomId]
	if sess == nil || !sess.roundActive || sess.CurrentQuestion >= len(quiz.Questions) {
		e.mu.Unlock()
		return
	}
	if quiz.Questions[sess.CurrentQuestion].Type != internal.KindFirstToPress {
		e.mu.Unlock()
		return
	}
	if _, out := sess.disqualified[teamName]; out {
		e.mu.Unlock()
		log.Printf("[HandleButtonPress] room=%s: ignoring press from disqualified %q", roomId, teamName)
		return
	}
	e.mu.Unlock()

	e.store.BroadcastToRoom(roomId, internal.ButtonPressedEvent{
		Type:     "button_pressed",
		RoomId:   roomId,
		TeamName: teamName,
	})
}

// HandleAdminJudgement resolves a first_to_press buzz. Correct awards the
// fixed points and ends the round; wrong disqualifies the team for the
// remainder of the round and the round continues.
func (e *Engine) HandleAdminJudgement(roomId, teamName string, correct bool) {
	quiz, ok := e.store.QuizFor(roomId)
	if !ok {
		return
	}
	summary, ok := e.store.SummaryOf(roomId)
	if !ok {
		return
	}

	e.mu.Lock()
	sess := e.sessions[roomId]
	if sess == nil || !sess.roundActive || sess.CurrentQuestion >= len(quiz.Questions) {
		e.mu.Unlock()
		return
	}
	if quiz.Questions[sess.CurrentQuestion].Type != internal.KindFirstToPress {
		e.mu.Unlock()
		return
	}

	questionIndex := sess.CurrentQuestion
	if correct {
		sess.TeamPoints[teamName] += internal.ButtonPressPoints
		sess.roundActive = false
		state := snapshotLocked(summary, sess)
		e.mu.Unlock()

		log.Printf("[HandleAdminJudgement] room=%s: %q judged correct", roomId, teamName)
		e.cancelTimer(roomId)
		e.store.BroadcastToRoom(roomId, internal.RoundEndEvent{
			Type:          "round_end",
			RoomId:        roomId,
			QuestionIndex: questionIndex,
			GameState:     state,
			RoundScores:   map[string]int{teamName: internal.ButtonPressPoints},
		})
		return
	}

	sess.disqualified[teamName] = struct{}{}
	state := snapshotLocked(summary, sess)
	e.mu.Unlock()

	log.Printf("[HandleAdminJudgement] room=%s: %q judged wrong, round continues", roomId, teamName)
	e.store.BroadcastToRoom(roomId, internal.GameStateUpdateEvent{
		Type:      "game_state_update",
		RoomId:    roomId,
		GameState: state,
	})
}

// HandleNextRound advances to the next question, or ends the game with a
// terminal broadcast when the quiz is exhausted.
func (e *Engine) HandleNextRound(roomId string) {
	quiz, ok := e.store.QuizFor(roomId)
	if !ok {
		return
	}
	summary, ok := e.store.SummaryOf(roomId)
	if !ok {
		return
	}

	e.mu.Lock()
	sess := e.sessions[roomId]
	if sess == nil || sess.finished {
		e.mu.Unlock()
		return
	}
	gen := sess.generation
	next := sess.CurrentQuestion + 1
	if next < len(quiz.Questions) {
		e.mu.Unlock()
		e.showQuestion(roomId, next, gen)
		return
	}
	sess.finished = true
	sess.roundActive = false
	state := snapshotLocked(summary, sess)
	e.mu.Unlock()

	log.Printf("[HandleNextRound] room=%s: quiz exhausted, game over", roomId)
	e.cancelTimer(roomId)
	e.store.BroadcastToRoom(roomId, internal.GameEndedEvent{
		Type:      "game_ended",
		RoomId:    roomId,
		GameState: state,
	})
}

// HandlePointAdjustment applies a manual score correction to a team that
// already has a score entry.
func (e *Engine) HandlePointAdjustment(roomId, teamName string, delta int) {
	summary, ok := e.store.SummaryOf(roomId)
	if !ok {
		return
	}

	e.mu.Lock()
	sess := e.sessions[roomId]
	if sess == nil {
		e.mu.Unlock()
		return
	}
	if _, ok := sess.TeamPoints[teamName]; !ok {
		e.mu.Unlock()
		return
	}
	sess.TeamPoints[teamName] += delta
	state := snapshotLocked(summary, sess)
	e.mu.Unlock()

	log.Printf("[HandlePointAdjustment] room=%s: %q adjusted by %+d", roomId, teamName, delta)
	e.store.BroadcastToRoom(roomId, internal.GameStateUpdateEvent{
		Type:      "game_state_update",
		RoomId:    roomId,
		GameState: state,
	})
}

// CloseSession disposes the room's session and timers. Called by the
// RoomStore on every room removal; never takes store locks.
func (e *Engine) CloseSession(roomId string) {
	e.mu.Lock()
	delete(e.sessions, roomId)
	t := e.timers[roomId]
	delete(e.timers, roomId)
	e.mu.Unlock()
	if t != nil {
		t.cancel()
	}
}
