package game

import (
	"testing"
	"time"

	"github.com/quizcast/quizcast-backend/internal"
)

func twoQuestionQuiz(roundTime int) *internal.Quiz {
	return &internal.Quiz{
		Name: "Geography 101",
		Questions: []internal.Question{
			{
				Question:      "Capital of France?",
				Type:          internal.KindMultiple,
				Alternatives:  []string{"Paris", "Lyon", "Nice"},
				RoundTime:     roundTime,
				CorrectAnswer: 0,
			},
			{
				Question:      "Where is the Eiffel Tower?",
				Type:          internal.KindGeo,
				RoundTime:     roundTime,
				CorrectAnswer: 0,
			},
		},
	}
}

func buzzerQuiz(roundTime int) *internal.Quiz {
	return &internal.Quiz{
		Name: "Buzzers",
		Questions: []internal.Question{{
			Question:  "First to press!",
			Type:      internal.KindFirstToPress,
			RoundTime: roundTime,
		}},
	}
}

// setupGame builds a room with an admin and the Red and Blue teams, loads
// the quiz and shrinks the phase delays so tests run in milliseconds.
func setupGame(t *testing.T, quiz *internal.Quiz) (*RoomStore, *Engine, string) {
	t.Helper()
	store, engine := newTestStore()
	engine.StartDelay = 10 * time.Millisecond
	engine.Countdown = 10 * time.Millisecond

	admin := fakeClient("admin")
	room := store.CreateRoom("Trivia Night", admin)
	for _, name := range []string{"Red", "Blue"} {
		c := fakeClient(name)
		store.SetDisplayName(c, name)
		if !store.JoinRoom(room.Id, c, internal.RolePlayer) {
			t.Fatalf("join failed for %s", name)
		}
	}
	if !store.LoadQuiz(room.Id, quiz) {
		t.Fatal("load quiz failed")
	}
	return store, engine, room.Id
}

// sessionView copies the fields tests assert on, under the engine lock.
type sessionView struct {
	ok              bool
	currentQuestion int
	teamPoints      map[string]int
	roundActive     bool
	finished        bool
	answeredCount   int
	disqualified    map[string]struct{}
	generation      uint64
}

func viewSession(e *Engine, roomId string) sessionView {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess := e.sessions[roomId]
	if sess == nil {
		return sessionView{}
	}
	v := sessionView{
		ok:              true,
		currentQuestion: sess.CurrentQuestion,
		teamPoints:      make(map[string]int, len(sess.TeamPoints)),
		roundActive:     sess.roundActive,
		finished:        sess.finished,
		answeredCount:   len(sess.answered),
		disqualified:    make(map[string]struct{}, len(sess.disqualified)),
		generation:      sess.generation,
	}
	for k, p := range sess.TeamPoints {
		v.teamPoints[k] = p
	}
	for k := range sess.disqualified {
		v.disqualified[k] = struct{}{}
	}
	return v
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func waitForRound(t *testing.T, e *Engine, roomId string) {
	t.Helper()
	waitFor(t, "round to open", func() bool {
		return viewSession(e, roomId).roundActive
	})
}

func TestAnswerPoints(t *testing.T) {
	cases := []struct {
		elapsed, roundTime, want int
	}{
		{0, 10, 1000},
		{10, 10, 500},
		{5, 10, 750},
		{1, 3, 833},
		{0, 1, 1000},
		{1, 1, 500},
	}
	for _, c := range cases {
		if got := answerPoints(c.elapsed, c.roundTime); got != c.want {
			t.Errorf("answerPoints(%d, %d) = %d, want %d", c.elapsed, c.roundTime, got, c.want)
		}
	}
}

func TestStartGameSeedsPlayersOnly(t *testing.T) {
	_, engine, roomId := setupGame(t, twoQuestionQuiz(60))
	engine.StartGame(roomId)

	v := viewSession(engine, roomId)
	if !v.ok {
		t.Fatal("expected a session")
	}
	if len(v.teamPoints) != 2 {
		t.Fatalf("teamPoints = %v, want exactly Red and Blue", v.teamPoints)
	}
	for _, name := range []string{"Red", "Blue"} {
		if p, ok := v.teamPoints[name]; !ok || p != 0 {
			t.Fatalf("teamPoints[%s] = %d ok=%v, want 0", name, p, ok)
		}
	}
}

func TestStartGameRequiresQuiz(t *testing.T) {
	store, engine := newTestStore()
	room := store.CreateRoom("Quizless", fakeClient("admin"))

	engine.StartGame(room.Id)
	if viewSession(engine, room.Id).ok {
		t.Fatal("no session should exist without a quiz")
	}
}

func TestAnswerScoringAndIdempotence(t *testing.T) {
	_, engine, roomId := setupGame(t, twoQuestionQuiz(60))
	engine.StartGame(roomId)
	waitForRound(t, engine, roomId)

	engine.HandleAnswer(roomId, "Red", 0)
	v := viewSession(engine, roomId)
	if v.teamPoints["Red"] != 1000 {
		t.Fatalf("Red = %d, want 1000 for an immediate correct answer", v.teamPoints["Red"])
	}

	// Re-answering is a no-op, right or wrong.
	engine.HandleAnswer(roomId, "Red", 0)
	engine.HandleAnswer(roomId, "Red", 2)
	v = viewSession(engine, roomId)
	if v.teamPoints["Red"] != 1000 || v.answeredCount != 1 {
		t.Fatalf("duplicate answer changed state: points=%d answered=%d", v.teamPoints["Red"], v.answeredCount)
	}
	if !v.roundActive {
		t.Fatal("round should stay open until all players answer")
	}

	// Blue answers wrong; that completes the set and ends the round.
	engine.HandleAnswer(roomId, "Blue", 2)
	v = viewSession(engine, roomId)
	if v.teamPoints["Blue"] != 0 {
		t.Fatalf("Blue = %d, want 0 for a wrong answer", v.teamPoints["Blue"])
	}
	if v.roundActive {
		t.Fatal("round should end once every player has answered")
	}

	engine.mu.Lock()
	_, timerAlive := engine.timers[roomId]
	engine.mu.Unlock()
	if timerAlive {
		t.Fatal("deadline timer should be cancelled on early round end")
	}
}

func TestDeadlineBeatsLateAnswer(t *testing.T) {
	_, engine, roomId := setupGame(t, twoQuestionQuiz(1))
	engine.StartGame(roomId)
	waitForRound(t, engine, roomId)

	waitFor(t, "round to time out", func() bool {
		return !viewSession(engine, roomId).roundActive
	})

	// The answer arrives after the deadline closed the round.
	engine.HandleAnswer(roomId, "Red", 0)
	v := viewSession(engine, roomId)
	if v.teamPoints["Red"] != 0 || v.answeredCount != 0 {
		t.Fatalf("late answer scored: points=%d answered=%d", v.teamPoints["Red"], v.answeredCount)
	}
}

func TestAnswerBeforeRoundOpens(t *testing.T) {
	_, engine, roomId := setupGame(t, twoQuestionQuiz(60))
	engine.StartDelay = time.Hour // keep the game in its start delay

	engine.StartGame(roomId)
	engine.HandleAnswer(roomId, "Red", 0)
	v := viewSession(engine, roomId)
	if v.teamPoints["Red"] != 0 || v.answeredCount != 0 {
		t.Fatalf("answer outside a round scored: points=%d answered=%d", v.teamPoints["Red"], v.answeredCount)
	}
}

func TestNextRoundAdvancesAndEnds(t *testing.T) {
	_, engine, roomId := setupGame(t, twoQuestionQuiz(60))
	engine.StartGame(roomId)
	waitForRound(t, engine, roomId)

	engine.HandleNextRound(roomId)
	waitFor(t, "second question to open", func() bool {
		v := viewSession(engine, roomId)
		return v.currentQuestion == 1 && v.roundActive
	})

	// Per-round bookkeeping resets on advance.
	engine.HandleAnswer(roomId, "Red", 0)
	if v := viewSession(engine, roomId); v.answeredCount != 1 {
		t.Fatalf("answered = %d after advance, want 1", v.answeredCount)
	}

	engine.HandleNextRound(roomId)
	v := viewSession(engine, roomId)
	if !v.finished {
		t.Fatal("game should finish once the quiz is exhausted")
	}

	// A finished game ignores further advances.
	engine.HandleNextRound(roomId)
	if v := viewSession(engine, roomId); v.currentQuestion != 1 {
		t.Fatalf("currentQuestion = %d after game end, want 1", v.currentQuestion)
	}
}

func TestButtonPressAndJudgement(t *testing.T) {
	_, engine, roomId := setupGame(t, buzzerQuiz(60))
	engine.StartGame(roomId)
	waitForRound(t, engine, roomId)

	// Wrong judgement disqualifies for the rest of the round only.
	engine.HandleButtonPress(roomId, "Red")
	engine.HandleAdminJudgement(roomId, "Red", false)
	v := viewSession(engine, roomId)
	if _, out := v.disqualified["Red"]; !out {
		t.Fatal("Red should be disqualified after a wrong judgement")
	}
	if !v.roundActive {
		t.Fatal("round should continue after a wrong judgement")
	}
	if v.teamPoints["Red"] != 0 {
		t.Fatalf("Red = %d after wrong judgement, want 0", v.teamPoints["Red"])
	}

	// Correct judgement awards the fixed prize and ends the round.
	engine.HandleButtonPress(roomId, "Blue")
	engine.HandleAdminJudgement(roomId, "Blue", true)
	v = viewSession(engine, roomId)
	if v.teamPoints["Blue"] != internal.ButtonPressPoints {
		t.Fatalf("Blue = %d, want %d", v.teamPoints["Blue"], internal.ButtonPressPoints)
	}
	if v.roundActive {
		t.Fatal("round should end on a correct judgement")
	}
}

func TestJudgementIgnoredOnMultipleChoice(t *testing.T) {
	_, engine, roomId := setupGame(t, twoQuestionQuiz(60))
	engine.StartGame(roomId)
	waitForRound(t, engine, roomId)

	engine.HandleAdminJudgement(roomId, "Red", true)
	v := viewSession(engine, roomId)
	if v.teamPoints["Red"] != 0 || !v.roundActive {
		t.Fatalf("judgement affected a multiple-choice round: %+v", v)
	}
}

func TestPointAdjustment(t *testing.T) {
	_, engine, roomId := setupGame(t, twoQuestionQuiz(60))
	engine.StartGame(roomId)

	engine.HandlePointAdjustment(roomId, "Red", 250)
	engine.HandlePointAdjustment(roomId, "Red", -50)
	engine.HandlePointAdjustment(roomId, "Ghost", 999)

	v := viewSession(engine, roomId)
	if v.teamPoints["Red"] != 200 {
		t.Fatalf("Red = %d, want 200", v.teamPoints["Red"])
	}
	if _, ok := v.teamPoints["Ghost"]; ok {
		t.Fatal("adjustment must not create score entries")
	}
}

func TestRestartResetsScores(t *testing.T) {
	_, engine, roomId := setupGame(t, twoQuestionQuiz(60))
	engine.StartGame(roomId)
	waitForRound(t, engine, roomId)
	engine.HandleAnswer(roomId, "Red", 0)
	firstGen := viewSession(engine, roomId).generation

	engine.StartGame(roomId)
	v := viewSession(engine, roomId)
	if v.teamPoints["Red"] != 0 || v.currentQuestion != 0 {
		t.Fatalf("restart kept state: points=%d question=%d", v.teamPoints["Red"], v.currentQuestion)
	}
	if v.generation == firstGen {
		t.Fatal("restart should fence out the old session's timers")
	}

	// The restarted game still reaches a live round.
	waitForRound(t, engine, roomId)
}

func TestCloseSessionIdempotent(t *testing.T) {
	_, engine, roomId := setupGame(t, twoQuestionQuiz(60))
	engine.StartGame(roomId)
	waitForRound(t, engine, roomId)

	engine.CloseSession(roomId)
	engine.CloseSession(roomId)
	if viewSession(engine, roomId).ok {
		t.Fatal("session should be gone")
	}

	// Handlers tolerate the missing session.
	engine.HandleAnswer(roomId, "Red", 0)
	engine.HandleNextRound(roomId)
	engine.HandlePointAdjustment(roomId, "Red", 10)
}
