package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/DoyleJ11/car-build-backend/internal/catalog"
	"github.com/DoyleJ11/car-build-backend/internal/scoring"
)

const host = "host-conn"

func pointsCatalog() *catalog.Catalog {
	opts := []catalog.Option{{Label: "one", Points: 1}, {Label: "two", Points: 2}, {Label: "three", Points: 3}}
	return &catalog.Catalog{
		Variant: catalog.VariantSimple,
		Categories: []catalog.Category{
			{ID: "a", Name: "First", Options: opts},
			{ID: "b", Name: "Second", Options: opts},
		},
	}
}

func mustApply(t *testing.T, s State, cmd Command) ([]Event, State) {
	t.Helper()
	events, next, err := Apply(s, cmd)
	if err != nil {
		t.Fatalf("%s by %q: unexpected err %v", cmd.Type, cmd.ConnID, err)
	}
	return events, next
}

func join(t *testing.T, s State, conn, name string) State {
	t.Helper()
	_, next := mustApply(t, s, Command{Type: CmdJoin, ConnID: conn, TeamName: name})
	return next
}

func answer(conn string, option int) Command {
	return Command{Type: CmdSubmitAnswer, ConnID: conn, OptionIndex: option}
}

// lobby with teams A and B, already started
func playingState(t *testing.T) State {
	t.Helper()
	s := NewState("ABCDEF", pointsCatalog(), host)
	s = join(t, s, "a", "A")
	s = join(t, s, "b", "B")
	_, s = mustApply(t, s, Command{Type: CmdStart, ConnID: host, At: time.Unix(100, 0)})
	return s
}

func TestJoin(t *testing.T) {
	base := join(t, NewState("ABCDEF", pointsCatalog(), host), "red", "red")

	cases := []struct {
		name    string
		setup   func() State
		cmd     Command
		wantErr error
	}{
		{
			name:    "case-insensitive duplicate name",
			setup:   func() State { return base },
			cmd:     Command{Type: CmdJoin, ConnID: "x", TeamName: "Red"},
			wantErr: ErrDuplicateTeamName,
		},
		{
			name:    "duplicate after trimming",
			setup:   func() State { return base },
			cmd:     Command{Type: CmdJoin, ConnID: "x", TeamName: "  RED "},
			wantErr: ErrDuplicateTeamName,
		},
		{
			name:    "host cannot join own room",
			setup:   func() State { return base },
			cmd:     Command{Type: CmdJoin, ConnID: host, TeamName: "Blue"},
			wantErr: ErrUnauthorized,
		},
		{
			name:    "same connection twice",
			setup:   func() State { return base },
			cmd:     Command{Type: CmdJoin, ConnID: "red", TeamName: "Blue"},
			wantErr: ErrAlreadyJoined,
		},
		{
			name:    "name too long",
			setup:   func() State { return base },
			cmd:     Command{Type: CmdJoin, ConnID: "x", TeamName: "abcdefghijklmnopqrstuvwxyz0123456789"},
			wantErr: ErrInvalidTeamName,
		},
		{
			name:    "game already started",
			setup:   func() State { return playingState(t) },
			cmd:     Command{Type: CmdJoin, ConnID: "x", TeamName: "Late"},
			wantErr: ErrGameAlreadyStarted,
		},
		{
			name:  "new name accepted",
			setup: func() State { return base },
			cmd:   Command{Type: CmdJoin, ConnID: "x", TeamName: "Blue"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.setup()
			before := len(s.Teams)
			events, next, err := Apply(s, tc.cmd)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				if len(events) != 0 || len(next.Teams) != before {
					t.Fatalf("rejected join must not change roster: events=%v teams=%d", events, len(next.Teams))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err %v", err)
			}
			if !ContainsEvent(events, EvtTeamJoined) || !ContainsEvent(events, EvtRosterUpdated) {
				t.Fatalf("expected joined + roster events, got %v", events)
			}
			if len(next.Teams) != before+1 {
				t.Fatalf("want %d teams, got %d", before+1, len(next.Teams))
			}
		})
	}
}

func TestJoin_DefaultNameAndSeq(t *testing.T) {
	s := NewState("ABCDEF", pointsCatalog(), host)
	s = join(t, s, "a", "   ")
	s = join(t, s, "b", "Second")

	if got := s.Teams["a"].Name; got != DefaultTeamName {
		t.Fatalf("blank name: got %q, want %q", got, DefaultTeamName)
	}
	order := TeamsInJoinOrder(s)
	if order[0].ID != "a" || order[1].ID != "b" {
		t.Fatalf("join order: got %v", order)
	}
	for _, c := range s.Teams["b"].Choices {
		if c != scoring.Unset {
			t.Fatalf("choices must start unset, got %v", s.Teams["b"].Choices)
		}
	}
}

func TestStart_HostOnly(t *testing.T) {
	s := join(t, NewState("ABCDEF", pointsCatalog(), host), "a", "A")

	_, _, err := Apply(s, Command{Type: CmdStart, ConnID: "a"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}

	at := time.Unix(42, 0)
	events, next := mustApply(t, s, Command{Type: CmdStart, ConnID: host, At: at})
	if next.Phase != PhasePlaying || next.Cursor != 0 || !next.StartedAt.Equal(at) {
		t.Fatalf("bad state after start: %+v", next)
	}
	if len(events) != 1 || events[0].Type != EvtCategoryAnnounced || events[0].Index != 0 {
		t.Fatalf("want category 0 announced, got %v", events)
	}

	_, _, err = Apply(next, Command{Type: CmdStart, ConnID: host})
	if !errors.Is(err, ErrGameAlreadyStarted) {
		t.Fatalf("second start: want ErrGameAlreadyStarted, got %v", err)
	}
}

func TestStart_EmptyLobby(t *testing.T) {
	s := NewState("ABCDEF", pointsCatalog(), host)

	events, next := mustApply(t, s, Command{Type: CmdStart, ConnID: host})
	if next.Phase != PhasePlaying || len(next.Teams) != 0 {
		t.Fatalf("host may start without teams, got %+v", next)
	}
	if len(events) != 1 || events[0].Type != EvtCategoryAnnounced {
		t.Fatalf("want category 0 announced, got %v", events)
	}
}

func TestStart_HostlessRoomCannotStart(t *testing.T) {
	s := join(t, NewState("ABCDEF", pointsCatalog(), ""), "a", "A")
	_, _, err := Apply(s, Command{Type: CmdStart, ConnID: ""})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestSubmitAnswer_Rejections(t *testing.T) {
	playing := playingState(t)
	_, answered := mustApply(t, playing, answer("a", 1))

	cases := []struct {
		name    string
		setup   State
		cmd     Command
		wantErr error
	}{
		{"lobby", join(t, NewState("ABCDEF", pointsCatalog(), host), "a", "A"), answer("a", 0), ErrInvalidRound},
		{"host answering", playing, answer(host, 0), ErrUnauthorized},
		{"stranger answering", playing, answer("nobody", 0), ErrUnauthorized},
		{"option out of range", playing, answer("a", 3), ErrUnknownOption},
		{"negative option", playing, answer("a", -1), ErrUnknownOption},
		{"second answer same round", answered, answer("a", 2), ErrAlreadyAnswered},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, next, err := Apply(tc.setup, tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if events != nil {
				t.Fatalf("rejected answer must not emit events, got %v", events)
			}
			if next.Cursor != tc.setup.Cursor || len(next.Answered) != len(tc.setup.Answered) {
				t.Fatalf("rejected answer changed state")
			}
		})
	}
}

func TestSubmitAnswer_DuplicateKeepsFirstChoice(t *testing.T) {
	s := playingState(t)
	_, s = mustApply(t, s, answer("a", 1))
	_, s, _ = Apply(s, answer("a", 2))

	if got := s.Teams["a"].Choices[0]; got != 1 {
		t.Fatalf("first choice overwritten: got %d", got)
	}
}

func TestBarrier_AdvancesOnlyWhenAllAnswered(t *testing.T) {
	s := playingState(t)

	events, s := mustApply(t, s, answer("a", 2))
	if ContainsEvent(events, EvtCategoryAnnounced) || s.Cursor != 0 {
		t.Fatalf("advanced before barrier: %v cursor=%d", events, s.Cursor)
	}

	events, s = mustApply(t, s, answer("b", 0))
	if len(events) != 2 || events[0].Type != EvtAnswerRecorded || events[1].Type != EvtCategoryAnnounced {
		t.Fatalf("want ack then announce, got %v", events)
	}
	if s.Cursor != 1 || events[1].Index != 1 {
		t.Fatalf("want cursor 1, got %d", s.Cursor)
	}
	if len(s.Answered) != 0 {
		t.Fatalf("ledger must be cleared on advance, got %v", s.Answered)
	}
}

func TestBarrier_LeaverShrinksDenominator(t *testing.T) {
	s := NewState("ABCDEF", pointsCatalog(), host)
	s = join(t, s, "a", "A")
	s = join(t, s, "b", "B")
	s = join(t, s, "c", "C")
	_, s = mustApply(t, s, Command{Type: CmdStart, ConnID: host})

	_, s = mustApply(t, s, answer("a", 0))
	events, s := mustApply(t, s, Command{Type: CmdLeave, ConnID: "c"})
	if ContainsEvent(events, EvtRosterUpdated) {
		t.Fatalf("roster must not be broadcast while playing: %v", events)
	}

	events, s = mustApply(t, s, answer("b", 0))
	if !ContainsEvent(events, EvtCategoryAnnounced) || s.Cursor != 1 {
		t.Fatalf("two remaining teams answered, want advance; got %v cursor=%d", events, s.Cursor)
	}
}

func TestBarrier_AnsweredThenLeftDoesNotCount(t *testing.T) {
	s := NewState("ABCDEF", pointsCatalog(), host)
	s = join(t, s, "a", "A")
	s = join(t, s, "b", "B")
	s = join(t, s, "c", "C")
	_, s = mustApply(t, s, Command{Type: CmdStart, ConnID: host})

	_, s = mustApply(t, s, answer("a", 0))
	_, s = mustApply(t, s, answer("b", 0))
	_, s = mustApply(t, s, Command{Type: CmdLeave, ConnID: "a"})

	if AnsweredCount(s) != 1 {
		t.Fatalf("want 1 answered current team, got %d", AnsweredCount(s))
	}
	events, s := mustApply(t, s, answer("c", 1))
	if !ContainsEvent(events, EvtCategoryAnnounced) || s.Cursor != 1 {
		t.Fatalf("want advance after c answers, got %v", events)
	}
}

func TestForceAdvance(t *testing.T) {
	s := playingState(t)
	_, s = mustApply(t, s, answer("a", 2))

	_, _, err := Apply(s, Command{Type: CmdForceAdvance, ConnID: "a"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("team forcing advance: want ErrUnauthorized, got %v", err)
	}

	events, s := mustApply(t, s, Command{Type: CmdForceAdvance, ConnID: host})
	if len(events) != 1 || events[0].Type != EvtCategoryAnnounced || s.Cursor != 1 {
		t.Fatalf("want advance to 1, got %v cursor=%d", events, s.Cursor)
	}
	if got := s.Teams["b"].Choices[0]; got != scoring.Unset {
		t.Fatalf("unanswered slot must stay unset, got %d", got)
	}

	_, s = mustApply(t, s, answer("a", 1))
	_, s = mustApply(t, s, answer("b", 2))
	if s.Phase != PhaseFinished {
		t.Fatalf("want finished, got %s", s.Phase)
	}
	// b missed the first category, so the simple variant scores it 0
	for _, e := range s.Results {
		if e.TeamID == "b" && e.Points != 0 {
			t.Fatalf("incomplete team must score 0, got %d", e.Points)
		}
		if e.TeamID == "a" && e.Points != 5 {
			t.Fatalf("team a: want 5, got %d", e.Points)
		}
	}
}

func TestApply_EmitsGameFinishedOnLastCategory(t *testing.T) {
	s := playingState(t)
	_, s = mustApply(t, s, answer("a", 2))
	_, s = mustApply(t, s, answer("b", 0))
	_, s = mustApply(t, s, answer("a", 1))
	events, s := mustApply(t, s, answer("b", 0))

	if !ContainsEvent(events, EvtGameFinished) {
		t.Fatalf("expected EvtGameFinished, got %v", events)
	}
	if len(s.Results) != 2 {
		t.Fatalf("want 2 leaderboard entries, got %d", len(s.Results))
	}
	if s.Results[0].Name != "A" || s.Results[0].Points != 5 || s.Results[1].Name != "B" || s.Results[1].Points != 2 {
		t.Fatalf("want [{A,5},{B,2}], got %+v", s.Results)
	}

	_, _, err := Apply(s, Command{Type: CmdForceAdvance, ConnID: host})
	if !errors.Is(err, ErrInvalidRound) {
		t.Fatalf("finished room: want ErrInvalidRound, got %v", err)
	}
	_, _, err = Apply(s, answer("a", 0))
	if !errors.Is(err, ErrInvalidRound) {
		t.Fatalf("finished room answer: want ErrInvalidRound, got %v", err)
	}
}

func TestLeave_HostClosesRoom(t *testing.T) {
	s := playingState(t)

	events, closed := mustApply(t, s, Command{Type: CmdLeave, ConnID: host})
	if len(events) != 1 || events[0].Type != EvtHostLeft {
		t.Fatalf("want EvtHostLeft, got %v", events)
	}
	if !closed.Closed || closed.HostID != "" || len(closed.Teams) != 0 {
		t.Fatalf("room not disbanded: %+v", closed)
	}

	for _, cmd := range []Command{
		{Type: CmdJoin, ConnID: "z", TeamName: "Z"},
		answer("a", 0),
		{Type: CmdStart, ConnID: host},
	} {
		if _, _, err := Apply(closed, cmd); !errors.Is(err, ErrRoomClosed) {
			t.Fatalf("%s after host left: want ErrRoomClosed, got %v", cmd.Type, err)
		}
	}
}

func TestLeave_TeamInLobby(t *testing.T) {
	s := NewState("ABCDEF", pointsCatalog(), host)
	s = join(t, s, "a", "A")

	events, next := mustApply(t, s, Command{Type: CmdLeave, ConnID: "a"})
	if !ContainsEvent(events, EvtTeamLeft) || !ContainsEvent(events, EvtRosterUpdated) {
		t.Fatalf("want left + roster, got %v", events)
	}
	if len(next.Teams) != 0 {
		t.Fatalf("team not removed")
	}

	// the name is free again
	join(t, next, "b", "a")
}

func TestLeave_UnknownConnectionIsNoop(t *testing.T) {
	s := playingState(t)
	events, next, err := Apply(s, Command{Type: CmdLeave, ConnID: "nobody"})
	if err != nil || events != nil || len(next.Teams) != 2 {
		t.Fatalf("want no-op, got events=%v err=%v", events, err)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := playingState(t)
	_, _ = mustApply(t, s, answer("a", 2))

	if len(s.Answered) != 0 {
		t.Fatalf("input ledger mutated: %v", s.Answered)
	}
	if s.Teams["a"].Choices[0] != scoring.Unset {
		t.Fatalf("input choices mutated: %v", s.Teams["a"].Choices)
	}
}

func TestApply_UnsupportedCommand(t *testing.T) {
	_, _, err := Apply(playingState(t), Command{Type: "Dance"})
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("want ErrUnsupportedCommand, got %v", err)
	}
}

func TestNormalizeCode(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{" abcdef ", "ABCDEF", false},
		{"HJK234", "HJK234", false},
		{"ABCDE", "", true},
		{"ABCDEFG", "", true},
		{"ABCDE0", "", true},
		{"ABCDEI", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := NormalizeCode(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidCode) {
				t.Fatalf("%q: want ErrInvalidCode, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: got %q, %v", tc.in, got, err)
		}
	}
}

func TestReason(t *testing.T) {
	if got := Reason(ErrDuplicateTeamName); got != "DuplicateTeamName" {
		t.Fatalf("got %q", got)
	}
	_, err := NormalizeCode("x")
	if got := Reason(err); got != "InvalidCode" {
		t.Fatalf("wrapped code error: got %q", got)
	}
	if got := Reason(errors.New("boom")); got != "Internal" {
		t.Fatalf("got %q", got)
	}
}
