package engine

import (
	"errors"
	"strings"
	"time"

	"github.com/DoyleJ11/car-build-backend/internal/catalog"
	"github.com/DoyleJ11/car-build-backend/internal/scoring"
)

var ErrInvalidCode = errors.New("invalid room code")
var ErrGameAlreadyStarted = errors.New("game already started")
var ErrDuplicateTeamName = errors.New("team name already taken")
var ErrInvalidTeamName = errors.New("invalid team name")
var ErrAlreadyJoined = errors.New("already joined")
var ErrUnauthorized = errors.New("not allowed")
var ErrInvalidRound = errors.New("no round accepting answers")
var ErrAlreadyAnswered = errors.New("already answered this round")
var ErrUnknownOption = errors.New("unknown option")
var ErrRoomClosed = errors.New("room closed")
var ErrUnsupportedCommand = errors.New("unsupported command")

const (
	DefaultTeamName = "Team"
	MaxTeamNameLen  = 32
)

type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

type Role string

const (
	RoleHost Role = "host"
	RoleTeam Role = "team"
)

type Team struct {
	ID      string
	Name    string
	Seq     int
	Choices []int
}

// AnswerKey is one entry of the per-round ledger.
type AnswerKey struct {
	Category int
	TeamID   string
}

type State struct {
	Code      string
	Phase     Phase
	HostID    string
	Cursor    int
	Teams     map[string]Team
	Answered  map[AnswerKey]bool
	NextSeq   int
	StartedAt time.Time
	Closed    bool
	Results   []scoring.Entry
	Catalog   *catalog.Catalog
}

type CommandType string

const (
	CmdJoin         CommandType = "Join"
	CmdStart        CommandType = "Start"
	CmdSubmitAnswer CommandType = "SubmitAnswer"
	CmdForceAdvance CommandType = "ForceAdvance"
	CmdLeave        CommandType = "Leave"
)

/*
	CmdJoin         -> EvtTeamJoined -> EvtRosterUpdated
	CmdStart        -> EvtCategoryAnnounced
	CmdSubmitAnswer -> EvtAnswerRecorded [-> EvtCategoryAnnounced | EvtGameFinished]
	CmdForceAdvance -> EvtCategoryAnnounced | EvtGameFinished
	CmdLeave (host) -> EvtHostLeft
	CmdLeave (team) -> EvtTeamLeft [-> EvtRosterUpdated while in lobby]
*/

type Command struct {
	Type        CommandType
	ConnID      string
	TeamName    string
	OptionIndex int
	At          time.Time
}

type EventType string

const (
	EvtTeamJoined        EventType = "TeamJoined"
	EvtRosterUpdated     EventType = "RosterUpdated"
	EvtCategoryAnnounced EventType = "CategoryAnnounced"
	EvtAnswerRecorded    EventType = "AnswerRecorded"
	EvtGameFinished      EventType = "GameFinished"
	EvtTeamLeft          EventType = "TeamLeft"
	EvtHostLeft          EventType = "HostLeft"
)

type Event struct {
	Type     EventType
	TeamID   string
	TeamName string
	Index    int
}

// Apply runs one command against s. On error the returned state is s itself
// and no events are produced. The input state is never mutated.
func Apply(s State, cmd Command) ([]Event, State, error) {
	if s.Closed {
		return nil, s, ErrRoomClosed
	}

	switch cmd.Type {
	case CmdJoin:
		if s.Phase != PhaseLobby {
			return nil, s, ErrGameAlreadyStarted
		}
		if cmd.ConnID == s.HostID {
			return nil, s, ErrUnauthorized
		}
		if _, ok := s.Teams[cmd.ConnID]; ok {
			return nil, s, ErrAlreadyJoined
		}

		name := strings.TrimSpace(cmd.TeamName)
		if name == "" {
			name = DefaultTeamName
		}
		if len([]rune(name)) > MaxTeamNameLen {
			return nil, s, ErrInvalidTeamName
		}
		if nameTaken(s, name) {
			return nil, s, ErrDuplicateTeamName
		}

		newState := s.clone()
		newState.Teams[cmd.ConnID] = Team{
			ID:      cmd.ConnID,
			Name:    name,
			Seq:     s.NextSeq,
			Choices: emptyChoices(s.Catalog.Len()),
		}
		newState.NextSeq++

		events := []Event{
			{Type: EvtTeamJoined, TeamID: cmd.ConnID, TeamName: name},
			{Type: EvtRosterUpdated},
		}
		return events, newState, nil

	case CmdStart:
		if cmd.ConnID != s.HostID || s.HostID == "" {
			return nil, s, ErrUnauthorized
		}
		if s.Phase != PhaseLobby {
			return nil, s, ErrGameAlreadyStarted
		}

		newState := s.clone()
		newState.Phase = PhasePlaying
		newState.Cursor = 0
		newState.Answered = map[AnswerKey]bool{}
		for id, t := range newState.Teams {
			t.Choices = emptyChoices(s.Catalog.Len())
			newState.Teams[id] = t
		}
		newState.StartedAt = cmd.At

		return []Event{{Type: EvtCategoryAnnounced, Index: 0}}, newState, nil

	case CmdSubmitAnswer:
		if s.Phase != PhasePlaying {
			return nil, s, ErrInvalidRound
		}
		if cmd.ConnID == s.HostID {
			return nil, s, ErrUnauthorized
		}
		team, ok := s.Teams[cmd.ConnID]
		if !ok {
			return nil, s, ErrUnauthorized
		}
		if s.Answered[AnswerKey{Category: s.Cursor, TeamID: team.ID}] {
			return nil, s, ErrAlreadyAnswered
		}
		if _, ok := s.Catalog.Option(s.Cursor, cmd.OptionIndex); !ok {
			return nil, s, ErrUnknownOption
		}

		newState := s.clone()
		newState.Answered[AnswerKey{Category: s.Cursor, TeamID: team.ID}] = true
		team = newState.Teams[team.ID]
		team.Choices[s.Cursor] = cmd.OptionIndex

		events := []Event{{Type: EvtAnswerRecorded, TeamID: team.ID, Index: s.Cursor}}

		if allAnswered(newState) {
			events = append(events, advance(&newState))
		}
		return events, newState, nil

	case CmdForceAdvance:
		if cmd.ConnID != s.HostID || s.HostID == "" {
			return nil, s, ErrUnauthorized
		}
		if s.Phase != PhasePlaying {
			return nil, s, ErrInvalidRound
		}

		newState := s.clone()
		return []Event{advance(&newState)}, newState, nil

	case CmdLeave:
		if s.HostID != "" && cmd.ConnID == s.HostID {
			newState := s.clone()
			newState.HostID = ""
			clear(newState.Teams)
			clear(newState.Answered)
			newState.Closed = true
			return []Event{{Type: EvtHostLeft}}, newState, nil
		}

		team, ok := s.Teams[cmd.ConnID]
		if !ok {
			return nil, s, nil
		}

		newState := s.clone()
		delete(newState.Teams, team.ID)

		events := []Event{{Type: EvtTeamLeft, TeamID: team.ID, TeamName: team.Name}}
		if s.Phase == PhaseLobby {
			events = append(events, Event{Type: EvtRosterUpdated})
		}
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// advance moves to the next category or finishes the game.
func advance(s *State) Event {
	s.Cursor++
	clear(s.Answered)

	if s.Cursor >= s.Catalog.Len() {
		s.Phase = PhaseFinished
		s.Results = scoring.Leaderboard(s.Catalog, standings(*s))
		return Event{Type: EvtGameFinished}
	}
	return Event{Type: EvtCategoryAnnounced, Index: s.Cursor}
}

// allAnswered recomputes the barrier from the ledger against the teams that
// are in the room right now.
func allAnswered(s State) bool {
	return len(s.Teams) > 0 && AnsweredCount(s) == len(s.Teams)
}

func nameTaken(s State, name string) bool {
	for _, t := range s.Teams {
		if strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}
