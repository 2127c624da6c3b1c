package engine

import (
	"errors"
	"maps"
	"slices"

	"github.com/DoyleJ11/car-build-backend/internal/catalog"
	"github.com/DoyleJ11/car-build-backend/internal/scoring"
)

func NewState(code string, cat *catalog.Catalog, hostID string) State {
	return State{
		Code:     code,
		Phase:    PhaseLobby,
		HostID:   hostID,
		Teams:    map[string]Team{},
		Answered: map[AnswerKey]bool{},
		Catalog:  cat,
	}
}

func (s State) clone() State {
	c := s
	c.Teams = make(map[string]Team, len(s.Teams))
	for id, t := range s.Teams {
		t.Choices = slices.Clone(t.Choices)
		c.Teams[id] = t
	}
	c.Answered = maps.Clone(s.Answered)
	if c.Answered == nil {
		c.Answered = map[AnswerKey]bool{}
	}
	return c
}

func emptyChoices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = scoring.Unset
	}
	return out
}

// TeamsInJoinOrder lists the roster sorted by join sequence.
func TeamsInJoinOrder(s State) []Team {
	teams := slices.Collect(maps.Values(s.Teams))
	slices.SortFunc(teams, func(a, b Team) int { return a.Seq - b.Seq })
	return teams
}

func standings(s State) []scoring.Standing {
	teams := TeamsInJoinOrder(s)
	out := make([]scoring.Standing, len(teams))
	for i, t := range teams {
		out[i] = scoring.Standing{TeamID: t.ID, Name: t.Name, Seq: t.Seq, Choices: t.Choices}
	}
	return out
}

// AnsweredCount is the number of current teams that answered the active category.
func AnsweredCount(s State) int {
	n := 0
	for id := range s.Teams {
		if s.Answered[AnswerKey{Category: s.Cursor, TeamID: id}] {
			n++
		}
	}
	return n
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Reason maps an engine error to the reason string sent to clients.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCode):
		return "InvalidCode"
	case errors.Is(err, ErrGameAlreadyStarted):
		return "GameAlreadyStarted"
	case errors.Is(err, ErrDuplicateTeamName):
		return "DuplicateTeamName"
	case errors.Is(err, ErrInvalidTeamName):
		return "InvalidTeamName"
	case errors.Is(err, ErrAlreadyJoined):
		return "AlreadyJoined"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrInvalidRound):
		return "InvalidRound"
	case errors.Is(err, ErrAlreadyAnswered):
		return "AlreadyAnswered"
	case errors.Is(err, ErrUnknownOption):
		return "UnknownOption"
	case errors.Is(err, ErrRoomClosed):
		return "RoomClosed"
	default:
		return "Internal"
	}
}
