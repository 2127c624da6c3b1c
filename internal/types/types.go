package types

import (
	"encoding/json"

	"github.com/DoyleJ11/car-build-backend/internal/catalog"
	"github.com/DoyleJ11/car-build-backend/internal/scoring"
)

// Inbound message types.
const (
	InCreateRoom    = "create-room"
	InJoin          = "join"
	InStart         = "start"
	InSubmitAnswer  = "submit-answer"
	InForceAdvance  = "force-advance"
	InLeaveRoom     = "leave-room"
	InGenerateImage = "generate-image"
)

// Outbound message types.
const (
	OutRoomCreated    = "room-created"
	OutJoined         = "joined"
	OutRosterUpdated  = "roster-updated"
	OutCategory       = "category"
	OutAnswerRecorded = "answer-recorded"
	OutHostLeft       = "host-left"
	OutRoomClosed     = "room-closed"
	OutLeaderboard    = "leaderboard"
	OutJoinRejected   = "join-rejected"
	OutError          = "error"
	OutImageReady     = "image-ready"
	OutImageError     = "image-error"
)

type ClientMessage struct {
	Type        string `json:"type"`
	Code        string `json:"code,omitempty"`
	TeamName    string `json:"team_name,omitempty"`
	OptionIndex *int   `json:"option_index,omitempty"`
}

type TeamView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ServerMessage struct {
	Type        string                  `json:"type"`
	Version     int                     `json:"version,omitempty"`
	Code        string                  `json:"code,omitempty"`
	TeamName    string                  `json:"team_name,omitempty"`
	Catalog     *catalog.PublicCatalog  `json:"catalog,omitempty"`
	Teams       []TeamView              `json:"teams,omitempty"`
	IsHost      *bool                   `json:"is_host,omitempty"`
	Index       *int                    `json:"index,omitempty"`
	Category    *catalog.PublicCategory `json:"category,omitempty"`
	Leaderboard []scoring.Entry         `json:"leaderboard,omitempty"`
	Reason      string                  `json:"reason,omitempty"`
	Error       string                  `json:"error,omitempty"`
	ImageURL    string                  `json:"image_url,omitempty"`
}

// MarshalJSON always writes teams on roster-updated and leaderboard on
// leaderboard, as arrays even when empty.
func (m ServerMessage) MarshalJSON() ([]byte, error) {
	type wire ServerMessage
	switch m.Type {
	case OutRosterUpdated:
		teams := m.Teams
		if teams == nil {
			teams = []TeamView{}
		}
		return json.Marshal(struct {
			wire
			Teams []TeamView `json:"teams"`
		}{wire(m), teams})
	case OutLeaderboard:
		board := m.Leaderboard
		if board == nil {
			board = []scoring.Entry{}
		}
		return json.Marshal(struct {
			wire
			Leaderboard []scoring.Entry `json:"leaderboard"`
		}{wire(m), board})
	}
	return json.Marshal(wire(m))
}

func ErrorMessage(kind, reason string, err error) ServerMessage {
	return ServerMessage{Type: kind, Reason: reason, Error: err.Error()}
}
