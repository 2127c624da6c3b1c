package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/car-build-backend/internal/engine"
)

var ErrBadJSON = errors.New("bad json")
var ErrUnknownType = errors.New("unknown message type")
var ErrMissingOption = errors.New("missing option_index")

// Request is one validated inbound event.
type Request interface{ isRequest() }

type CreateRoom struct{}

type Join struct {
	Code     string
	TeamName string
}

type Start struct{ Code string }

type SubmitAnswer struct {
	Code        string
	OptionIndex int
}

type ForceAdvance struct{ Code string }

type LeaveRoom struct{}

type GenerateImage struct{ Code string }

func (CreateRoom) isRequest()    {}
func (Join) isRequest()          {}
func (Start) isRequest()         {}
func (SubmitAnswer) isRequest()  {}
func (ForceAdvance) isRequest()  {}
func (LeaveRoom) isRequest()     {}
func (GenerateImage) isRequest() {}

// Parse decodes and validates a raw frame. Room codes come back normalized.
func Parse(data []byte) (Request, error) {
	var cm ClientMessage
	if err := json.Unmarshal(data, &cm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	return ToRequest(cm)
}

func ToRequest(cm ClientMessage) (Request, error) {
	switch cm.Type {
	case InCreateRoom:
		return CreateRoom{}, nil
	case InLeaveRoom:
		return LeaveRoom{}, nil
	}

	code, err := engine.NormalizeCode(cm.Code)
	if err != nil && isKnown(cm.Type) {
		return nil, err
	}

	switch cm.Type {
	case InJoin:
		return Join{Code: code, TeamName: cm.TeamName}, nil
	case InStart:
		return Start{Code: code}, nil
	case InSubmitAnswer:
		if cm.OptionIndex == nil {
			return nil, ErrMissingOption
		}
		return SubmitAnswer{Code: code, OptionIndex: *cm.OptionIndex}, nil
	case InForceAdvance:
		return ForceAdvance{Code: code}, nil
	case InGenerateImage:
		return GenerateImage{Code: code}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cm.Type)
	}
}

func isKnown(t string) bool {
	switch t {
	case InJoin, InStart, InSubmitAnswer, InForceAdvance, InGenerateImage:
		return true
	}
	return false
}
