package types

import (
	"testing"

	"github.com/DoyleJ11/car-build-backend/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    Request
		wantErr error
	}{
		{"create", `{"type":"create-room"}`, CreateRoom{}, nil},
		{"leave", `{"type":"leave-room"}`, LeaveRoom{}, nil},
		{"join normalizes code", `{"type":"join","code":" abcdef","team_name":"Red"}`, Join{Code: "ABCDEF", TeamName: "Red"}, nil},
		{"start", `{"type":"start","code":"HJK234"}`, Start{Code: "HJK234"}, nil},
		{"answer zero index", `{"type":"submit-answer","code":"HJK234","option_index":0}`, SubmitAnswer{Code: "HJK234", OptionIndex: 0}, nil},
		{"force", `{"type":"force-advance","code":"HJK234"}`, ForceAdvance{Code: "HJK234"}, nil},
		{"image", `{"type":"generate-image","code":"HJK234"}`, GenerateImage{Code: "HJK234"}, nil},
		{"answer without option", `{"type":"submit-answer","code":"HJK234"}`, nil, ErrMissingOption},
		{"short code", `{"type":"join","code":"ABC","team_name":"Red"}`, nil, engine.ErrInvalidCode},
		{"ambiguous character", `{"type":"start","code":"ABCDE0"}`, nil, engine.ErrInvalidCode},
		{"unknown type", `{"type":"dance","code":"HJK234"}`, nil, ErrUnknownType},
		{"not json", `{type`, nil, ErrBadJSON},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse([]byte(tc.raw))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
