package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/DoyleJ11/car-build-backend/internal/catalog"
	"github.com/DoyleJ11/car-build-backend/internal/engine"
	"github.com/DoyleJ11/car-build-backend/internal/hub"
)

const qrSize = 320

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Healthz(h *hub.Hub, reg *hub.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := h.Count(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Status      string `json:"status"`
			Rooms       int    `json:"rooms"`
			Connections int    `json:"connections"`
		}{"ok", rooms, reg.Len()})
	}
}

func Catalog(c *catalog.Catalog) http.HandlerFunc {
	pub := c.Public()
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, pub)
	}
}

type RoomStatusResponse struct {
	Code          string       `json:"code"`
	Phase         engine.Phase `json:"phase"`
	CategoryIndex int          `json:"category_index"`
	Categories    int          `json:"categories"`
	Teams         []string     `json:"teams"`
	Answered      int          `json:"answered"`
	Clients       int          `json:"clients"`
	Version       int          `json:"version"`
}

func RoomStatus(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := engine.NormalizeCode(chi.URLParam(r, "code"))
		if err != nil {
			http.Error(w, "invalid room code", http.StatusBadRequest)
			return
		}

		rm, err := h.Get(r.Context(), code)
		if err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		v, err := rm.View(r.Context())
		if errors.Is(err, engine.ErrRoomClosed) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		} else if err != nil {
			http.Error(w, "room unavailable", http.StatusServiceUnavailable)
			return
		}

		teams := engine.TeamsInJoinOrder(v.State)
		names := make([]string, len(teams))
		for i, t := range teams {
			names[i] = t.Name
		}

		writeJSON(w, http.StatusOK, RoomStatusResponse{
			Code:          code,
			Phase:         v.State.Phase,
			CategoryIndex: v.State.Cursor,
			Categories:    v.State.Catalog.Len(),
			Teams:         names,
			Answered:      engine.AnsweredCount(v.State),
			Clients:       v.NumClients,
			Version:       v.Version,
		})
	}
}

// JoinURL is the link players open to join code. Without a configured public
// URL it is derived from the request.
func JoinURL(publicURL string, r *http.Request, code string) string {
	base := strings.TrimSuffix(publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?code=" + url.QueryEscape(code)
}

func RoomQR(h *hub.Hub, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := engine.NormalizeCode(chi.URLParam(r, "code"))
		if err != nil {
			http.Error(w, "invalid room code", http.StatusBadRequest)
			return
		}
		if _, err := h.Get(r.Context(), code); err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(JoinURL(publicURL, r, code), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}

// ConfigJS exposes the websocket URL to the browser client at runtime.
func ConfigJS(socketURL string) http.HandlerFunc {
	quoted, _ := json.Marshal(socketURL)
	body := fmt.Sprintf("window.SOCKET_URL = %s;\n", quoted)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write([]byte(body))
	}
}
