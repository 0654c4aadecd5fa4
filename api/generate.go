package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openclaw/qrgen/qr"
)

const (
	defaultFG = "black"
	defaultBG = "white"
)

type generateRequest struct {
	Data    string `json:"data"`
	FGColor string `json:"fg_color"`
	BGColor string `json:"bg_color"`
}

// handleGenerate answers with a data:image/png;base64 URL of the QR code
// for the posted text. Missing or unreadable input is a 400, anything the
// renderer rejects (bad colors included) is a 500.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.MaxBodyBytes)
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Data == "" {
		http.Error(w, "data is required", http.StatusBadRequest)
		return
	}
	if req.FGColor == "" {
		req.FGColor = defaultFG
	}
	if req.BGColor == "" {
		req.BGColor = defaultBG
	}

	fg, err := qr.ParseColor(req.FGColor)
	if err != nil {
		s.Log.Warn("rejecting foreground color", "fg_color", req.FGColor, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	bg, err := qr.ParseColor(req.BGColor)
	if err != nil {
		s.Log.Warn("rejecting background color", "bg_color", req.BGColor, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	url, err := s.Renderer.DataURL(req.Data, fg, bg)
	if err != nil {
		s.Log.Error("generate qr code", "bytes", len(req.Data), "error", err)
		http.Error(w, "could not generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(url))
}
