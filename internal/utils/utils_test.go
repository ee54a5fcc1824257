package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	t.Run("sets content-type and status", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteJSON(w, http.StatusCreated, map[string]string{"key": "value"})

		if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
			t.Errorf("Content-Type = %q; want application/json; charset=utf-8", got)
		}
		if w.Code != http.StatusCreated {
			t.Errorf("Code = %d; want %d", w.Code, http.StatusCreated)
		}
	})

	t.Run("encodes body as JSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteJSON(w, http.StatusOK, map[string]string{"foo": "bar"})

		var got map[string]string
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("body is not valid JSON: %v", err)
		}
		if got["foo"] != "bar" {
			t.Errorf("body[foo] = %q; want bar", got["foo"])
		}
	})
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusNotFound, "no such metric")

	if w.Code != http.StatusNotFound {
		t.Errorf("Code = %d; want %d", w.Code, http.StatusNotFound)
	}
	var got map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if got["error"] != "Not Found" || got["message"] != "no such metric" {
		t.Errorf("body = %v", got)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Light int `json:"light"`
	}
	newReq := func(ct, body string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/metric", strings.NewReader(body))
		if ct != "" {
			r.Header.Set("Content-Type", ct)
		}
		return r
	}

	tests := []struct {
		name      string
		ct        string
		body      string
		wantErr   bool
		wantMedia bool
	}{
		{name: "valid", ct: "application/json", body: `{"light": 3}`},
		{name: "charset parameter", ct: "application/json; charset=utf-8", body: `{"light": 3}`},
		{name: "missing content type", body: `{"light": 3}`, wantErr: true, wantMedia: true},
		{name: "text/plain", ct: "text/plain", body: `{"light": 3}`, wantErr: true, wantMedia: true},
		{name: "unknown field", ct: "application/json", body: `{"light": 3, "lux": 1}`, wantErr: true},
		{name: "syntax error", ct: "application/json", body: `{"light":`, wantErr: true},
		{name: "trailing value", ct: "application/json", body: `{"light": 3} {"light": 4}`, wantErr: true},
		{name: "trailing brace", ct: "application/json", body: `{"light": 3}}`, wantErr: true},
		{name: "trailing bracket", ct: "application/json", body: `{"light": 3}]`, wantErr: true},
		{name: "trailing whitespace", ct: "application/json", body: "{\"light\": 3}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			err := DecodeJSON(newReq(tt.ct, tt.body), &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrUnsupportedMediaType) != tt.wantMedia {
				t.Errorf("ErrUnsupportedMediaType = %v, want %v", errors.Is(err, ErrUnsupportedMediaType), tt.wantMedia)
			}
			if !tt.wantErr && p.Light != 3 {
				t.Errorf("light = %d", p.Light)
			}
		})
	}
}
