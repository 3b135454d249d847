package httputil

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, 401, "missing credential")

	if rec.Code != 401 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type: %s", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "missing credential" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var payload struct {
		Amount int `json:"amount"`
	}
	body := io.NopCloser(strings.NewReader(`{"amount": 5, "extra": true}`))
	if err := DecodeJSON(body, &payload); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestReadAllWithLimit(t *testing.T) {
	data, truncated, err := ReadAllWithLimit(strings.NewReader("abcdef"), 4)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !truncated {
		t.Fatalf("expected truncation")
	}
	if string(data) != "abcd" {
		t.Fatalf("unexpected data: %q", data)
	}

	if _, err := ReadAllStrict(strings.NewReader("abcdef"), 4); err == nil {
		t.Fatalf("expected strict read to fail")
	}

	data, err = ReadAllStrict(strings.NewReader("ab"), 4)
	if err != nil {
		t.Fatalf("strict read: %v", err)
	}
	if string(data) != "ab" {
		t.Fatalf("unexpected data: %q", data)
	}
}
