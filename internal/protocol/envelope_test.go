package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantErr  bool
		wantType string
		wantID   string
	}{
		{"command", `{"type":"addShape","id":"r1","params":{"shape":"rectangle"}}`, false, "addShape", "r1"},
		{"control without id", `{"type":"ping"}`, false, "ping", ""},
		{"response without type", `{"id":"r1","success":true,"elementId":"el-9"}`, false, "", "r1"},
		{"empty object", `{}`, false, "", ""},
		{"extra fields ignored", `{"type":"x","id":"y","trace":"abc"}`, false, "x", "y"},
		{"not json", `{{{`, true, "", ""},
		{"json array", `[1,2]`, true, "", ""},
		{"json number", `42`, true, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ParseHeader([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", h)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHeader: %v", err)
			}
			if h.Type != tt.wantType {
				t.Errorf("type = %q, want %q", h.Type, tt.wantType)
			}
			if h.ID != tt.wantID {
				t.Errorf("id = %q, want %q", h.ID, tt.wantID)
			}
		})
	}
}

func TestFailureShape(t *testing.T) {
	data, err := json.Marshal(NewFailure("r1", NoBrowserError))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	// success:false must be serialized explicitly, not omitted.
	if !strings.Contains(s, `"success":false`) {
		t.Errorf("expected explicit success:false, got: %s", s)
	}
	if !strings.Contains(s, `"id":"r1"`) {
		t.Errorf("expected id to be carried, got: %s", s)
	}
	if !strings.Contains(s, "Browser not connected") {
		t.Errorf("expected failure message, got: %s", s)
	}
}

func TestControlReplies(t *testing.T) {
	data, _ := json.Marshal(NewPong())
	if string(data) != `{"type":"pong"}` {
		t.Errorf("pong = %s", data)
	}

	data, _ = json.Marshal(NewBrowserStatus(true))
	var status map[string]any
	if err := json.Unmarshal(data, &status); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if status["type"] != TypeBrowserStatus {
		t.Errorf("type = %v, want %q", status["type"], TypeBrowserStatus)
	}
	if status["connected"] != true {
		t.Errorf("connected = %v, want true", status["connected"])
	}

	// connected:false must not be omitted either.
	data, _ = json.Marshal(NewBrowserStatus(false))
	if !strings.Contains(string(data), `"connected":false`) {
		t.Errorf("expected explicit connected:false, got: %s", data)
	}
}

func TestEnvelopeOmitsEmptyFields(t *testing.T) {
	env := Envelope{Type: "ping"}
	data, _ := json.Marshal(env)
	s := string(data)
	for _, field := range []string{"id", "params", "success", "error", "connected"} {
		if strings.Contains(s, `"`+field+`"`) {
			t.Errorf("expected %q to be omitted, got: %s", field, s)
		}
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := Envelope{
		Type:   "addShape",
		ID:     "r1",
		Params: json.RawMessage(`{"shape":"line","x":1,"y":2}`),
	}
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Envelope
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != env.Type || got.ID != env.ID {
		t.Errorf("got %+v, want %+v", got, env)
	}
	if string(got.Params) != string(env.Params) {
		t.Errorf("params = %s, want %s", got.Params, env.Params)
	}
}
