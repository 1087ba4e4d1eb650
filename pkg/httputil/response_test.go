package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/openshelf/critique/pkg/access"
)

func TestWriteDecision(t *testing.T) {
	tests := []struct {
		decision access.Decision
		status   int
	}{
		{access.DecisionUnauthenticated, 401},
		{access.DecisionForbidden, 403},
		{access.DecisionUnsupported, 405},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		WriteDecision(w, tt.decision)
		if w.Code != tt.status {
			t.Errorf("WriteDecision(%s) status = %d, want %d", tt.decision, w.Code, tt.status)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("response is not JSON: %v", err)
		}
		if body["error"] == "" {
			t.Error("error message missing from body")
		}
	}
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation error", NewValidationError("score out of range"), 400},
		{"wrapped validation error", fmt.Errorf("create review: %w", NewValidationError("dup")), 400},
		{"not found", fmt.Errorf("title 42: %w", ErrNotFound), 404},
		{"unknown error", errors.New("connection refused"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteDomainError(w, tt.err)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestWriteList(t *testing.T) {
	w := httptest.NewRecorder()
	if err := WriteList(w, 2, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	var resp ListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
}
