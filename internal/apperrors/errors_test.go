package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"bad request", BadRequest("missing org id"), KindBadRequest},
		{"conflict", Conflict("duplicate code %q", "A-100"), KindConflict},
		{"forbidden", Forbidden("no vacant seat"), KindForbidden},
		{"not found", NotFound("invite not found"), KindNotFound},
		{"internal", Internal(errors.New("boom"), "query failed"), KindInternal},
		{"plain error", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("%s: KindOf = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("allocate seat: %w", Conflict("user already seated"))
	if !IsKind(err, KindConflict) {
		t.Error("wrapped conflict error should keep its kind")
	}
}

func TestErrorMessage(t *testing.T) {
	err := Internal(errors.New("connection refused"), "create seat")
	if err.Error() != "create seat: connection refused" {
		t.Errorf("unexpected message %q", err.Error())
	}

	if err.Unwrap() == nil {
		t.Error("internal error should expose its cause")
	}

	plain := NotFound("person not found")
	if plain.Error() != "person not found" {
		t.Errorf("unexpected message %q", plain.Error())
	}
}

func TestIsKindNil(t *testing.T) {
	if IsKind(nil, KindInternal) {
		t.Error("nil error should never match a kind")
	}
}
