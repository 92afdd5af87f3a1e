package error

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestErrorCodeStatusMapping(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{code: ValidationFailed, want: http.StatusBadRequest},
		{code: RecipeNotFound, want: http.StatusNotFound},
		{code: RecipeNotOwned, want: http.StatusForbidden},
		{code: RecipeConflict, want: http.StatusBadRequest},
		{code: AlreadyFavorited, want: http.StatusBadRequest},
		{code: NotInCart, want: http.StatusBadRequest},
		{code: SelfSubscription, want: http.StatusBadRequest},
		{code: EmptyCart, want: http.StatusBadRequest},
		{code: UserNotFound, want: http.StatusNotFound},
		{code: EmailConflict, want: http.StatusConflict},
		{code: WeakPassword, want: http.StatusUnprocessableEntity},
		{code: InvalidAccessToken, want: http.StatusUnauthorized},
		{code: InsufficientPermissions, want: http.StatusForbidden},
	}

	for _, tt := range tests {
		if got := tt.code.StatusCode(); got != tt.want {
			t.Errorf("%s: expected status %d, got %d", tt.code, tt.want, got)
		}
	}
}

func TestEncodeError(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := EncodeError(rec, RecipeNotFound, "recipe does not exist", "123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}

	var body Error
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Code != RecipeNotFound || body.ErrorID != "123" {
		t.Errorf("unexpected body %+v", body)
	}
	if body.Fields != nil {
		t.Error("expected no fields map on a plain error")
	}
}

func TestEncodeValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	fields := map[string]string{"name": "name must be at least 4 characters"}
	if err := EncodeValidationError(rec, fields, "456"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var body Error
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Code != ValidationFailed {
		t.Errorf("unexpected code %q", body.Code)
	}
	if body.Fields["name"] == "" {
		t.Errorf("expected the field map to round-trip, got %v", body.Fields)
	}
}
