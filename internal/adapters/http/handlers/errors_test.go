package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"collections-console/internal/core/domain"

	"github.com/gofiber/fiber/v2"
)

func TestHandleError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"validation", domain.ValidationError("amount must be greater than zero"), 400, "amount must be greater than zero"},
		{"wrapped validation", fmt.Errorf("initiate: %w", domain.ErrInvalidPhone), 400, "initiate: validation failed: phone number must be 12 digits starting with 254"},
		{"api error verbatim", &domain.APIError{StatusCode: 422, Message: "Customer has no active loan"}, 422, "Customer has no active loan"},
		{"api error without failure status", &domain.APIError{StatusCode: 200, Message: "Rejected"}, 502, "Rejected"},
		{"unreachable", fmt.Errorf("%w: status 503", domain.ErrUnreachable), 503, "The collections server is unreachable. Please retry."},
		{"unknown", errors.New("boom"), 500, "fallback"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return handleError(c, tc.err, "fallback") })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			var body struct {
				Error string `json:"error"`
			}
			json.NewDecoder(resp.Body).Decode(&body)
			if body.Error != tc.wantError {
				t.Fatalf("error = %q, want %q", body.Error, tc.wantError)
			}
			if tc.wantStatus == 503 && resp.Header.Get("Retry-After") == "" {
				t.Fatal("Retry-After missing")
			}
		})
	}
}

func TestHandleErrorPassesAuthFailuresThrough(t *testing.T) {
	app := fiber.New()
	var seen error
	app.Get("/", func(c *fiber.Ctx) error {
		seen = handleError(c, fmt.Errorf("list: %w", domain.ErrUnauthenticated), "fallback")
		return nil
	})
	if _, err := app.Test(httptest.NewRequest("GET", "/", nil)); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(seen, domain.ErrUnauthenticated) {
		t.Fatalf("handleError returned %v, want the auth failure", seen)
	}
}
