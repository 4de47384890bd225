package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "already normalized", in: "254712345678", want: "254712345678"},
		{name: "plus prefix", in: "+254712345678", want: "254712345678"},
		{name: "leading zero", in: "0712345678", want: "254712345678"},
		{name: "bare subscriber", in: "712345678", want: "254712345678"},
		{name: "safaricom 01 range", in: "0110345678", want: "254110345678"},
		{name: "spaces and dashes", in: " 0712-345 678 ", want: "254712345678"},
		{name: "too short", in: "07123", wantErr: true},
		{name: "foreign prefix", in: "255712345678", wantErr: true},
		{name: "letters", in: "07123abc78", wantErr: true},
		{name: "plus in the middle", in: "254+712345678", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidPhone) {
					t.Fatalf("NormalizePhone(%q) error = %v, want ErrInvalidPhone", tc.in, err)
				}
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ErrInvalidPhone should be a validation error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePhone(%q) unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestIsPaymentPhone(t *testing.T) {
	if !IsPaymentPhone("254712345678") {
		t.Fatal("expected 254712345678 to be accepted")
	}
	for _, in := range []string{"0712345678", "25471234567", "2547123456789", "25471234567a", "+25471234567"} {
		if IsPaymentPhone(in) {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
}

func TestFollowUpCommentJSON(t *testing.T) {
	t.Run("state drives locallyPersisted", func(t *testing.T) {
		c := FollowUpComment{ID: "local-1", Text: "x", State: CommentPendingLocal}
		data, err := json.Marshal(c)
		if err != nil {
			t.Fatal(err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatal(err)
		}
		if m["locallyPersisted"] != true {
			t.Fatalf("locallyPersisted = %v, want true", m["locallyPersisted"])
		}
		if m["state"] != string(CommentPendingLocal) {
			t.Fatalf("state = %v", m["state"])
		}
	})

	t.Run("server payload without state is confirmed", func(t *testing.T) {
		var c FollowUpComment
		if err := json.Unmarshal([]byte(`{"id":"c-9","text":"hi","createdAt":"2026-01-02T10:00:00Z"}`), &c); err != nil {
			t.Fatal(err)
		}
		if c.State != CommentConfirmed || c.LocallyPersisted() {
			t.Fatalf("state = %q, want confirmed", c.State)
		}
	})

	t.Run("legacy flag only maps to pending", func(t *testing.T) {
		var c FollowUpComment
		if err := json.Unmarshal([]byte(`{"id":"local-2","text":"hi","locallyPersisted":true}`), &c); err != nil {
			t.Fatal(err)
		}
		if c.State != CommentPendingLocal {
			t.Fatalf("state = %q, want pending_local", c.State)
		}
	})
}

func TestAPIErrorMatchesNotFound(t *testing.T) {
	err := error(&APIError{StatusCode: 404, Message: "customer not found"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatal("404 API error should match ErrNotFound")
	}
	if errors.Is(&APIError{StatusCode: 422, Message: "bad"}, ErrNotFound) {
		t.Fatal("422 API error should not match ErrNotFound")
	}
}
