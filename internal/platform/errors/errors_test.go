package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodePetNotFound, "pet 42 is missing")
	if !errors.Is(err, New(CodePetNotFound, "different message")) {
		t.Fatal("expected errors with the same code to match")
	}
	if errors.Is(err, New(CodeUserNotFound, "pet 42 is missing")) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeInternal, "persist photo", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be found in chain")
	}
}

func TestCodeOfWalksWrappedChain(t *testing.T) {
	inner := New(CodeConversationNotParticipant, "user 9 is not in conversation 3")
	outer := fmt.Errorf("open chat: %w", inner)
	if got := CodeOf(outer); got != CodeConversationNotParticipant {
		t.Fatalf("expected participant code, got %s", got)
	}
	if got := CodeOf(errors.New("plain")); got != CodeUnknown {
		t.Fatalf("expected unknown code for plain error, got %s", got)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeAuthTokenExpired, http.StatusUnauthorized},
		{CodePetNotOwner, http.StatusForbidden},
		{CodeConversationNotFound, http.StatusNotFound},
		{CodeAuthEmailTaken, http.StatusConflict},
		{CodeMessageEmptyBody, http.StatusBadRequest},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_NEW"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("code %s: expected status %d, got %d", tc.code, tc.want, got)
		}
	}
}
