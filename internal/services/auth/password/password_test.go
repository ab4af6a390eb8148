package password

import (
	"strings"
	"testing"

	apperrors "github.com/pawtrail/pawtrail/internal/platform/errors"
)

func TestHashAndCompare(t *testing.T) {
	t.Parallel()

	hash, err := Hash("correct horse battery")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash equals plaintext")
	}
	if err := Compare(hash, "correct horse battery"); err != nil {
		t.Fatalf("compare: %v", err)
	}
}

func TestCompareMismatch(t *testing.T) {
	t.Parallel()

	hash, err := Hash("correct horse battery")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	err = Compare(hash, "wrong password")
	if apperrors.CodeOf(err) != apperrors.CodeAuthInvalidCredentials {
		t.Fatalf("compare = %v, want %s", err, apperrors.CodeAuthInvalidCredentials)
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	t.Parallel()

	if _, err := Hash("short"); apperrors.CodeOf(err) != apperrors.CodeInvalidArgument {
		t.Fatalf("hash short password = %v, want %s", err, apperrors.CodeInvalidArgument)
	}
}

func TestHashRejectsOverlongPassword(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 65)
	if _, err := Hash(long); apperrors.CodeOf(err) != apperrors.CodeInvalidArgument {
		t.Fatalf("hash long password = %v, want %s", err, apperrors.CodeInvalidArgument)
	}
}
