package argon2id

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeAndVerify(t *testing.T) {
	hash, err := EncodeHash("hunter2-but-longer", DefaultParams)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("unexpected hash format %q", hash)
	}

	ok, err := Verify("hunter2-but-longer", hash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected the correct password to verify")
	}

	ok, err = Verify("wrong-password", hash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected the wrong password to fail")
	}
}

func TestHashesAreSalted(t *testing.T) {
	first, err := EncodeHash("same-password", DefaultParams)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := EncodeHash("same-password", DefaultParams)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Error("expected distinct salts to produce distinct hashes")
	}
}

func TestDecodeHashRejectsGarbage(t *testing.T) {
	if _, _, _, err := DecodeHash("not-a-hash"); !errors.Is(err, ErrInvalidHash) {
		t.Errorf("expected ErrInvalidHash, got %v", err)
	}
}
