package security

import (
	"strings"
	"testing"
)

func testArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T) *Argon2Hasher {
	t.Helper()
	hasher, err := NewArgon2Hasher(testArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}
	return hasher
}

func TestArgon2Hasher_HashAndVerify(t *testing.T) {
	hasher := newTestHasher(t)
	password := "correct horse battery staple"

	encoded, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		t.Fatalf("unexpected hash format: %q", encoded)
	}
	if parts[0] != argon2Variant || parts[1] != argon2Version {
		t.Fatalf("unexpected variant/version: %s %s", parts[0], parts[1])
	}
	if parts[2] != "m=8192,t=1,p=1" {
		t.Fatalf("unexpected params segment: %s", parts[2])
	}

	ok, err := hasher.Verify(password, encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("Verify returned false for correct password")
	}

	ok, err = hasher.Verify("wrong password", encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatal("Verify returned true for wrong password")
	}
}

func TestArgon2Hasher_SaltsAreRandom(t *testing.T) {
	hasher := newTestHasher(t)

	first, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	second, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct encodings for the same password")
	}
}

func TestArgon2Hasher_VerifyMalformedHash(t *testing.T) {
	hasher := newTestHasher(t)

	for _, encoded := range []string{
		"not-a-hash",
		"bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"argon2id$v=19$m=8192,t=1$c2FsdA$aGFzaA",
		"argon2id$v=19$m=8192,t=1,p=1$***$aGFzaA",
	} {
		if _, err := hasher.Verify("password", encoded); err == nil {
			t.Fatalf("expected error for %q", encoded)
		}
	}
}

func TestArgon2Hasher_VerifyEmptyInputs(t *testing.T) {
	hasher := newTestHasher(t)

	if ok, err := hasher.Verify("", "argon2id$whatever"); ok || err != nil {
		t.Fatalf("expected false/nil for empty password, got %v/%v", ok, err)
	}
}

func TestArgon2Hasher_NeedsRehash(t *testing.T) {
	weak := newTestHasher(t)
	encoded, err := weak.Hash("password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	strong, err := NewArgon2Hasher(DefaultArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}
	if !strong.NeedsRehash(encoded) {
		t.Fatal("expected weaker hash to need rehash")
	}
	if weak.NeedsRehash(encoded) {
		t.Fatal("expected hash with active params to be current")
	}
}

func TestNewArgon2Hasher_RejectsWeakConfig(t *testing.T) {
	cfg := testArgon2Config()
	cfg.Memory = 1024
	if _, err := NewArgon2Hasher(cfg); err == nil {
		t.Fatal("expected error for insufficient memory")
	}
}
