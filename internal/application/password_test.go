package application

import (
	"errors"
	"strings"
	"testing"
)

// Small parameters keep the derivation fast; the encoded form still round-trips.
var testArgon2idParams = Argon2idParams{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func TestPasswordHashRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := CreatePasswordHash("s3cret-passphrase", testArgon2idParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash format: %q", hash)
	}

	if err := VerifyPassword(hash, "s3cret-passphrase"); err != nil {
		t.Fatalf("expected matching password to verify, got %v", err)
	}
	if err := VerifyPassword(hash, "wrong-passphrase"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestPasswordHashesAreSalted(t *testing.T) {
	t.Parallel()

	first, err := CreatePasswordHash("same-password", testArgon2idParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash returned error: %v", err)
	}
	second, err := CreatePasswordHash("same-password", testArgon2idParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash returned error: %v", err)
	}
	if first == second {
		t.Fatalf("identical passwords must not share a hash")
	}
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hash string
		want error
	}{
		{
			name: "missing sections",
			hash: "$argon2id$v=19$broken",
			want: ErrInvalidPasswordHash,
		},
		{
			name: "unknown algorithm",
			hash: "$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
			want: ErrInvalidPasswordHash,
		},
		{
			name: "incompatible version",
			hash: "$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA",
			want: ErrIncompatiblePasswordVersion,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if err := VerifyPassword(tc.hash, "whatever"); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
