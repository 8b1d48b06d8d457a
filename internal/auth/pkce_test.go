package auth

import (
	"strings"
	"testing"
)

func TestGenerateVerifier_Length(t *testing.T) {
	for _, length := range []int{1, 43, 64, 128} {
		verifier, err := GenerateVerifier(length)
		if err != nil {
			t.Fatalf("GenerateVerifier(%d) error = %v", length, err)
		}
		if len(verifier) != length {
			t.Errorf("GenerateVerifier(%d) length = %d, want %d", length, len(verifier), length)
		}
	}
}

func TestGenerateVerifier_Alphabet(t *testing.T) {
	verifier, err := GenerateVerifier(256)
	if err != nil {
		t.Fatalf("GenerateVerifier() error = %v", err)
	}

	for i, c := range verifier {
		if !strings.ContainsRune(verifierAlphabet, c) {
			t.Errorf("verifier[%d] = %q, not in allowed alphabet", i, c)
		}
	}
}

func TestGenerateVerifier_InvalidLength(t *testing.T) {
	if _, err := GenerateVerifier(0); err == nil {
		t.Error("GenerateVerifier(0) should return error")
	}
}

func TestGenerateVerifier_Randomness(t *testing.T) {
	a, err := GenerateVerifier(64)
	if err != nil {
		t.Fatalf("GenerateVerifier() error = %v", err)
	}
	b, err := GenerateVerifier(64)
	if err != nil {
		t.Fatalf("GenerateVerifier() error = %v", err)
	}
	if a == b {
		t.Error("GenerateVerifier() returned same value twice")
	}
}

func TestGenerateChallenge(t *testing.T) {
	tests := []struct {
		name     string
		verifier string
		want     string
	}{
		{
			// Vector from RFC 7636 appendix B.
			name:     "rfc 7636 vector",
			verifier: "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk",
			want:     "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		},
		{
			name:     "fixed verifier",
			verifier: "friendify-test-verifier",
			want:     "snXKvhwcJbEipmkMOU4VixwveT_d2aRe7r-3OJjown4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateChallenge(tt.verifier)
			if got != tt.want {
				t.Errorf("GenerateChallenge() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateChallenge_Deterministic(t *testing.T) {
	verifier, err := GenerateVerifier(128)
	if err != nil {
		t.Fatalf("GenerateVerifier() error = %v", err)
	}

	first := GenerateChallenge(verifier)
	second := GenerateChallenge(verifier)
	if first != second {
		t.Errorf("GenerateChallenge() not deterministic: %q != %q", first, second)
	}

	if strings.ContainsAny(first, "+/=") {
		t.Errorf("challenge %q contains non-URL-safe characters", first)
	}
}

func TestGenerateState(t *testing.T) {
	state1, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}

	if len(state1) != 32 { // 16 bytes = 32 hex chars
		t.Errorf("GenerateState() length = %d, want 32", len(state1))
	}

	state2, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}

	if state1 == state2 {
		t.Error("GenerateState() returned same value twice")
	}
}

func TestAuthURL_ContainsChallenge(t *testing.T) {
	a := New("client-id", "client-secret", "http://127.0.0.1:8080/callback")

	url := a.AuthURL("test-state", "test-challenge")
	for _, want := range []string{
		"code_challenge=test-challenge",
		"code_challenge_method=S256",
		"state=test-state",
	} {
		if !strings.Contains(url, want) {
			t.Errorf("AuthURL() = %q, missing %q", url, want)
		}
	}
}
