package oauth

import "golang.org/x/oauth2"

// PkceChallenge is the ephemeral verifier/challenge pair for one login
// attempt (§3, §4.8 step 2).
type PkceChallenge struct {
	Verifier  string
	Challenge string
}

// GeneratePKCE produces a fresh verifier (43-char base64url of 32 random
// bytes) and its S256 challenge, delegating the primitives to
// golang.org/x/oauth2 rather than hand-rolling base64/sha256 (testable
// property 9).
func GeneratePKCE() PkceChallenge {
	verifier := oauth2.GenerateVerifier()
	return PkceChallenge{
		Verifier:  verifier,
		Challenge: oauth2.S256ChallengeFromVerifier(verifier),
	}
}
