package token

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	s := NewSigner("test-secret")
	tok, err := s.Issue(91, ActionAccept)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	id, err := s.Verify(tok, ActionAccept)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id != 91 {
		t.Errorf("Verify returned id %d, want 91", id)
	}
}

func TestActionMismatchRejected(t *testing.T) {
	s := NewSigner("test-secret")
	tok, err := s.Issue(5, ActionAccept)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	// Signature is valid; the action check alone must reject it.
	if _, err := s.Verify(tok, ActionDecline); err != ErrInvalid {
		t.Errorf("accept token verified as decline: err=%v", err)
	}
}

func TestExpiryBoundary(t *testing.T) {
	issued := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewSigner("test-secret")
	s.now = func() time.Time { return issued }
	tok, err := s.Issue(12, ActionDecline)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Valid right up to 24h, invalid at any point after.
	cases := []struct {
		at      time.Time
		wantErr bool
	}{
		{issued, false},
		{issued.Add(23 * time.Hour), false},
		{issued.Add(TTL), false},
		{issued.Add(TTL + time.Second), true},
		{issued.Add(48 * time.Hour), true},
	}
	for _, tc := range cases {
		s.now = func() time.Time { return tc.at }
		_, err := s.Verify(tok, ActionDecline)
		if gotErr := err != nil; gotErr != tc.wantErr {
			t.Errorf("Verify at +%s: err=%v, wantErr=%v", tc.at.Sub(issued), err, tc.wantErr)
		}
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	s := NewSigner("test-secret")
	tok, err := s.Issue(31, ActionAccept)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Re-encode the payload with a different assignment id but keep the
	// original signature.
	dot := strings.IndexByte(tok, '.')
	forged := base64.RawURLEncoding.EncodeToString([]byte("32:accept:1:abcd")) + tok[dot:]
	if _, err := s.Verify(forged, ActionAccept); err != ErrInvalid {
		t.Errorf("forged payload accepted: err=%v", err)
	}

	// Different signing key.
	other := NewSigner("other-secret")
	if _, err := other.Verify(tok, ActionAccept); err != ErrInvalid {
		t.Errorf("token verified under wrong key: err=%v", err)
	}
}

func TestMalformedInputs(t *testing.T) {
	s := NewSigner("test-secret")
	enc := base64.RawURLEncoding
	signedGarbage := func(payload string) string {
		return enc.EncodeToString([]byte(payload)) + "." + enc.EncodeToString(s.sign(payload))
	}
	inputs := []string{
		"",
		".",
		"no-dot-here",
		"!!!.!!!",
		enc.EncodeToString([]byte("1:accept:99")) + ".sig", // bad signature encoding is fine too
		signedGarbage("1:accept:99"),                        // 3 parts
		signedGarbage("1:accept:99:nonce:extra"),            // 5 parts
		signedGarbage("x:accept:99:nonce"),                  // non-numeric id
		signedGarbage("0:accept:99:nonce"),                  // zero id
		signedGarbage("1:accept:not-a-ts:nonce"),            // non-numeric timestamp
	}
	for _, in := range inputs {
		if _, err := s.Verify(in, ActionAccept); err != ErrInvalid {
			t.Errorf("Verify(%q) err=%v, want ErrInvalid", in, err)
		}
	}
}
