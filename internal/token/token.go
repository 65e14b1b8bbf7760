// Package token issues and verifies the signed strings embedded in
// assignment accept/decline email links.  A token authorizes exactly
// one action on one assignment for 24 hours; nothing is stored server
// side, so a replayed link is only stopped by the status guard.
package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Actions a token can authorize.
const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

// TTL is how long an issued token stays valid.
const TTL = 24 * time.Hour

// ErrInvalid is returned for any token that cannot be trusted: bad
// signature, malformed payload, action mismatch or expiry.  Callers
// render the same "link expired" page for all of them.
var ErrInvalid = errors.New("invalid or expired token")

// Signer signs and verifies link tokens with HMAC-SHA256.
type Signer struct {
	secret []byte
	now    func() time.Time // stubbed in tests
}

// NewSigner returns a Signer keyed with the given secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Issue builds a token for one action on one assignment.  The payload
// is "id:action:timestamp:nonce"; the returned string is the base64url
// payload and signature joined with a dot, safe to place in a URL path.
func (s *Signer) Issue(assignmentID uint64, action string) (string, error) {
	nonce := make([]byte, 8)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	payload := fmt.Sprintf("%d:%s:%d:%s",
		assignmentID, action, s.now().UTC().Unix(), hex.EncodeToString(nonce))
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(payload)) + "." + enc.EncodeToString(s.sign(payload)), nil
}

// Verify checks the signature, action and age of a token and returns
// the assignment id it was issued for.  Any malformed input yields
// ErrInvalid; Verify never panics on attacker-controlled strings.
func (s *Signer) Verify(tok, expectedAction string) (uint64, error) {
	dot := strings.IndexByte(tok, '.')
	if dot <= 0 || dot == len(tok)-1 {
		return 0, ErrInvalid
	}
	enc := base64.RawURLEncoding
	payload, err := enc.DecodeString(tok[:dot])
	if err != nil {
		return 0, ErrInvalid
	}
	sig, err := enc.DecodeString(tok[dot+1:])
	if err != nil {
		return 0, ErrInvalid
	}
	if !hmac.Equal(sig, s.sign(string(payload))) {
		return 0, ErrInvalid
	}

	// Payload must split into exactly id, action, timestamp, nonce.
	parts := strings.Split(string(payload), ":")
	if len(parts) != 4 {
		return 0, ErrInvalid
	}
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalid
	}
	if parts[1] != expectedAction {
		return 0, ErrInvalid
	}
	issued, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, ErrInvalid
	}
	if s.now().UTC().Sub(time.Unix(issued, 0)) > TTL {
		return 0, ErrInvalid
	}
	return id, nil
}

func (s *Signer) sign(payload string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
