package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QRSigner creates and validates session QR payloads. The payload binds a
// stored token id to its checkpoint and expiry so a tampered QR fails
// before any database lookup; the authoritative use-count check still
// happens against the stored row.
type QRSigner struct {
	secret []byte
}

// NewQRSigner constructs a signer with the provided secret.
func NewQRSigner(secret string) *QRSigner {
	return &QRSigner{secret: []byte(secret)}
}

// Generate returns the signed QR payload for a token.
func (s *QRSigner) Generate(tokenID, checkpointID string, expiresAt time.Time) (string, error) {
	if tokenID == "" || checkpointID == "" {
		return "", fmt.Errorf("tokenID and checkpointID required")
	}
	if len(s.secret) == 0 {
		return "", fmt.Errorf("signing secret missing")
	}
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	sig := s.sign(tokenID, checkpointID, ts)
	return strings.Join([]string{tokenID, checkpointID, ts, sig}, "."), nil
}

// Parse validates a QR payload and returns the embedded token and
// checkpoint ids. Expiry here is advisory; the stored row is authoritative.
func (s *QRSigner) Parse(payload string) (tokenID, checkpointID string, expiresAt time.Time, err error) {
	parts := strings.Split(payload, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, fmt.Errorf("invalid qr payload format")
	}
	tokenID, checkpointID, ts, sig := parts[0], parts[1], parts[2], parts[3]

	expected := s.sign(tokenID, checkpointID, ts)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return "", "", time.Time{}, fmt.Errorf("invalid qr payload signature")
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("invalid qr payload timestamp")
	}
	return tokenID, checkpointID, time.Unix(unix, 0), nil
}

func (s *QRSigner) sign(tokenID, checkpointID, ts string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(tokenID + "|" + checkpointID + "|" + ts))
	return hex.EncodeToString(mac.Sum(nil))
}
