package protocol

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"
)

// Signer attaches an authenticated identity to outgoing requests. Real
// wallet-based signing lives outside this repo; implementations adapt
// whatever key scheme the deployment uses to these two methods.
type Signer interface {
	// Hotkey returns the validator's identity carried in request payloads.
	Hotkey() string
	// Authenticate adds auth headers to the request.
	Authenticate(req *http.Request) error
}

// AuthMessage is the canonical message signed for a request issued at the
// given unix timestamp. Both sides must derive it identically.
func AuthMessage(timestamp int64) string {
	return fmt.Sprintf("talisman-ai-auth:%d", timestamp)
}

// HMACSigner authenticates with an HMAC-SHA256 over the canonical auth
// message using a shared secret. This is the simple deployment mode; the
// signature-based mode plugs in the same way.
type HMACSigner struct {
	hotkey string
	secret []byte
	now    func() time.Time
}

// NewHMACSigner creates a shared-secret signer for the given identity.
func NewHMACSigner(hotkey, secret string) *HMACSigner {
	return &HMACSigner{hotkey: hotkey, secret: []byte(secret), now: time.Now}
}

func (s *HMACSigner) Hotkey() string { return s.hotkey }

// Authenticate sets the X-Auth-* headers on the request.
func (s *HMACSigner) Authenticate(req *http.Request) error {
	timestamp := s.now().Unix()
	message := AuthMessage(timestamp)

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(message))
	signature := hex.EncodeToString(mac.Sum(nil))

	req.Header.Set("X-Auth-Hotkey", s.hotkey)
	req.Header.Set("X-Auth-Timestamp", fmt.Sprintf("%d", timestamp))
	req.Header.Set("X-Auth-Message", message)
	req.Header.Set("X-Auth-Signature", signature)
	return nil
}
