package signin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openshelf/critique/pkg/accounts"
	"github.com/openshelf/critique/pkg/httputil"
)

// codeMACLength is the number of hex characters of the HMAC kept in a code
const codeMACLength = 20

// CodeGenerator derives and verifies confirmation codes.
//
// A code has the form "<window>-<mac>": the sign-in window counter in base36
// and a truncated hex HMAC-SHA256 over the account fingerprint and that
// counter. Verification recomputes the MAC from the account's current state,
// so any state change invalidates codes derived before it.
type CodeGenerator struct {
	secret []byte
	window time.Duration
	now    func() time.Time
}

// NewCodeGenerator creates a code generator. window controls both rotation
// and expiry: a code is accepted during the window it was issued in and the
// one after, so its lifetime is between one and two windows.
func NewCodeGenerator(secret []byte, window time.Duration) *CodeGenerator {
	return &CodeGenerator{
		secret: secret,
		window: window,
		now:    time.Now,
	}
}

// windowCounter quantizes a moment into the rotation counter
func (g *CodeGenerator) windowCounter(t time.Time) int64 {
	return t.Unix() / int64(g.window/time.Second)
}

// fingerprint captures the account state a code is bound to. Role and the
// login timestamp are included deliberately: a role change or a completed
// sign-in must orphan every previously derived code.
func (g *CodeGenerator) fingerprint(a *accounts.Account) string {
	var lastLogin int64
	if a.LastLoginAt != nil {
		lastLogin = a.LastLoginAt.Unix()
	}
	return fmt.Sprintf("%d|%s|%s|%s|%t|%d",
		a.ID, a.Username, a.Email, a.Role, a.Superuser, lastLogin)
}

func (g *CodeGenerator) mac(a *accounts.Account, counter int64) string {
	h := hmac.New(sha256.New, g.secret)
	fmt.Fprintf(h, "%s|%d", g.fingerprint(a), counter)
	return hex.EncodeToString(h.Sum(nil))[:codeMACLength]
}

// Generate derives the confirmation code for the account's current state in
// the current window
func (g *CodeGenerator) Generate(a *accounts.Account) string {
	counter := g.windowCounter(g.now())
	return strconv.FormatInt(counter, 36) + "-" + g.mac(a, counter)
}

// Verify checks a code against the account's current state. Expired, stale
// and malformed codes all fail with a validation error; the account's
// existence is the caller's concern.
func (g *CodeGenerator) Verify(a *accounts.Account, code string) error {
	counterPart, macPart, ok := strings.Cut(code, "-")
	if !ok {
		return httputil.NewValidationError("confirmation code is malformed")
	}

	counter, err := strconv.ParseInt(counterPart, 36, 64)
	if err != nil {
		return httputil.NewValidationError("confirmation code is malformed")
	}

	current := g.windowCounter(g.now())
	if counter > current || current-counter > 1 {
		return httputil.NewValidationError("confirmation code has expired")
	}

	expected := g.mac(a, counter)
	if !hmac.Equal([]byte(expected), []byte(macPart)) {
		return httputil.NewValidationError("confirmation code is invalid")
	}
	return nil
}
