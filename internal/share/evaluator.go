package share

import (
	"strings"
	"time"

	"github.com/rohits-web03/sharegate/internal/models"
)

// Credentials are what a viewer supplies at the gate. Empty means absent.
type Credentials struct {
	Passcode string
	Email    string
}

func (c Credentials) normalizedEmail() string {
	return normalizeEmail(c.Email)
}

// Decision is the outcome of evaluating a request against a transfer.
type Decision struct {
	Allowed bool
	Reason  Reason

	// Expire is set when an ACTIVE transfer was found past its expiry and
	// must be moved to EXPIRED before the denial is returned.
	Expire bool

	// LogBlocked is set when a wrong passcode was presented. Guesses are
	// audited, missing passcodes are not.
	LogBlocked bool
}

func allow() Decision { return Decision{Allowed: true} }

func deny(r Reason) Decision { return Decision{Reason: r} }

// Evaluator decides whether a view request is granted. It performs no I/O
// and never mutates the transfer; callers apply the side effects.
type Evaluator struct {
	hasher Hasher
}

func NewEvaluator(hasher Hasher) *Evaluator {
	return &Evaluator{hasher: hasher}
}

// Gate runs the credential-independent checks: status, expiry and the
// download cap. It is shared by the public preview and Evaluate.
func (e *Evaluator) Gate(t *models.Transfer, now time.Time) Decision {
	switch t.Status {
	case models.TransferStatusActive:
	case models.TransferStatusExpired:
		return deny(ReasonLinkExpired)
	default:
		return deny(ReasonLinkInactive)
	}

	if t.PastExpiry(now) {
		d := deny(ReasonLinkExpired)
		d.Expire = true
		return d
	}

	if t.LimitReached() {
		return deny(ReasonDownloadLimitReached)
	}

	return allow()
}

// Evaluate applies the checks in order and stops at the first failure:
// status/expiry, download cap, passcode, email gate.
func (e *Evaluator) Evaluate(t *models.Transfer, creds Credentials, now time.Time) Decision {
	if d := e.Gate(t, now); !d.Allowed {
		return d
	}

	if t.HasPasscode() {
		if creds.Passcode == "" {
			return deny(ReasonPasscodeRequired)
		}
		if !e.hasher.Verify(creds.Passcode, *t.PasscodeHash) {
			d := deny(ReasonInvalidPasscode)
			d.LogBlocked = true
			return d
		}
	}

	if t.RequiresEmail() && creds.normalizedEmail() == "" {
		return deny(ReasonEmailRequired)
	}

	return allow()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
