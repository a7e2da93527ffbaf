package share

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const grantAudience = "transfer-download"

// GrantClaims identify a viewer that passed the gate for one transfer.
type GrantClaims struct {
	TransferID  string `json:"tid"`
	RecipientID string `json:"rid,omitempty"`
	jwt.RegisteredClaims
}

// Recipient returns the recipient id carried by the grant, if any.
func (c *GrantClaims) Recipient() *uuid.UUID {
	if c.RecipientID == "" {
		return nil
	}
	id, err := uuid.Parse(c.RecipientID)
	if err != nil {
		return nil
	}
	return &id
}

// GrantIssuer signs short-lived download grants handed out after a
// successful verify.
type GrantIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  Clock
}

func NewGrantIssuer(secret string, ttl time.Duration, clock Clock) *GrantIssuer {
	return &GrantIssuer{secret: []byte(secret), ttl: ttl, clock: clock}
}

func (g *GrantIssuer) Issue(transferID string, recipientID *uuid.UUID) (string, time.Time, error) {
	now := g.clock.Now()
	expires := now.Add(g.ttl)
	claims := GrantClaims{
		TransferID: transferID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   transferID,
			Audience:  jwt.ClaimStrings{grantAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	if recipientID != nil {
		claims.RecipientID = recipientID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing grant: %w", err)
	}
	return signed, expires, nil
}

// Parse validates a grant and checks that it was issued for transferID.
func (g *GrantIssuer) Parse(token, transferID string) (*GrantClaims, error) {
	if token == "" {
		return nil, ErrInvalidGrant
	}

	claims := &GrantClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return g.secret, nil
	},
		jwt.WithAudience(grantAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.clock.Now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidGrant, err)
	}
	if claims.TransferID != transferID {
		return nil, ErrInvalidGrant
	}
	return claims, nil
}
