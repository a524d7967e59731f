package auth

import (
	"context"
	"time"

	"github.com/ariefcatur/factory-orders/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Actor is the authenticated identity a workflow acts as.
type Actor struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Role    string `json:"role"`
}

func ActorOf(u User) Actor {
	return Actor{ID: u.ID, Email: u.Email, Name: u.Name, Surname: u.Surname, Role: u.Role}
}

type claims struct {
	Actor
	jwt.RegisteredClaims
}

type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(a Actor) (string, error) {
	now := t.now()
	c := claims{
		Actor: a,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	return signed, errors.Wrap(err, "sign token")
}

func (t *Tokens) Parse(token string) (Actor, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return Actor{}, errors.Wrap(apperr.ErrAuth, err.Error())
	}
	if c.Actor.ID == "" || c.Actor.ID != c.Subject {
		return Actor{}, errors.Wrap(apperr.ErrAuth, "token subject mismatch")
	}
	return c.Actor, nil
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
