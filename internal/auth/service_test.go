package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ariefcatur/factory-orders/internal/apperr"
	"github.com/ariefcatur/factory-orders/internal/docstore"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

func newTestService() *Service {
	s := NewService(docstore.NewMemory(), NewTokens("test-secret", time.Hour))
	s.cost = bcrypt.MinCost
	return s
}

func register(t *testing.T, s *Service) User {
	t.Helper()
	u, err := s.Register(context.Background(), RegisterInput{
		Name: "Lucia", Surname: "Paz", Email: "Lucia@Example.com", Role: "VENDEDOR", Password: "s3cret",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return u
}

func TestRegister(t *testing.T) {
	s := newTestService()
	u := register(t, s)

	if u.ID == "" || u.Email != "lucia@example.com" {
		t.Errorf("unexpected user: %+v", u)
	}
	if u.PasswordHash != "" {
		t.Error("registered user must not expose the password hash")
	}

	stored, _ := docstore.Get[User](context.Background(), s.store, docstore.Users, u.ID)
	if stored.PasswordHash == "" || stored.PasswordHash == "s3cret" {
		t.Errorf("expected bcrypt hash, got %q", stored.PasswordHash)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	s := newTestService()
	register(t, s)
	_, err := s.Register(context.Background(), RegisterInput{
		Name: "L", Surname: "P", Email: "lucia@example.com", Role: "VENDEDOR", Password: "x",
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	s := newTestService()
	_, err := s.Register(context.Background(), RegisterInput{Email: "a@b.c"})
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("expected invalid, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	s := newTestService()
	u := register(t, s)
	ctx := context.Background()

	token, err := s.Authenticate(ctx, Credentials{Email: "lucia@example.com", Password: "s3cret"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	actor, err := s.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if actor.ID != u.ID || actor.Role != "VENDEDOR" || actor.Email != u.Email {
		t.Errorf("unexpected actor: %+v", actor)
	}

	if _, err := s.Authenticate(ctx, Credentials{Email: "lucia@example.com", Password: "wrong"}); !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("wrong password: expected auth failure, got %v", err)
	}
	if _, err := s.Authenticate(ctx, Credentials{Email: "nobody@example.com", Password: "s3cret"}); !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("unknown email: expected auth failure, got %v", err)
	}
}

func TestTokens_Expired(t *testing.T) {
	tokens := NewTokens("k", time.Minute)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }
	tok, err := tokens.Issue(Actor{ID: "u1", Role: "VENDEDOR"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := tokens.Parse(tok); !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("expected expired token to fail, got %v", err)
	}
}

func TestTokens_WrongSecretOrAlg(t *testing.T) {
	tok, _ := NewTokens("k1", time.Hour).Issue(Actor{ID: "u1"})
	if _, err := NewTokens("k2", time.Hour).Parse(tok); !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("expected signature failure, got %v", err)
	}

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": "u1", "sub": "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := NewTokens("k1", time.Hour).Parse(none); !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("expected alg none to be rejected, got %v", err)
	}
	if _, err := NewTokens("k1", time.Hour).Parse(strings.Repeat("x", 20)); !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("expected garbage to be rejected, got %v", err)
	}
}

func TestActorContext(t *testing.T) {
	if _, ok := ActorFrom(context.Background()); ok {
		t.Error("empty context must not carry an actor")
	}
	ctx := WithActor(context.Background(), Actor{ID: "u1"})
	a, ok := ActorFrom(ctx)
	if !ok || a.ID != "u1" {
		t.Errorf("ActorFrom = %+v, %v", a, ok)
	}
}
