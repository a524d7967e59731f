// Package auth registers users, checks credentials and issues the signed tokens the API
// turns into an Actor for every request.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/ariefcatur/factory-orders/internal/apperr"
	"github.com/ariefcatur/factory-orders/internal/docstore"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"password_hash,omitempty"`
	Created      time.Time `json:"created"`
}

// Public drops the password hash.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

type RegisterInput struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Service struct {
	store  docstore.Store
	tokens *Tokens
	cost   int
	now    func() time.Time
}

func NewService(store docstore.Store, tokens *Tokens) *Service {
	return &Service{store: store, tokens: tokens, cost: bcrypt.DefaultCost, now: time.Now}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Name == "" || in.Surname == "" || in.Email == "" || in.Role == "" || in.Password == "" {
		return User{}, apperr.Invalid("name, surname, email, role and password are required")
	}

	if _, err := docstore.One[User](ctx, s.store, docstore.Users, docstore.Filter{"email": in.Email}); err == nil {
		return User{}, apperr.Conflict("user %s is already registered", in.Email)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, errors.Wrap(err, "hash password")
	}
	u := User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Surname:      in.Surname,
		Email:        in.Email,
		Role:         in.Role,
		PasswordHash: string(hash),
		Created:      s.now().UTC(),
	}
	if err := s.store.Insert(ctx, docstore.Users, u.ID, u); err != nil {
		return User{}, err
	}
	log.Ctx(ctx).Info().Str("user_id", u.ID).Str("role", u.Role).Msg("user registered")
	return u.Public(), nil
}

// Authenticate answers the same ErrAuth for an unknown email and a wrong password.
func (s *Service) Authenticate(ctx context.Context, c Credentials) (string, error) {
	email := strings.TrimSpace(strings.ToLower(c.Email))
	u, err := docstore.One[User](ctx, s.store, docstore.Users, docstore.Filter{"email": email})
	if errors.Is(err, apperr.ErrNotFound) {
		return "", errors.Wrap(apperr.ErrAuth, "invalid email or password")
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(c.Password)); err != nil {
		log.Ctx(ctx).Info().Str("user_id", u.ID).Msg("password mismatch")
		return "", errors.Wrap(apperr.ErrAuth, "invalid email or password")
	}
	return s.tokens.Issue(ActorOf(u))
}

// Verify turns a bearer token into the request's actor.
func (s *Service) Verify(token string) (Actor, error) {
	return s.tokens.Parse(token)
}
