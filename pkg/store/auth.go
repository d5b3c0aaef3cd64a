package store

import (
	"context"
	"fmt"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
	"github.com/Luis-avalos1/TaskFlow/pkg/api/client"
)

// AuthAPI is the subset of the API client the auth store drives.
type AuthAPI interface {
	Register(ctx context.Context, input client.RegisterInput) (client.Session, error)
	Login(ctx context.Context, email, password string) (client.Session, error)
	Refresh(ctx context.Context, refreshToken string) (client.TokenPair, error)
	Logout(ctx context.Context, token, refreshToken string) error
	Profile(ctx context.Context, token string) (domain.User, error)
}

// AuthState is the signed-in user and their tokens.
type AuthState struct {
	User    *domain.User
	Tokens  client.TokenPair
	Loading bool
	Error   string
}

// Authenticated reports whether a session is present.
func (s AuthState) Authenticated() bool {
	return s.Tokens.AccessToken != ""
}

func authStarted(s AuthState) AuthState {
	s.Loading = true
	s.Error = ""
	return s
}

func authSignedIn(s AuthState, user domain.User, tokens client.TokenPair) AuthState {
	s.User = &user
	s.Tokens = tokens
	s.Loading = false
	return s
}

func authRefreshed(s AuthState, tokens client.TokenPair) AuthState {
	s.Tokens = tokens
	s.Loading = false
	return s
}

func authProfile(s AuthState, user domain.User) AuthState {
	s.User = &user
	s.Loading = false
	return s
}

func authFailed(s AuthState, msg string) AuthState {
	s.Loading = false
	s.Error = msg
	return s
}

func authSignedOut(AuthState) AuthState {
	return AuthState{}
}

// AuthStore owns the session.
type AuthStore struct {
	api     AuthAPI
	persist SessionPersister
	c       *container[AuthState]
}

// NewAuthStore builds a store. A nil persister keeps the session in memory.
func NewAuthStore(api AuthAPI, persist SessionPersister) *AuthStore {
	if persist == nil {
		persist = &MemorySession{}
	}
	return &AuthStore{api: api, persist: persist, c: newContainer(AuthState{})}
}

// Restore loads a previously saved session.
func (s *AuthStore) Restore() error {
	session, err := s.persist.Load()
	if err != nil {
		return err
	}
	s.c.apply(func(st AuthState) AuthState {
		st.User = session.User
		st.Tokens = session.Tokens
		return st
	})
	return nil
}

// State returns a snapshot.
func (s *AuthStore) State() AuthState { return s.c.snapshot() }

// Subscribe registers fn for every state change and returns its cancel func.
func (s *AuthStore) Subscribe(fn func(AuthState)) func() { return s.c.subscribe(fn) }

// AccessToken implements TokenSource.
func (s *AuthStore) AccessToken() string { return s.c.snapshot().Tokens.AccessToken }

// Login signs in and persists the session.
func (s *AuthStore) Login(ctx context.Context, email, password string) error {
	s.c.apply(authStarted)
	session, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.c.apply(func(st AuthState) AuthState { return authFailed(st, displayError(err, "Login failed")) })
		return err
	}
	return s.signIn(session)
}

// Register creates an account and signs it in.
func (s *AuthStore) Register(ctx context.Context, input client.RegisterInput) error {
	s.c.apply(authStarted)
	session, err := s.api.Register(ctx, input)
	if err != nil {
		s.c.apply(func(st AuthState) AuthState { return authFailed(st, displayError(err, "Registration failed")) })
		return err
	}
	return s.signIn(session)
}

func (s *AuthStore) signIn(session client.Session) error {
	st := s.c.apply(func(st AuthState) AuthState { return authSignedIn(st, session.User, session.Tokens) })
	if err := s.persist.Save(Session{User: st.User, Tokens: st.Tokens}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Refresh rotates the token pair. A rejected refresh ends the session.
func (s *AuthStore) Refresh(ctx context.Context) error {
	current := s.c.snapshot()
	if current.Tokens.RefreshToken == "" {
		return ErrNotAuthenticated
	}
	tokens, err := s.api.Refresh(ctx, current.Tokens.RefreshToken)
	if err != nil {
		if client.StatusOf(err) != 0 {
			s.c.apply(authSignedOut)
			_ = s.persist.Clear()
		}
		return err
	}
	st := s.c.apply(func(st AuthState) AuthState { return authRefreshed(st, tokens) })
	if err := s.persist.Save(Session{User: st.User, Tokens: st.Tokens}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Profile reloads the signed-in user.
func (s *AuthStore) Profile(ctx context.Context) error {
	token := s.AccessToken()
	if token == "" {
		return ErrNotAuthenticated
	}
	s.c.apply(authStarted)
	user, err := s.api.Profile(ctx, token)
	if err != nil {
		s.c.apply(func(st AuthState) AuthState { return authFailed(st, displayError(err, "Failed to load profile")) })
		return err
	}
	s.c.apply(func(st AuthState) AuthState { return authProfile(st, user) })
	return nil
}

// Logout clears the local session even when the server call fails; the
// server error is still returned.
func (s *AuthStore) Logout(ctx context.Context) error {
	current := s.c.snapshot()
	var apiErr error
	if current.Authenticated() {
		apiErr = s.api.Logout(ctx, current.Tokens.AccessToken, current.Tokens.RefreshToken)
	}
	s.c.apply(authSignedOut)
	if err := s.persist.Clear(); err != nil {
		return err
	}
	return apiErr
}
