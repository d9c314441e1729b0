package auth

import (
	"context"
	"sync"
)

// FakeClient is a test implementation of Client
type FakeClient struct {
	mu        sync.Mutex
	Passwords map[string]string // keyed by email
	Users     map[string]*User  // keyed by access token
	Invites   []Invite
	InviteErr error
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		Passwords: make(map[string]string),
		Users:     make(map[string]*User),
	}
}

// AddUser registers a user that signs in with email and password and is
// then known under accessToken.
func (c *FakeClient) AddUser(accessToken, password string, u *User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Passwords[u.Email] = password
	c.Users[accessToken] = u
}

func (c *FakeClient) SignInWithPassword(_ context.Context, email, password string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pw, ok := c.Passwords[email]; !ok || pw != password {
		return nil, ErrInvalidCredentials
	}
	for token, u := range c.Users {
		if u.Email == email {
			return &Session{AccessToken: token, TokenType: "bearer", ExpiresIn: 3600, User: *u}, nil
		}
	}
	return nil, ErrInvalidCredentials
}

func (c *FakeClient) GetUser(_ context.Context, accessToken string) (*User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u, ok := c.Users[accessToken]; ok {
		return u, nil
	}
	return nil, ErrUnauthorized
}

func (c *FakeClient) SignOut(_ context.Context, accessToken string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Users, accessToken)
	return nil
}

func (c *FakeClient) InviteByMagicLink(_ context.Context, inv Invite) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.InviteErr != nil {
		return c.InviteErr
	}
	c.Invites = append(c.Invites, inv)
	return nil
}

// Sent returns the invitations delivered so far.
func (c *FakeClient) Sent() []Invite {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Invite(nil), c.Invites...)
}
