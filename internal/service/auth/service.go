package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chating-app/chating/client/internal/model/account"
	"github.com/chating-app/chating/client/internal/service/api"
)

// Client is the slice of api.Client the auth service needs.
type Client interface {
	DoJSON(ctx context.Context, method string, in, out any, segments ...string) error
}

// Service 账号服务：登录与注册
type Service struct {
	client Client
	now    func() time.Time
}

// NewService wraps the backend client.
func NewService(client Client) *Service {
	return &Service{client: client, now: time.Now}
}

type credentials struct {
	Name     string `json:"name,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks credentials with the backend and returns the established
// identity. Nothing is sent when either field is blank.
func (s *Service) Login(ctx context.Context, username, password string) (account.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return account.Profile{}, api.Required("username")
	}
	if password == "" {
		return account.Profile{}, api.Required("password")
	}

	var resp struct {
		Username string `json:"username"`
		Name     string `json:"name"`
	}
	in := credentials{Username: username, Password: password}
	if err := s.client.DoJSON(ctx, http.MethodPost, in, &resp, "login"); err != nil {
		return account.Profile{}, fmt.Errorf("login %s: %w", username, err)
	}

	profile := account.Profile{
		Username:   username,
		Name:       resp.Name,
		LoggedInAt: s.now().UTC(),
	}
	if resp.Username != "" {
		profile.Username = resp.Username
	}

	log.Info().Str("user", profile.Username).Msg("[auth] logged in")
	return profile, nil
}

// Register creates an account. All three fields are required.
func (s *Service) Register(ctx context.Context, name, username, password string) error {
	name = strings.TrimSpace(name)
	username = strings.TrimSpace(username)
	switch {
	case name == "":
		return api.Required("name")
	case username == "":
		return api.Required("username")
	case password == "":
		return api.Required("password")
	}

	in := credentials{Name: name, Username: username, Password: password}
	if err := s.client.DoJSON(ctx, http.MethodPost, in, nil, "register"); err != nil {
		return fmt.Errorf("register %s: %w", username, err)
	}

	log.Info().Str("user", username).Msg("[auth] registered")
	return nil
}
