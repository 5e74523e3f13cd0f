// Package auth turns configured push credentials into go-git transport auth methods.
package auth

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"git.home.luguber.info/inful/docpublish/internal/config"
)

// Provider handles one authentication method.
type Provider interface {
	Type() config.AuthType
	// Validate checks that the configuration carries what this method needs.
	Validate(cfg *config.AuthConfig) error
	// Create returns nil, nil when the method needs no credentials.
	Create(cfg *config.AuthConfig) (transport.AuthMethod, error)
}

// Error reports a credential problem. Auth errors are never retried.
type Error struct {
	Type    config.AuthType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth error (%s): %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("auth error (%s): %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Registry maps auth types to providers.
type Registry struct {
	providers map[config.AuthType]Provider
}

// NewRegistry returns a registry holding the none, ssh, token and basic providers.
func NewRegistry() *Registry {
	r := &Registry{providers: make(map[config.AuthType]Provider)}
	r.Register(noneProvider{})
	r.Register(sshProvider{})
	r.Register(tokenProvider{})
	r.Register(basicProvider{})
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(p Provider) { r.providers[p.Type()] = p }

// Create validates cfg and builds the auth method. A nil cfg means no auth.
func (r *Registry) Create(cfg *config.AuthConfig) (transport.AuthMethod, error) {
	if cfg.IsZero() {
		return nil, nil
	}
	p, ok := r.providers[cfg.Type]
	if !ok {
		return nil, &Error{Type: cfg.Type, Message: "unsupported authentication type"}
	}
	if err := p.Validate(cfg); err != nil {
		return nil, &Error{Type: cfg.Type, Message: "configuration validation failed", Cause: err}
	}
	method, err := p.Create(cfg)
	if err != nil {
		return nil, &Error{Type: cfg.Type, Message: "failed to create authentication", Cause: err}
	}
	return method, nil
}

var defaultRegistry = NewRegistry()

// Create uses the default registry.
func Create(cfg *config.AuthConfig) (transport.AuthMethod, error) {
	return defaultRegistry.Create(cfg)
}

type noneProvider struct{}

func (noneProvider) Type() config.AuthType                                   { return config.AuthTypeNone }
func (noneProvider) Validate(*config.AuthConfig) error                       { return nil }
func (noneProvider) Create(*config.AuthConfig) (transport.AuthMethod, error) { return nil, nil }

type sshProvider struct{}

func (sshProvider) Type() config.AuthType { return config.AuthTypeSSH }

func (sshProvider) keyPath(cfg *config.AuthConfig) string {
	if cfg.KeyPath != "" {
		return cfg.KeyPath
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ssh", "id_rsa")
}

func (p sshProvider) Validate(cfg *config.AuthConfig) error {
	if _, err := os.Stat(p.keyPath(cfg)); err != nil {
		return fmt.Errorf("SSH key file not readable: %w", err)
	}
	return nil
}

func (p sshProvider) Create(cfg *config.AuthConfig) (transport.AuthMethod, error) {
	keyPath := p.keyPath(cfg)
	keys, err := ssh.NewPublicKeysFromFile("git", keyPath, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key from %s: %w", keyPath, err)
	}
	return keys, nil
}

type tokenProvider struct{}

func (tokenProvider) Type() config.AuthType { return config.AuthTypeToken }

func (tokenProvider) Validate(cfg *config.AuthConfig) error {
	if cfg.Token == "" {
		return fmt.Errorf("token authentication requires a token")
	}
	return nil
}

func (tokenProvider) Create(cfg *config.AuthConfig) (transport.AuthMethod, error) {
	username := cfg.Username
	if username == "" {
		// Most forges accept any non-empty username alongside a token.
		username = "token"
	}
	return &http.BasicAuth{Username: username, Password: cfg.Token}, nil
}

type basicProvider struct{}

func (basicProvider) Type() config.AuthType { return config.AuthTypeBasic }

func (basicProvider) Validate(cfg *config.AuthConfig) error {
	if cfg.Username == "" {
		return fmt.Errorf("basic authentication requires a username")
	}
	if cfg.Password == "" {
		return fmt.Errorf("basic authentication requires a password")
	}
	return nil
}

func (basicProvider) Create(cfg *config.AuthConfig) (transport.AuthMethod, error) {
	return &http.BasicAuth{Username: cfg.Username, Password: cfg.Password}, nil
}
