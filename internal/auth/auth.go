// Package auth resolves bearer tokens to principals and enforces roles.
package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownRole is returned when a login names a role with no token.
	ErrUnknownRole = errors.New("unknown role")
	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned for a token not in the directory.
	ErrInvalidToken = errors.New("invalid token")
	// ErrForbidden is returned when a principal lacks the required role.
	ErrForbidden = errors.New("forbidden")
)

// Role is a coarse permission level.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleAnalyst Role = "Analyst"
	RoleViewer  Role = "Viewer"
)

// Role sets used by route guards.
var (
	Readers = []Role{RoleAdmin, RoleAnalyst, RoleViewer}
	Writers = []Role{RoleAdmin, RoleAnalyst}
	Admins  = []Role{RoleAdmin}
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch Role(strings.TrimSpace(s)) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleAnalyst:
		return RoleAnalyst, nil
	case RoleViewer:
		return RoleViewer, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Principal is the caller behind a token.
type Principal struct {
	User string `json:"user" yaml:"user" mapstructure:"user"`
	Role Role   `json:"role" yaml:"role" mapstructure:"role"`
}

// Can reports whether p holds one of roles.
func (p Principal) Can(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// Directory maps tokens to principals.
type Directory struct {
	tokens map[string]Principal
}

// DefaultTokens are the demonstration credentials.
func DefaultTokens() map[string]Principal {
	return map[string]Principal{
		"admin-token":   {User: "alice", Role: RoleAdmin},
		"analyst-token": {User: "bob", Role: RoleAnalyst},
		"viewer-token":  {User: "cathy", Role: RoleViewer},
	}
}

// NewDirectory copies tokens into a Directory, rejecting unknown roles.
func NewDirectory(tokens map[string]Principal) (*Directory, error) {
	d := &Directory{tokens: make(map[string]Principal, len(tokens))}
	for tok, p := range tokens {
		if strings.TrimSpace(tok) == "" {
			return nil, fmt.Errorf("token for user %q cannot be empty", p.User)
		}
		if _, err := ParseRole(string(p.Role)); err != nil {
			return nil, fmt.Errorf("token for user %q: %w", p.User, err)
		}
		d.tokens[tok] = p
	}
	return d, nil
}

// Lookup resolves a raw token.
func (d *Directory) Lookup(token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, ErrMissingToken
	}
	p, ok := d.tokens[token]
	if !ok {
		return Principal{}, ErrInvalidToken
	}
	return p, nil
}

// FromHeader resolves an Authorization header of the form "Bearer <token>".
func (d *Directory) FromHeader(header string) (Principal, error) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return Principal{}, ErrMissingToken
	}
	return d.Lookup(token)
}

// Login returns a token carrying role, issued to username. Tokens are
// searched in sorted order so the result is stable.
func (d *Directory) Login(username, role string) (string, Principal, error) {
	r, err := ParseRole(role)
	if err != nil {
		return "", Principal{}, err
	}
	toks := make([]string, 0, len(d.tokens))
	for tok := range d.tokens {
		toks = append(toks, tok)
	}
	sort.Strings(toks)
	for _, tok := range toks {
		if d.tokens[tok].Role == r {
			return tok, Principal{User: username, Role: r}, nil
		}
	}
	return "", Principal{}, fmt.Errorf("%w: no token for %s", ErrUnknownRole, r)
}

// Require returns ErrForbidden unless p holds one of roles.
func Require(p Principal, roles ...Role) error {
	if p.Can(roles...) {
		return nil
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return fmt.Errorf("%w: requires role: %s", ErrForbidden, strings.Join(names, ", "))
}
