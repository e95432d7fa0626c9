package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/maxdollinger/amethyst/pkg/codec"
)

// Scheme is the authorization scheme a token is presented with.
type Scheme string

const (
	SchemeBearer Scheme = "Bearer"
	SchemeJWT    Scheme = "JWT"
)

// Token is a short-lived pull credential. It is never persisted.
type Token struct {
	Scheme Scheme
	Value  string
}

func BearerToken(value string) Token {
	return Token{Scheme: SchemeBearer, Value: value}
}

func JWTToken(value string) Token {
	return Token{Scheme: SchemeJWT, Value: value}
}

// String is the Authorization header value, e.g. "Bearer <value>".
func (t Token) String() string {
	return string(t.Scheme) + " " + t.Value
}

// ParseToken reads the String form back. A value without a scheme is taken as a bearer token.
func ParseToken(s string) (Token, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Token{}, errors.New("empty token")
	}

	scheme, value, found := strings.Cut(s, " ")
	if !found {
		return BearerToken(s), nil
	}

	value = strings.TrimSpace(value)
	switch {
	case strings.EqualFold(scheme, string(SchemeBearer)):
		return BearerToken(value), nil
	case strings.EqualFold(scheme, string(SchemeJWT)):
		return JWTToken(value), nil
	default:
		return Token{}, fmt.Errorf("unsupported token scheme %q", scheme)
	}
}

// TokenProvider obtains a pull token scoped to one repository.
type TokenProvider interface {
	Token(ctx context.Context, repository string) (Token, error)
}

// StaticToken hands out the same caller-supplied token for every repository.
type StaticToken Token

func (s StaticToken) Token(context.Context, string) (Token, error) {
	return Token(s), nil
}

// AuthService requests bearer tokens from a registry token endpoint.
type AuthService struct {
	URL     string // e.g. https://auth.docker.io
	Service string // e.g. registry.docker.io
	Client  *Client
}

func (a *AuthService) Token(ctx context.Context, repository string) (Token, error) {
	query := url.Values{}
	query.Set("scope", "repository:"+repository+":pull")
	query.Set("service", a.Service)
	tokenURL := fmt.Sprintf("%s/token?%s", a.URL, query.Encode())

	client := a.Client
	if client == nil {
		client = &Client{}
	}

	resp, err := client.get(ctx, "Token", tokenURL, nil)
	if err != nil {
		return Token{}, err
	}
	defer client.closeBody(resp.Body)

	if !isSuccess(resp.StatusCode) {
		return Token{}, &HTTPStatusError{StatusCode: resp.StatusCode, Message: "cannot fetch bearer token"}
	}

	var data struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Token{}, &codec.DecodeError{Err: fmt.Errorf("token response: %w", err)}
	}
	if data.Token == "" {
		return Token{}, &codec.DecodeError{Err: errors.New("token response: missing token")}
	}

	return BearerToken(data.Token), nil
}
