// Package oidc wraps the Google OpenID Connect flow: building the
// authorization redirect, exchanging the code, and verifying the ID token.
package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/bustracker-app/bustracker/internal/identity"
)

// GoogleIssuer is the OIDC issuer used for discovery.
const GoogleIssuer = "https://accounts.google.com"

// Client drives the authorization-code flow against the provider.
type Client struct {
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewClient discovers the provider at GoogleIssuer and configures the
// authorization-code flow for the given client credentials and redirect URI.
func NewClient(ctx context.Context, clientID, clientSecret, redirectURI string) (*Client, error) {
	provider, err := oidc.NewProvider(ctx, GoogleIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &Client{
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// AuthCodeURL returns the provider authorization URL carrying the given
// anti-forgery state.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange redeems the authorization code, verifies the returned ID token and
// extracts the identity claims from it.
func (c *Client) Exchange(ctx context.Context, code string) (identity.Claims, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return identity.Claims{}, fmt.Errorf("code exchange failed: %w", err)
	}
	rawID, ok := tok.Extra("id_token").(string)
	if !ok {
		return identity.Claims{}, errors.New("token response missing id_token")
	}
	idToken, err := c.verifier.Verify(ctx, rawID)
	if err != nil {
		return identity.Claims{}, fmt.Errorf("id token verification failed: %w", err)
	}
	var raw map[string]interface{}
	if err := idToken.Claims(&raw); err != nil {
		return identity.Claims{}, fmt.Errorf("failed to parse id token claims: %w", err)
	}
	return identity.ClaimsFromMap(raw), nil
}
