// Package tokensource provides bearer credential plumbing for the NIM API.
//
// NIM authenticates with a static API key rather than a refresh flow, so the
// package models the credential as an oauth2.TokenSource: the proxy's
// transport chain wraps it in an oauth2.Transport, which injects the
// Authorization header on every upstream call.
//
// # Token Sources
//
// Use Resolve to build a source from configuration, falling back to the OS
// keyring when the config carries no key:
//
//	ts := tokensource.Resolve(cfg.Upstream.APIKey)
//	transport := &oauth2.Transport{Source: ts, Base: http.DefaultTransport}
//
// A missing credential is reported lazily: the source returns a descriptive
// error on first use, which surfaces to the client as a 500 before any
// upstream call is attempted.
//
// # Keyring Storage
//
// Store and Clear back the 'auth login' and 'auth logout' CLI commands; keys
// live in the OS keyring under the proxy's service name.
package tokensource
