// Package server provides HTTP routing, middleware, and OAuth handling for the `auth spotify` command.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [LoggingMiddleware] and [RecoverMiddleware] are provided.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Usage
//
// `mixtape auth spotify` starts a temporary server on the configured host and port (localhost:8080 by default),
// opens the authorization URL in a browser, waits for the callback and shuts the server down once the token
// has been saved to the config file.
package server
