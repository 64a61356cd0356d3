package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// AuthSpotify performs the OAuth2 authorization code flow and stores the tokens in the config file.
//
// Starts a local HTTP server, opens the browser for user authorization, and exchanges the code for tokens.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	svc, err := services.NewSpotifyService(creds.Map(), services.WithHTTPClient(r.httpClient))
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(ctx, svc)
	if err != nil {
		return err
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: mixtape fetch <playlist>\n")
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server.
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state, r.httpClient)

	router := server.NewBasicRouter()
	router.Use(server.RecoverMiddleware(r.logger), server.LoggingMiddleware(r.logger))
	router.Handler(oauthHandler)

	addr := r.config.Server.Addr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot listen on %s: %v", shared.ErrServiceUnavailable, addr, err)
	}

	httpServer := server.NewHTTPServer(addr, router)
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting OAuth callback server", "addr", addr)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("%w: callback server: %v", shared.ErrServiceUnavailable, err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, authTimeout)
	case <-ctx.Done():
		return nil, shared.ErrCancelled
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

// authStatus is the JSON shape of `auth status`.
type authStatus struct {
	Mode    string `json:"mode"`
	Valid   bool   `json:"valid"`
	Expiry  string `json:"expiry,omitempty"`
	User    string `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
}

// AuthStatus reports which credentials are configured and verifies them by requesting a token.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	status := authStatus{Mode: "none"}
	var authErr error

	switch {
	case creds.ClientID == "" || creds.ClientSecret == "":
		status.Message = "client_id and client_secret are not configured"
	default:
		status.Mode = "client-credentials"
		if creds.AccessToken != "" {
			status.Mode = "user"
		}

		svc, err := services.NewSpotifyService(creds.Map(), services.WithHTTPClient(r.httpClient), services.WithLogger(r.logger))
		if err == nil {
			err = svc.Authenticate(ctx, nil)
		}
		var token *oauth2.Token
		if err == nil {
			token, err = svc.Token()
		}

		if err != nil {
			authErr = err
			status.Message = err.Error()
		} else {
			status.Valid = true
			if !token.Expiry.IsZero() {
				status.Expiry = token.Expiry.Format(time.RFC3339)
			}
			if status.Mode == "user" {
				if user, err := svc.UserProfile(ctx); err != nil {
					r.logger.Debug("failed to fetch user profile", "error", err)
				} else {
					status.User = cmp.Or(user.DisplayName, user.ID)
				}
			}
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	r.writePlain("Mode: %s\n", status.Mode)
	if status.Valid {
		r.writePlain("✓ Credentials are valid\n")
		if status.User != "" {
			r.writePlain("Signed in as: %s\n", status.User)
		}
		if status.Expiry != "" {
			r.writePlain("Token expires: %s\n", status.Expiry)
		}
		return nil
	}

	r.writePlain("✗ %s\n", status.Message)
	if errors.Is(authErr, shared.ErrAuthFailed) {
		r.writePlain("Run 'mixtape auth spotify' to authorize again\n")
	}
	return nil
}
