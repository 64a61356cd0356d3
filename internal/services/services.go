package services

import (
	"context"

	"github.com/desertthunder/mixtape/internal/models"
	"golang.org/x/oauth2"
)

// Catalog is a remote playlist listing provider.
type Catalog interface {
	// Name returns the name of the service (e.g., "Spotify")
	Name() string

	// FetchPlaylist returns the playlist metadata and every track in catalog order.
	//
	// ownerID is optional; when set, playlists owned by someone else are reported as not found.
	FetchPlaylist(ctx context.Context, ownerID, playlistID string) (*models.PlaylistExport, error)
}

// OAuthService is implemented by catalogs that support the authorization-code flow.
type OAuthService interface {
	GetAuthURL(state string) string
	GetOAuthConfig() *oauth2.Config
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}
