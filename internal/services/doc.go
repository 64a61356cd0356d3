// Package services defines the [Catalog] interface for remote playlist listings and implements it for Spotify.
//
// # Catalog Interface
//
// A catalog resolves a playlist id into its metadata and the complete, ordered track listing.
// Pagination is handled inside the implementation: callers never see partial listings.
//
// # Spotify Implementation
//
// [SpotifyService] authenticates in one of three ways, checked in order:
//   - a stored access token (with optional refresh token), refreshed automatically by [oauth2]
//   - an authorization code, exchanged for a token
//   - the client-credentials grant, which is enough to read public playlists
//
// # OAuth Service Extension
//
// The [OAuthService] interface exposes the authorization-code flow used by `mixtape auth spotify`.
//
// # Error Handling
//
// Every catalog error wraps [shared.ErrCatalogFetch] plus one kind:
//   - [shared.ErrPlaylistNotFound] : 404, or the playlist belongs to another owner
//   - [shared.ErrAuthFailed] / [shared.ErrTokenExpired] : 401/403 or token retrieval failure
//   - [shared.ErrTransient] : 429, 5xx and transport errors; the whole fetch may be retried
package services
