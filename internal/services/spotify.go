// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultRedirectURI = "http://localhost:8080/callback"

	// playlistFields trims the playlist payload to what the catalog needs.
	playlistFields = "id,name,description,owner(id,display_name)," +
		"tracks(total,limit,offset,next,items(track(id,name,duration_ms,artists(name),album(name),external_ids(isrc))))"
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Product     string `json:"product"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	ExternalIDs externalIDs     `json:"external_ids"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Owner is the owner of a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylist represents a Spotify playlist with its first page of tracks embedded.
type SpotifyPlaylist struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Owner       Owner                 `json:"owner"`
	Tracks      SpotifyPlaylistTracks `json:"tracks"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is nil for items that are no longer available.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistTracks is one page of playlist items.
type SpotifyPlaylistTracks struct {
	Items    []SpotifyPlaylistTrack `json:"items"`
	Total    int                    `json:"total"`
	Limit    int                    `json:"limit"`
	Offset   int                    `json:"offset"`
	Next     *string                `json:"next"`
	Previous *string                `json:"previous"`
}

// SpotifyService implements [Catalog] for the Spotify Web API.
// Uses [oauth2] for authentication and a [rate.Limiter] for page requests.
type SpotifyService struct {
	config      *oauth2.Config
	credentials map[string]string
	baseURL     string
	baseClient  *http.Client
	limiter     *rate.Limiter
	logger      *log.Logger

	mu          sync.Mutex
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
	onRefresh   func(*oauth2.Token)
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithHTTPClient sets the client used for API and token requests.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.baseClient = c }
}

// WithBaseURL points API requests at baseURL.
func WithBaseURL(baseURL string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithTokenURL points token requests at tokenURL.
func WithTokenURL(tokenURL string) SpotifyOption {
	return func(s *SpotifyService) { s.config.Endpoint.TokenURL = tokenURL }
}

// WithRateLimit caps page requests at rps per second. Zero or less disables limiting.
func WithRateLimit(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) SpotifyOption {
	return func(s *SpotifyService) { s.logger = l }
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"playlist-read-private",
			"playlist-read-collaborative",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	s := &SpotifyService{
		config:      config,
		credentials: credentials,
		baseURL:     spotifyBaseURL,
		baseClient:  http.DefaultClient,
		limiter:     rate.NewLimiter(rate.Limit(5), 1),
		logger:      shared.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the OAuth2 configuration used for the authorization-code flow.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// SetTokenRefreshCallback registers fn to be called whenever the token source hands out a new access token.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRefresh = fn
}

// Authenticate configures the HTTP client from credentials, falling back to the credentials given at construction.
//
// Keys are checked in order: "access_token" (with optional "refresh_token" and RFC 3339 "expiry"),
// "auth_code", then the client-credentials grant.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if credentials == nil {
		credentials = s.credentials
	}

	if accessToken := credentials["access_token"]; accessToken != "" {
		token := &oauth2.Token{AccessToken: accessToken, RefreshToken: credentials["refresh_token"], TokenType: "Bearer"}
		if raw := credentials["expiry"]; raw != "" {
			if expiry, err := time.Parse(time.RFC3339, raw); err == nil {
				token.Expiry = expiry
			}
		}
		return s.OAuthenticate(ctx, token)
	}

	if authCode := credentials["auth_code"]; authCode != "" {
		token, err := s.config.Exchange(s.tokenContext(ctx), authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		return s.OAuthenticate(ctx, token)
	}

	cc := &clientcredentials.Config{
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		TokenURL:     s.config.Endpoint.TokenURL,
	}
	s.setTokenSource(cc.TokenSource(s.tokenContext(context.Background())), "")
	s.logger.Debug("using client credentials grant")
	return nil
}

// OAuthenticate uses token for subsequent requests, refreshing it through the OAuth2 config when it expires.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrAuthFailed)
	}

	s.setTokenSource(s.config.TokenSource(s.tokenContext(context.Background()), token), token.AccessToken)
	return nil
}

// Token returns a valid token, fetching or refreshing one as needed.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	ts := s.tokenSource
	s.mu.Unlock()

	if ts == nil {
		return nil, fmt.Errorf("%w: call Authenticate first", shared.ErrAuthFailed)
	}

	token, err := ts.Token()
	if err != nil {
		return nil, classifyTokenError(err)
	}
	return token, nil
}

// setTokenSource installs ts; initial is the access token already known to the caller, if any.
func (s *SpotifyService) setTokenSource(ts oauth2.TokenSource, initial string) {
	notifier := &refreshNotifier{base: ts, service: s, last: initial}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenSource = notifier
	s.httpClient = oauth2.NewClient(s.tokenContext(context.Background()), notifier)
}

// tokenContext carries the injected HTTP client to the oauth2 package.
//
// Token sources outlive a single call, so they are built from a background context.
func (s *SpotifyService) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)
}

// refreshNotifier reports access tokens that differ from the last one it handed out.
type refreshNotifier struct {
	base    oauth2.TokenSource
	service *SpotifyService

	mu   sync.Mutex
	last string
}

func (n *refreshNotifier) Token() (*oauth2.Token, error) {
	token, err := n.base.Token()
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	changed := n.last != "" && n.last != token.AccessToken
	n.last = token.AccessToken
	n.mu.Unlock()

	if changed {
		n.service.mu.Lock()
		fn := n.service.onRefresh
		n.service.mu.Unlock()
		if fn != nil {
			fn(token)
		}
	}
	return token, nil
}

// doRequest performs an authenticated GET against endpoint, which may be a path under the API base URL or an absolute URL.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	s.mu.Lock()
	client := s.httpClient
	s.mu.Unlock()

	if client == nil {
		return fmt.Errorf("%w: %w: call Authenticate first", shared.ErrCatalogFetch, shared.ErrAuthFailed)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrCatalogFetch, err)
	}

	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.baseURL + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", shared.ErrCatalogFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", shared.ErrCatalogFetch, ctxErr)
		}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return fmt.Errorf("%w: %w", shared.ErrCatalogFetch, classifyTokenError(retrieveErr))
		}
		return fmt.Errorf("%w: %w: %v", shared.ErrCatalogFetch, shared.ErrTransient, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrCatalogFetch, err)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrCatalogFetch, err)
		}
	}
	return nil
}

// statusError maps a non-2xx response to an error kind.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, detail)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrTokenExpired, detail)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status 403: %s", shared.ErrAuthFailed, detail)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited, retry after %ss", shared.ErrTransient, resp.Header.Get("Retry-After"))
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", shared.ErrTransient, resp.StatusCode)
	default:
		return fmt.Errorf("spotify API error: status %d: %s", resp.StatusCode, detail)
	}
}

// classifyTokenError maps a token endpoint failure to an auth or transient error.
func classifyTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode < 500 {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return fmt.Errorf("%w: token request: %v", shared.ErrTransient, err)
}

// UserProfile retrieves the current authenticated user's profile. Requires a user token.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Playlist retrieves a playlist by ID with its first page of tracks.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error) {
	endpoint := fmt.Sprintf("/playlists/%s?fields=%s", url.PathEscape(playlistID), url.QueryEscape(playlistFields))

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, endpoint, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// FetchPlaylist retrieves playlist metadata and follows tracks.next until the listing is exhausted.
//
// Items are placed by absolute position, so a page served twice never duplicates tracks.
// Unavailable items (null track objects) are skipped.
func (s *SpotifyService) FetchPlaylist(ctx context.Context, ownerID, playlistID string) (*models.PlaylistExport, error) {
	sp, err := s.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	if ownerID != "" && sp.Owner.ID != ownerID {
		return nil, fmt.Errorf("%w: %w: %s is not owned by %s", shared.ErrCatalogFetch, shared.ErrPlaylistNotFound, playlistID, ownerID)
	}

	var listing positionalListing
	listing.add(sp.Tracks)

	visited := map[string]bool{}
	next := sp.Tracks.Next
	for next != nil && *next != "" {
		if visited[*next] {
			return nil, fmt.Errorf("%w: pagination loop at %s", shared.ErrCatalogFetch, *next)
		}
		visited[*next] = true

		var page SpotifyPlaylistTracks
		if err := s.doRequest(ctx, *next, &page); err != nil {
			return nil, err
		}
		listing.add(page)
		next = page.Next

		s.logger.Debug("fetched playlist page", "playlist", playlistID, "offset", page.Offset, "items", len(page.Items))
	}

	tracks := listing.tracks()
	s.logger.Info("fetched playlist", "playlist", sp.Name, "tracks", len(tracks), "reported", sp.Tracks.Total)

	return &models.PlaylistExport{
		Playlist: models.Playlist{
			ID:          sp.ID,
			Name:        sp.Name,
			Owner:       sp.Owner.ID,
			Description: sp.Description,
			TrackCount:  len(tracks),
		},
		Tracks: tracks,
	}, nil
}

type listingSlot struct {
	track  models.Track
	filled bool
}

// positionalListing accumulates playlist items keyed by their absolute offset.
type positionalListing struct {
	slots []listingSlot
}

func (l *positionalListing) add(page SpotifyPlaylistTracks) {
	for i, item := range page.Items {
		pos := page.Offset + i
		for len(l.slots) <= pos {
			l.slots = append(l.slots, listingSlot{})
		}
		if item.Track == nil || item.Track.Name == "" {
			continue
		}
		l.slots[pos] = listingSlot{track: toTrack(*item.Track), filled: true}
	}
}

func (l *positionalListing) tracks() []models.Track {
	tracks := make([]models.Track, 0, len(l.slots))
	for _, slot := range l.slots {
		if slot.filled {
			tracks = append(tracks, slot.track)
		}
	}
	return tracks
}

func toTrack(st SpotifyTrack) models.Track {
	track := models.Track{
		ID:       st.ID,
		Title:    st.Name,
		Album:    st.Album.Name,
		Duration: time.Duration(st.DurationMS) * time.Millisecond,
		ISRC:     st.ExternalIDs.ISRC,
	}

	for _, a := range st.Artists {
		track.Artists = append(track.Artists, a.Name)
	}
	if len(track.Artists) > 0 {
		track.Artist = track.Artists[0]
	}
	return track
}
