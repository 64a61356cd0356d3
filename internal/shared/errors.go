package shared

import "fmt"

var (
	// Reference errors
	ErrInvalidReference = fmt.Errorf("invalid playlist reference")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed     = fmt.Errorf("authentication failed")
	ErrTokenExpired   = fmt.Errorf("%w: access token expired", ErrAuthFailed)
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")

	// Catalog errors
	ErrCatalogFetch     = fmt.Errorf("catalog fetch failed")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrTransient        = fmt.Errorf("transient network error")

	// Acquisition errors
	ErrTrackAcquisition = fmt.Errorf("track acquisition failed")
	ErrNoMatch          = fmt.Errorf("%w: no matching source", ErrTrackAcquisition)
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Filesystem and persistence errors
	ErrFilesystem     = fmt.Errorf("filesystem error")
	ErrDatabase       = fmt.Errorf("database error")
	ErrRecordNotFound = fmt.Errorf("%w: record not found", ErrDatabase)

	// Pipeline control
	ErrCancelled = fmt.Errorf("cancelled")

	// API and service errors
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
