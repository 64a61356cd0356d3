package models

import "time"

// Playlist is the metadata of a remote playlist.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Owner       string `json:"owner,omitempty"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
}

// PlaylistExport is a playlist with its complete track listing, in catalog order.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

// Track describes a song by title and primary artist.
//
// Identity is positional: two tracks with the same title and artist are distinct entries.
type Track struct {
	ID       string        `json:"id,omitempty"`
	Title    string        `json:"title"`
	Artist   string        `json:"artist"`
	Artists  []string      `json:"artists,omitempty"`
	Album    string        `json:"album,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	ISRC     string        `json:"isrc,omitempty"` // International Standard Recording Code
}
