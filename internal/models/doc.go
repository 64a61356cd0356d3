// Package models defines domain entities and persistence interfaces for mixtape.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs describing catalog data and acquisition outcomes
//   - [Playlist] : Playlist metadata returned by the remote catalog
//   - [PlaylistExport] : Playlist with its complete, ordered track listing
//   - [Track] : Song descriptor identified by title and primary artist
//   - [AcquisitionResult] : Per-track outcome of a download attempt
//
// 2. Persistent Entities: Database-backed models recording fetch history
//   - [FetchRun] : One pipeline run with its status and counters
//   - [FetchRunTrack] : The recorded result of a single track within a run
//
// All persistent entities implement the Model interface providing ID, timestamps and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
