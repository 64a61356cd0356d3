// Package tasks runs the playlist fetch pipeline with real-time progress reporting.
//
// # Pipeline
//
// [Pipeline.Start] validates a playlist reference and spawns a run that moves through
//
//	Idle → FetchingCatalog → Downloading → Completed | Failed | Cancelled
//
//  1. The full catalog is fetched through a [services.Catalog]
//  2. A folder named after the playlist is created under the output root (existing folders are reused)
//  3. Each track is turned into a "<title> - <artist>" query and handed to an [Acquirer]
//
// A failed track never stops the run. Only catalog errors and an unusable folder fail it.
//
// # Events
//
// Each [Run] has one buffered event channel. Events are sent blocking, never dropped, in this order:
// one [EventCatalog], then [EventProgress] and [EventResult] for each track, then exactly one terminal
// event ([EventCompleted], [EventFailed] or [EventCancelled]), after which the channel is closed.
//
// # Worker Pool
//
// With [PipelineOptions.Workers] above 1, tracks are dispatched to a bounded pool at a rate set by
// [PipelineOptions.RateLimit]. Progress events keep index order and results are reordered by index.
//
// # History
//
// The optional [RunRecorder] (repositories.RunRecorder) persists runs and per-track outcomes.
// Recorder errors are logged and ignored.
package tasks
