// Package ui implements the interactive terminal views using bubbletea's Elm architecture.
//
// Two models are provided:
//  1. [FetchModel] : follows a pipeline run, showing the catalog, a progress bar and per-track results
//  2. [PlayerModel] : browses a downloaded folder and drives playback through a [player.Model]
//
// Both implement the standard Init/Update/View pattern. Pipeline events and playlist selection changes arrive
// through channels that are read by tea.Cmd functions ([waitForEvent], [waitForSelection]), so the update loop
// never blocks on the producer.
//
// Key bindings are contextual and listed through charmbracelet/bubbles/help.
package ui
