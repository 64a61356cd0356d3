// Package player holds the playback queue for an acquired playlist folder.
//
// [Model] is the ordered list of entries and the current selection. Every operation is serialized by a
// mutex and never fails; out-of-range requests are no-ops. Subscribers are told when the current entry
// changes and are always called after the lock is released.
//
// [CommandPlayer] plays the current entry with an external program (mpv by default) and advances the
// model when playback ends.
package player
