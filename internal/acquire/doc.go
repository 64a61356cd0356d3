// Package acquire turns a free-text search query into a single local audio file.
//
// A [Worker] drives a [Downloader] (by default [YTDLPDownloader], backed by yt-dlp) with a per-track timeout
// and a small retry budget. Downloads are staged under a hidden name in the destination folder and renamed to
// NNN-<title>.<ext> only after they succeed. Every failure is reported as a failed
// [models.AcquisitionResult]; nothing escapes the worker as an error or panic.
package acquire
