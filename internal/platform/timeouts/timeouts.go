// Package timeouts defines shared timeout constants used across the server.
// Centralizing these values prevents drift between surfaces and makes the
// durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// ScorerRequest caps a single call to the external photo similarity scorer.
const ScorerRequest = 10 * time.Second

// ObjectUpload caps a single photo upload to object storage.
const ObjectUpload = 30 * time.Second

// ChatIdle is how long a chat connection may stay silent before the server
// considers it dead and tears the session down.
const ChatIdle = 5 * time.Minute

// TypingTTL is how long a typing flag survives without a follow-up signal.
const TypingTTL = 30 * time.Second
