// Package chat implements real-time messaging between pet owners and
// finders. The app package owns the websocket endpoint and the
// per-process connection, presence, and typing state; the storage
// package persists conversations and messages.
package chat
