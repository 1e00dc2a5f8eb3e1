// Package ipc exposes the export daemon over JSON-RPC Unix sockets and
// ships the matching client used by the CLI.
//
// It owns socket lifecycle management, request/response DTOs, and the
// conversion between queue models and their wire representation. The server
// embeds the daemon; the client dials with a short timeout so CLI commands
// fail fast when the daemon is offline.
package ipc
