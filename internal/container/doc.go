// Package container writes Matroska output for the in-process export
// engines. It wraps the ebml-go block writer behind a small track-oriented
// API so engines only deal in timestamped frame and PCM payloads.
package container
