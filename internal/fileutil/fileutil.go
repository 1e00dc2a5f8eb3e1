// Package fileutil moves finished export artifacts out of staging.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// PublishFile copies a staged export output into place and verifies the
// published file byte-for-byte before returning. The destination is removed
// on any verification failure so a truncated or corrupt output is never left
// at the final path.
func PublishFile(stagedPath, finalPath string) error {
	staged, err := os.Open(stagedPath)
	if err != nil {
		return fmt.Errorf("open staged output: %w", err)
	}
	defer staged.Close()

	final, err := os.OpenFile(finalPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create published output: %w", err)
	}

	stagedHash := sha256.New()
	written, err := io.Copy(io.MultiWriter(final, stagedHash), staged)
	if closeErr := final.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(finalPath)
		return fmt.Errorf("copy staged output: %w", err)
	}

	info, err := os.Stat(stagedPath)
	if err != nil {
		os.Remove(finalPath)
		return fmt.Errorf("stat staged output: %w", err)
	}
	if written != info.Size() {
		os.Remove(finalPath)
		return fmt.Errorf("published output truncated: staged %d bytes, wrote %d", info.Size(), written)
	}

	// Re-read the published file so the check covers what actually landed
	// on disk, not just the bytes handed to the kernel.
	publishedHash, err := hashFile(finalPath)
	if err != nil {
		os.Remove(finalPath)
		return fmt.Errorf("verify published output: %w", err)
	}
	if publishedHash != hex.EncodeToString(stagedHash.Sum(nil)) {
		os.Remove(finalPath)
		return fmt.Errorf("published output corrupt: checksum mismatch at %s", finalPath)
	}
	return nil
}

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
