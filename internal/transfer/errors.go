// Package transfer contains the orchestration engine: share tree
// enumeration, copy-to-storage, download-to-disk, and bulk re-sharing
// with a resumable ledger.
package transfer

import "errors"

// Sentinel errors for orchestration-level failures.
var (
	// ErrAlreadyOwned rejects saving a share the caller already owns —
	// a self-copy would duplicate the content.
	ErrAlreadyOwned = errors.New("transfer: share content already in caller's storage")

	// ErrNotOwned rejects downloading from someone else's share. The
	// remote API only serves download URLs for owned content; the share
	// must be saved to storage first.
	ErrNotOwned = errors.New("transfer: share content not owned, save to storage first")

	// ErrCycleDetected aborts enumeration when a directory id reappears
	// as its own expansion target — a stale-id cycle would never
	// terminate otherwise.
	ErrCycleDetected = errors.New("transfer: directory cycle detected")

	// ErrPartialDownload marks one file whose written byte count did
	// not match the advertised length. Scoped to the file, never the batch.
	ErrPartialDownload = errors.New("transfer: downloaded bytes do not match advertised length")

	// ErrInvalidDestination rejects an empty destination folder id
	// before any remote call is made.
	ErrInvalidDestination = errors.New("transfer: destination folder id is empty")
)
