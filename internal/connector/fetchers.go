package connector

import (
	"context"
	"errors"
	"fmt"

	"github.com/darescore/dare/internal/archive"
	"github.com/darescore/dare/internal/store"
	"github.com/darescore/dare/pkg/platform"
)

// ManualFetcher serves the structured data a candidate submitted by hand,
// for platforms without a usable public API.
type ManualFetcher struct {
	Platform platform.Platform
	Entries  store.ManualEntries
}

func (f ManualFetcher) FetchCandidate(ctx context.Context, candidateID, _ string) (platform.Payload, error) {
	e, err := f.Entries.GetManualEntry(ctx, candidateID, f.Platform)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("no manual %s entry: %w", f.Platform, ErrProfileNotFound)
	}
	if err != nil {
		return nil, err
	}
	return platform.DecodePayload(f.Platform, e.Payload)
}

// ArchiveFetcher replays the last archived payload, so metrics can be
// recomputed without contacting the platform.
type ArchiveFetcher struct {
	Platform platform.Platform
	Storage  archive.Storage
}

func (f ArchiveFetcher) FetchCandidate(ctx context.Context, candidateID, _ string) (platform.Payload, error) {
	p, err := archive.Get(ctx, f.Storage, candidateID, f.Platform)
	if errors.Is(err, archive.ErrNotFound) {
		return nil, fmt.Errorf("no archived %s payload: %w", f.Platform, ErrProfileNotFound)
	}
	return p, err
}

// FirstOf tries each fetcher in order and returns the first payload found.
// Only ErrProfileNotFound moves on to the next fetcher.
type FirstOf []CandidateFetcher

func (fs FirstOf) FetchCandidate(ctx context.Context, candidateID, username string) (platform.Payload, error) {
	err := error(ErrProfileNotFound)
	for _, f := range fs {
		if f == nil {
			continue
		}
		var p platform.Payload
		p, err = f.FetchCandidate(ctx, candidateID, username)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
	}
	return nil, err
}
