package zipscript

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/marmos91/amftpd/pkg/atomicio"
	"github.com/marmos91/amftpd/pkg/dberrors"
)

// currentSnapshotVersion is the version this engine writes. A document
// with a higher version is from a newer build; loadSnapshot refuses it
// with ErrVersionTooNew, so Open fails and no flush overwrites it.
const currentSnapshotVersion = 1

// fileRow is one flattened, file-level row of the persisted snapshot,
// matching the on-disk layout exactly.
type fileRow struct {
	ReleasePath    string     `json:"release_path"`
	SectionName    string     `json:"section_name"`
	FileName       string     `json:"file_name"`
	SizeBytes      int64      `json:"size_bytes"`
	ExpectedCRC    *uint32    `json:"expected_crc,omitempty"`
	ActualCRC      *uint32    `json:"actual_crc,omitempty"`
	State          FileState  `json:"state"`
	IsNuked        bool       `json:"is_nuked"`
	NukeReason     string     `json:"nuke_reason,omitempty"`
	NukedBy        string     `json:"nuked_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastUpdatedAt  time.Time  `json:"last_updated_at"`
	NukedAt        *time.Time `json:"nuked_at,omitempty"`
	NukeMultiplier *float64   `json:"nuke_multiplier,omitempty"`
}

type snapshotDocument struct {
	Version int       `json:"version"`
	Files   []fileRow `json:"files"`
}

// loadSnapshot reads and, if necessary, migrates the JSON snapshot at
// path. A missing file is not an error: it yields an empty set of
// releases (first run). A document whose version exceeds
// currentSnapshotVersion is refused: the caller must not overwrite it.
func loadSnapshot(path string) (map[string]*ReleaseState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*ReleaseState), nil
		}
		return nil, fmt.Errorf("zipscript: read snapshot: %w", err)
	}
	if len(data) == 0 {
		return make(map[string]*ReleaseState), nil
	}

	doc, err := decodeSnapshotDocument(data)
	if err != nil {
		return nil, err
	}
	if doc.Version > currentSnapshotVersion {
		return nil, fmt.Errorf("%w: snapshot version %d newer than supported version %d",
			dberrors.ErrVersionTooNew, doc.Version, currentSnapshotVersion)
	}

	return reconstructReleases(doc.Files), nil
}

// decodeSnapshotDocument accepts either the current wrapped-object
// shape or the legacy bare-array shape (v0), migrating the latter to
// the wrapped shape in memory.
func decodeSnapshotDocument(data []byte) (snapshotDocument, error) {
	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err == nil && doc.Version != 0 {
		return doc, nil
	}

	var rows []fileRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return snapshotDocument{}, fmt.Errorf("zipscript: decode snapshot: %w", err)
	}
	return snapshotDocument{Version: 1, Files: rows}, nil
}

// reconstructReleases groups flat rows by release path and folds
// release-level nuke fields from their files (every file in a nuked
// release carries the same nuke metadata by construction).
func reconstructReleases(rows []fileRow) map[string]*ReleaseState {
	releases := make(map[string]*ReleaseState)

	for _, row := range rows {
		release, ok := releases[row.ReleasePath]
		if !ok {
			release = &ReleaseState{
				ReleasePath: row.ReleasePath,
				SectionName: row.SectionName,
				Files:       make(map[string]*FileInfo),
				SfvEntries:  make(map[string]SfvEntry),
			}
			releases[row.ReleasePath] = release
		}

		info := &FileInfo{
			FileName:       row.FileName,
			ExpectedCRC:    row.ExpectedCRC,
			ActualCRC:      row.ActualCRC,
			SizeBytes:      row.SizeBytes,
			State:          row.State,
			CreatedAt:      row.CreatedAt,
			LastUpdatedAt:  row.LastUpdatedAt,
			IsNuked:        row.IsNuked,
			NukeReason:     row.NukeReason,
			NukedBy:        row.NukedBy,
			NukedAt:        row.NukedAt,
			NukeMultiplier: row.NukeMultiplier,
		}
		if row.ExpectedCRC != nil {
			info.WasNuked = row.IsNuked
		}
		release.Files[row.FileName] = info

		if row.ExpectedCRC != nil {
			release.SfvEntries[row.FileName] = SfvEntry{FileName: row.FileName, ExpectedCRC: *row.ExpectedCRC}
		}

		if row.IsNuked {
			release.IsNuked = true
			release.WasNuked = true
			release.NukeReason = row.NukeReason
			release.NukedBy = row.NukedBy
			release.NukedAt = row.NukedAt
			release.NukeMultiplier = row.NukeMultiplier
		} else if row.NukedAt != nil {
			release.WasNuked = true
			release.NukeReason = row.NukeReason
			release.NukedBy = row.NukedBy
			release.NukedAt = row.NukedAt
			release.NukeMultiplier = row.NukeMultiplier
		}

		if release.LastUpdatedAt.Before(row.LastUpdatedAt) {
			release.LastUpdatedAt = row.LastUpdatedAt
		}
		if release.StartedAt.IsZero() || row.CreatedAt.Before(release.StartedAt) {
			release.StartedAt = row.CreatedAt
		}
	}

	return releases
}

// saveSnapshot flattens every release into rows and writes the
// versioned document atomically.
func saveSnapshot(path string, releases map[string]*ReleaseState) error {
	doc := snapshotDocument{Version: currentSnapshotVersion}

	for _, release := range releases {
		for _, info := range release.Files {
			doc.Files = append(doc.Files, fileRow{
				ReleasePath:    release.ReleasePath,
				SectionName:    release.SectionName,
				FileName:       info.FileName,
				SizeBytes:      info.SizeBytes,
				ExpectedCRC:    info.ExpectedCRC,
				ActualCRC:      info.ActualCRC,
				State:          info.State,
				IsNuked:        info.IsNuked,
				NukeReason:     info.NukeReason,
				NukedBy:        info.NukedBy,
				CreatedAt:      info.CreatedAt,
				LastUpdatedAt:  info.LastUpdatedAt,
				NukedAt:        info.NukedAt,
				NukeMultiplier: info.NukeMultiplier,
			})
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("zipscript: marshal snapshot: %w", err)
	}
	if err := atomicio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("zipscript: write snapshot: %w", err)
	}
	return nil
}
