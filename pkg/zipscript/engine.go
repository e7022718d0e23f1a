package zipscript

import (
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultFlushThreshold is the default number of pending mutations
// before the persisted snapshot is rewritten.
const DefaultFlushThreshold = 32

// Engine is the release-tracking state machine: it owns every
// ReleaseState in memory, serializes mutation under a single mutex,
// coalesces persistence, and serializes concurrent rescans per
// release path via rescanGuard.
type Engine struct {
	mu       sync.Mutex
	releases map[string]*ReleaseState
	completed map[string]bool

	guard *rescanGuard

	snapshotPath   string
	flushThreshold int
	pending        int

	events Events
	logger *slog.Logger
}

// Open loads (or creates empty) the persisted snapshot at
// snapshotPath and returns a ready engine. A flushThreshold <= 0 uses
// DefaultFlushThreshold. events may be the zero value; missing
// callbacks are treated as no-ops.
func Open(snapshotPath string, flushThreshold int, events Events, logger *slog.Logger) (*Engine, error) {
	if flushThreshold <= 0 {
		flushThreshold = DefaultFlushThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}

	releases, err := loadSnapshot(snapshotPath)
	if err != nil {
		return nil, err
	}

	fillEvents(&events)

	return &Engine{
		releases:       releases,
		completed:      make(map[string]bool),
		guard:          newRescanGuard(),
		snapshotPath:   snapshotPath,
		flushThreshold: flushThreshold,
		events:         events,
		logger:         logger,
	}, nil
}

func fillEvents(e *Events) {
	defaults := noopEvents()
	if e.ReleaseUpdated == nil {
		e.ReleaseUpdated = defaults.ReleaseUpdated
	}
	if e.ReleaseCompleted == nil {
		e.ReleaseCompleted = defaults.ReleaseCompleted
	}
	if e.PreDetected == nil {
		e.PreDetected = defaults.PreDetected
	}
}

// Status returns a value-copy snapshot of the named release, if any.
func (e *Engine) Status(virtualReleasePath string) (ReleaseStatus, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	release, ok := e.releases[normalizeVirtualPath(virtualReleasePath)]
	if !ok {
		return ReleaseStatus{}, false
	}
	return e.statusLocked(release), true
}

// Clear discards all in-memory release state. The on-disk snapshot is
// left untouched until the next flush.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releases = make(map[string]*ReleaseState)
	e.completed = make(map[string]bool)
	e.pending = 0
}

// Flush forces an immediate snapshot write regardless of the pending
// mutation count.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked()
}

func (e *Engine) flushLocked() error {
	if err := saveSnapshot(e.snapshotPath, e.releases); err != nil {
		return err
	}
	e.pending = 0
	return nil
}

func (e *Engine) queueFlushLocked() {
	e.pending++
	if e.pending < e.flushThreshold {
		return
	}
	if err := e.flushLocked(); err != nil {
		e.logger.Error("zipscript snapshot flush failed, will retry on next successful flush", "error", err)
	}
}

// OnUploadComplete records a completed file transfer, parsing it as an
// SFV manifest when its name ends in ".sfv". The manifest file itself
// is also recorded as a regular file of the release (it is never
// itself SFV-listed, so it naturally verifies as Extra once uploaded).
func (e *Engine) OnUploadComplete(ctx UploadContext) {
	isSfv := strings.EqualFold(filepath.Ext(ctx.VirtualFilePath), ".sfv")

	var sfvContent string
	if isSfv {
		data, err := os.ReadFile(ctx.PhysicalFilePath)
		if err != nil {
			e.logger.Warn("zipscript: failed to read sfv file", "path", ctx.PhysicalFilePath, "error", err)
		} else {
			sfvContent = string(data)
		}
	}

	crc, err := computeCRC32(ctx.PhysicalFilePath)
	if err != nil {
		e.logger.Warn("zipscript: crc32 computation failed", "path", ctx.PhysicalFilePath, "error", err)
	}

	releasePath := releasePathOf(ctx.VirtualFilePath)
	fileName := fileNameOf(ctx.VirtualFilePath)
	now := ctx.CompletedAt
	if now.IsZero() {
		now = time.Now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	release, isNew := e.getOrCreateReleaseLocked(releasePath, ctx.Section, now)

	if isSfv {
		release.SfvVirtualPath = ctx.VirtualFilePath
		release.SfvPhysicalPath = ctx.PhysicalFilePath
		applySFV(release, parseSFV(sfvContent), now)
	}
	upsertFile(release, fileName, crc, ctx.SizeBytes, now)
	release.LastUpdatedAt = now

	if isNew {
		e.events.PreDetected(PreContext{ReleasePath: releasePath, SectionName: ctx.Section, User: ctx.User, DetectedAt: now})
	}

	e.emitUpdateLocked(release)
	e.queueFlushLocked()
}

// OnDelete removes a file or an entire release from memory.
func (e *Engine) OnDelete(ctx DeleteContext) {
	releasePath := releasePathOf(ctx.VirtualPath)
	now := ctx.DeletedAt
	if now.IsZero() {
		now = time.Now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if ctx.IsDirectory {
		delete(e.releases, normalizeVirtualPath(ctx.VirtualPath))
		delete(e.completed, normalizeVirtualPath(ctx.VirtualPath))
		if err := e.flushLocked(); err != nil {
			e.logger.Error("zipscript snapshot flush failed after directory delete", "error", err)
		}
		return
	}

	release, ok := e.releases[releasePath]
	if !ok {
		return
	}
	fileName := fileNameOf(ctx.VirtualPath)
	info, ok := release.Files[fileName]
	if !ok {
		return
	}
	info.State = StateDeleted
	info.SizeBytes = 0
	info.ActualCRC = nil
	info.LastUpdatedAt = now
	release.LastUpdatedAt = now

	e.emitUpdateLocked(release)
	e.queueFlushLocked()
}

// OnRescanDir walks the physical release directory, re-derives every
// file's state from disk and from the first .sfv manifest found, and
// preserves existing nuke metadata across the rebuild. Returns nil on
// filesystem error (logged, not propagated).
func (e *Engine) OnRescanDir(ctx RescanContext) *ReleaseStatus {
	releasePath := normalizeVirtualPath(ctx.VirtualReleasePath)
	now := ctx.RequestedAt
	if now.IsZero() {
		now = time.Now()
	}

	entry := e.guard.lock(releasePath)
	defer e.guard.unlock(releasePath, entry)

	sizes, sfvPath, err := walkPhysicalRelease(ctx.PhysicalReleasePath, ctx.IncludeSubdirs)
	if err != nil {
		e.logger.Warn("zipscript: rescan failed", "release", releasePath, "error", err)
		return nil
	}

	var sfvContent string
	if sfvPath != "" {
		if data, readErr := os.ReadFile(sfvPath); readErr != nil {
			e.logger.Warn("zipscript: failed to read sfv during rescan", "path", sfvPath, "error", readErr)
		} else {
			sfvContent = string(data)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	release, isNew := e.getOrCreateReleaseLocked(releasePath, ctx.Section, now)

	previousFiles := release.Files
	release.Files = make(map[string]*FileInfo, len(sizes))

	if sfvPath != "" {
		release.SfvVirtualPath = filepath.Base(sfvPath)
		release.SfvPhysicalPath = sfvPath
		release.SfvEntries = parseSFV(sfvContent)
	}

	for relPath, size := range sizes {
		fileName := filepath.Base(relPath)
		if strings.EqualFold(filepath.Ext(fileName), ".sfv") {
			continue
		}

		crc, crcErr := computeCRC32(filepath.Join(ctx.PhysicalReleasePath, relPath))
		var actual *uint32
		if crcErr != nil {
			e.logger.Warn("zipscript: crc32 computation failed during rescan", "file", relPath, "error", crcErr)
		} else {
			actual = crc
		}

		info := &FileInfo{FileName: fileName, SizeBytes: size, CreatedAt: now}
		if prev, ok := previousFiles[fileName]; ok {
			info.CreatedAt = prev.CreatedAt
			info.IsNuked = prev.IsNuked
			info.WasNuked = prev.WasNuked
			info.NukeReason = prev.NukeReason
			info.NukedBy = prev.NukedBy
			info.NukedAt = prev.NukedAt
			info.NukeMultiplier = prev.NukeMultiplier
		}
		info.ActualCRC = actual
		info.LastUpdatedAt = now
		deriveFileState(info, release.SfvEntries)
		release.Files[fileName] = info
	}

	applySFV(release, release.SfvEntries, now)
	release.LastUpdatedAt = now

	if isNew {
		e.events.PreDetected(PreContext{ReleasePath: releasePath, SectionName: ctx.Section, User: ctx.User, DetectedAt: now})
	}
	e.emitUpdateLocked(release)
	e.queueFlushLocked()

	status := e.statusLocked(release)
	return &status
}

// MarkReleaseNuked sets release-level nuke metadata and cascades file
// states into Nuked, leaving Missing files untouched.
func (e *Engine) MarkReleaseNuked(virtualReleasePath, section, nuker, reason string, multiplier *float64) {
	releasePath := normalizeVirtualPath(virtualReleasePath)
	now := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	release, _ := e.getOrCreateReleaseLocked(releasePath, section, now)

	release.IsNuked = true
	release.WasNuked = true
	release.NukeReason = reason
	release.NukedBy = nuker
	release.NukeMultiplier = multiplier
	release.NukedAt = &now

	for _, info := range release.Files {
		switch info.State {
		case StateOk, StateBadCrc, StateExtra, StatePending:
			info.State = StateNuked
		}
		info.IsNuked = true
		info.WasNuked = true
		info.NukeReason = reason
		info.NukedBy = nuker
		info.NukeMultiplier = multiplier
		info.NukedAt = &now
		info.LastUpdatedAt = now
	}
	release.LastUpdatedAt = now

	e.emitUpdateLocked(release)
	e.queueFlushLocked()
}

// MarkReleaseUnnuked clears the active nuke flag, flipping Nuked files
// back to Pending while preserving historical reason/by/multiplier/
// nuked_at.
func (e *Engine) MarkReleaseUnnuked(virtualReleasePath, unnuker string) {
	releasePath := normalizeVirtualPath(virtualReleasePath)

	e.mu.Lock()
	defer e.mu.Unlock()

	release, ok := e.releases[releasePath]
	if !ok {
		return
	}

	release.IsNuked = false
	now := time.Now()
	release.LastUpdatedAt = now

	for _, info := range release.Files {
		if info.State == StateNuked {
			info.State = StatePending
		}
		info.IsNuked = false
		info.LastUpdatedAt = now
	}

	e.emitUpdateLocked(release)
	e.queueFlushLocked()
	_ = unnuker // recorded in the audit log by the caller, not the engine
}

func (e *Engine) getOrCreateReleaseLocked(releasePath, section string, now time.Time) (*ReleaseState, bool) {
	release, ok := e.releases[releasePath]
	if ok {
		if section != "" {
			release.SectionName = section
		}
		return release, false
	}

	release = &ReleaseState{
		ReleasePath: releasePath,
		SectionName: section,
		StartedAt:   now,
		Files:       make(map[string]*FileInfo),
		SfvEntries:  make(map[string]SfvEntry),
	}
	e.releases[releasePath] = release
	return release, true
}

func (e *Engine) emitUpdateLocked(release *ReleaseState) {
	status := e.statusLocked(release)
	e.events.ReleaseUpdated(status)

	if status.Complete && !e.completed[release.ReleasePath] {
		e.completed[release.ReleasePath] = true
		e.events.ReleaseCompleted(status)
	} else if !status.Complete {
		e.completed[release.ReleasePath] = false
	}
}

func (e *Engine) statusLocked(release *ReleaseState) ReleaseStatus {
	files := make([]FileInfo, 0, len(release.Files))
	for _, info := range release.Files {
		files = append(files, *info)
	}

	return ReleaseStatus{
		ReleasePath:    release.ReleasePath,
		SectionName:    release.SectionName,
		HasSfv:         release.SfvVirtualPath != "" || len(release.SfvEntries) > 0,
		IsNuked:        release.IsNuked,
		WasNuked:       release.WasNuked,
		NukeReason:     release.NukeReason,
		NukedBy:        release.NukedBy,
		NukeMultiplier: release.NukeMultiplier,
		NukedAt:        release.NukedAt,
		StartedAt:      release.StartedAt,
		LastUpdatedAt:  release.LastUpdatedAt,
		Files:          files,
		Complete:       isComplete(release),
	}
}

// isComplete implements the completion predicate: an SFV is present,
// nothing is missing or bad, and at least one file verified ok or is
// an unlisted extra.
func isComplete(release *ReleaseState) bool {
	hasSfv := release.SfvVirtualPath != "" || len(release.SfvEntries) > 0
	if !hasSfv {
		return false
	}

	var missing, bad, okOrExtra int
	for _, info := range release.Files {
		switch info.State {
		case StateMissing:
			missing++
		case StateBadCrc:
			bad++
		case StateOk, StateExtra:
			okOrExtra++
		}
	}
	return missing == 0 && bad == 0 && okOrExtra > 0
}

// deriveFileState recomputes info.ExpectedCRC and info.State from the
// current SFV listing, per the engine's state invariants.
func deriveFileState(info *FileInfo, sfvEntries map[string]SfvEntry) {
	entry, listed := sfvEntries[info.FileName]
	if !listed {
		info.ExpectedCRC = nil
		if info.ActualCRC != nil && info.State != StateDeleted && info.State != StateNuked {
			info.State = StateExtra
		} else if info.ActualCRC == nil && info.State != StateDeleted && info.State != StateNuked {
			info.State = StatePending
		}
		return
	}

	expected := entry.ExpectedCRC
	info.ExpectedCRC = &expected

	switch {
	case info.ActualCRC == nil:
		info.State = StateMissing
	case *info.ActualCRC == expected:
		info.State = StateOk
	default:
		info.State = StateBadCrc
	}
}

// upsertFile records or updates a single file's actual CRC and size,
// then re-derives its state against the release's current SFV
// listing.
func upsertFile(release *ReleaseState, fileName string, actualCRC *uint32, size int64, now time.Time) {
	info, ok := release.Files[fileName]
	if !ok {
		info = &FileInfo{FileName: fileName, CreatedAt: now, State: StatePending}
		release.Files[fileName] = info
	}
	info.ActualCRC = actualCRC
	info.SizeBytes = size
	info.LastUpdatedAt = now
	deriveFileState(info, release.SfvEntries)
}

// applySFV installs a freshly parsed SFV listing, re-deriving every
// already-known file's state and creating Missing entries for listed
// files not yet uploaded. Unlisted files currently Pending become
// Extra.
func applySFV(release *ReleaseState, entries map[string]SfvEntry, now time.Time) {
	release.SfvEntries = entries

	for name, entry := range entries {
		info, ok := release.Files[name]
		if !ok {
			expected := entry.ExpectedCRC
			release.Files[name] = &FileInfo{
				FileName:      name,
				ExpectedCRC:   &expected,
				State:         StateMissing,
				CreatedAt:     now,
				LastUpdatedAt: now,
			}
			continue
		}
		deriveFileState(info, entries)
	}

	for name, info := range release.Files {
		if _, listed := entries[name]; listed {
			continue
		}
		if info.State == StatePending {
			info.State = StateExtra
			info.ExpectedCRC = nil
		}
	}
}

func computeCRC32(path string) (*uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("zipscript: open %s: %w", path, err)
	}
	defer f.Close()

	hasher := crc32.NewIEEE()
	if _, err := io.Copy(hasher, f); err != nil {
		return nil, fmt.Errorf("zipscript: read %s: %w", path, err)
	}
	sum := hasher.Sum32()
	return &sum, nil
}

// walkPhysicalRelease walks physicalPath (non-recursively unless
// includeSubdirs), returning each regular file's path relative to
// physicalPath mapped to its size, and the path of the first .sfv file
// found.
func walkPhysicalRelease(physicalPath string, includeSubdirs bool) (map[string]int64, string, error) {
	if physicalPath == "" {
		return nil, "", fmt.Errorf("zipscript: rescan requires a physical release path")
	}

	sizes := make(map[string]int64)
	var sfvPath string

	err := filepath.WalkDir(physicalPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != physicalPath && !includeSubdirs {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(physicalPath, p)
		if relErr != nil {
			rel = d.Name()
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		sizes[rel] = info.Size()

		if sfvPath == "" && strings.EqualFold(filepath.Ext(d.Name()), ".sfv") {
			sfvPath = p
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("zipscript: walk %s: %w", physicalPath, err)
	}
	return sizes, sfvPath, nil
}
