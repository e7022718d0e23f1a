// Package zipscript implements the release-tracking engine: per-release
// state keyed by virtual directory path, SFV parsing and CRC32
// verification, the nuke/unnuke lifecycle, a versioned JSON snapshot,
// and a reference-counted per-release rescan guard.
package zipscript

import "time"

// FileState is the verification state of one file within a release.
type FileState string

const (
	StatePending FileState = "pending"
	StateMissing FileState = "missing"
	StateOk      FileState = "ok"
	StateBadCrc  FileState = "bad_crc"
	StateExtra   FileState = "extra"
	StateDeleted FileState = "deleted"
	StateNuked   FileState = "nuked"
)

// FileInfo tracks one file's verification and nuke state within a
// release.
type FileInfo struct {
	FileName      string
	ExpectedCRC   *uint32
	ActualCRC     *uint32
	SizeBytes     int64
	State         FileState
	CreatedAt     time.Time
	LastUpdatedAt time.Time

	IsNuked    bool
	WasNuked   bool
	NukeReason string
	NukedBy    string
	NukedAt    *time.Time
	// NukeMultiplier carries the multiplier applied at nuke time for
	// credit-reversal bookkeeping performed by the ratio-rule
	// collaborator; this engine only stores and returns it.
	NukeMultiplier *float64
}

// SfvEntry is one parsed line of an SFV manifest.
type SfvEntry struct {
	FileName    string
	ExpectedCRC uint32
}

// ReleaseState is the durable, in-memory state of one release
// directory.
type ReleaseState struct {
	ReleasePath     string
	SectionName     string
	SfvVirtualPath  string
	SfvPhysicalPath string
	StartedAt       time.Time
	LastUpdatedAt   time.Time

	IsNuked        bool
	WasNuked       bool
	NukeReason     string
	NukedBy        string
	NukeMultiplier *float64
	NukedAt        *time.Time

	Files      map[string]*FileInfo
	SfvEntries map[string]SfvEntry
}

// ReleaseStatus is the read-only, value-copy view of a ReleaseState
// returned to callers and carried in events.
type ReleaseStatus struct {
	ReleasePath    string
	SectionName    string
	HasSfv         bool
	IsNuked        bool
	WasNuked       bool
	NukeReason     string
	NukedBy        string
	NukeMultiplier *float64
	NukedAt        *time.Time
	StartedAt      time.Time
	LastUpdatedAt  time.Time
	Files          []FileInfo
	Complete       bool
}

// UploadContext carries the inputs to OnUploadComplete.
type UploadContext struct {
	Section          string
	VirtualFilePath  string
	PhysicalFilePath string
	SizeBytes        int64
	User             string
	CompletedAt      time.Time
}

// DeleteContext carries the inputs to OnDelete.
type DeleteContext struct {
	Section      string
	VirtualPath  string
	PhysicalPath string
	IsDirectory  bool
	User         string
	DeletedAt    time.Time
}

// RescanContext carries the inputs to OnRescanDir.
type RescanContext struct {
	Section             string
	VirtualReleasePath  string
	PhysicalReleasePath string
	User                string
	IncludeSubdirs      bool
	RequestedAt         time.Time
}

// PreContext is emitted the first time a release is observed.
type PreContext struct {
	ReleasePath string
	SectionName string
	User        string
	DetectedAt  time.Time
}

// Events is the set of callbacks the engine invokes synchronously,
// before releasing its per-engine mutation lock; listeners must not
// re-enter the engine from within a callback.
type Events struct {
	ReleaseUpdated   func(ReleaseStatus)
	ReleaseCompleted func(ReleaseStatus)
	PreDetected      func(PreContext)
}

func noopEvents() Events {
	return Events{
		ReleaseUpdated:   func(ReleaseStatus) {},
		ReleaseCompleted: func(ReleaseStatus) {},
		PreDetected:      func(PreContext) {},
	}
}
