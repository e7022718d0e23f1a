// Package accounts defines the User, Group, and Section record types,
// their exact binary wire layouts, and the WAL entry kinds used to
// instantiate the generic walstore.Store[T] three times.
package accounts

import "math"

// User flag bits packed into FlagsRaw.
const (
	UserFlagAdmin = int32(1) << iota
	UserFlagFXP
	UserFlagUpload
	UserFlagDownload
	UserFlagActiveMode
	UserFlagRequireIdent
)

// InfiniteCredits marks a user as having unlimited credit, used for
// the bootstrap admin account.
const InfiniteCredits = int64(math.MaxInt64)

// User is one account record.
type User struct {
	Name                string
	PasswordHash        string
	HomeDir             string
	FlagsRaw            int32
	MaxConcurrentLogins int32
	IdleTimeoutSec      int32
	MaxUpKbps           int32
	MaxDownKbps         int32
	CreditsKB           int64
	PrimaryGroup        string // empty = none
	AllowedIPMask       string // empty = none
	RequiredIdent       string // empty = none
}

func (u User) hasFlag(bit int32) bool { return u.FlagsRaw&bit != 0 }

func (u *User) setFlag(bit int32, on bool) {
	if on {
		u.FlagsRaw |= bit
	} else {
		u.FlagsRaw &^= bit
	}
}

func (u User) IsAdmin() bool        { return u.hasFlag(UserFlagAdmin) }
func (u User) AllowsFXP() bool      { return u.hasFlag(UserFlagFXP) }
func (u User) AllowsUpload() bool   { return u.hasFlag(UserFlagUpload) }
func (u User) AllowsDownload() bool { return u.hasFlag(UserFlagDownload) }
func (u User) IsActiveMode() bool   { return u.hasFlag(UserFlagActiveMode) }
func (u User) RequiresIdent() bool  { return u.hasFlag(UserFlagRequireIdent) }

func (u *User) SetAdmin(on bool)        { u.setFlag(UserFlagAdmin, on) }
func (u *User) SetFXP(on bool)          { u.setFlag(UserFlagFXP, on) }
func (u *User) SetUpload(on bool)       { u.setFlag(UserFlagUpload, on) }
func (u *User) SetDownload(on bool)     { u.setFlag(UserFlagDownload, on) }
func (u *User) SetActiveMode(on bool)   { u.setFlag(UserFlagActiveMode, on) }
func (u *User) SetRequireIdent(on bool) { u.setFlag(UserFlagRequireIdent, on) }

// Group is a collection of member users plus per-section credit
// amounts in KB.
type Group struct {
	Name           string
	Description    string
	Users          []string
	SectionCredits map[string]int64 // section name -> credits_kb
}

// Section is a named virtual root with ratio and nuke-multiplier
// settings.
type Section struct {
	Name              string
	VirtualRoot       string
	FreeLeech         bool
	RatioUploadUnit   int32
	RatioDownloadUnit int32
	NukeMultiplier    *float64 // nil = has_nuke_mult false
}
