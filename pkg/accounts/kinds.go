package accounts

import "github.com/marmos91/amftpd/pkg/walstore"

// WalEntry kind bytes, one set per store, matching spec's WalEntry
// kind enumeration (AddUser..DeleteSection).
const (
	KindAddUser byte = iota
	KindUpdateUser
	KindDeleteUser
	KindAddGroup
	KindUpdateGroup
	KindDeleteGroup
	KindRenameGroup
	KindAddSection
	KindUpdateSection
	KindDeleteSection
)

// UserKinds returns the Kinds mapping for the user store. Users
// cannot be renamed.
func UserKinds() walstore.Kinds {
	return walstore.Kinds{Add: KindAddUser, Update: KindUpdateUser, Delete: KindDeleteUser}
}

// GroupKinds returns the Kinds mapping for the group store, the only
// store that supports rename.
func GroupKinds() walstore.Kinds {
	rename := KindRenameGroup
	return walstore.Kinds{Add: KindAddGroup, Update: KindUpdateGroup, Delete: KindDeleteGroup, Rename: &rename}
}

// SectionKinds returns the Kinds mapping for the section store.
// Sections cannot be renamed.
func SectionKinds() walstore.Kinds {
	return walstore.Kinds{Add: KindAddSection, Update: KindUpdateSection, Delete: KindDeleteSection}
}
