package accounts

import (
	"log/slog"

	"github.com/marmos91/amftpd/pkg/walstore"
)

// UserStore, GroupStore, and SectionStore are the three store
// instantiations consumed by pkg/database and pkg/fsck.
type (
	UserStore    = walstore.Store[User]
	GroupStore   = walstore.Store[Group]
	SectionStore = walstore.Store[Section]
)

// OpenUserStore opens (or creates, bootstrapping the admin user) the
// user store at dir.
func OpenUserStore(dir, password string, maxWalBytes int64, logger *slog.Logger) (*UserStore, error) {
	return walstore.Open[User](dir, "users", password, UserCodec{}, UserKinds(), BootstrapUsers, maxWalBytes, logger)
}

// OpenGroupStore opens (or creates, bootstrapping the admins group)
// the group store at dir.
func OpenGroupStore(dir, password string, maxWalBytes int64, logger *slog.Logger) (*GroupStore, error) {
	return walstore.Open[Group](dir, "groups", password, GroupCodec{}, GroupKinds(), BootstrapGroups, maxWalBytes, logger)
}

// OpenSectionStore opens (or creates, bootstrapping the default
// section) the section store at dir.
func OpenSectionStore(dir, password string, maxWalBytes int64, logger *slog.Logger) (*SectionStore, error) {
	return walstore.Open[Section](dir, "sections", password, SectionCodec{}, SectionKinds(), BootstrapSections, maxWalBytes, logger)
}
