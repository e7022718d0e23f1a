package fsck

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/marmos91/amftpd/pkg/accounts"
)

// Stores bundles the three live stores DeepFsck and Repair operate
// across.
type Stores struct {
	Users    *accounts.UserStore
	Groups   *accounts.GroupStore
	Sections *accounts.SectionStore
}

// Deep runs the cross-store referential integrity checks described in
// spec §4.7.
func Deep(s Stores) *Result {
	res := &Result{}

	users := s.Users.All()
	groups := s.Groups.All()
	sections := s.Sections.All()

	groupNames := nameSet(mapNames(groups, func(g accounts.Group) string { return g.Name }))
	sectionNames := nameSet(mapNames(sections, func(sec accounts.Section) string { return sec.Name }))
	userNames := nameSet(mapNames(users, func(u accounts.User) string { return u.Name }))

	for _, u := range users {
		if u.PrimaryGroup != "" && !groupNames[strings.ToUpper(u.PrimaryGroup)] {
			res.addError("user %q: primary_group %q does not exist", u.Name, u.PrimaryGroup)
		}
		if hasControlChars(u.Name) {
			res.addWarning("user %q: name contains control characters", u.Name)
		}
	}

	for _, g := range groups {
		for _, member := range g.Users {
			if !userNames[strings.ToUpper(member)] {
				res.addError("group %q: member %q does not exist", g.Name, member)
			}
		}
		for section, credits := range g.SectionCredits {
			if !sectionNames[strings.ToUpper(section)] {
				res.addError("group %q: section_credits references unknown section %q", g.Name, section)
			}
			if credits < 0 {
				res.addWarning("group %q: negative credits %d for section %q", g.Name, credits, section)
			}
		}
		if hasControlChars(g.Name) {
			res.addWarning("group %q: name contains control characters", g.Name)
		}
	}

	seenPaths := map[string]string{}
	for _, sec := range sections {
		if sec.Name == "" {
			res.addError("section with empty name (root %q)", sec.VirtualRoot)
		}
		if sec.VirtualRoot == "" {
			res.addError("section %q: empty virtual_root", sec.Name)
		}
		if existing, ok := seenPaths[sec.VirtualRoot]; ok {
			res.addError("sections %q and %q share virtual_root %q", existing, sec.Name, sec.VirtualRoot)
		} else {
			seenPaths[sec.VirtualRoot] = sec.Name
		}
		if sec.NukeMultiplier != nil && *sec.NukeMultiplier < 0 {
			res.addWarning("section %q: negative nuke_multiplier %v", sec.Name, *sec.NukeMultiplier)
		}
	}

	return res
}

// Repair applies the idempotent repair actions described in spec
// §4.7 and force-rewrites all three stores' snapshots.
func Repair(s Stores) error {
	groups := s.Groups.All()
	users := s.Users.All()
	sections := s.Sections.All()

	groupNames := nameSet(mapNames(groups, func(g accounts.Group) string { return g.Name }))
	sectionNames := nameSet(mapNames(sections, func(sec accounts.Section) string { return sec.Name }))
	userNames := nameSet(mapNames(users, func(u accounts.User) string { return u.Name }))

	// 1. Drop unknown-group primary-group references.
	for _, u := range users {
		if u.PrimaryGroup != "" && !groupNames[strings.ToUpper(u.PrimaryGroup)] {
			u.PrimaryGroup = ""
			if err := s.Users.TryUpdate(u); err != nil {
				return fmt.Errorf("fsck: repair user %q: %w", u.Name, err)
			}
		}
	}

	// 2 & 3. Remove unknown members / unknown section credits,
	// deduplicate members, clamp negative credits.
	for _, g := range groups {
		changed := false

		dedup := make([]string, 0, len(g.Users))
		seen := map[string]bool{}
		for _, member := range g.Users {
			key := strings.ToUpper(member)
			if !userNames[key] {
				changed = true
				continue
			}
			if seen[key] {
				changed = true
				continue
			}
			seen[key] = true
			dedup = append(dedup, member)
		}
		g.Users = dedup

		for section, credits := range g.SectionCredits {
			if !sectionNames[strings.ToUpper(section)] {
				delete(g.SectionCredits, section)
				changed = true
				continue
			}
			if credits < 0 {
				g.SectionCredits[section] = 0
				changed = true
			}
		}

		if sanitized, didSanitize := sanitizeName(g.Name); didSanitize {
			changed = true
			if err := s.Groups.TryRename(g.Name, sanitized); err != nil {
				return fmt.Errorf("fsck: repair rename group %q: %w", g.Name, err)
			}
			g.Name = sanitized
		}

		if changed {
			if err := s.Groups.TryUpdate(g); err != nil {
				return fmt.Errorf("fsck: repair group %q: %w", g.Name, err)
			}
		}
	}

	// 4. Drop duplicate-path / empty-named sections, clamp negative
	// multipliers.
	seenPaths := map[string]bool{}
	for _, sec := range sections {
		if sec.Name == "" {
			if err := s.Sections.TryDelete(sec.Name); err != nil {
				return fmt.Errorf("fsck: repair drop empty-named section: %w", err)
			}
			continue
		}
		if seenPaths[sec.VirtualRoot] {
			if err := s.Sections.TryDelete(sec.Name); err != nil {
				return fmt.Errorf("fsck: repair drop duplicate-path section %q: %w", sec.Name, err)
			}
			continue
		}
		seenPaths[sec.VirtualRoot] = true

		if sec.NukeMultiplier != nil && *sec.NukeMultiplier < 0 {
			clamped := 0.0
			sec.NukeMultiplier = &clamped
			if err := s.Sections.TryUpdate(sec); err != nil {
				return fmt.Errorf("fsck: repair section %q: %w", sec.Name, err)
			}
		}
	}

	// 6. Force snapshot rewrite on all three stores.
	if err := s.Users.ForceRewrite(); err != nil {
		return fmt.Errorf("fsck: rewrite users: %w", err)
	}
	if err := s.Groups.ForceRewrite(); err != nil {
		return fmt.Errorf("fsck: rewrite groups: %w", err)
	}
	if err := s.Sections.ForceRewrite(); err != nil {
		return fmt.Errorf("fsck: rewrite sections: %w", err)
	}

	return nil
}

func mapNames[T any](items []T, f func(T) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = f(item)
	}
	return out
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToUpper(n)] = true
	}
	return set
}

func hasControlChars(s string) bool {
	for _, r := range s {
		if r == 0 || unicode.IsControl(r) {
			return true
		}
	}
	return false
}

// sanitizeName strips control/NUL characters from a name, reporting
// whether anything changed.
func sanitizeName(name string) (string, bool) {
	var b strings.Builder
	changed := false
	for _, r := range name {
		if r == 0 || unicode.IsControl(r) {
			changed = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), changed
}
