package accounts

import (
	"fmt"
	"sort"
)

// GroupCodec implements walstore.Codec[Group].
type GroupCodec struct{}

func (GroupCodec) Key(g Group) string { return normalizeKey(g.Name) }

func (GroupCodec) Rename(g Group, newName string) Group {
	g.Name = newName
	return g
}

func (GroupCodec) Encode(g Group) ([]byte, error) {
	users := append([]string(nil), g.Users...)

	credNames := make([]string, 0, len(g.SectionCredits))
	for name := range g.SectionCredits {
		credNames = append(credNames, name)
	}
	sort.Strings(credNames) // deterministic framing across re-encodes

	buf := make([]byte, 0, 32+len(g.Name)+len(g.Description))
	buf = writeU16(buf, uint16(len(g.Name)))
	buf = writeU16(buf, uint16(len(g.Description)))
	buf = writeU16(buf, uint16(len(users)))
	buf = writeU16(buf, uint16(len(credNames)))

	buf = append(buf, g.Name...)
	buf = append(buf, g.Description...)

	for _, user := range users {
		buf = writeString(buf, user)
	}
	for _, name := range credNames {
		buf = writeString(buf, name)
		buf = writeI64(buf, g.SectionCredits[name])
	}

	return buf, nil
}

func (GroupCodec) Decode(body []byte) (Group, error) {
	offset := 0
	nameLen, offset, err := readU16(body, offset)
	if err != nil {
		return Group{}, err
	}
	descLen, offset, err := readU16(body, offset)
	if err != nil {
		return Group{}, err
	}
	userCount, offset, err := readU16(body, offset)
	if err != nil {
		return Group{}, err
	}
	credCount, offset, err := readU16(body, offset)
	if err != nil {
		return Group{}, err
	}

	if offset+int(nameLen) > len(body) {
		return Group{}, fmt.Errorf("accounts: truncated group name at offset %d", offset)
	}
	name := string(body[offset : offset+int(nameLen)])
	offset += int(nameLen)

	if offset+int(descLen) > len(body) {
		return Group{}, fmt.Errorf("accounts: truncated group description at offset %d", offset)
	}
	desc := string(body[offset : offset+int(descLen)])
	offset += int(descLen)

	users := make([]string, 0, userCount)
	for i := uint16(0); i < userCount; i++ {
		var user string
		user, offset, err = readString(body, offset)
		if err != nil {
			return Group{}, err
		}
		users = append(users, user)
	}

	credits := make(map[string]int64, credCount)
	for i := uint16(0); i < credCount; i++ {
		var section string
		section, offset, err = readString(body, offset)
		if err != nil {
			return Group{}, err
		}
		var amount int64
		amount, offset, err = readI64(body, offset)
		if err != nil {
			return Group{}, err
		}
		credits[section] = amount
	}

	return Group{
		Name:           name,
		Description:    desc,
		Users:          users,
		SectionCredits: credits,
	}, nil
}
