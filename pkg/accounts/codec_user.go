package accounts

import "fmt"

// userRecordType is the only currently-defined user record kind; kept
// as an explicit leading byte to allow future evolution to other user
// kinds without breaking the framing of existing snapshots.
const userRecordType = 0

// UserCodec implements walstore.Codec[User].
type UserCodec struct{}

func (UserCodec) Key(u User) string { return normalizeKey(u.Name) }

func (UserCodec) Rename(u User, newName string) User {
	u.Name = newName
	return u
}

func (UserCodec) Encode(u User) ([]byte, error) {
	buf := make([]byte, 0, 64+len(u.Name)+len(u.PasswordHash)+len(u.HomeDir))
	buf = append(buf, userRecordType)

	buf = writeU16(buf, uint16(len(u.Name)))
	buf = writeU16(buf, uint16(len(u.PasswordHash)))
	buf = writeU16(buf, uint16(len(u.HomeDir)))
	buf = writeU16(buf, uint16(len(u.PrimaryGroup)))

	buf = writeI32(buf, u.FlagsRaw)
	buf = writeI32(buf, u.MaxConcurrentLogins)
	buf = writeI32(buf, u.IdleTimeoutSec)
	buf = writeI32(buf, u.MaxUpKbps)
	buf = writeI32(buf, u.MaxDownKbps)
	buf = writeI64(buf, u.CreditsKB)

	buf = writeU16(buf, uint16(len(u.AllowedIPMask)))
	buf = writeU16(buf, uint16(len(u.RequiredIdent)))

	buf = append(buf, u.Name...)
	buf = append(buf, u.PasswordHash...)
	buf = append(buf, u.HomeDir...)
	buf = append(buf, u.PrimaryGroup...)
	buf = append(buf, u.AllowedIPMask...)
	buf = append(buf, u.RequiredIdent...)

	return buf, nil
}

func (UserCodec) Decode(b []byte) (User, error) {
	if len(b) < 1 {
		return User{}, fmt.Errorf("accounts: empty user record")
	}
	if b[0] != userRecordType {
		return User{}, fmt.Errorf("accounts: unknown user record type %d", b[0])
	}
	body := b[1:]
	offset := 0

	nameLen, offset, err := readU16(body, offset)
	if err != nil {
		return User{}, err
	}
	passLen, offset, err := readU16(body, offset)
	if err != nil {
		return User{}, err
	}
	homeLen, offset, err := readU16(body, offset)
	if err != nil {
		return User{}, err
	}
	groupLen, offset, err := readU16(body, offset)
	if err != nil {
		return User{}, err
	}

	var u User
	if u.FlagsRaw, offset, err = readI32(body, offset); err != nil {
		return User{}, err
	}
	if u.MaxConcurrentLogins, offset, err = readI32(body, offset); err != nil {
		return User{}, err
	}
	if u.IdleTimeoutSec, offset, err = readI32(body, offset); err != nil {
		return User{}, err
	}
	if u.MaxUpKbps, offset, err = readI32(body, offset); err != nil {
		return User{}, err
	}
	if u.MaxDownKbps, offset, err = readI32(body, offset); err != nil {
		return User{}, err
	}
	if u.CreditsKB, offset, err = readI64(body, offset); err != nil {
		return User{}, err
	}

	ipLen, offset, err := readU16(body, offset)
	if err != nil {
		return User{}, err
	}
	identLen, offset, err := readU16(body, offset)
	if err != nil {
		return User{}, err
	}

	fields := []struct {
		dst *string
		n   uint16
	}{
		{&u.Name, nameLen},
		{&u.PasswordHash, passLen},
		{&u.HomeDir, homeLen},
		{&u.PrimaryGroup, groupLen},
		{&u.AllowedIPMask, ipLen},
		{&u.RequiredIdent, identLen},
	}
	for _, f := range fields {
		if offset+int(f.n) > len(body) {
			return User{}, fmt.Errorf("accounts: truncated user field at offset %d", offset)
		}
		*f.dst = string(body[offset : offset+int(f.n)])
		offset += int(f.n)
	}

	return u, nil
}
