package accounts

import "fmt"

// SectionCodec implements walstore.Codec[Section].
type SectionCodec struct{}

func (SectionCodec) Key(s Section) string { return normalizeKey(s.Name) }

// Rename exists to satisfy walstore.Codec[T]; sections are never
// renamed (Kinds.Rename is unset for the section store).
func (SectionCodec) Rename(s Section, newName string) Section {
	s.Name = newName
	return s
}

func (SectionCodec) Encode(s Section) ([]byte, error) {
	buf := make([]byte, 0, 32+len(s.Name)+len(s.VirtualRoot))
	buf = writeU16(buf, uint16(len(s.Name)))
	buf = writeU16(buf, uint16(len(s.VirtualRoot)))
	buf = writeBool(buf, s.FreeLeech)
	buf = writeI32(buf, s.RatioUploadUnit)
	buf = writeI32(buf, s.RatioDownloadUnit)

	buf = writeBool(buf, s.NukeMultiplier != nil)
	if s.NukeMultiplier != nil {
		buf = writeF64(buf, *s.NukeMultiplier)
	}

	buf = append(buf, s.Name...)
	buf = append(buf, s.VirtualRoot...)
	return buf, nil
}

func (SectionCodec) Decode(body []byte) (Section, error) {
	offset := 0
	nameLen, offset, err := readU16(body, offset)
	if err != nil {
		return Section{}, err
	}
	rootLen, offset, err := readU16(body, offset)
	if err != nil {
		return Section{}, err
	}

	var s Section
	if s.FreeLeech, offset, err = readBool(body, offset); err != nil {
		return Section{}, err
	}
	if s.RatioUploadUnit, offset, err = readI32(body, offset); err != nil {
		return Section{}, err
	}
	if s.RatioDownloadUnit, offset, err = readI32(body, offset); err != nil {
		return Section{}, err
	}

	hasNukeMult, offset, err := readBool(body, offset)
	if err != nil {
		return Section{}, err
	}
	if hasNukeMult {
		var mult float64
		mult, offset, err = readF64(body, offset)
		if err != nil {
			return Section{}, err
		}
		s.NukeMultiplier = &mult
	}

	if offset+int(nameLen) > len(body) {
		return Section{}, fmt.Errorf("accounts: truncated section name at offset %d", offset)
	}
	s.Name = string(body[offset : offset+int(nameLen)])
	offset += int(nameLen)

	if offset+int(rootLen) > len(body) {
		return Section{}, fmt.Errorf("accounts: truncated section root at offset %d", offset)
	}
	s.VirtualRoot = string(body[offset : offset+int(rootLen)])
	offset += int(rootLen)

	return s, nil
}

// NormalizeVirtualRoot replaces backslashes with slashes and ensures a
// leading slash, per invariant 4.
func NormalizeVirtualRoot(root string) string {
	out := make([]byte, 0, len(root)+1)
	for i := 0; i < len(root); i++ {
		c := root[i]
		if c == '\\' {
			c = '/'
		}
		out = append(out, c)
	}
	if len(out) == 0 || out[0] != '/' {
		out = append([]byte{'/'}, out...)
	}
	return string(out)
}
