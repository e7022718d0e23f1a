package accounts

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// writeString appends a u16-length-prefixed UTF-8 string to buf.
func writeString(buf []byte, s string) []byte {
	b := []byte(s)
	lenBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBuf, uint16(len(b)))
	buf = append(buf, lenBuf...)
	buf = append(buf, b...)
	return buf
}

// readString reads a u16-length-prefixed UTF-8 string starting at
// offset, returning the string and the new offset.
func readString(body []byte, offset int) (string, int, error) {
	if offset+2 > len(body) {
		return "", 0, fmt.Errorf("accounts: truncated string length at offset %d", offset)
	}
	n := int(binary.LittleEndian.Uint16(body[offset : offset+2]))
	offset += 2
	if offset+n > len(body) {
		return "", 0, fmt.Errorf("accounts: truncated string body at offset %d", offset)
	}
	return string(body[offset : offset+n]), offset + n, nil
}

func writeU16(buf []byte, v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return append(buf, b...)
}

func writeI32(buf []byte, v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return append(buf, b...)
}

func writeI64(buf []byte, v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return append(buf, b...)
}

func writeF64(buf []byte, v float64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return append(buf, b...)
}

func writeBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func readU16(body []byte, offset int) (uint16, int, error) {
	if offset+2 > len(body) {
		return 0, 0, fmt.Errorf("accounts: truncated u16 at offset %d", offset)
	}
	return binary.LittleEndian.Uint16(body[offset : offset+2]), offset + 2, nil
}

func readI32(body []byte, offset int) (int32, int, error) {
	if offset+4 > len(body) {
		return 0, 0, fmt.Errorf("accounts: truncated i32 at offset %d", offset)
	}
	return int32(binary.LittleEndian.Uint32(body[offset : offset+4])), offset + 4, nil
}

func readI64(body []byte, offset int) (int64, int, error) {
	if offset+8 > len(body) {
		return 0, 0, fmt.Errorf("accounts: truncated i64 at offset %d", offset)
	}
	return int64(binary.LittleEndian.Uint64(body[offset : offset+8])), offset + 8, nil
}

func readF64(body []byte, offset int) (float64, int, error) {
	if offset+8 > len(body) {
		return 0, 0, fmt.Errorf("accounts: truncated f64 at offset %d", offset)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(body[offset : offset+8])), offset + 8, nil
}

func readBool(body []byte, offset int) (bool, int, error) {
	if offset+1 > len(body) {
		return false, 0, fmt.Errorf("accounts: truncated bool at offset %d", offset)
	}
	return body[offset] != 0, offset + 1, nil
}

// normalizeKey returns the ASCII-case-insensitive comparison key for
// a record name.
func normalizeKey(name string) string {
	return strings.ToUpper(name)
}
