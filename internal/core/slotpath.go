package core

import "strings"

const slotPrefix = "slot:"

// DecodeSlotpath replaces every "$XX" hex escape with the character it names.
// Escapes that decode to new escapes are decoded again until none remain, so
// DecodeSlotpath(DecodeSlotpath(s)) == DecodeSlotpath(s).
func DecodeSlotpath(s string) string {
	for {
		next := decodeEscapes(s)
		if next == s {
			return s
		}
		s = next
	}
}

func decodeEscapes(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '$' && i+2 < len(s) {
			hi, okHi := unhex(s[i+1])
			lo, okLo := unhex(s[i+2])
			if okHi && okLo {
				b.WriteRune(rune(hi<<4 | lo))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// JoinKey canonicalizes a slot identifier for joins: the leading "slot:"
// scheme is removed, escapes are decoded and surrounding whitespace trimmed.
// JoinKey is idempotent.
func JoinKey(s string) string {
	for {
		next := strings.TrimSpace(DecodeSlotpath(strings.TrimPrefix(strings.TrimSpace(s), slotPrefix)))
		if next == s {
			return s
		}
		s = next
	}
}
