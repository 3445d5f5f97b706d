package text

import (
	"unicode/utf8"

	"lspedit/types"
)

// RuneUnits returns the number of units r occupies under enc.
// Characters outside the BMP take two UTF-16 code units.
func RuneUnits(r rune, enc types.OffsetEncoding) int {
	switch enc {
	case types.EncodingUTF8:
		if n := utf8.RuneLen(r); n > 0 {
			return n
		}
		return 1
	case types.EncodingUTF32:
		return 1
	default:
		if r >= 0x10000 && r <= utf8.MaxRune {
			return 2
		}
		return 1
	}
}

// runeAt decodes the scalar value at line[i:] and its width under enc.
// An invalid byte counts as a single unit in every encoding.
func runeAt(line string, i int, enc types.OffsetEncoding) (int, int) {
	r, size := utf8.DecodeRuneInString(line[i:])
	if r == utf8.RuneError && size <= 1 {
		return 1, 1
	}
	return size, RuneUnits(r, enc)
}

// Length returns the length of line measured in enc units.
func Length(line string, enc types.OffsetEncoding) int {
	if enc == types.EncodingUTF8 {
		return len(line)
	}
	n := 0
	for i := 0; i < len(line); {
		size, units := runeAt(line, i, enc)
		n += units
		i += size
	}
	return n
}

// ConvertIndex translates a character index measured in from units into the
// equivalent index measured in to units for the given line.
//
// The index is clamped into [0, Length(line, from)]. An index that falls
// inside a multi-unit scalar value resolves to the end of that value.
func ConvertIndex(line string, index int, from, to types.OffsetEncoding) int {
	if index <= 0 {
		return 0
	}
	if from == to {
		return min(index, Length(line, from))
	}

	src, dst := 0, 0
	for i := 0; i < len(line) && src < index; {
		size, srcUnits := runeAt(line, i, from)
		_, dstUnits := runeAt(line, i, to)
		src += srcUnits
		dst += dstUnits
		i += size
	}
	return dst
}

// ToUTF8Index converts index measured in enc to a byte offset into line.
func ToUTF8Index(line string, index int, enc types.OffsetEncoding) int {
	return ConvertIndex(line, index, enc, types.EncodingUTF8)
}

// FromUTF8Index converts a byte offset into line to an index measured in enc.
func FromUTF8Index(line string, byteIndex int, enc types.OffsetEncoding) int {
	return ConvertIndex(line, byteIndex, types.EncodingUTF8, enc)
}
