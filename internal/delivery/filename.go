// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package delivery

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

const maxFilenameBytes = 255

var (
	illegalFilenameRunes = runes.Predicate(func(r rune) bool {
		return strings.ContainsRune(`/\?<>:*|"`, r) || unicode.IsControl(r)
	})
	nonPrintableASCII = runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII || !unicode.IsPrint(r)
	})

	reservedNames = map[string]struct{}{
		"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
		"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
		"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
	}
)

// SanitizeFilename strips characters that are illegal in file names on common
// platforms, trims trailing dots and spaces and caps the length at 255 bytes.
// An empty or reserved result yields fallback.
func SanitizeFilename(name, fallback string) string {
	s, _, err := transform.String(runes.Remove(illegalFilenameRunes), name)
	if err != nil {
		return fallback
	}
	s = strings.TrimSpace(s)
	s = truncateUTF8(s, maxFilenameBytes)
	s = strings.TrimRight(s, ". ")

	if s == "" {
		return fallback
	}
	if _, reserved := reservedNames[strings.ToUpper(s)]; reserved {
		return fallback
	}
	return s
}

// ASCIIFallback drops every rune outside printable ASCII.
func ASCIIFallback(name string) string {
	s, _, err := transform.String(runes.Remove(nonPrintableASCII), name)
	if err != nil {
		return ""
	}
	return s
}

// ContentDisposition builds an attachment header carrying an ASCII filename
// and an RFC 5987 UTF-8 filename*.
func ContentDisposition(title, ext, fallback string) string {
	name := SanitizeFilename(title, fallback)
	ascii := ASCIIFallback(name)
	if strings.TrimSpace(ascii) == "" {
		ascii = fallback
	}
	return fmt.Sprintf(`attachment; filename="%s.%s"; filename*=UTF-8''%s`,
		ascii, ext, EncodeExtValue(name+"."+ext))
}

// EncodeExtValue percent-encodes s as UTF-8, leaving only RFC 5987 attr-chars.
func EncodeExtValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}

func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
