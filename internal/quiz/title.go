package quiz

import (
	"regexp"
	"strings"
)

var (
	titlePattern = regexp.MustCompile(`^\d{2}_\d{2}_(.+)$`)
	idPattern    = regexp.MustCompile(`^(\d{2}_\d{2})_`)
)

// stem returns the percent-decoded last path segment of key without ext.
func stem(key, ext string) string {
	name := key
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(unescape(name), ext)
}

// unescape decodes every valid %XX triplet and keeps any other '%' literal.
// '+' is not a space. Byte sequences that are not UTF-8 become U+FFFD.
func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			buf = append(buf, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
			continue
		}
		buf = append(buf, s[i])
	}
	return strings.ToValidUTF8(string(buf), "\uFFFD")
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	default:
		return c - '0'
	}
}

// Title derives the display title for an audio key. "intro_music/01_02_My%20Song.wav"
// becomes "My Song"; names without the NN_NN_ prefix keep their whole stem.
func Title(key, ext string) string {
	s := stem(key, ext)
	if m := titlePattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// Identifier returns the NN_NN prefix of the key's file name, if any.
func Identifier(key, ext string) (string, bool) {
	m := idPattern.FindStringSubmatch(stem(key, ext))
	if m == nil {
		return "", false
	}
	return m[1], true
}
