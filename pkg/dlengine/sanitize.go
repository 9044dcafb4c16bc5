package dlengine

import "strings"

// maxFilenameLen is the longest stem+extension SanitizeFilename will
// produce before truncating the stem.
const maxFilenameLen = 150

// invalidFilenameChars are replaced with "_", mirroring the characters
// Windows and most Unix filesystems reject in a path component.
const invalidFilenameChars = "<>:\"/\\|?*"

// SanitizeFilename applies the minimal normalization rule: replace
// filesystem-hostile characters, strip control characters, trim
// surrounding whitespace and trailing dots, fall back to "download" when
// nothing is left, and truncate an overlong stem while preserving the
// extension.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 {
			continue
		}
		if strings.ContainsRune(invalidFilenameChars, r) {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	// Leading whitespace is trimmed on its own, but trailing whitespace
	// and trailing dots are trimmed together in one pass: trimming them
	// separately would leave an alternating run like "foo. . " only
	// partly stripped, since each pass stops at the first character
	// outside its own cutset.
	name = strings.TrimLeft(b.String(), " \t\r\n")
	name = strings.TrimRight(name, " \t\r\n.")
	if name == "" {
		return "download"
	}
	if len(name) <= maxFilenameLen {
		return name
	}
	ext := ""
	if idx := strings.LastIndex(name, "."); idx > 0 {
		ext = name[idx:]
	}
	stem := name[:len(name)-len(ext)]
	keep := maxFilenameLen - len(ext)
	if keep < 1 {
		keep = 1
	}
	if keep > len(stem) {
		keep = len(stem)
	}
	return stem[:keep] + ext
}
