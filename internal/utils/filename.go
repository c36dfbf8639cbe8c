package utils

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxFilenameLength = 200

var (
	// Characters invalid in filenames on most filesystems, plus control characters
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)
	// Multiple spaces to collapse
	multipleSpaces = regexp.MustCompile(`\s+`)
)

// SanitizeFilename makes a client-supplied or derived name safe to offer in
// Content-Disposition. It returns "" when nothing usable is left.
func SanitizeFilename(filename string) string {
	// Keep only the last path element of either separator style
	filename = filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if filename == "." || filename == "/" {
		return ""
	}

	filename = strings.ToValidUTF8(filename, "")
	filename = multipleSpaces.ReplaceAllString(filename, " ")
	filename = invalidFilenameChars.ReplaceAllString(filename, "")
	filename = strings.TrimSpace(filename)
	filename = strings.Trim(filename, ".")

	if len(filename) > maxFilenameLength {
		ext := filepath.Ext(filename)
		if len(ext) > 10 {
			ext = ""
		}
		filename = truncateUTF8(filename[:len(filename)-len(ext)], maxFilenameLength-len(ext)) + ext
	}

	return filename
}

// TitleFilename builds a download name such as "War and Peace.pdf" from a title.
func TitleFilename(title, ext string) string {
	name := SanitizeFilename(strings.ReplaceAll(title, "/", " "))
	if name == "" {
		return ""
	}
	return name + ext
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return strings.TrimSpace(s)
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return strings.TrimSpace(s[:n])
}
