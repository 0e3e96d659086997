package transmission

import (
	"strings"
	"unicode"
)

const (
	unixSeparator    = '/'
	windowsSeparator = '\\'
)

// NormalizePath brings a daemon-side path to the form the daemon reports it in.
//
// Surrounding whitespace is always trimmed. When caps is known the path is
// also cleaned for the daemon's OS: Windows backslashes become slashes and the
// drive letter of absolute paths is upper-cased, repeated separators collapse
// (a leading "//" of a Windows UNC path is kept) and a trailing separator is
// dropped unless the path is a root.
func NormalizePath(path string, caps *ServerCapabilities) string {
	normalized := strings.TrimSpace(path)
	if normalized == "" || caps == nil {
		return normalized
	}

	windows := caps.OS == ServerOSWindows
	if windows {
		normalized = strings.ReplaceAll(normalized, string(windowsSeparator), string(unixSeparator))
		if isAbsoluteDOSPath(normalized) {
			normalized = string(unicode.ToUpper(rune(normalized[0]))) + normalized[1:]
		}
	}

	normalized = collapseSeparators(normalized, windows)

	minLength := 1
	if windows {
		minLength = 3
	}
	if len(normalized) > minLength && normalized[len(normalized)-1] == unixSeparator {
		normalized = normalized[:len(normalized)-1]
	}
	return normalized
}

// ToNativeSeparators converts a normalized path back to backslashes for
// Windows daemons.
func ToNativeSeparators(path string, os ServerOS) string {
	if os == ServerOSWindows {
		return strings.ReplaceAll(path, string(unixSeparator), string(windowsSeparator))
	}
	return path
}

// isAbsoluteDOSPath matches "X:/..." style paths.
func isAbsoluteDOSPath(path string) bool {
	if len(path) < 3 || path[1] != ':' || path[2] != unixSeparator {
		return false
	}
	c := path[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func collapseSeparators(path string, keepLeadingPair bool) string {
	var b strings.Builder
	b.Grow(len(path))

	i := 0
	if keepLeadingPair && strings.HasPrefix(path, "//") {
		b.WriteString("//")
		for i < len(path) && path[i] == unixSeparator {
			i++
		}
	}

	for ; i < len(path); i++ {
		if path[i] == unixSeparator && i > 0 && path[i-1] == unixSeparator {
			continue
		}
		b.WriteByte(path[i])
	}
	return b.String()
}
