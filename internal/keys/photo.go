package keys

import (
	"path"
	"strings"
)

// Normalize turns a relative photo path into the canonical form used as the
// sidecar key: forward slashes, no leading "./" or "/".
func Normalize(rel string) string {
	p := strings.ReplaceAll(rel, "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return strings.TrimLeft(p, "/")
}

// PublicPath returns the URL under which the site serves a photo.
func PublicPath(prefix, rel string) string {
	if prefix = strings.Trim(prefix, "/"); prefix == "" {
		return "/" + Normalize(rel)
	}
	return "/" + prefix + "/" + Normalize(rel)
}

// Object returns the canonical bucket key for a photo or artifact, rooted at
// prefix. An empty prefix yields the normalized path.
func Object(prefix, rel string) string {
	prefix = strings.Trim(Normalize(prefix), "/")
	if prefix == "" {
		return Normalize(rel)
	}
	return path.Join(prefix, Normalize(rel))
}

// Relative undoes PublicPath: it strips prefix from a public path and
// returns the normalized relative photo path.
func Relative(prefix, public string) string {
	p := strings.TrimLeft(public, "/")
	if pre := strings.Trim(prefix, "/"); pre != "" {
		p = strings.TrimPrefix(p, pre+"/")
	}
	return Normalize(p)
}
