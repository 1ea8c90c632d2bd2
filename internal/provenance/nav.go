package provenance

import "strings"

// NormalizePath strips trailing slashes. The empty path is "/".
func NormalizePath(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}

// ActiveLinks reports, for each href, whether it points at path.
func ActiveLinks(path string, hrefs []string) []bool {
	current := NormalizePath(path)

	active := make([]bool, len(hrefs))
	for i, href := range hrefs {
		active[i] = NormalizePath(href) == current
	}
	return active
}
