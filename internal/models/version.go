package models

import (
	"regexp"
	"strings"
)

// pep440Pattern matches public versions plus an optional local label.
// Groups: 1 epoch, 2 release, 3-4 pre, 5 implicit post, 6-7 post, 8-9 dev, 10 local.
var pep440Pattern = regexp.MustCompile(`^v?(?:(\d+)!)?(\d+(?:\.\d+)*)` +
	`(?:[-_.]?(alpha|beta|preview|pre|rc|a|b|c)[-_.]?(\d+)?)?` +
	`(?:-(\d+)|[-_.]?(post|rev|r)[-_.]?(\d+)?)?` +
	`(?:[-_.]?(dev)[-_.]?(\d+)?)?` +
	`(?:\+([a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`)

var preReleaseLabels = map[string]string{
	"a": "a", "alpha": "a",
	"b": "b", "beta": "b",
	"c": "rc", "rc": "rc", "pre": "rc", "preview": "rc",
}

// NormalizeVersion returns a comparison key under which PEP 440 equivalent
// spellings agree: "1.0rc1", "1.0.0-RC.1" and "v1.0c1" all map to "1rc1".
// Strings that are not valid versions are only lower-cased.
func NormalizeVersion(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	m := pep440Pattern.FindStringSubmatch(v)
	if m == nil {
		return v
	}

	var sb strings.Builder
	if epoch := strings.TrimLeft(m[1], "0"); epoch != "" {
		sb.WriteString(epoch + "!")
	}

	// trailing zero segments do not change the version
	release := strings.Split(m[2], ".")
	for len(release) > 1 && trimNumber(release[len(release)-1]) == "0" {
		release = release[:len(release)-1]
	}
	for i, seg := range release {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(trimNumber(seg))
	}

	if m[3] != "" {
		sb.WriteString(preReleaseLabels[m[3]] + trimNumber(m[4]))
	}
	switch {
	case m[5] != "":
		sb.WriteString(".post" + trimNumber(m[5]))
	case m[6] != "":
		sb.WriteString(".post" + trimNumber(m[7]))
	}
	if m[8] != "" {
		sb.WriteString(".dev" + trimNumber(m[9]))
	}
	if m[10] != "" {
		sb.WriteString("+" + strings.NewReplacer("-", ".", "_", ".").Replace(m[10]))
	}
	return sb.String()
}

// SameVersion reports whether a and b spell the same PEP 440 version
func SameVersion(a, b string) bool {
	return NormalizeVersion(a) == NormalizeVersion(b)
}

// trimNumber drops leading zeros; an empty number is 0
func trimNumber(s string) string {
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "0"
	}
	return s
}
