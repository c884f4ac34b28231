package transport

import (
	"sort"
	"strings"
)

// Cookie is a single authentication cookie.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Jar is a minimal cookie store keyed by cookie name. Setting a cookie
// with an existing name overwrites the previous value; duplicates are
// never appended.
type Jar struct {
	cookies map[string]Cookie
}

// NewJar creates an empty cookie jar.
func NewJar() *Jar {
	return &Jar{cookies: make(map[string]Cookie)}
}

// Set stores a cookie, replacing any existing cookie of the same name.
func (j *Jar) Set(c Cookie) {
	if c.Name == "" {
		return
	}
	j.cookies[c.Name] = c
}

// SetAll stores every cookie in the slice.
func (j *Jar) SetAll(cookies []Cookie) {
	for _, c := range cookies {
		j.Set(c)
	}
}

// Get returns the cookie with the given name, if present.
func (j *Jar) Get(name string) (Cookie, bool) {
	c, ok := j.cookies[name]
	return c, ok
}

// Len returns the number of stored cookies.
func (j *Jar) Len() int {
	return len(j.cookies)
}

// Cookies returns all cookies sorted by name.
func (j *Jar) Cookies() []Cookie {
	out := make([]Cookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// Header renders the jar as a Cookie request header value, or "" when
// the jar is empty.
func (j *Jar) Header() string {
	if len(j.cookies) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(j.cookies))
	for _, c := range j.Cookies() {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, "; ")
}

// Clear removes all cookies.
func (j *Jar) Clear() {
	j.cookies = make(map[string]Cookie)
}

// ParseSetCookie parses one or more Set-Cookie header values into
// cookies. SAP systems fold multiple cookies into a single header line
// separated by commas, and attribute values (notably Expires dates)
// themselves contain commas, so the blob is split only at commas that
// precede a new name= pair.
func ParseSetCookie(values []string) []Cookie {
	var out []Cookie
	for _, v := range values {
		for _, part := range splitSetCookie(v) {
			if c, ok := parseCookiePair(part); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// splitSetCookie splits a folded Set-Cookie blob at comma boundaries
// that are followed by a cookie-name "=" pair.
func splitSetCookie(blob string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(blob); i++ {
		if blob[i] != ',' {
			continue
		}
		if startsNewCookie(blob[i+1:]) {
			parts = append(parts, blob[start:i])
			start = i + 1
		}
	}
	parts = append(parts, blob[start:])
	return parts
}

// startsNewCookie reports whether s begins (after optional spaces) with
// a token followed by "=", i.e. looks like the start of a new cookie
// rather than the tail of an Expires date.
func startsNewCookie(s string) bool {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	nameLen := 0
	for i < len(s) {
		c := s[i]
		if c == '=' {
			return nameLen > 0
		}
		if c == ';' || c == ',' || c == ' ' {
			return false
		}
		nameLen++
		i++
	}
	return false
}

// parseCookiePair extracts name=value plus the Domain and Path
// attributes from a single Set-Cookie entry.
func parseCookiePair(entry string) (Cookie, bool) {
	segments := strings.Split(entry, ";")
	if len(segments) == 0 {
		return Cookie{}, false
	}

	name, value, ok := strings.Cut(strings.TrimSpace(segments[0]), "=")
	if !ok || name == "" {
		return Cookie{}, false
	}

	c := Cookie{Name: name, Value: value}
	for _, seg := range segments[1:] {
		attr, attrVal, _ := strings.Cut(strings.TrimSpace(seg), "=")
		switch strings.ToLower(attr) {
		case "domain":
			c.Domain = attrVal
		case "path":
			c.Path = attrVal
		}
	}
	return c, true
}
