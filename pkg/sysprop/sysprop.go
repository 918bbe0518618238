// Package sysprop reads Android-style system properties.
//
// Values are always looked up on demand, so callers observe property changes
// without restarting.
package sysprop

import (
	"strconv"
	"strings"
)

// Reader looks up a single property. A property that is not set reports
// ok == false.
type Reader interface {
	Get(key string) (value string, ok bool)
}

// String returns the property value or def when it is unset or empty.
func String(r Reader, key, def string) string {
	v, ok := r.Get(key)
	if !ok || v == "" {
		return def
	}
	return v
}

// Int parses the property as a 32-bit integer. Decimal, 0x-hex and 0-octal
// forms are accepted; anything else yields def.
func Int(r Reader, key string, def int) int {
	v, ok := r.Get(key)
	if !ok || v == "" {
		return def
	}

	n, err := strconv.ParseInt(strings.TrimSpace(v), 0, 32)
	if err != nil {
		return def
	}
	return int(n)
}

// Bool follows the Android spelling rules: 1, y, yes, on, true are true and
// 0, n, no, off, false are false. Other values yield def.
func Bool(r Reader, key string, def bool) bool {
	v, ok := r.Get(key)
	if !ok {
		return def
	}

	switch v {
	case "1", "y", "yes", "on", "true":
		return true
	case "0", "n", "no", "off", "false":
		return false
	default:
		return def
	}
}

// Map is an in-memory Reader.
type Map map[string]string

func (m Map) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Layered consults each Reader in order and returns the first hit.
type Layered []Reader

func (l Layered) Get(key string) (string, bool) {
	for _, r := range l {
		if v, ok := r.Get(key); ok {
			return v, true
		}
	}
	return "", false
}
