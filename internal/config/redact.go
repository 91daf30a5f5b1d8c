package config

import (
	"net/url"
	"regexp"
	"strings"
)

// passwordKV matches the password field of a keyword/value DSN
// ("host=db password=secret"), quoted or bare.
var passwordKV = regexp.MustCompile( //nolint:gochecknoglobals // compiled once
	`(password\s*=\s*)('(?:[^'\\]|\\.)*'|\S+)`,
)

// RedactURL masks the password of a PostgreSQL connection string with "***".
// Both URL ("postgres://u:p@host/db") and keyword/value ("password=p host=db")
// forms are handled. Strings without a password are returned unchanged.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	if !strings.Contains(raw, "://") {
		return passwordKV.ReplaceAllString(raw, "${1}***")
	}

	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}

	if _, hasPassword := u.User.Password(); !hasPassword {
		return raw
	}

	// Splice the raw string rather than re-encoding u, so the rest of the
	// DSN is printed exactly as configured.
	rest := raw[strings.Index(raw, "://")+len("://"):]

	authority := rest
	if end := strings.IndexAny(rest, "/?"); end >= 0 {
		authority = rest[:end]
	}

	at := strings.LastIndex(authority, "@")
	if at < 0 {
		return raw
	}

	colon := strings.Index(rest[:at], ":")
	if colon < 0 {
		return raw
	}

	prefix := raw[:len(raw)-len(rest)]

	return prefix + rest[:colon+1] + "***" + rest[at:]
}
