package applog

import (
	"log/slog"
	"regexp"
	"strings"
)

var (
	rePassword = regexp.MustCompile(`(?i)(password=)('[^']*'|[^\s;]+)`)
	reToken    = regexp.MustCompile(`(?i)(token=|bearer\s+)([A-Za-z0-9._-]+)`)
	reDSNPass  = regexp.MustCompile(`(?i)(://)([^:/@\s]+):([^@\s]+)(@)`)
	reAPIKey   = regexp.MustCompile(`(?i)(apikey=|api_key=|x-api-key:\s*|key=)([^\s;&]+)`)
	reSKKey    = regexp.MustCompile(`\b(sk-[A-Za-z0-9_-]{3})[A-Za-z0-9_-]+`)
)

var secretKeys = map[string]bool{
	"password": true, "api_key": true, "apikey": true, "token": true, "passphrase": true,
}

// Mask replaces credentials in s: password= pairs, DSN user:pass,
// bearer tokens, api keys and sk- style provider keys.
func Mask(s string) string {
	out := rePassword.ReplaceAllString(s, "$1***")
	out = reToken.ReplaceAllString(out, "$1***")
	out = reDSNPass.ReplaceAllString(out, "$1$2:***$4")
	out = reAPIKey.ReplaceAllString(out, "$1***")
	out = reSKKey.ReplaceAllString(out, "$1***")
	return out
}

func maskAttr(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, "***")
	}
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, Mask(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, Mask(err.Error()))
		}
	}
	return a
}
