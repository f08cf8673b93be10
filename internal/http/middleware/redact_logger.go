// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// RedactingLogger is the access logger. It never logs bodies, masks
// credential headers and scrubs e-mail addresses and phone numbers from the
// query string and header values. Subscription payloads can carry user
// e-mails (profile updates) so scrubbing is on for every request.
//
// Usage:
//
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-Remote-Token"},
//	}))
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures RedactingLogger.
type RedactOptions struct {
	// MaskHeaders are replaced by "[REDACTED]" in addition to
	// Authorization, Cookie and Set-Cookie. Case-insensitive.
	MaskHeaders []string
	// KeepIDs disables UUID scrubbing. Action ids are UUIDs and are useful
	// in local logs; they are not personal data.
	KeepIDs bool
}

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-7][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so hex runs inside ids never match.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// redactor scrubs ids (unless kept), then e-mails, then phone numbers.
// Ids go first so the phone pattern cannot bite into their digit groups.
type redactor struct{ keepIDs bool }

func (r redactor) scrub(s string) string {
	if s == "" {
		return s
	}
	if r.keepIDs {
		ids := uuidRE.FindAllString(s, -1)
		s = uuidRE.ReplaceAllString(s, "\x00")
		s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
		s = phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
		for _, id := range ids {
			s = strings.Replace(s, "\x00", id, 1)
		}
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// RedactingLogger logs one line per request at info, warn (4xx) or error
// (5xx) and installs a request-scoped logger for LoggerFrom.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	red := redactor{keepIDs: opts.KeepIDs}
	mask := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			mask[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		query := red.scrub(truncate(c.Request.URL.RawQuery, maxQueryLogLength))

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := mask[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = red.scrub(strings.Join(vv, ", "))
		}

		scoped := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("client_id", ClientID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &scoped)

		c.Next()

		status := c.Writer.Status()
		ev := scoped.Info()
		switch {
		case status >= 500 || len(c.Errors) > 0:
			ev = scoped.Error()
		case status >= 400:
			ev = scoped.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.
			Str("query", query).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
