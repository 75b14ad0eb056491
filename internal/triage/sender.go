package triage

import (
	"strings"

	"github.com/emersion/go-message/mail"
)

// systemSenderMarkers are substrings found in addresses of automated mailers
var systemSenderMarkers = []string{
	"no-reply",
	"noreply",
	"do-not-reply",
	"donotreply",
	"no_reply",
	"noresponse",
	"no-response",
	"mailer-daemon",
	"postmaster",
}

// NormalizeAddress turns a raw From header such as "Name <a@b.com>" into
// "a@b.com" in lower case. Unparseable input is returned trimmed and
// lower-cased, with any angle-bracketed part preferred.
func NormalizeAddress(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(header); err == nil {
		return strings.ToLower(addr.Address)
	}
	if open := strings.LastIndex(header, "<"); open != -1 {
		rest := header[open+1:]
		if end := strings.Index(rest, ">"); end != -1 {
			rest = rest[:end]
		}
		return strings.ToLower(strings.TrimSpace(rest))
	}
	return strings.ToLower(header)
}

// IsSystemSender reports whether the sender looks like a no-reply or system address
func IsSystemSender(address string) bool {
	addr := NormalizeAddress(address)
	if addr == "" {
		return false
	}
	for _, marker := range systemSenderMarkers {
		if strings.Contains(addr, marker) {
			return true
		}
	}
	return false
}
