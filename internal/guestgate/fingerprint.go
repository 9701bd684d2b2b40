package guestgate

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// UnknownIP stands in for requests that carry no forwarded client address.
const UnknownIP = "0.0.0.0"

// ClientIP returns the first X-Forwarded-For entry, or UnknownIP. The remote
// socket address is deliberately ignored: behind the edge proxy it is the
// proxy's own address and would merge every guest into one counter.
func ClientIP(r *http.Request) string {
	xf := r.Header.Get("X-Forwarded-For")
	if ip := strings.TrimSpace(strings.Split(xf, ",")[0]); ip != "" {
		return ip
	}
	return UnknownIP
}

// Fingerprint derives the stable guest key sha256_hex("{ip}|{ua}{suffix}|{salt}").
// The client supplied guest id only contributes when the IP is unknown, so it
// cannot be rotated to dodge the counter when an IP is available.
func Fingerprint(ip, userAgent, guestID, salt string) string {
	var b strings.Builder
	b.WriteString(ip)
	b.WriteByte('|')
	b.WriteString(userAgent)
	if (ip == "" || ip == UnknownIP) && guestID != "" {
		b.WriteByte('|')
		b.WriteString(guestID)
	}
	b.WriteByte('|')
	b.WriteString(salt)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// RequestFingerprint computes Fingerprint from request headers.
func RequestFingerprint(r *http.Request, salt string) string {
	return Fingerprint(
		ClientIP(r),
		r.Header.Get("User-Agent"),
		strings.TrimSpace(r.Header.Get("X-Guest-Id")),
		salt,
	)
}
