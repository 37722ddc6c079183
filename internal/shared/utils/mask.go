package utils

import (
	"net/mail"
	"strings"
)

// MaskEmail masks an email address for safe logging.
// Example: "user@example.com" -> "u***@example.com"
func MaskEmail(email string) string {
	parts := strings.SplitN(email, "@", 2)
	if len(parts) != 2 {
		return "***"
	}
	local := parts[0]
	if len(local) <= 1 {
		return local + "***@" + parts[1]
	}
	return string(local[0]) + "***@" + parts[1]
}

// MaskReplyAddress hides the plus tag of an address, which carries a signed
// reply token, and drops any display name.
// Example: "Suporte <suporte+tck_abc@x.org>" -> "suporte+***@x.org"
func MaskReplyAddress(raw string) string {
	addr := strings.TrimSpace(raw)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		addr = parsed.Address
	}

	local, domain, ok := strings.Cut(addr, "@")
	if !ok {
		return "***"
	}
	if base, _, tagged := strings.Cut(local, "+"); tagged {
		return base + "+***@" + domain
	}
	return local + "@" + domain
}
