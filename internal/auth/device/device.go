// Package device derives human-facing device names from user-agent strings
// for session listings.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// ParseUserAgent renders a user-agent string as "Browser on Platform" for
// display in session listings. Unknown agents still get a readable fallback.
func ParseUserAgent(rawUA string) string {
	if strings.TrimSpace(rawUA) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	platform := ua.OSInfo().Name
	if platform == "" {
		platform = ua.Platform()
	}

	if browser == "" {
		browser = "Unknown Browser"
	}
	if platform == "" {
		platform = "Unknown Platform"
	}
	return strings.TrimSpace(browser + " on " + platform)
}
