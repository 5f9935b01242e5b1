package utils

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var urlRegex = regexp.MustCompile(`(?:https?://)?[a-zA-Z0-9][a-zA-Z0-9.\-]*\.[a-zA-Z]{2,}(?:/[^\s]*)?`)

// Hosts that serve Discord invite links. discord.com and its aliases
// only count when the path is an invite path.
var inviteHosts = map[string]struct{}{
	"discord.gg":         {},
	"discord.io":         {},
	"discord.me":         {},
	"dsc.gg":             {},
	"invite.gg":          {},
	"discordapp.com":     {},
	"discord.com":        {},
	"ptb.discord.com":    {},
	"canary.discord.com": {},
}

var inviteOnlyWithPath = map[string]struct{}{
	"discordapp.com":     {},
	"discord.com":        {},
	"ptb.discord.com":    {},
	"canary.discord.com": {},
}

func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

// NormalizeHost lowercases and IDNA-encodes a URL's host so lookalike
// unicode hosts compare equal to their ASCII form.
func NormalizeHost(raw string) (string, string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}

	host := strings.ToLower(parsed.Hostname())
	asciiHost, err := idna.ToASCII(host)
	if err == nil {
		host = asciiHost
	}
	return host, parsed.EscapedPath(), nil
}

// ContainsInvite reports whether the message content carries a Discord
// invite link.
func ContainsInvite(content string) bool {
	for _, raw := range ExtractURLs(content) {
		host, path, err := NormalizeHost(raw)
		if err != nil {
			continue
		}
		if _, ok := inviteHosts[host]; !ok {
			continue
		}
		if _, needsPath := inviteOnlyWithPath[host]; needsPath {
			if !strings.HasPrefix(path, "/invite/") {
				continue
			}
		}
		return true
	}
	return false
}
