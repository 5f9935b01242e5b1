package utils

import "testing"

func TestContainsInvite(t *testing.T) {
	cases := []struct {
		content string
		want    bool
	}{
		{"join us at https://discord.gg/abc123", true},
		{"discord.gg/abc123", true},
		{"https://discord.com/invite/abc123", true},
		{"https://DISCORD.GG/abc123", true},
		{"https://dsc.gg/myserver", true},
		{"https://discord.com/channels/1/2", false},
		{"https://example.com/discord.gg", false},
		{"no links here", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := ContainsInvite(tc.content); got != tc.want {
			t.Fatalf("ContainsInvite(%q) = %v, want %v", tc.content, got, tc.want)
		}
	}
}

func TestNormalizeHostIDNA(t *testing.T) {
	host, _, err := NormalizeHost("https://dìscord.gg/abc")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if host != "xn--dscord-qta.gg" {
		t.Fatalf("expected punycode host, got %q", host)
	}
}

func TestExtractURLsBareDomains(t *testing.T) {
	urls := ExtractURLs("try discord.gg/x and https://example.com/page")
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %v", urls)
	}
}
