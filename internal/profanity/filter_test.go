package profanity

import (
	"reflect"
	"testing"
)

func TestScanFindsBaseBlockedWord(t *testing.T) {
	matches := Scan(Lists{}, "that's crap")
	if !reflect.DeepEqual(matches, []string{"crap"}) {
		t.Fatalf("expected [crap], got %v", matches)
	}
}

func TestGuildAllowWinsOverBaseBlock(t *testing.T) {
	matches := Scan(Lists{Allow: []string{"crap"}}, "that's crap")
	if len(matches) != 0 {
		t.Fatalf("expected no matches, got %v", matches)
	}
}

func TestGuildBlockAddsNewWord(t *testing.T) {
	matches := Scan(Lists{Block: []string{"foobar"}}, "foobar")
	if !reflect.DeepEqual(matches, []string{"foobar"}) {
		t.Fatalf("expected [foobar], got %v", matches)
	}
}

func TestBaseAllowNotReported(t *testing.T) {
	if matches := Scan(Lists{}, "foobar"); len(matches) != 0 {
		t.Fatalf("base allow word reported: %v", matches)
	}
}

func TestSymbolSubstitutionsNormalized(t *testing.T) {
	for _, text := range []string{"cr.ap", "cr-ap", "cr*ap", "CRAP"} {
		matches := Scan(Lists{}, text)
		if !reflect.DeepEqual(matches, []string{"crap"}) {
			t.Fatalf("text %q: expected [crap], got %v", text, matches)
		}
	}
}

func TestBangBecomesI(t *testing.T) {
	if got := Normalize("sh!t"); got != "shit" {
		t.Fatalf("expected shit, got %q", got)
	}
}

func TestPhraseMatchesAsSubstring(t *testing.T) {
	matches := Scan(Lists{Block: []string{"taste my"}}, "come taste my cooking")
	if !reflect.DeepEqual(matches, []string{"taste my"}) {
		t.Fatalf("expected phrase match, got %v", matches)
	}
}

func TestWordMatchRequiresWholeToken(t *testing.T) {
	if matches := Scan(Lists{}, "scrapbook"); len(matches) != 0 {
		t.Fatalf("substring of a clean word reported: %v", matches)
	}
}

func TestCensorMasksMatches(t *testing.T) {
	matches := Scan(Lists{}, "that's crap")
	got := Censor("that's crap", matches)
	if got != "that's ####" {
		t.Fatalf("expected masked text, got %q", got)
	}
}
