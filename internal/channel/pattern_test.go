package channel

import (
	"regexp"
	"testing"
)

func TestPattern_Exact(t *testing.T) {
	p := Exact("notification")

	if !p.Match("notification") {
		t.Error("exact pattern should match its own type")
	}
	if p.Match("notification.extra") {
		t.Error("exact pattern should not match a prefix")
	}
	if p.Match("") {
		t.Error("exact pattern should not match empty type")
	}
}

func TestPattern_Matches(t *testing.T) {
	p := Matches(regexp.MustCompile(`^chapter\.`))

	if !p.Match("chapter.updated") {
		t.Error("expected regexp match")
	}
	if p.Match("notification") {
		t.Error("unexpected regexp match")
	}
}

func TestPattern_Types(t *testing.T) {
	p := Types("notification", "content_update")

	for _, typ := range []string{"notification", "content_update"} {
		if !p.Match(typ) {
			t.Errorf("Types should match %q", typ)
		}
	}
	if p.Match("notificationX") {
		t.Error("alternation must be anchored")
	}
	if p.Match("chapter.updated") {
		t.Error("Types should not match unlisted type")
	}
}

func TestPattern_TypesQuotesMetaCharacters(t *testing.T) {
	p := Types("a.b", "c+d")

	if !p.Match("a.b") {
		t.Error("literal dot should match")
	}
	if p.Match("axb") {
		t.Error("dot must not act as a wildcard")
	}
	if !p.Match("c+d") {
		t.Error("literal plus should match")
	}
}

func TestPattern_ZeroMatchesNothing(t *testing.T) {
	var p Pattern
	if p.Match("anything") || p.Match("") {
		t.Error("zero pattern must match nothing")
	}

	if Types().Match("anything") {
		t.Error("empty type list must match nothing")
	}
}
