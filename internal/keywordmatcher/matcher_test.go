package keywordmatcher

import "testing"

func TestSanitizeDropsDisallowedCharsAndDuplicates(t *testing.T) {
	out := Sanitize([]string{"Go-Lang!", "  go-lang  ", "crypto_currency", "valid.term"})
	if len(out) != 3 {
		t.Fatalf("expected 3 unique keywords, got %v", out)
	}
	if out[0] != "Go-Lang" {
		t.Fatalf("expected disallowed chars stripped, got %q", out[0])
	}
}

func TestBuildQueryRequiresKeyword(t *testing.T) {
	if _, err := BuildQuery(nil); err == nil {
		t.Fatal("expected error for empty keyword list")
	}
}

func TestBuildQueryJoinsWithOr(t *testing.T) {
	q, err := BuildQuery([]string{"go", "rust"})
	if err != nil {
		t.Fatal(err)
	}
	if q != `"go" OR "rust"` {
		t.Fatalf("unexpected query: %s", q)
	}
}

func TestBuildQueryWithExclusionsCollapsesSingleKeyword(t *testing.T) {
	q, err := BuildQueryWithExclusions([]string{"go"}, []string{"java"})
	if err != nil {
		t.Fatal(err)
	}
	if q != `"go" -"java"` {
		t.Fatalf("unexpected query: %s", q)
	}
}

func TestBuildQueryWithExclusionsParenthesizesMultiple(t *testing.T) {
	q, err := BuildQueryWithExclusions([]string{"go", "rust"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if q != `("go" OR "rust")` {
		t.Fatalf("unexpected query: %s", q)
	}
}

func TestRelevanceTitleOnly(t *testing.T) {
	matched := Match("Go 1.25 released", "", []string{"go"})
	if got := Relevance("Go 1.25 released", "", matched); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
}

func TestRelevanceContentOnly(t *testing.T) {
	matched := Match("Fintech update", "New blockchain protocol released.", []string{"blockchain"})
	if got := Relevance("Fintech update", "New blockchain protocol released.", matched); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
}

func TestRelevanceBoth(t *testing.T) {
	matched := Match("Go release", "Go 1.25 ships today", []string{"go"})
	if got := Relevance("Go release", "Go 1.25 ships today", matched); got != 1.0 {
		t.Fatalf("expected 1.0, got %v", got)
	}
}

func TestRelevanceNoMatch(t *testing.T) {
	if got := Relevance("Go release", "ships today", nil); got != 0.0 {
		t.Fatalf("expected 0.0, got %v", got)
	}
}
