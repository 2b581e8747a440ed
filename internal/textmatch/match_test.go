package textmatch

import "testing"

func TestCloseMatchesOrdering(t *testing.T) {
	t.Parallel()
	pool := []string{
		"ducks-go-quack",
		"duck-pond",
		"totally-unrelated",
		"ducks-go-quack-twice",
	}
	got := CloseMatches("ducks-go-quack", pool, 10, 70)
	if len(got) == 0 {
		t.Fatal("expected matches")
	}
	if got[0].Value != "ducks-go-quack" || got[0].Score != 100 {
		t.Fatalf("best match = %+v", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("matches not sorted: %+v", got)
		}
	}
	for _, m := range got {
		if m.Value == "totally-unrelated" {
			t.Fatalf("below-cutoff candidate included: %+v", m)
		}
	}
}

func TestCloseMatchesLimit(t *testing.T) {
	t.Parallel()
	pool := []string{"aaa1", "aaa2", "aaa3", "aaa4"}
	got := CloseMatches("aaa0", pool, 2, 50)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if CloseMatches("aaa0", pool, 0, 50) != nil {
		t.Fatal("n=0 should return nil")
	}
}

func TestBest(t *testing.T) {
	t.Parallel()
	m, ok := Best("lemon", []string{"lemons", "zzz"}, 80)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Value != "lemons" {
		t.Fatalf("Value = %s", m.Value)
	}

	if _, ok := Best("lemon", []string{"zzz"}, 80); ok {
		t.Fatal("expected no match")
	}
}

func TestRatioBounds(t *testing.T) {
	t.Parallel()
	if Ratio("same", "same") != 100 {
		t.Fatal("identical strings should score 100")
	}
	if s := Ratio("abc", "xyz"); s < 0 || s > 100 {
		t.Fatalf("score out of range: %d", s)
	}
}
