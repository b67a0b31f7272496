package eval

import "testing"

func TestNDCGPerfectRankingScoresOne(t *testing.T) {
	judgments := Judgments{"d1": 1, "d2": 1, "d3": 0}
	ranked := []string{"d1", "d2", "d3"}
	got := NDCG(ranked, judgments, 10)
	if got < 0.999 {
		t.Fatalf("NDCG = %v, want ~1.0 for a perfect ranking", got)
	}
}

func TestNDCGNoRelevantDocsIsZero(t *testing.T) {
	judgments := Judgments{"d1": 0, "d2": 0}
	got := NDCG([]string{"d1", "d2"}, judgments, 10)
	if got != 0 {
		t.Fatalf("NDCG = %v, want 0 when nothing is relevant", got)
	}
}

func TestHitsAtK(t *testing.T) {
	judgments := Judgments{"d3": 1}
	ranked := []string{"d1", "d2", "d3", "d4"}

	if got := Hits(ranked, judgments, 2); got != 0 {
		t.Fatalf("Hits@2 = %v, want 0", got)
	}
	if got := Hits(ranked, judgments, 3); got != 1 {
		t.Fatalf("Hits@3 = %v, want 1", got)
	}
}

func TestMeanNDCGAveragesAcrossQueries(t *testing.T) {
	ranked := map[string][]string{
		"q1": {"d1", "d2"},
		"q2": {"d3", "d4"},
	}
	judgments := map[string]Judgments{
		"q1": {"d1": 1},
		"q2": {"d4": 1},
	}
	got := MeanNDCG(ranked, judgments, 10)
	if got <= 0 || got > 1 {
		t.Fatalf("MeanNDCG = %v, want in (0, 1]", got)
	}
}
