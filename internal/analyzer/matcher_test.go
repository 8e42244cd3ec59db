package analyzer

import (
	"fmt"
	"testing"

	"github.com/FranksOps/scholar/internal/storage"
)

func sampleRecords() []storage.PaperRecord {
	return []storage.PaperRecord{
		{Title: "Deep Learning for ecology", Abstract: "Deep learning is used widely. Ecology benefits from deep learning!"},
		{Title: "Species distribution models", Abstract: "We compare classical ecology methods. No neural nets here."},
		{Title: "Unrelated", Abstract: ""},
	}
}

func TestCoverage(t *testing.T) {
	cov := Coverage(sampleRecords(), []string{"deep learning", " Ecology ", "", "quantum"})

	if len(cov) != 3 {
		t.Fatalf("expected 3 keyword entries, got %d", len(cov))
	}

	dl := cov[0]
	if dl.Keyword != "deep learning" || dl.Records != 1 || dl.Occurrences != 3 {
		t.Errorf("deep learning: unexpected %+v", dl)
	}
	if len(dl.Sentences) != 2 || dl.Sentences[0] != "Deep learning is used widely." {
		t.Errorf("deep learning: unexpected sentences %q", dl.Sentences)
	}

	eco := cov[1]
	if eco.Keyword != "Ecology" || eco.Records != 2 || eco.Occurrences != 3 {
		t.Errorf("ecology: unexpected %+v", eco)
	}

	q := cov[2]
	if q.Records != 0 || q.Occurrences != 0 || len(q.Sentences) != 0 {
		t.Errorf("quantum: expected no coverage, got %+v", q)
	}
}

func TestCoverage_SentenceCap(t *testing.T) {
	var recs []storage.PaperRecord
	for i := 0; i < 5; i++ {
		recs = append(recs, storage.PaperRecord{Title: fmt.Sprint(i), Abstract: "Graphs everywhere. More graphs."})
	}

	cov := Coverage(recs, []string{"graphs"})
	if cov[0].Records != 5 || cov[0].Occurrences != 10 {
		t.Errorf("unexpected counts %+v", cov[0])
	}
	if len(cov[0].Sentences) != MaxSentences {
		t.Errorf("expected %d sentences, got %d", MaxSentences, len(cov[0].Sentences))
	}
}

func TestCoverage_Empty(t *testing.T) {
	if got := Coverage(sampleRecords(), nil); got != nil {
		t.Errorf("expected nil for no keywords, got %v", got)
	}
	cov := Coverage(nil, []string{"x"})
	if len(cov) != 1 || cov[0].Records != 0 {
		t.Errorf("expected zero coverage over no records, got %v", cov)
	}
}

func TestShare(t *testing.T) {
	k := KeywordCoverage{Records: 1}
	if k.Share(4) != 0.25 {
		t.Errorf("expected 0.25, got %v", k.Share(4))
	}
	if k.Share(0) != 0 {
		t.Errorf("expected 0 for empty set")
	}
}

func TestSplitIntoSentences(t *testing.T) {
	got := splitIntoSentences("First sentence. Second one! Third?")

	if len(got) != 3 {
		t.Fatalf("expected 3 sentences, got %d", len(got))
	}
	want := []string{"First sentence.", "Second one!", "Third?"}
	for i, w := range want {
		if got[i].original != w {
			t.Errorf("expected %q, got %q", w, got[i].original)
		}
	}
}

func benchmarkRecords(n int) []storage.PaperRecord {
	recs := make([]storage.PaperRecord, n)
	for i := range recs {
		recs[i] = storage.PaperRecord{
			Title:    fmt.Sprintf("Transfer learning for remote sensing %d", i),
			Abstract: "Remote sensing imagery is abundant. Transfer learning reduces labelling cost. We evaluate on three benchmarks.",
		}
	}
	return recs
}

func BenchmarkCoverage(b *testing.B) {
	recs := benchmarkRecords(500)
	kws := []string{"transfer learning", "remote sensing", "benchmarks", "segmentation"}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Coverage(recs, kws)
	}
}
