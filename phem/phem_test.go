package phem

import (
	"errors"
	"testing"

	"github.com/fakemoon123/XMorphy/dict"
	"github.com/fakemoon123/XMorphy/features"
	"github.com/fakemoon123/XMorphy/neural"
	"github.com/fakemoon123/XMorphy/tagset"
	"github.com/fakemoon123/XMorphy/unistring"
)

var labelNames = []string{"PREF", "ROOT", "SUFF", "END", "UNKN"}

// колонки оценок в порядке labelNames.
const (
	colPref = iota
	colRoot
	colSuff
	colEnd
	colUnkn
)

// stubScorer отдает заранее заданные строки оценок по одной на символ.
type stubScorer struct {
	rows [][]float32
}

func (s *stubScorer) Run(rows int, feats []float32) ([]float32, error) {
	if len(feats) != rows*features.PhemDim {
		return nil, errors.New("неожиданный размер входа")
	}
	if rows != len(s.rows) {
		return nil, errors.New("неожиданное число строк")
	}
	var out []float32
	for _, r := range s.rows {
		out = append(out, r...)
	}
	return out, nil
}

func (s *stubScorer) InputDim() int  { return features.PhemDim }
func (s *stubScorer) OutputDim() int { return len(labelNames) }

func row(col int, score float32) []float32 {
	r := make([]float32, len(labelNames))
	r[col] = score
	return r
}

func newSegmenter(t *testing.T, rows [][]float32) *Segmenter {
	t.Helper()
	s, err := New(&stubScorer{rows: rows}, labelNames, &features.CharEncoder{})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func segment(t *testing.T, s *Segmenter, word string) []tagset.PhemTag {
	t.Helper()
	labels, err := s.Segment(unistring.New(word), dict.MorphInfo{Tag: tagset.NOUN})
	if err != nil {
		t.Fatal(err)
	}
	return labels
}

func TestSegment_LegalRawKept(t *testing.T) {
	// "водка": ROOT ROOT ROOT SUFF END - законная разметка остается как есть.
	rows := [][]float32{
		row(colRoot, 1), row(colRoot, 1), row(colRoot, 1),
		row(colSuff, 1), row(colEnd, 1),
	}
	s := newSegmenter(t, rows)
	got := segment(t, s, "водка")

	want := []tagset.PhemTag{
		tagset.PhemRoot, tagset.PhemRoot, tagset.PhemRoot,
		tagset.PhemSuff, tagset.PhemEnd,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("позиция %d: %v, ожидали %v", i, got[i], want[i])
		}
	}
	if !tagset.LegalSequence(got) {
		t.Error("результат обязан быть законным")
	}
}

func TestSegment_PrefixedWord(t *testing.T) {
	// "переподготовка": две приставки, корень, суффикс, окончание.
	rows := [][]float32{
		row(colPref, 1), row(colPref, 1), row(colPref, 1), row(colPref, 1), // пере
		row(colPref, 1), row(colPref, 1), row(colPref, 1), // под
		row(colRoot, 1), row(colRoot, 1), row(colRoot, 1), row(colRoot, 1), row(colRoot, 1), // готов
		row(colSuff, 1), // к
		row(colEnd, 1),  // а
	}
	s := newSegmenter(t, rows)
	got := segment(t, s, "переподготовка")

	if !tagset.LegalSequence(got) {
		t.Fatalf("последовательность незаконна: %v", got)
	}
	if got[0] != tagset.PhemPref || got[7] != tagset.PhemRoot ||
		got[12] != tagset.PhemSuff || got[13] != tagset.PhemEnd {
		t.Errorf("неожиданная разметка: %v", got)
	}
}

// TestSegment_SingleDeviationRepaired - точечный сбой модели чинится
// переназначением одной ячейки на ближайшую законную метку.
func TestSegment_SingleDeviationRepaired(t *testing.T) {
	// Сырая разметка ROOT ROOT SUFF ROOT END незаконна (корень после
	// суффикса); у третьего символа есть запасной вариант ROOT.
	rows := [][]float32{
		row(colRoot, 1), row(colRoot, 1),
		{0, 0.5, 1, 0, 0}, // SUFF=1, ROOT=0.5
		row(colRoot, 1), row(colEnd, 1),
	}
	s := newSegmenter(t, rows)
	got := segment(t, s, "водка")

	if !tagset.LegalSequence(got) {
		t.Fatalf("последовательность незаконна: %v", got)
	}
	want := []tagset.PhemTag{
		tagset.PhemRoot, tagset.PhemRoot, tagset.PhemRoot,
		tagset.PhemRoot, tagset.PhemEnd,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("позиция %d: %v, ожидали %v", i, got[i], want[i])
		}
	}
}

// TestSegment_UnrepairableBecomesUnknown - развалившаяся разметка
// не латается, слово целиком помечается UNKN.
func TestSegment_UnrepairableBecomesUnknown(t *testing.T) {
	rows := [][]float32{
		row(colSuff, 1), row(colPref, 1), row(colSuff, 1),
		row(colPref, 1), row(colSuff, 1),
	}
	s := newSegmenter(t, rows)
	got := segment(t, s, "водка")

	for i, l := range got {
		if l != tagset.PhemUnkn {
			t.Errorf("позиция %d: %v, ожидали UNKN", i, l)
		}
	}
}

func TestSegment_EmptyWord(t *testing.T) {
	s := newSegmenter(t, nil)
	got := segment(t, s, "")
	if got != nil {
		t.Errorf("пустое слово должно давать nil, получили %v", got)
	}
}

func TestNew_VocabChecks(t *testing.T) {
	// Модель без метки ROOT бесполезна.
	bad := []string{"PREF", "SUFF", "END", "UNKN", "UNKN"}
	if _, err := New(&stubScorer{}, bad, &features.CharEncoder{}); !errors.Is(err, neural.ErrVocabMismatch) {
		t.Errorf("ожидали ErrVocabMismatch, получили %v", err)
	}
}
