package engine

import (
	"testing"

	"github.com/fakemoon123/XMorphy/dict"
	"github.com/fakemoon123/XMorphy/paradigm"
	"github.com/fakemoon123/XMorphy/tagset"
	"github.com/fakemoon123/XMorphy/tokenizer"
	"github.com/fakemoon123/XMorphy/unistring"
)

func noun(extra tagset.MorphTag) tagset.MorphTag {
	return tagset.NOUN | tagset.Inan | extra
}

func testEngine(t testing.TB) *Engine {
	t.Helper()
	b := dict.NewBuilder()
	add := func(forms []paradigm.FormSpec, stem string, freq uint32) {
		t.Helper()
		if _, err := b.AddLexeme(forms, stem, freq); err != nil {
			t.Fatal(err)
		}
	}
	add([]paradigm.FormSpec{
		{Tag: noun(tagset.Masc | tagset.Sing | tagset.Nomn), Ending: ""},
		{Tag: noun(tagset.Masc | tagset.Sing | tagset.Gent), Ending: "а"},
		{Tag: noun(tagset.Masc | tagset.Plur | tagset.Nomn), Ending: "ы"},
		{Tag: noun(tagset.Masc | tagset.Plur | tagset.Datv), Ending: "ам"},
	}, "стол", 100)
	add([]paradigm.FormSpec{
		{Tag: noun(tagset.Femn | tagset.Sing | tagset.Nomn), Ending: "ь"},
		{Tag: noun(tagset.Femn | tagset.Sing | tagset.Gent), Ending: "и"},
	}, "стал", 10)
	add([]paradigm.FormSpec{
		{Tag: tagset.INFN | tagset.Perf, Ending: "ть"},
		{Tag: tagset.VERB | tagset.Perf | tagset.Indc | tagset.Past | tagset.Plur, Ending: "ли"},
	}, "ста", 50)

	blob, err := b.Finish()
	if err != nil {
		t.Fatal(err)
	}
	d, err := dict.FromBytes(blob)
	if err != nil {
		t.Fatal(err)
	}

	e, err := New(d, nil, nil, nil, nil, 16)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestProcess_Pipeline(t *testing.T) {
	e := testEngine(t)

	results, err := e.Process("Столы стали, 5 words!")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("нет результатов")
	}

	// Порядок токенов на выходе равен порядку на входе:
	// конкатенация восстанавливает текст.
	var all []tokenizer.Token
	for _, s := range results {
		for _, w := range s.Words {
			all = append(all, w.Token)
		}
	}
	if got := tokenizer.Reconstruct(all); got != "Столы стали, 5 words!" {
		t.Errorf("восстановление дало %q", got)
	}

	byText := map[string]*WordForm{}
	for si := range results {
		for wi := range results[si].Words {
			w := &results[si].Words[wi]
			byText[w.Token.Text.String()] = w
		}
	}

	// Словарное слово разобрано и победитель выбран из кандидатов.
	stoly := byText["Столы"]
	if stoly == nil {
		t.Fatal("токен 'Столы' потерялся")
	}
	best, ok := stoly.Best()
	if !ok {
		t.Fatal("у 'Столы' нет победителя")
	}
	if best.Lemma.String() != "СТОЛ" {
		t.Errorf("лемма %q, ожидали СТОЛ", best.Lemma.String())
	}
	found := false
	for _, mi := range stoly.Interpretations {
		if mi.Tag == best.Tag && mi.Lemma.Equal(best.Lemma) {
			found = true
		}
	}
	if !found {
		t.Error("победитель не из списка кандидатов")
	}

	// Служебные токены получают свои теги.
	if w := byText[","]; w == nil || len(w.Interpretations) == 0 || w.Interpretations[0].Tag != tagset.PNCT {
		t.Error("запятая должна получить тег PNCT")
	}
	if w := byText["5"]; w == nil || w.Interpretations[0].Tag != tagset.NUMB {
		t.Error("число должно получить тег NUMB")
	}
	if w := byText["words"]; w == nil || w.Interpretations[0].Tag != tagset.LATN {
		t.Error("латиница должна получить тег LATN")
	}
	if w := byText[" "]; w == nil || len(w.Interpretations) != 0 || w.Winner != -1 {
		t.Error("разделитель не должен иметь интерпретаций")
	}
}

func TestProcess_AmbiguityResolvedByFreq(t *testing.T) {
	e := testEngine(t)

	results, err := e.Process("стали")
	if err != nil {
		t.Fatal(err)
	}
	w := results[0].Words[0]
	best, ok := w.Best()
	if !ok {
		t.Fatal("нет победителя")
	}
	// Без модели побеждает более частотная лексема: "стать" (50) > "сталь" (10).
	if best.Lemma.String() != "СТАТЬ" {
		t.Errorf("лемма %q, ожидали СТАТЬ", best.Lemma.String())
	}
}

func TestProcess_CacheStable(t *testing.T) {
	e := testEngine(t)

	// Повторный разбор обязан быть идентичным: кеш отдает те же данные.
	r1, err := e.Process("столы столы")
	if err != nil {
		t.Fatal(err)
	}
	r2, err := e.Process("столы")
	if err != nil {
		t.Fatal(err)
	}

	w1 := r1[0].Words[0]
	w2 := r2[0].Words[0]
	if len(w1.Interpretations) != len(w2.Interpretations) {
		t.Fatal("кеш вернул другой набор интерпретаций")
	}
	for i := range w1.Interpretations {
		if w1.Interpretations[i].Tag != w2.Interpretations[i].Tag {
			t.Error("порядок интерпретаций из кеша отличается")
		}
	}
}

func TestSynthesizeInflect(t *testing.T) {
	e := testEngine(t)

	forms := e.Synthesize("стол", tagset.NOUN|tagset.Plur|tagset.Datv)
	if len(forms) != 1 || forms[0].Word.String() != "СТОЛАМ" {
		t.Errorf("синтез дал %+v", forms)
	}

	table := e.Inflect("столы")
	if len(table) != 4 {
		t.Errorf("таблица из %d форм, ожидали 4", len(table))
	}
}

func TestProcessBatch(t *testing.T) {
	e := testEngine(t)

	texts := []string{"стол", "столы", "стали", "", "стол и 5"}
	results, err := e.ProcessBatch(texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(texts) {
		t.Fatalf("получили %d результатов, ожидали %d", len(results), len(texts))
	}

	// Порядок результатов соответствует порядку входа.
	var all []tokenizer.Token
	for _, w := range flatten(results[1]) {
		all = append(all, w.Token)
	}
	if tokenizer.Reconstruct(all) != "столы" {
		t.Error("результат пакетной обработки перепутал порядок")
	}
	if len(results[3]) != 0 {
		t.Error("пустой текст должен давать пустой результат")
	}
}

func flatten(sentences []SentenceResult) []WordForm {
	var out []WordForm
	for _, s := range sentences {
		out = append(out, s.Words...)
	}
	return out
}

func TestWordForm_BestEmpty(t *testing.T) {
	w := WordForm{Winner: -1}
	if _, ok := w.Best(); ok {
		t.Error("пустая форма не должна иметь победителя")
	}
}

func TestAnalyzeCached_Unistring(t *testing.T) {
	e := testEngine(t)
	a := e.analyzeCached(unistring.New("СТОЛЫ"))
	b := e.analyzeCached(unistring.New("СТОЛЫ"))
	if len(a) == 0 || len(b) != len(a) {
		t.Fatal("кеш сломал повторный разбор")
	}
}
