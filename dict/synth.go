package dict

import (
	"sort"

	"github.com/fakemoon123/XMorphy/tagset"
	"github.com/fakemoon123/XMorphy/unistring"
)

// Form - одна синтезированная словоформа.
type Form struct {
	Word  unistring.Unistring
	Lemma unistring.Unistring
	Tag   tagset.MorphTag
}

// Synthesize порождает словоформы леммы, совместимые с целевым тегом:
// отбираются формы парадигмы, чей тег содержит все граммемы target.
// Неизвестная лемма - штатная ситуация, возвращается пустой результат.
func (d *Dictionary) Synthesize(lemma unistring.Unistring, target tagset.MorphTag) []Form {
	norm := lemma.Upper()
	payload, ok := d.main.Lookup(norm)
	if !ok {
		return nil
	}
	entries, err := decodeMainPayload(payload)
	if err != nil {
		return nil
	}

	var out []Form
	seen := make(map[string]struct{})
	for _, pid := range d.lemmaParadigms(norm, entries) {
		n := d.store.Len(pid)
		for i := 0; i < n; i++ {
			rec, err := d.store.Record(pid, i)
			if err != nil {
				continue
			}
			if !rec.Tag.Subsumes(target) {
				continue
			}
			form, err := d.store.Apply(norm, pid, i)
			if err != nil {
				continue
			}
			key := form.String() + "\x00" + rec.Tag.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, Form{Word: form, Lemma: norm, Tag: rec.Tag})
		}
	}

	sortForms(out)
	return out
}

// Inflect порождает все словоформы всех лексем, которым принадлежит
// слово. Для каждой найденной парадигмы разворачивается полная таблица.
func (d *Dictionary) Inflect(word unistring.Unistring) []Form {
	norm := word.Upper()
	infos := d.analyzeDict(norm)
	if len(infos) == 0 {
		infos = d.Guess(norm)
	}

	var out []Form
	seen := make(map[string]struct{})
	done := make(map[uint32]struct{})
	for _, mi := range infos {
		if _, ok := done[mi.ParadigmID]; ok {
			continue
		}
		done[mi.ParadigmID] = struct{}{}

		n := d.store.Len(mi.ParadigmID)
		for i := 0; i < n; i++ {
			rec, err := d.store.Record(mi.ParadigmID, i)
			if err != nil {
				continue
			}
			form, err := d.store.Apply(mi.Lemma, mi.ParadigmID, i)
			if err != nil {
				continue
			}
			key := form.String() + "\x00" + rec.Tag.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, Form{Word: form, Lemma: mi.Lemma, Tag: rec.Tag})
		}
	}

	sortForms(out)
	return out
}

// lemmaParadigms отбирает парадигмы, в которых слово является
// начальной формой. Слово может быть формой чужой лексемы
// (омонимия формы и леммы), такие парадигмы синтезу не подходят.
func (d *Dictionary) lemmaParadigms(norm unistring.Unistring, entries []mainEntry) []uint32 {
	var pids []uint32
	seen := make(map[uint32]struct{})
	for _, e := range entries {
		if _, ok := seen[e.ParadigmID]; ok {
			continue
		}
		lemma, ok := d.store.RestoreLemma(norm, e.ParadigmID, int(e.FormIndex))
		if !ok || !lemma.Equal(norm) {
			continue
		}
		seen[e.ParadigmID] = struct{}{}
		pids = append(pids, e.ParadigmID)
	}
	return pids
}

func sortForms(forms []Form) {
	sort.SliceStable(forms, func(i, j int) bool {
		wi, wj := forms[i].Word.String(), forms[j].Word.String()
		if wi != wj {
			return wi < wj
		}
		return forms[i].Tag.String() < forms[j].Tag.String()
	})
}
