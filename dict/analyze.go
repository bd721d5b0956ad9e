package dict

import (
	"sort"

	"github.com/fakemoon123/XMorphy/tagset"
	"github.com/fakemoon123/XMorphy/unistring"
)

// Сколько кандидатов возвращает предсказатель несловарных слов.
const guessTopK = 5

// Analyze возвращает все кандидатные интерпретации слова.
// Порядок работы: основной словарь, затем дефисные составные слова,
// затем предсказатель по суффиксам. Если не сработало ничего,
// возвращается единственная интерпретация UNKN - это штатный результат,
// а не ошибка.
func (d *Dictionary) Analyze(word unistring.Unistring) []MorphInfo {
	norm := word.Upper()

	infos := d.analyzeDict(norm)

	if len(infos) == 0 && norm.Contains(unistring.Char("-")) {
		infos = d.analyzeCompound(norm)
	}
	if len(infos) == 0 {
		infos = d.Guess(norm)
	}
	if len(infos) == 0 {
		infos = []MorphInfo{{
			Lemma:   norm,
			Tag:     tagset.UNKN,
			StemLen: norm.Len(),
			Prob:    1,
		}}
	}

	sortInfos(infos)
	return infos
}

// analyzeDict ищет форму в основном DAWG и разворачивает записи
// полезной нагрузки в интерпретации.
func (d *Dictionary) analyzeDict(norm unistring.Unistring) []MorphInfo {
	payload, ok := d.main.Lookup(norm)
	if !ok {
		return nil
	}
	entries, err := decodeMainPayload(payload)
	if err != nil {
		return nil
	}

	infos := make([]MorphInfo, 0, len(entries))
	for _, e := range entries {
		lemma, ok := d.store.RestoreLemma(norm, e.ParadigmID, int(e.FormIndex))
		if !ok {
			continue
		}
		tag, err := d.store.Tag(e.ParadigmID, int(e.FormIndex))
		if err != nil {
			continue
		}
		infos = append(infos, MorphInfo{
			Lemma:      lemma,
			Tag:        tag,
			ParadigmID: e.ParadigmID,
			FormIndex:  e.FormIndex,
			StemLen:    d.store.StemLen(norm, e.ParadigmID, int(e.FormIndex)),
			Freq:       e.Freq,
		})
	}

	infos = dedupInfos(infos)

	// Равномерный априорный вес: перевзвешивание - дело снимателя омонимии.
	for i := range infos {
		infos[i].Prob = 1 / float64(len(infos))
	}
	return infos
}

// analyzeCompound разбирает дефисные составные слова: каждая часть
// анализируется отдельно, результат - декартово произведение разборов,
// отфильтрованное по совпадению части речи.
func (d *Dictionary) analyzeCompound(norm unistring.Unistring) []MorphInfo {
	parts := norm.Split(unistring.Char("-"))
	if len(parts) < 2 {
		return nil
	}
	perPart := make([][]MorphInfo, len(parts))
	for i, p := range parts {
		if p.Len() == 0 {
			return nil
		}
		perPart[i] = d.analyzeDict(p)
		if len(perPart[i]) == 0 {
			return nil
		}
	}

	hyphen := unistring.New("-")
	var out []MorphInfo
	// Комбинируем только согласованные по части речи сочетания.
	// Тег составного слова наследуется от последней (главной) части.
	var combine func(idx int, pos tagset.MorphTag, lemma unistring.Unistring)
	combine = func(idx int, pos tagset.MorphTag, lemma unistring.Unistring) {
		if idx == len(parts) {
			return
		}
		for _, mi := range perPart[idx] {
			if idx > 0 && mi.Tag.POS() != pos {
				continue
			}
			full := lemma
			if idx > 0 {
				full = full.Concat(hyphen)
			}
			full = full.Concat(mi.Lemma)
			if idx == len(parts)-1 {
				out = append(out, MorphInfo{
					Lemma:      full,
					Tag:        mi.Tag,
					ParadigmID: mi.ParadigmID,
					FormIndex:  mi.FormIndex,
					StemLen:    norm.Len(),
					Freq:       mi.Freq,
				})
			} else {
				combine(idx+1, mi.Tag.POS(), full)
			}
		}
	}
	combine(0, 0, nil)

	out = dedupInfos(out)
	for i := range out {
		out[i].Prob = 1 / float64(len(out))
	}
	return out
}

// dedupInfos убирает дубликаты по паре (лемма, тег), сохраняя первую запись.
func dedupInfos(infos []MorphInfo) []MorphInfo {
	type key struct {
		lemma string
		tag   tagset.MorphTag
	}
	seen := make(map[key]struct{}, len(infos))
	out := infos[:0]
	for _, mi := range infos {
		k := key{mi.Lemma.String(), mi.Tag}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, mi)
	}
	return out
}

// sortInfos упорядочивает интерпретации детерминированно:
// по убыванию вероятности, затем лексикографически по тегу, затем по лемме.
func sortInfos(infos []MorphInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].Prob != infos[j].Prob {
			return infos[i].Prob > infos[j].Prob
		}
		si, sj := infos[i].Tag.String(), infos[j].Tag.String()
		if si != sj {
			return si < sj
		}
		return infos[i].Lemma.String() < infos[j].Lemma.String()
	})
}
