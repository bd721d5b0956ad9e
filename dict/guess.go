package dict

import (
	"sort"

	"github.com/fakemoon123/XMorphy/unistring"
)

// guessCandidate - кандидат предсказателя до отбора: правило из
// суффиксного DAWG плюс длина совпавшего суффикса.
type guessCandidate struct {
	suffixEntry
	SuffixLen int
}

// Guess предлагает интерпретации для несловарного слова по аналогии:
// перевернутое слово прогоняется по суффиксному DAWG, принимающие
// состояния по пути дают правила для суффиксов всех длин сразу.
// Правила ранжируются по длине суффикса, затем по частоте; суффиксы
// из одного кластера участвуют только если ничего длиннее не нашлось.
func (d *Dictionary) Guess(word unistring.Unistring) []MorphInfo {
	norm := word.Upper()
	reversed := norm.Reverse()

	hits := d.suffix.PrefixPayloads(reversed)
	if len(hits) == 0 {
		return nil
	}

	var candidates []guessCandidate
	collect := func(minDepth int) {
		for _, h := range hits {
			if h.Depth < minDepth {
				continue
			}
			entries, err := decodeSuffixPayload(h.Payload)
			if err != nil {
				continue
			}
			for _, e := range entries {
				candidates = append(candidates, guessCandidate{suffixEntry: e, SuffixLen: h.Depth})
			}
		}
	}

	// Порог: односимвольные суффиксы слишком шумные, они идут в ход,
	// только когда более длинных совпадений нет вообще.
	collect(2)
	if len(candidates) == 0 {
		collect(1)
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].SuffixLen != candidates[j].SuffixLen {
			return candidates[i].SuffixLen > candidates[j].SuffixLen
		}
		return candidates[i].Freq > candidates[j].Freq
	})

	var infos []MorphInfo
	var totalFreq float64
	for _, c := range candidates {
		lemma, ok := d.store.RestoreLemma(norm, c.ParadigmID, int(c.FormIndex))
		if !ok {
			// Аналогия неполная: у слова нет аффиксов этой формы.
			continue
		}
		tag, err := d.store.Tag(c.ParadigmID, int(c.FormIndex))
		if err != nil {
			continue
		}
		infos = append(infos, MorphInfo{
			Lemma:      lemma,
			Tag:        tag,
			ParadigmID: c.ParadigmID,
			FormIndex:  c.FormIndex,
			StemLen:    d.store.StemLen(norm, c.ParadigmID, int(c.FormIndex)),
			Freq:       c.Freq,
			Guessed:    true,
		})
		if len(dedupInfos(append([]MorphInfo(nil), infos...))) >= guessTopK {
			break
		}
	}

	infos = dedupInfos(infos)
	if len(infos) > guessTopK {
		infos = infos[:guessTopK]
	}
	for _, mi := range infos {
		totalFreq += float64(mi.Freq)
	}
	for i := range infos {
		if totalFreq > 0 {
			infos[i].Prob = float64(infos[i].Freq) / totalFreq
		} else {
			infos[i].Prob = 1 / float64(len(infos))
		}
	}
	return infos
}

// CountSuffix возвращает число ключей суффиксного DAWG, оканчивающихся
// на suffix. Ключи - различные суффиксы словоформ длиной от 1 до
// maxSuffixRuleLen кластеров, так что словоформы как таковые не
// считаются, а suffix длиннее этого предела дает ноль.
// Счетчик нужен кодировщику признаков сегментатора морфем.
func (d *Dictionary) CountSuffix(suffix unistring.Unistring) uint32 {
	return d.suffix.CountPrefix(suffix.Upper().Reverse())
}

// CountPrefix возвращает число известных приставок, начинающихся с prefix.
func (d *Dictionary) CountPrefix(prefix unistring.Unistring) uint32 {
	return d.prefix.CountPrefix(prefix.Upper())
}

// HasPrefix сообщает, является ли строка известной продуктивной приставкой.
func (d *Dictionary) HasPrefix(prefix unistring.Unistring) bool {
	return d.prefix.Contains(prefix.Upper())
}
