// Пакет disambig снимает морфологическую омонимию: для каждого токена
// предложения из кандидатов словарного анализа выбирается одна
// интерпретация. Оценки дает нейронная модель; пакет владеет сборкой
// входной матрицы, пересечением оценок с кандидатами и правилами
// разрешения ничьих. Без модели выбор вырождается в частотный приоритет -
// этим же путем идет и случай пустого пересечения.
package disambig

import (
	"fmt"

	"github.com/fakemoon123/XMorphy/dict"
	"github.com/fakemoon123/XMorphy/features"
	"github.com/fakemoon123/XMorphy/neural"
	"github.com/fakemoon123/XMorphy/tagset"
	"github.com/fakemoon123/XMorphy/tokenizer"
)

// Disambiguator выбирает по одной интерпретации на токен.
type Disambiguator struct {
	model neural.Scorer
	emb   *features.Embeddings

	// Вселенная выходных тегов модели: индекс строки оценок -> тег.
	universe []tagset.MorphTag
	tagIndex map[tagset.MorphTag]int
}

// New собирает сниматель омонимии. Модель и эмбеддинги могут быть nil -
// тогда работает только частотный выбор. При живой модели размерность
// входа сверяется со словарем заранее, а не в момент разбора.
func New(model neural.Scorer, outputTags []string, emb *features.Embeddings) (*Disambiguator, error) {
	d := &Disambiguator{model: model, emb: emb}

	if model != nil {
		d.universe = make([]tagset.MorphTag, len(outputTags))
		d.tagIndex = make(map[tagset.MorphTag]int, len(outputTags))
		for i, s := range outputTags {
			t := tagset.Parse(s)
			d.universe[i] = t
			d.tagIndex[t] = i
		}
		if len(d.universe) != model.OutputDim() {
			return nil, fmt.Errorf("%w: %d тегов против %d выходов модели",
				neural.ErrVocabMismatch, len(d.universe), model.OutputDim())
		}
		wantDim := features.HandDim
		if emb != nil {
			wantDim += emb.Dim()
		}
		if wantDim != model.InputDim() {
			return nil, fmt.Errorf("%w: %d признаков против %d входов модели",
				neural.ErrVocabMismatch, wantDim, model.InputDim())
		}
	}
	return d, nil
}

// Disambiguate возвращает индекс выбранной интерпретации для каждого
// токена. Гарантия монотонности: выбор всегда из candidates[i], если
// тот непуст; для пустого списка возвращается -1.
func (d *Disambiguator) Disambiguate(tokens []tokenizer.Token, candidates [][]dict.MorphInfo) ([]int, error) {
	chosen := make([]int, len(tokens))
	for i := range chosen {
		chosen[i] = -1
	}

	var scores []float32
	if d.model != nil && len(tokens) > 0 {
		feats := d.encode(tokens)
		var err error
		scores, err = d.model.Run(len(tokens), feats)
		if err != nil {
			return nil, err
		}
	}

	outDim := 0
	if d.model != nil {
		outDim = d.model.OutputDim()
	}

	for i, cands := range candidates {
		if len(cands) == 0 {
			continue
		}
		if scores != nil {
			row := scores[i*outDim : (i+1)*outDim]
			if idx, ok := d.pickByScores(cands, row); ok {
				chosen[i] = idx
				continue
			}
		}
		chosen[i] = pickByPrior(cands)
	}
	return chosen, nil
}

// encode строит матрицу признаков предложения: эмбеддинг и ручные
// признаки каждого токена, в порядке входного словаря модели.
func (d *Disambiguator) encode(tokens []tokenizer.Token) []float32 {
	embDim := 0
	if d.emb != nil {
		embDim = d.emb.Dim()
	}
	rowDim := embDim + features.HandDim

	out := make([]float32, 0, len(tokens)*rowDim)
	for _, tok := range tokens {
		if d.emb != nil {
			out = append(out, d.emb.Lookup(tok.Norm)...)
		}
		out = append(out, features.HandFeatures(tok)...)
	}
	return out
}

// pickByScores пересекает вектор оценок с тегами кандидатов и берет
// аргмакс по пересечению. Ничьи решает словарная частота, затем
// лексикографический порядок тегов. Пустое пересечение - ok=false.
func (d *Disambiguator) pickByScores(cands []dict.MorphInfo, row []float32) (int, bool) {
	best := -1
	var bestScore float32
	for ci, c := range cands {
		ui, ok := d.tagIndex[c.Tag]
		if !ok {
			continue
		}
		s := row[ui]
		if best == -1 || s > bestScore || (s == bestScore && tieBreak(c, cands[best])) {
			best = ci
			bestScore = s
		}
	}
	return best, best >= 0
}

// pickByPrior выбирает кандидата по априорной вероятности с теми же
// правилами ничьих.
func pickByPrior(cands []dict.MorphInfo) int {
	best := 0
	for ci := 1; ci < len(cands); ci++ {
		c, b := cands[ci], cands[best]
		if c.Prob > b.Prob || (c.Prob == b.Prob && tieBreak(c, b)) {
			best = ci
		}
	}
	return best
}

// tieBreak сообщает, предпочтительнее ли c, чем b, при равных оценках:
// сначала большая словарная частота, затем меньший тег лексикографически.
func tieBreak(c, b dict.MorphInfo) bool {
	if c.Freq != b.Freq {
		return c.Freq > b.Freq
	}
	return c.Tag.String() < b.Tag.String()
}
