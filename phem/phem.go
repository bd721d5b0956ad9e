// Пакет phem размечает символы слова морфемными метками:
// приставка, корень, суффикс, окончание. Сырую посимвольную разметку
// дает нейронная модель; поверх нее работает проход ограничений,
// который гарантирует законность последовательности
// PREF* ROOT+ SUFF* END* либо помечает слово целиком как UNKN.
package phem

import (
	"fmt"

	"github.com/fakemoon123/XMorphy/dict"
	"github.com/fakemoon123/XMorphy/features"
	"github.com/fakemoon123/XMorphy/neural"
	"github.com/fakemoon123/XMorphy/tagset"
	"github.com/fakemoon123/XMorphy/unistring"
)

// Состояния автомата законности. Порядок состояний совпадает с порядком
// морфем в слове, переходы только вперед.
const (
	stagePref = iota
	stageRoot
	stageSuff
	stageEnd
	numStages
)

var stageLabel = [numStages]tagset.PhemTag{
	tagset.PhemPref, tagset.PhemRoot, tagset.PhemSuff, tagset.PhemEnd,
}

// Segmenter - сегментатор морфем.
type Segmenter struct {
	model neural.Scorer
	enc   *features.CharEncoder

	// labels[i] - метка i-й строки оценок модели.
	labels []tagset.PhemTag
	// labelCol[метка] - номер строки оценок, -1 если модель метку не знает.
	labelCol [5]int
}

// New собирает сегментатор. Размерности модели сверяются со словарем
// при сборке: и вход (посимвольные признаки), и выход (метки).
func New(model neural.Scorer, outputTags []string, enc *features.CharEncoder) (*Segmenter, error) {
	s := &Segmenter{model: model, enc: enc}
	for i := range s.labelCol {
		s.labelCol[i] = -1
	}
	for i, name := range outputTags {
		l := tagset.ParsePhem(name)
		s.labels = append(s.labels, l)
		s.labelCol[l] = i
	}
	if len(s.labels) != model.OutputDim() {
		return nil, fmt.Errorf("%w: %d меток против %d выходов модели",
			neural.ErrVocabMismatch, len(s.labels), model.OutputDim())
	}
	if features.PhemDim != model.InputDim() {
		return nil, fmt.Errorf("%w: %d признаков против %d входов модели",
			neural.ErrVocabMismatch, features.PhemDim, model.InputDim())
	}
	for _, st := range stageLabel {
		if s.labelCol[st] < 0 {
			return nil, fmt.Errorf("%w: модель не знает метку %v", neural.ErrVocabMismatch, st)
		}
	}
	return s, nil
}

// Segment размечает слово. Победившая интерпретация передается
// кодировщику признаков. Длина результата всегда равна длине слова.
func (s *Segmenter) Segment(word unistring.Unistring, winner dict.MorphInfo) ([]tagset.PhemTag, error) {
	n := word.Len()
	if n == 0 {
		return nil, nil
	}

	mat := s.enc.Encode(word, winner)
	feats := make([]float32, 0, n*features.PhemDim)
	for _, row := range mat {
		feats = append(feats, row...)
	}

	scores, err := s.model.Run(n, feats)
	if err != nil {
		return nil, err
	}
	outDim := s.model.OutputDim()

	// Сырая разметка: аргмакс по каждому символу.
	raw := make([]tagset.PhemTag, n)
	for i := 0; i < n; i++ {
		row := scores[i*outDim : (i+1)*outDim]
		best := 0
		for j := 1; j < outDim; j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		raw[i] = s.labels[best]
	}

	if tagset.LegalSequence(raw) {
		return raw, nil
	}

	// Ремонт: лучшая по суммарной оценке законная последовательность.
	repaired := s.bestLegal(scores, n, outDim)

	// Точечные отклонения чинились; если правок слишком много,
	// последовательность считается неремонтопригодной.
	deviations := 0
	for i := range raw {
		if raw[i] != repaired[i] {
			deviations++
		}
	}
	if deviations > repairLimit(n) {
		return unknown(n), nil
	}
	return repaired, nil
}

// repairLimit - допустимое число исправленных символов.
func repairLimit(n int) int {
	if n < 4 {
		return 1
	}
	return n / 4
}

func unknown(n int) []tagset.PhemTag {
	out := make([]tagset.PhemTag, n)
	for i := range out {
		out[i] = tagset.PhemUnkn
	}
	return out
}

// bestLegal находит законную последовательность с максимальной суммой
// оценок модели: динамика Витерби по автомату PREF* ROOT+ SUFF* END*.
func (s *Segmenter) bestLegal(scores []float32, n, outDim int) []tagset.PhemTag {
	const minusInf = float32(-1e30)

	emit := func(i, stage int) float32 {
		return scores[i*outDim+s.labelCol[stageLabel[stage]]]
	}

	var dp [][numStages]float32
	var back [][numStages]int8
	dp = make([][numStages]float32, n)
	back = make([][numStages]int8, n)

	// Старт: слово начинается с приставки или сразу с корня.
	for st := 0; st < numStages; st++ {
		dp[0][st] = minusInf
	}
	dp[0][stagePref] = emit(0, stagePref)
	dp[0][stageRoot] = emit(0, stageRoot)

	// allowed[prev] - допустимые следующие состояния.
	allowed := [numStages][]int{
		stagePref: {stagePref, stageRoot},
		stageRoot: {stageRoot, stageSuff, stageEnd},
		stageSuff: {stageSuff, stageEnd},
		stageEnd:  {stageEnd},
	}

	for i := 1; i < n; i++ {
		for st := 0; st < numStages; st++ {
			dp[i][st] = minusInf
			back[i][st] = -1
		}
		for prev := 0; prev < numStages; prev++ {
			if dp[i-1][prev] == minusInf {
				continue
			}
			for _, next := range allowed[prev] {
				score := dp[i-1][prev] + emit(i, next)
				if score > dp[i][next] {
					dp[i][next] = score
					back[i][next] = int8(prev)
				}
			}
		}
	}

	// Финал: корень обязан случиться, поэтому чистая приставка не финальна.
	bestStage := stageRoot
	for _, st := range []int{stageSuff, stageEnd} {
		if dp[n-1][st] > dp[n-1][bestStage] {
			bestStage = st
		}
	}

	out := make([]tagset.PhemTag, n)
	st := bestStage
	for i := n - 1; i >= 0; i-- {
		out[i] = stageLabel[st]
		if i > 0 {
			st = int(back[i][st])
		}
	}
	return out
}
