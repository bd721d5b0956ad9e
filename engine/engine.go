// Пакет engine связывает конвейер воедино: токенизация, словарный
// анализ, снятие омонимии, сегментация морфем и, по запросу, синтез.
//
// Engine - значение, собранное из явных путей к ресурсам. Никаких
// процессных синглтонов: временем жизни распоряжается вызывающая
// сторона. После загрузки все ресурсы неизменяемы, поэтому один Engine
// свободно обслуживает параллельные вызовы Process.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fakemoon123/XMorphy/dict"
	"github.com/fakemoon123/XMorphy/disambig"
	"github.com/fakemoon123/XMorphy/features"
	"github.com/fakemoon123/XMorphy/neural"
	"github.com/fakemoon123/XMorphy/phem"
	"github.com/fakemoon123/XMorphy/tagset"
	"github.com/fakemoon123/XMorphy/tokenizer"
	"github.com/fakemoon123/XMorphy/unistring"
)

// EnvDataDir - имя переменной окружения, переопределяющей каталог
// с ресурсами (словарь, эмбеддинги, модели).
const EnvDataDir = "XMORPHY_DATA_DIR"

// Имена файлов ресурсов внутри каталога данных.
const (
	DictFileName        = "morph.xmdict"
	EmbeddingsFileName  = "embeddings.xemb"
	DisambModelFileName = "disambig.onnx"
	DisambVocabFileName = "disambig.vocab.json"
	PhemModelFileName   = "phem.onnx"
	PhemVocabFileName   = "phem.vocab.json"
)

// Размер кеша разборов по умолчанию. При ~100 байтах на запись
// сто тысяч слов занимают около десяти мегабайт.
const defaultCacheSize = 100_000

// Options - параметры загрузки движка.
type Options struct {
	// DataDir - каталог ресурсов. Пустое значение означает: взять из
	// XMORPHY_DATA_DIR, а если и там пусто - каталог исполняемого файла.
	DataDir string

	// OnnxLibrary - путь к разделяемой библиотеке ONNX Runtime.
	// Пустое значение - системный поиск.
	OnnxLibrary string

	// CacheSize - размер LRU-кеша разборов; ноль - значение по умолчанию,
	// отрицательное значение отключает кеш.
	CacheSize int
}

// WordForm - один токен со всеми результатами конвейера. Создается
// токенизатором, дополняется анализатором и снимателем омонимии,
// после этого только читается.
type WordForm struct {
	Token tokenizer.Token

	// Interpretations отсортированы детерминированно: по убыванию
	// вероятности, затем по тегу, затем по лемме.
	Interpretations []dict.MorphInfo

	// Winner - индекс выбранной интерпретации, -1 если выбирать не из чего.
	Winner int

	// Phem - посимвольная морфемная разметка той же длины, что и слово.
	// Заполняется только для кириллических словесных токенов.
	Phem []tagset.PhemTag
}

// Best возвращает выбранную интерпретацию.
func (w *WordForm) Best() (dict.MorphInfo, bool) {
	if w.Winner < 0 || w.Winner >= len(w.Interpretations) {
		return dict.MorphInfo{}, false
	}
	return w.Interpretations[w.Winner], true
}

// SentenceResult - разобранное предложение.
type SentenceResult struct {
	Words []WordForm
}

// Engine - собранный конвейер.
type Engine struct {
	dict   *dict.Dictionary
	emb    *features.Embeddings
	disamb *disambig.Disambiguator
	seg    *phem.Segmenter

	cache *lru.Cache[string, []dict.MorphInfo]
}

// Load собирает движок из каталога ресурсов. Обязателен только словарь;
// эмбеддинги и модели подключаются, если их файлы присутствуют.
func Load(opts Options) (*Engine, error) {
	dir := opts.DataDir
	if dir == "" {
		dir = os.Getenv(EnvDataDir)
	}
	if dir == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("engine: каталог данных не задан и не определяется: %w", err)
		}
		dir = filepath.Dir(exe)
	}

	d, err := dict.Open(filepath.Join(dir, DictFileName))
	if err != nil {
		return nil, err
	}

	var emb *features.Embeddings
	if embPath := filepath.Join(dir, EmbeddingsFileName); fileExists(embPath) {
		if emb, err = features.OpenEmbeddings(embPath); err != nil {
			d.Close()
			return nil, err
		}
	}

	var disambModel *neural.Model
	var disambTags []string
	if mp := filepath.Join(dir, DisambModelFileName); fileExists(mp) {
		if err := neural.Initialize(opts.OnnxLibrary); err != nil {
			closeAll(d, emb)
			return nil, err
		}
		disambModel, err = neural.LoadModel(mp, filepath.Join(dir, DisambVocabFileName))
		if err != nil {
			closeAll(d, emb)
			return nil, err
		}
		disambTags = disambModel.Vocab().OutputTags
	}

	var segmenter *phem.Segmenter
	if mp := filepath.Join(dir, PhemModelFileName); fileExists(mp) {
		if err := neural.Initialize(opts.OnnxLibrary); err != nil {
			closeAll(d, emb)
			return nil, err
		}
		phemModel, err := neural.LoadModel(mp, filepath.Join(dir, PhemVocabFileName))
		if err != nil {
			closeAll(d, emb)
			return nil, err
		}
		segmenter, err = phem.New(phemModel, phemModel.Vocab().OutputTags, &features.CharEncoder{Dict: d})
		if err != nil {
			closeAll(d, emb)
			return nil, err
		}
	}

	var scorer neural.Scorer
	if disambModel != nil {
		scorer = disambModel
	}
	return New(d, emb, scorer, disambTags, segmenter, opts.CacheSize)
}

// New собирает движок из готовых частей. Словарь обязателен,
// остальное может быть nil.
func New(d *dict.Dictionary, emb *features.Embeddings, disambModel neural.Scorer,
	disambTags []string, segmenter *phem.Segmenter, cacheSize int) (*Engine, error) {

	dis, err := disambig.New(disambModel, disambTags, emb)
	if err != nil {
		return nil, err
	}

	e := &Engine{dict: d, emb: emb, disamb: dis, seg: segmenter}
	if cacheSize == 0 {
		cacheSize = defaultCacheSize
	}
	if cacheSize > 0 {
		if e.cache, err = lru.New[string, []dict.MorphInfo](cacheSize); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func closeAll(d *dict.Dictionary, emb *features.Embeddings) {
	if d != nil {
		d.Close()
	}
	if emb != nil {
		emb.Close()
	}
}

// Close освобождает ресурсы движка.
func (e *Engine) Close() error {
	var first error
	if e.dict != nil {
		if err := e.dict.Close(); err != nil && first == nil {
			first = err
		}
	}
	if e.emb != nil {
		if err := e.emb.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Dictionary открывает доступ к словарю движка.
func (e *Engine) Dictionary() *dict.Dictionary {
	return e.dict
}

// Process прогоняет текст через конвейер и возвращает разбор
// по предложениям. Порядок токенов на выходе равен порядку на входе.
func (e *Engine) Process(text string) ([]SentenceResult, error) {
	tokens := tokenizer.Tokenize(text)
	sentences := tokenizer.SplitSentences(tokens)

	out := make([]SentenceResult, 0, len(sentences))
	for _, sent := range sentences {
		res, err := e.processSentence(sent)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (e *Engine) processSentence(sent []tokenizer.Token) (SentenceResult, error) {
	words := make([]WordForm, len(sent))
	candidates := make([][]dict.MorphInfo, len(sent))

	for i, tok := range sent {
		words[i] = WordForm{Token: tok, Winner: -1}
		candidates[i] = e.analyzeToken(tok)
		words[i].Interpretations = candidates[i]
	}

	chosen, err := e.disamb.Disambiguate(sent, candidates)
	if err != nil {
		return SentenceResult{}, err
	}
	for i := range words {
		words[i].Winner = chosen[i]
	}

	if e.seg != nil {
		for i := range words {
			if !segmentable(words[i].Token) {
				continue
			}
			winner, _ := words[i].Best()
			labels, err := e.seg.Segment(words[i].Token.Norm, winner)
			if err != nil {
				return SentenceResult{}, err
			}
			words[i].Phem = labels
		}
	}
	return SentenceResult{Words: words}, nil
}

// segmentable: морфемами размечаются только кириллические слова.
func segmentable(tok tokenizer.Token) bool {
	if tok.Type != tokenizer.Word || tok.IsLatin() {
		return false
	}
	for _, c := range tok.Text {
		if !c.IsCyrillic() {
			return false
		}
	}
	return true
}

// analyzeToken строит интерпретации токена. Числа и латиница обходят
// словарь, пунктуация получает служебный тег PNCT, а разделители
// остаются без интерпретаций.
func (e *Engine) analyzeToken(tok tokenizer.Token) []dict.MorphInfo {
	switch tok.Type {
	case tokenizer.Number:
		return []dict.MorphInfo{{Lemma: tok.Norm, Tag: tagset.NUMB, Prob: 1}}
	case tokenizer.Punct:
		return []dict.MorphInfo{{Lemma: tok.Norm, Tag: tagset.PNCT, Prob: 1}}
	case tokenizer.Separator:
		return nil
	case tokenizer.Other:
		return []dict.MorphInfo{{Lemma: tok.Norm, Tag: tagset.UNKN, Prob: 1}}
	}
	if tok.IsLatin() {
		return []dict.MorphInfo{{Lemma: tok.Norm, Tag: tagset.LATN, Prob: 1}}
	}
	return e.analyzeCached(tok.Norm)
}

// analyzeCached - словарный анализ через LRU-кеш. Закешированные срезы
// только читаются, поэтому безопасно отдавать их всем вызывающим.
func (e *Engine) analyzeCached(norm unistring.Unistring) []dict.MorphInfo {
	if e.cache == nil {
		return e.dict.Analyze(norm)
	}
	key := norm.String()
	if infos, ok := e.cache.Get(key); ok {
		return infos
	}
	infos := e.dict.Analyze(norm)
	e.cache.Add(key, infos)
	return infos
}

// Synthesize порождает словоформы леммы под целевой тег.
func (e *Engine) Synthesize(lemma string, target tagset.MorphTag) []dict.Form {
	return e.dict.Synthesize(unistring.New(lemma), target)
}

// Inflect порождает полную таблицу форм слова.
func (e *Engine) Inflect(word string) []dict.Form {
	return e.dict.Inflect(unistring.New(word))
}

// ProcessBatch разбирает пакет текстов в конкурентном режиме, пулом
// воркеров по числу процессоров. Порядок результатов равен порядку входа.
func (e *Engine) ProcessBatch(texts []string) ([][]SentenceResult, error) {
	type job struct {
		idx  int
		text string
	}
	type result struct {
		idx  int
		res  []SentenceResult
		err  error
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > len(texts) {
		numWorkers = len(texts)
	}
	if numWorkers == 0 {
		return nil, nil
	}

	jobsCh := make(chan job, numWorkers)
	resultCh := make(chan result, numWorkers)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for j := range jobsCh {
				res, err := e.Process(j.text)
				resultCh <- result{idx: j.idx, res: res, err: err}
			}
		}()
	}

	go func() {
		for i, t := range texts {
			jobsCh <- job{idx: i, text: t}
		}
		close(jobsCh)
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	out := make([][]SentenceResult, len(texts))
	var firstErr error
	for r := range resultCh {
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		out[r.idx] = r.res
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
