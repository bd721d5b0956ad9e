// Команда xmorphy-server поднимает анализатор как JSON REST API.
//
// Эндпоинты:
//
//	GET  /api/analyze?word=<слово>
//	POST /api/analyze/text   тело: {"text":"..."}
//	GET  /api/synthesize?lemma=<лемма>&tag=<тег>
//	GET  /api/inflect?word=<слово>
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"

	"github.com/rs/cors"

	"github.com/fakemoon123/XMorphy/engine"
	"github.com/fakemoon123/XMorphy/tagset"
	"github.com/fakemoon123/XMorphy/tokenizer"
)

// ---- типы JSON-ответов --------------------------------------------------

type interpJSON struct {
	Lemma   string  `json:"lemma"`
	Tag     string  `json:"tag"`
	Prob    float64 `json:"prob"`
	Guessed bool    `json:"guessed,omitempty"`
}

type wordJSON struct {
	Word     string       `json:"word"`
	Type     string       `json:"type"`
	Best     *interpJSON  `json:"best,omitempty"`
	Variants []interpJSON `json:"variants,omitempty"`
	Phem     []string     `json:"phem,omitempty"`
}

type sentenceJSON struct {
	Words []wordJSON `json:"words"`
}

type analyzeResponse struct {
	Sentences []sentenceJSON `json:"sentences"`
}

type formJSON struct {
	Word string `json:"word"`
	Tag  string `json:"tag"`
}

type formsResponse struct {
	Lemma string     `json:"lemma"`
	Forms []formJSON `json:"forms"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ---- вспомогательные функции --------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ошибка кодирования ответа: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func toSentences(results []engine.SentenceResult) []sentenceJSON {
	out := make([]sentenceJSON, 0, len(results))
	for _, sent := range results {
		var sj sentenceJSON
		for _, wf := range sent.Words {
			if wf.Token.Type == tokenizer.Separator {
				continue
			}
			wj := wordJSON{
				Word: wf.Token.Text.String(),
				Type: wf.Token.Type.String(),
			}
			for _, mi := range wf.Interpretations {
				wj.Variants = append(wj.Variants, interpJSON{
					Lemma:   mi.Lemma.String(),
					Tag:     mi.Tag.String(),
					Prob:    mi.Prob,
					Guessed: mi.Guessed,
				})
			}
			if best, ok := wf.Best(); ok {
				wj.Best = &interpJSON{
					Lemma:   best.Lemma.String(),
					Tag:     best.Tag.String(),
					Prob:    best.Prob,
					Guessed: best.Guessed,
				}
			}
			for _, p := range wf.Phem {
				wj.Phem = append(wj.Phem, p.String())
			}
			sj.Words = append(sj.Words, wj)
		}
		out = append(out, sj)
	}
	return out
}

// ---- обработчики ---------------------------------------------------------

func handleAnalyzeWord(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "нужен GET")
			return
		}
		word := r.URL.Query().Get("word")
		if word == "" {
			writeError(w, http.StatusBadRequest, "нет параметра 'word'")
			return
		}
		results, err := eng.Process(word)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, analyzeResponse{Sentences: toSentences(results)})
	}
}

func handleAnalyzeText(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "нужен POST")
			return
		}
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == "" {
			writeError(w, http.StatusBadRequest, "тело должно быть JSON с непустым полем 'text'")
			return
		}
		results, err := eng.Process(body.Text)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, analyzeResponse{Sentences: toSentences(results)})
	}
}

func handleSynthesize(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "нужен GET")
			return
		}
		lemma := r.URL.Query().Get("lemma")
		tagStr := r.URL.Query().Get("tag")
		if lemma == "" || tagStr == "" {
			writeError(w, http.StatusBadRequest, "нужны параметры 'lemma' и 'tag'")
			return
		}
		target := tagset.Parse(tagStr)
		forms := eng.Synthesize(lemma, target)
		resp := formsResponse{Lemma: lemma}
		for _, f := range forms {
			resp.Forms = append(resp.Forms, formJSON{Word: f.Word.String(), Tag: f.Tag.String()})
		}
		status := http.StatusOK
		if len(resp.Forms) == 0 {
			status = http.StatusNotFound
		}
		writeJSON(w, status, resp)
	}
}

func handleInflect(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "нужен GET")
			return
		}
		word := r.URL.Query().Get("word")
		if word == "" {
			writeError(w, http.StatusBadRequest, "нет параметра 'word'")
			return
		}
		forms := eng.Inflect(word)
		resp := formsResponse{Lemma: word}
		for _, f := range forms {
			resp.Forms = append(resp.Forms, formJSON{Word: f.Word.String(), Tag: f.Tag.String()})
		}
		status := http.StatusOK
		if len(resp.Forms) == 0 {
			status = http.StatusNotFound
		}
		writeJSON(w, status, resp)
	}
}

// ---- main ----------------------------------------------------------------

func main() {
	dataDir := flag.String("data", "", "каталог данных (по умолчанию XMORPHY_DATA_DIR)")
	addr := flag.String("addr", ":8080", "адрес прослушивания")
	onnxLib := flag.String("onnx", "", "путь к библиотеке ONNX Runtime")
	flag.Parse()

	log.Printf("загрузка ресурсов из %q…", *dataDir)
	eng, err := engine.Load(engine.Options{DataDir: *dataDir, OnnxLibrary: *onnxLib})
	if err != nil {
		log.Fatalf("не удалось загрузить движок: %v", err)
	}
	defer eng.Close()
	log.Println("ресурсы загружены")

	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze/text", handleAnalyzeText(eng))
	mux.HandleFunc("/api/analyze", handleAnalyzeWord(eng))
	mux.HandleFunc("/api/synthesize", handleSynthesize(eng))
	mux.HandleFunc("/api/inflect", handleInflect(eng))

	handler := cors.Default().Handler(mux)

	log.Printf("слушаем %s", *addr)
	if err := http.ListenAndServe(*addr, handler); err != nil {
		log.Fatalf("ошибка сервера: %v", err)
	}
}
