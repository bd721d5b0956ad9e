package main

// #include <stdlib.h>
import "C"

import (
	"encoding/json"
	"unsafe"

	"github.com/fakemoon123/XMorphy/engine"
	"github.com/fakemoon123/XMorphy/tagset"
)

var eng *engine.Engine

//export CreateEngine
func CreateEngine(dataDir *C.char) C.int {
	var err error
	eng, err = engine.Load(engine.Options{DataDir: C.GoString(dataDir)})
	if err != nil {
		return 1
	}
	return 0
}

//export AnalyzeText
func AnalyzeText(text *C.char) *C.char {
	if eng == nil {
		return nil
	}
	results, err := eng.Process(C.GoString(text))
	if err != nil {
		return nil
	}

	type interpOut struct {
		Lemma string  `json:"lemma"`
		Tag   string  `json:"tag"`
		Prob  float64 `json:"prob"`
	}
	type wordOut struct {
		Word     string      `json:"word"`
		Best     *interpOut  `json:"best,omitempty"`
		Variants []interpOut `json:"variants,omitempty"`
		Phem     []string    `json:"phem,omitempty"`
	}

	var out [][]wordOut
	for _, sent := range results {
		var words []wordOut
		for _, wf := range sent.Words {
			w := wordOut{Word: wf.Token.Text.String()}
			for _, mi := range wf.Interpretations {
				w.Variants = append(w.Variants, interpOut{
					Lemma: mi.Lemma.String(), Tag: mi.Tag.String(), Prob: mi.Prob,
				})
			}
			if best, ok := wf.Best(); ok {
				w.Best = &interpOut{Lemma: best.Lemma.String(), Tag: best.Tag.String(), Prob: best.Prob}
			}
			for _, p := range wf.Phem {
				w.Phem = append(w.Phem, p.String())
			}
			words = append(words, w)
		}
		out = append(out, words)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	return C.CString(string(data))
}

//export SynthesizeWord
func SynthesizeWord(lemma, tag *C.char) *C.char {
	if eng == nil {
		return nil
	}
	forms := eng.Synthesize(C.GoString(lemma), tagset.Parse(C.GoString(tag)))

	type formOut struct {
		Word string `json:"word"`
		Tag  string `json:"tag"`
	}
	out := make([]formOut, 0, len(forms))
	for _, f := range forms {
		out = append(out, formOut{Word: f.Word.String(), Tag: f.Tag.String()})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	return C.CString(string(data))
}

//export FreeString
func FreeString(str *C.char) {
	if str != nil {
		C.free(unsafe.Pointer(str))
	}
}

//export ReleaseEngine
func ReleaseEngine() {
	if eng != nil {
		eng.Close()
		eng = nil
	}
}

func main() {}
