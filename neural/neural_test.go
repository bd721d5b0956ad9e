package neural

import (
	"errors"
	"testing"
)

func TestParseVocabulary(t *testing.T) {
	v, err := ParseVocabulary([]byte(`{
		"input_features": ["emb0", "emb1", "len", "cap"],
		"output_tags": ["NOUN,sing,nomn", "VERB"]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(v.InputFeatures) != 4 || len(v.OutputTags) != 2 {
		t.Errorf("размеры словаря: %d и %d", len(v.InputFeatures), len(v.OutputTags))
	}
	// Имена тензоров по умолчанию.
	if v.InputName != "features" || v.OutputName != "scores" {
		t.Errorf("имена по умолчанию: %q, %q", v.InputName, v.OutputName)
	}
}

func TestParseVocabulary_Invalid(t *testing.T) {
	cases := []string{
		`не json`,
		`{}`,
		`{"input_features": [], "output_tags": ["x"]}`,
		`{"input_features": ["x"], "output_tags": []}`,
	}
	for _, c := range cases {
		if _, err := ParseVocabulary([]byte(c)); !errors.Is(err, ErrVocabMismatch) {
			t.Errorf("для %q ожидали ErrVocabMismatch, получили %v", c, err)
		}
	}
}

func TestParseVocabulary_CustomNames(t *testing.T) {
	v, err := ParseVocabulary([]byte(`{
		"input_features": ["a"],
		"output_tags": ["b"],
		"input_name": "word_ids",
		"output_name": "logits"
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if v.InputName != "word_ids" || v.OutputName != "logits" {
		t.Errorf("имена тензоров: %q, %q", v.InputName, v.OutputName)
	}
}

func TestLoadVocabulary_MissingFile(t *testing.T) {
	if _, err := LoadVocabulary("/нет/такого/файла.json"); err == nil {
		t.Error("ожидали ошибку чтения")
	}
}
