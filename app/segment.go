package app

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/fakemoon123/XMorphy/engine"
	"github.com/fakemoon123/XMorphy/tokenizer"
)

// Segment - команда морфемного разбора: печатает слово и его
// посимвольную разметку вида перепод:PREF готов:ROOT к:SUFF а:END
// (соседние символы с одной меткой печатаются одним куском).
func Segment(cmd *commander.Command, args []string) error {
	if len(args) == 0 {
		cmd.Usage()
		return fmt.Errorf("нужно хотя бы одно слово")
	}

	eng, err := engine.Load(engine.Options{DataDir: dataDir, OnnxLibrary: onnxLib})
	if err != nil {
		return err
	}
	defer eng.Close()

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, word := range args {
		results, err := eng.Process(word)
		if err != nil {
			return err
		}
		for _, sent := range results {
			for _, wf := range sent.Words {
				if wf.Token.Type != tokenizer.Word {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\n", wf.Token.Text.String(), formatPhem(wf))
			}
		}
	}
	return nil
}

// formatPhem сворачивает посимвольные метки в группы морфем.
func formatPhem(wf engine.WordForm) string {
	if len(wf.Phem) == 0 {
		return "-"
	}
	var parts []string
	text := wf.Token.Text
	start := 0
	for i := 1; i <= len(wf.Phem); i++ {
		if i == len(wf.Phem) || wf.Phem[i] != wf.Phem[start] {
			parts = append(parts, fmt.Sprintf("%s:%s",
				text.Slice(start, i).String(), wf.Phem[start]))
			start = i
		}
	}
	return strings.Join(parts, " ")
}

func SegmentCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Segment,
		UsageLine: "segment [options] <слово> [слово...]",
		Short:     "разметка слова морфемами (приставка/корень/суффикс/окончание)",
		Long: `
разметка слова морфемами

	$ ./xmorphy segment -data <каталог данных> переподготовка

`,
		Flag: *flag.NewFlagSet("segment", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&dataDir, "data", "", "Каталог с ресурсами (по умолчанию XMORPHY_DATA_DIR)")
	cmd.Flag.StringVar(&onnxLib, "onnx", "", "Путь к библиотеке ONNX Runtime")
	return cmd
}
