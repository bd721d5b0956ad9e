package app

import (
	"bufio"
	"fmt"
	"os"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/fakemoon123/XMorphy/engine"
)

// Inflect - команда склонения: для каждого слова-аргумента печатает
// полную таблицу словоформ его лексем.
func Inflect(cmd *commander.Command, args []string) error {
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
		forms := eng.Inflect(word)
		if len(forms) == 0 {
			fmt.Fprintf(w, "%s\t-\n", word)
			continue
		}
		for _, f := range forms {
			fmt.Fprintf(w, "%s\t%s\t%s\n", word, f.Word.String(), f.Tag.String())
		}
	}
	return nil
}

func InflectCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Inflect,
		UsageLine: "inflect [options] <слово> [слово...]",
		Short:     "таблица словоформ для каждого слова",
		Long: `
таблица словоформ для каждого слова

	$ ./xmorphy inflect -data <каталог данных> стол мама

`,
		Flag: *flag.NewFlagSet("inflect", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&dataDir, "data", "", "Каталог с ресурсами (по умолчанию XMORPHY_DATA_DIR)")
	cmd.Flag.StringVar(&onnxLib, "onnx", "", "Путь к библиотеке ONNX Runtime")
	return cmd
}
