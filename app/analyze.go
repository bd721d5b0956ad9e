package app

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"unicode/utf8"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/fakemoon123/XMorphy/engine"
	"github.com/fakemoon123/XMorphy/tokenizer"
)

var (
	dataDir  string
	inFile   string
	outFile  string
	onnxLib  string
	showSepr bool
)

// ExitMalformedInput - код выхода для некорректного входа.
const ExitMalformedInput = 2

func analyzeConfigOut() {
	log.Println("Конфигурация")
	log.Printf("Каталог данных:\t%s", dataDir)
	if inFile != "" {
		log.Printf("Вход:\t\t%s", inFile)
	} else {
		log.Printf("Вход:\t\tstdin")
	}
	log.Println()
}

// Analyze - команда разбора: читает текст, печатает построчный TSV
// "Словоформа<TAB>Лемма<TAB>Тег<TAB>Вероятность" для каждого токена.
func Analyze(cmd *commander.Command, args []string) error {
	analyzeConfigOut()

	input := os.Stdin
	if inFile != "" {
		f, err := os.Open(inFile)
		if err != nil {
			return fmt.Errorf("ошибка открытия входа: %w", err)
		}
		defer f.Close()
		input = f
	}
	output := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return fmt.Errorf("ошибка создания выхода: %w", err)
		}
		defer f.Close()
		output = f
	}

	text, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("ошибка чтения входа: %w", err)
	}
	if !utf8.Valid(text) {
		fmt.Fprintln(os.Stderr, "вход не является корректным UTF-8")
		os.Exit(ExitMalformedInput)
	}

	eng, err := engine.Load(engine.Options{DataDir: dataDir, OnnxLibrary: onnxLib})
	if err != nil {
		return err
	}
	defer eng.Close()

	results, err := eng.Process(string(text))
	if err != nil {
		return err
	}

	w := bufio.NewWriter(output)
	defer w.Flush()
	for _, sent := range results {
		for _, word := range sent.Words {
			if word.Token.Type == tokenizer.Separator && !showSepr {
				continue
			}
			if best, ok := word.Best(); ok {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\n",
					word.Token.Text.String(), best.Lemma.String(), best.Tag.String(), best.Prob)
			} else {
				fmt.Fprintf(w, "%s\t\t\t\n", word.Token.Text.String())
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

func AnalyzeCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Analyze,
		UsageLine: "analyze [options]",
		Short:     "морфологический разбор текста со снятием омонимии",
		Long: `
морфологический разбор текста со снятием омонимии

	$ ./xmorphy analyze -data <каталог данных> [-in <файл>] [-out <файл>]

`,
		Flag: *flag.NewFlagSet("analyze", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&dataDir, "data", "", "Каталог с ресурсами (по умолчанию XMORPHY_DATA_DIR)")
	cmd.Flag.StringVar(&inFile, "in", "", "Входной текст (по умолчанию stdin)")
	cmd.Flag.StringVar(&outFile, "out", "", "Файл результата (по умолчанию stdout)")
	cmd.Flag.StringVar(&onnxLib, "onnx", "", "Путь к библиотеке ONNX Runtime")
	cmd.Flag.BoolVar(&showSepr, "sepr", false, "Печатать токены-разделители")
	return cmd
}
