package app

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/fakemoon123/XMorphy/opencorpora"
)

var (
	srcFile string
	dictOut string
)

// Build - команда сборки словаря из XML OpenCorpora.
func Build(cmd *commander.Command, args []string) error {
	VerifyFlags(cmd, []string{"src", "out"})

	log.Println("Конфигурация")
	log.Printf("Источник:\t%s", srcFile)
	log.Printf("Словарь:\t%s", dictOut)
	log.Println()

	src, err := os.Open(srcFile)
	if err != nil {
		return fmt.Errorf("ошибка открытия источника: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dictOut)
	if err != nil {
		return fmt.Errorf("ошибка создания словаря: %w", err)
	}
	defer out.Close()

	start := time.Now()
	if err := opencorpora.Build(src, out); err != nil {
		return err
	}
	log.Printf("Словарь собран за %v", time.Since(start))
	return nil
}

func BuildCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Build,
		UsageLine: "build -src <opencorpora.xml> -out <morph.xmdict>",
		Short:     "собрать бинарный словарь из XML OpenCorpora",
		Long: `
собрать бинарный словарь из XML OpenCorpora

	$ ./xmorphy build -src dict.opcorpora.xml -out morph.xmdict

`,
		Flag: *flag.NewFlagSet("build", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&srcFile, "src", "", "XML-источник OpenCorpora")
	cmd.Flag.StringVar(&dictOut, "out", "", "Выходной файл словаря")
	return cmd
}
