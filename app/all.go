// Пакет app содержит команды консольной утилиты xmorphy.
// Каждая команда - отдельный файл с функцией-обработчиком и
// конструктором XxxCmd(), собирающим флаги.
package app

import (
	"os"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
)

// AppCommands - все команды утилиты.
var AppCommands = []*commander.Command{
	AnalyzeCmd(),
	BuildCmd(),
	InflectCmd(),
	SegmentCmd(),
}

// AllCommands собирает корневой обработчик командной строки.
func AllCommands() *commander.Command {
	return &commander.Command{
		UsageLine:   os.Args[0],
		Subcommands: AppCommands,
		Flag:        *flag.NewFlagSet("xmorphy", flag.ExitOnError),
	}
}
