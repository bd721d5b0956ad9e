package app

import (
	"log"
	"os"

	"github.com/gonuts/commander"
)

// VerifyFlags проверяет, что обязательные флаги команды заданы,
// иначе печатает подсказку и завершает процесс.
func VerifyFlags(cmd *commander.Command, required []string) {
	for _, name := range required {
		f := cmd.Flag.Lookup(name)
		if f == nil || f.Value.String() == "" {
			log.Printf("Обязательный флаг -%s не задан", name)
			cmd.Usage()
			os.Exit(1)
		}
	}
}
