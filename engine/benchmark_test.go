package engine

import (
	"fmt"
	"testing"
	"time"
)

var benchmarkResult interface{}

// BenchmarkProcess измеряет производительность полного конвейера
// на коротком предложении.
func BenchmarkProcess(b *testing.B) {
	e := benchEngine(b)
	text := "Столы стали лучше."

	b.ReportAllocs()
	b.ResetTimer()

	startTime := time.Now()
	for i := 0; i < b.N; i++ {
		res, err := e.Process(text)
		if err != nil {
			b.Fatal(err)
		}
		benchmarkResult = res
	}
	b.StopTimer()

	totalDuration := time.Since(startTime)
	if b.N > 0 {
		b.Logf("\n\t--- Статистика Process ---\n"+
			"\tСреднее на предложение: %s\n",
			totalDuration/time.Duration(b.N),
		)
	}
}

// BenchmarkProcessBatch измеряет пакетную обработку пулом воркеров.
func BenchmarkProcessBatch(b *testing.B) {
	e := benchEngine(b)

	for _, count := range []int{100} {
		b.Run(fmt.Sprintf("%d_texts", count), func(b *testing.B) {
			texts := make([]string, count)
			for i := range texts {
				texts[i] = "Столы стали лучше."
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				res, err := e.ProcessBatch(texts)
				if err != nil {
					b.Fatal(err)
				}
				benchmarkResult = res
			}
		})
	}
}

// benchEngine переиспользует сборку тестового движка для бенчмарков.
func benchEngine(b *testing.B) *Engine {
	b.Helper()
	return testEngine(b)
}
