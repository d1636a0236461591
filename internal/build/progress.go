package build

import (
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/sitio/sitio/internal/logger"
)

// Reporter показывает ход копирования файлов
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Finish()
}

// NewReporter возвращает полосу прогресса для терминала или построчный
// вывод в лог, если quiet или сборка идет в CI
func NewReporter(quiet bool) Reporter {
	if quiet || os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &LogReporter{}
	}
	return &TerminalReporter{}
}

// TerminalReporter полоса прогресса в терминале
type TerminalReporter struct {
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Copying"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, message string) {
	if r.bar != nil {
		r.bar.Describe(message)
		_ = r.bar.Set(current)
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// LogReporter пишет прогресс в InfoLog
type LogReporter struct {
	total int
}

func (r *LogReporter) Start(total int) {
	r.total = total
	logger.InfoLog.Printf("Copying %d files", total)
}

func (r *LogReporter) Update(current int, message string) {
	logger.InfoLog.Printf("[%d/%d] %s", current, r.total, message)
}

func (r *LogReporter) Finish() {
	logger.InfoLog.Println("Copy complete")
}
