package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

var (
	InfoLog   = log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)
	ErrorLog  = log.New(os.Stderr, "ERROR ", log.LstdFlags|log.Lshortfile)
	infoFile  *os.File
	errorFile *os.File
)

// Init инициализирует логгеры. Если logsPath пуст, логи пишутся в stderr,
// иначе в info.log и error.log внутри logsPath.
func Init(logsPath string) error {
	if logsPath == "" {
		InfoLog = log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)
		ErrorLog = log.New(os.Stderr, "ERROR ", log.LstdFlags|log.Lshortfile)
		return nil
	}

	if err := os.MkdirAll(logsPath, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	// Открыть info.log (append mode)
	infoPath := filepath.Join(logsPath, "info.log")
	var err error
	infoFile, err = os.OpenFile(infoPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create info.log: %w", err)
	}

	// Открыть error.log (append mode)
	errorPath := filepath.Join(logsPath, "error.log")
	errorFile, err = os.OpenFile(errorPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		infoFile.Close()
		infoFile = nil
		return fmt.Errorf("failed to create error.log: %w", err)
	}

	InfoLog = log.New(infoFile, "", log.LstdFlags|log.Lshortfile)
	ErrorLog = log.New(errorFile, "", log.LstdFlags|log.Lshortfile)

	InfoLog.Printf("Logger initialized. Logs directory: %s", logsPath)

	return nil
}

// SetOutput перенаправляет оба логгера (используется в тестах)
func SetOutput(w io.Writer) {
	InfoLog.SetOutput(w)
	ErrorLog.SetOutput(w)
}

// Cleanup закрывает файлы логов
func Cleanup() error {
	var errInfo, errError error

	if infoFile != nil {
		infoFile.Sync()
		errInfo = infoFile.Close()
		infoFile = nil
	}

	if errorFile != nil {
		errorFile.Sync()
		errError = errorFile.Close()
		errorFile = nil
	}

	if errInfo != nil {
		return errInfo
	}
	return errError
}
