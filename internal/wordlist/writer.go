package wordlist

import (
	"bufio"
	"errors"
	"os"

	"github.com/temirov/srcwords/internal/job"
)

const (
	outputFilePermissions = 0o644
	lineTerminator        = '\n'
)

// Write creates outputPath exclusively and writes one token per line, each
// terminated by a newline. A pre-existing file yields job.ErrOutputExists;
// any other failure yields job.ErrWrite and the partial file is removed.
func Write(outputPath string, tokens []string) (err error) {
	file, openError := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, outputFilePermissions)
	if openError != nil {
		if errors.Is(openError, os.ErrExist) {
			return job.NewError(job.ErrOutputExists, outputPath, nil)
		}
		return job.NewError(job.ErrWrite, outputPath, openError)
	}
	defer func() {
		closeError := file.Close()
		if err == nil && closeError != nil {
			err = job.NewError(job.ErrWrite, outputPath, closeError)
		}
		if err != nil {
			_ = os.Remove(outputPath)
		}
	}()

	writer := bufio.NewWriter(file)
	for _, token := range tokens {
		if _, writeError := writer.WriteString(token); writeError != nil {
			return job.NewError(job.ErrWrite, outputPath, writeError)
		}
		if writeError := writer.WriteByte(lineTerminator); writeError != nil {
			return job.NewError(job.ErrWrite, outputPath, writeError)
		}
	}
	if flushError := writer.Flush(); flushError != nil {
		return job.NewError(job.ErrWrite, outputPath, flushError)
	}
	return nil
}

// Render joins tokens the same way Write lays them out on disk.
func Render(tokens []string) string {
	size := 0
	for _, token := range tokens {
		size += len(token) + 1
	}
	buffer := make([]byte, 0, size)
	for _, token := range tokens {
		buffer = append(buffer, token...)
		buffer = append(buffer, lineTerminator)
	}
	return string(buffer)
}
