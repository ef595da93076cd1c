package session

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Text file with one record per line. Lines are only appended.
type FileLog struct {
	Path string
}

func NewFileLog(path string) *FileLog {
	return &FileLog{Path: path}
}

// Appends records and returns total number of lines in the file
func (l *FileLog) Append(records ...Record) (int, error) {
	if err := l.write(records); err != nil {
		return 0, fmt.Errorf("write %q: %w", l.Path, err)
	}

	total, err := l.Count()
	if err != nil {
		return 0, fmt.Errorf("read %q: %w", l.Path, err)
	}
	return total, nil
}

func (l *FileLog) write(records []Record) error {
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	var sb strings.Builder
	for _, r := range records {
		sb.WriteString(r.FormatLine())
		sb.WriteByte('\n')
	}

	if _, err = f.WriteString(sb.String()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Number of lines in the file
func (l *FileLog) Count() (int, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
