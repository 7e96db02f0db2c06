package util

import (
	"os"
	"strings"
)

// WriteToFile replaces the file at savePath with the lines of content
func WriteToFile(savePath string, content ...string) error {
	return os.WriteFile(savePath, []byte(lines(content)), 0644)
}

// AppendToFile adds the lines of content to the end of the file at savePath,
// creating it if needed. All lines go out in a single write.
func AppendToFile(savePath string, content ...string) error {
	if len(content) == 0 {
		return nil
	}
	f, err := os.OpenFile(savePath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(lines(content)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func lines(content []string) string {
	return strings.Join(content, "\n") + "\n"
}
