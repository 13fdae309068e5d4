package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

const gitignoreComment = "# cv local config"

// EnsureIgnored ensures that .cv/ is listed in the project's .gitignore
// file. It is idempotent: the file is created when missing and existing
// content is preserved.
func EnsureIgnored(projectDir string) error {
	if projectDir == "" {
		var err error
		projectDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	gitignorePath := filepath.Join(projectDir, ".gitignore")

	alreadyPresent, err := isIgnored(gitignorePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if alreadyPresent {
		return nil
	}

	return appendToGitignore(gitignorePath, DirName+"/")
}

// isIgnored checks if .cv is already covered by the .gitignore file.
func isIgnored(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if matchesDirPattern(line) {
			return true, nil
		}
	}

	return false, scanner.Err()
}

// matchesDirPattern checks if a gitignore line covers the config directory.
func matchesDirPattern(line string) bool {
	normalized := strings.TrimPrefix(line, "/")
	switch normalized {
	case DirName, DirName + "/", DirName + "/*", DirName + "/**", DirName + "/**/*":
		return true
	}
	return false
}

// appendToGitignore appends a pattern, creating the file if needed and
// keeping a blank line between the existing content and the new entry.
func appendToGitignore(path string, pattern string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	var toWrite string
	if len(content) == 0 {
		toWrite = gitignoreComment + "\n" + pattern + "\n"
	} else {
		if content[len(content)-1] != '\n' {
			toWrite = "\n"
		}
		toWrite += "\n" + gitignoreComment + "\n" + pattern + "\n"
	}

	_, err = file.WriteString(toWrite)
	return err
}
