package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// promptFile describes one configured prompt file
type promptFile struct {
	path       string
	promptType string // "system" or "user"
	operation  string
}

// promptFiles lists every prompt file referenced by the configuration
func (c *Config) promptFiles() []promptFile {
	candidates := []promptFile{
		{c.AI.CustomPrompts.SystemPrompts.SuggestFile, "system", OperationSuggest},
		{c.AI.CustomPrompts.UserPrompts.SuggestFile, "user", OperationSuggest},
		{c.AI.CustomPrompts.SystemPrompts.ScoreFile, "system", OperationScore},
		{c.AI.CustomPrompts.UserPrompts.ScoreFile, "user", OperationScore},
		{c.AI.Suggest.CustomPrompts.SystemPrompts.SuggestFile, "system", OperationSuggest},
		{c.AI.Suggest.CustomPrompts.UserPrompts.SuggestFile, "user", OperationSuggest},
		{c.AI.Score.CustomPrompts.SystemPrompts.ScoreFile, "system", OperationScore},
		{c.AI.Score.CustomPrompts.UserPrompts.ScoreFile, "user", OperationScore},
	}

	files := make([]promptFile, 0, len(candidates))
	for _, f := range candidates {
		if f.path != "" {
			files = append(files, f)
		}
	}
	return files
}

// PromptFilePaths returns the absolute paths of all configured prompt files
func (c *Config) PromptFilePaths() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, f := range c.promptFiles() {
		abs, err := filepath.Abs(f.path)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		paths = append(paths, abs)
	}
	return paths
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for _, f := range c.promptFiles() {
		absPath, err := filepath.Abs(f.path)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", f.promptType, f.operation, f.path))
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", f.promptType, f.operation, absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}

	return nil
}
