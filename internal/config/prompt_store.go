package config

import (
	"fmt"
	"log"
	"sync"
)

// LoadedPrompts holds prompt text read from files for one operation
type LoadedPrompts struct {
	System string
	User   string
}

// PromptStore holds the contents of configured prompt files.
// Reload re-reads every file; a failed reload keeps the previous prompts.
type PromptStore struct {
	mu      sync.RWMutex
	config  *Config
	prompts map[string]LoadedPrompts
}

// NewPromptStore loads all prompt files referenced by cfg
func NewPromptStore(cfg *Config) (*PromptStore, error) {
	s := &PromptStore{
		config:  cfg,
		prompts: make(map[string]LoadedPrompts),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads every configured prompt file
func (s *PromptStore) Reload() error {
	loaded := make(map[string]LoadedPrompts)

	for _, op := range []string{OperationSuggest, OperationScore} {
		opCfg, err := s.config.GetOperationConfig(op)
		if err != nil {
			return err
		}

		systemFile, userFile := promptFilesFor(op, opCfg.CustomPrompts)
		var prompts LoadedPrompts
		if systemFile != "" {
			if prompts.System, err = loadPromptFromFile(systemFile, "system", op); err != nil {
				return fmt.Errorf("failed to load %s system prompt: %w", op, err)
			}
		}
		if userFile != "" {
			if prompts.User, err = loadPromptFromFile(userFile, "user", op); err != nil {
				return fmt.Errorf("failed to load %s user prompt: %w", op, err)
			}
		}
		loaded[op] = prompts
	}

	s.mu.Lock()
	s.prompts = loaded
	s.mu.Unlock()

	count := 0
	for _, p := range loaded {
		if p.System != "" {
			count++
		}
		if p.User != "" {
			count++
		}
	}
	if count == 0 {
		log.Println("[CONFIG] No custom prompt files loaded - using configured or built-in prompts")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded from files: %d", count)
	}
	return nil
}

// Get returns the file-loaded prompts for an operation. A nil store has none.
func (s *PromptStore) Get(operation string) LoadedPrompts {
	if s == nil {
		return LoadedPrompts{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompts[operation]
}

// Files returns the prompt files backing the store
func (s *PromptStore) Files() []string {
	if s == nil {
		return nil
	}
	return s.config.PromptFilePaths()
}

func promptFilesFor(operation string, prompts PromptConfig) (systemFile, userFile string) {
	switch operation {
	case OperationSuggest:
		return prompts.SystemPrompts.SuggestFile, prompts.UserPrompts.SuggestFile
	case OperationScore:
		return prompts.SystemPrompts.ScoreFile, prompts.UserPrompts.ScoreFile
	}
	return "", ""
}
