// Package watcher triggers a callback when any of a set of files changes on disk.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"resumebuilder/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches files for changes and invokes a callback after the
// changes settle
type FileWatcher struct {
	mu sync.RWMutex

	name  string
	files []string

	// lastModTime is only touched by Start and the watch loop
	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	done       chan struct{}

	onChange func()
	logger   *errors.Logger

	running bool
}

// New creates a watcher for files. name identifies the watcher in logs.
// Empty paths are ignored and a zero debounce defaults to one second.
func New(name string, files []string, debounce time.Duration, onChange func(), logger *errors.Logger) *FileWatcher {
	if debounce <= 0 {
		debounce = time.Second
	}

	watched := make([]string, 0, len(files))
	for _, f := range files {
		if f != "" && !slices.Contains(watched, f) {
			watched = append(watched, f)
		}
	}

	return &FileWatcher{
		name:          name,
		files:         watched,
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounce,
		onChange:      onChange,
		logger:        logger,
	}
}

// Start begins watching the files for changes
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return fmt.Errorf("%s watcher is already running", fw.name)
	}
	if len(fw.files) == 0 {
		return fmt.Errorf("%s watcher has no files to watch", fw.name)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	fw.fsWatcher = watcher

	if err := fw.updateModTimes(); err != nil {
		fw.cleanupWatcher()
		return fmt.Errorf("failed to get initial file modification times: %w", err)
	}

	for _, file := range fw.files {
		if err := fw.addFileToWatcher(file); err != nil && fw.logger != nil {
			fw.logger.Warn("Failed to watch file", "watcher", fw.name, "file", file, "error", err)
		}
	}

	fw.stopChan = make(chan struct{})
	fw.reloadChan = make(chan struct{}, 1)
	fw.done = make(chan struct{})
	fw.running = true
	go fw.watchLoop(fw.fsWatcher, fw.stopChan, fw.reloadChan, fw.done)

	if fw.logger != nil {
		fw.logger.Info("File watcher started",
			"watcher", fw.name,
			"files", fw.files,
			"debounce_delay", fw.debounceDelay)
	}
	return nil
}

func (fw *FileWatcher) cleanupWatcher() {
	if fw.fsWatcher != nil {
		if closeErr := fw.fsWatcher.Close(); closeErr != nil && fw.logger != nil {
			fw.logger.LogError(closeErr, "Failed to close file watcher during cleanup")
		}
		fw.fsWatcher = nil
	}
}

// Stop stops the watcher and waits for the watch loop to exit
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return nil
	}

	close(fw.stopChan)
	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}

	var closeErr error
	if fw.fsWatcher != nil {
		closeErr = fw.fsWatcher.Close()
	}
	fw.running = false
	done := fw.done
	fw.mu.Unlock()

	<-done

	if closeErr != nil {
		if fw.logger != nil {
			fw.logger.LogError(closeErr, "Failed to close file system watcher")
		}
		return closeErr
	}
	if fw.logger != nil {
		fw.logger.Info("File watcher stopped", "watcher", fw.name)
	}
	return nil
}

// addFileToWatcher adds a file and its directory to the file system watcher
func (fw *FileWatcher) addFileToWatcher(file string) error {
	dir := filepath.Dir(file)

	if err := fw.fsWatcher.Add(file); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to watch file %s: %w", file, err)
		}
		if fw.logger != nil {
			fw.logger.Info("Watching directory for missing file",
				"watcher", fw.name, "file", file, "directory", dir)
		}
	}

	// The directory catches atomic writes (rename operations)
	if err := fw.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	return nil
}

// updateModTimes updates the stored modification times for all watched files
func (fw *FileWatcher) updateModTimes() error {
	for _, file := range fw.files {
		if stat, err := os.Stat(file); err == nil {
			fw.lastModTime[file] = stat.ModTime()
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat file %s: %w", file, err)
		}
	}
	return nil
}

// hasFileChanged checks if a file has been modified since last check
func (fw *FileWatcher) hasFileChanged(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		if os.IsNotExist(err) {
			if _, exists := fw.lastModTime[file]; exists {
				delete(fw.lastModTime, file)
				return true
			}
		}
		return false
	}

	lastMod, exists := fw.lastModTime[file]
	if !exists || !stat.ModTime().Equal(lastMod) {
		fw.lastModTime[file] = stat.ModTime()
		return true
	}

	return false
}

// hasAnyFileChanged refreshes every stored modification time and reports
// whether any of them moved
func (fw *FileWatcher) hasAnyFileChanged() bool {
	changed := false
	for _, file := range fw.files {
		if fw.hasFileChanged(file) {
			changed = true
		}
	}
	return changed
}

func (fw *FileWatcher) watchLoop(watcher *fsnotify.Watcher, stop <-chan struct{}, reload chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if fw.shouldProcessEvent(event) {
				fw.scheduleReload(reload)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if fw.logger != nil {
				fw.logger.LogError(err, "File watcher error", "watcher", fw.name)
			}

		case <-reload:
			if fw.hasAnyFileChanged() {
				if fw.logger != nil {
					fw.logger.Info("Watched files changed, triggering reload", "watcher", fw.name)
				}
				fw.onChange()
			}

		case <-stop:
			return
		}
	}
}

// shouldProcessEvent determines if a file system event should trigger a reload check
func (fw *FileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	isWatchedFile := slices.ContainsFunc(fw.files, func(file string) bool {
		return event.Name == file || filepath.Base(event.Name) == filepath.Base(file)
	})
	if !isWatchedFile {
		return false
	}

	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}

// scheduleReload schedules a debounced reload
func (fw *FileWatcher) scheduleReload(reload chan struct{}) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}

	fw.debounceTimer = time.AfterFunc(fw.debounceDelay, func() {
		select {
		case reload <- struct{}{}:
		default:
			// A reload is already pending
		}
	})
}

// IsRunning returns whether the watcher is currently running
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.RLock()
	defer fw.mu.RUnlock()
	return fw.running
}

// Files returns the list of files being watched
func (fw *FileWatcher) Files() []string {
	return slices.Clone(fw.files)
}
