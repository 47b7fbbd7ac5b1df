package service

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/ludo-technologies/simscan/domain"
)

// ProgressManagerImpl implements the ProgressManager interface
type ProgressManagerImpl struct {
	mu          sync.Mutex
	writer      io.Writer
	progressBar *progressbar.ProgressBar
	interactive bool
	description string
	maxValue    int
}

// NewProgressManager creates a progress manager writing to stderr
func NewProgressManager() *ProgressManagerImpl {
	return &ProgressManagerImpl{
		writer:      os.Stderr,
		interactive: IsInteractiveEnvironment(),
		description: "Parsing files",
	}
}

// IsInteractiveEnvironment reports whether stderr is a terminal and CI is not set
func IsInteractiveEnvironment() bool {
	if os.Getenv("CI") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// Initialize sets up progress tracking with the maximum value
func (pm *ProgressManagerImpl) Initialize(maxValue int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.maxValue = maxValue
}

// SetDescription changes the label shown next to the bar
func (pm *ProgressManagerImpl) SetDescription(description string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.description = description
	if pm.progressBar != nil {
		pm.progressBar.Describe(description)
	}
}

// Start starts the progress bar
func (pm *ProgressManagerImpl) Start() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.interactive && pm.progressBar == nil {
		pm.progressBar = pm.createProgressBar(pm.maxValue)
	}
}

// Complete finishes the progress bar
func (pm *ProgressManagerImpl) Complete(success bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.progressBar != nil {
		if success {
			_ = pm.progressBar.Finish()
		} else {
			_ = pm.progressBar.Exit()
		}
		pm.progressBar = nil
	}
}

// Update updates the progress
func (pm *ProgressManagerImpl) Update(processed, total int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.progressBar == nil && pm.interactive {
		pm.progressBar = pm.createProgressBar(total)
	}
	if pm.progressBar != nil {
		_ = pm.progressBar.Set(processed)
	}
}

// SetWriter sets the output writer for progress bars
func (pm *ProgressManagerImpl) SetWriter(writer io.Writer) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.writer = writer
	if file, ok := writer.(*os.File); ok {
		pm.interactive = term.IsTerminal(int(file.Fd()))
	} else {
		pm.interactive = false
	}
}

// IsInteractive returns true if progress bars should be shown
func (pm *ProgressManagerImpl) IsInteractive() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	return pm.interactive
}

// Close cleans up any resources
func (pm *ProgressManagerImpl) Close() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.progressBar != nil {
		_ = pm.progressBar.Finish()
		pm.progressBar = nil
	}
}

func (pm *ProgressManagerImpl) createProgressBar(max int) *progressbar.ProgressBar {
	writer := pm.writer
	if writer == nil {
		writer = io.Discard
	}

	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(pm.description),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetWriter(writer),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(writer)
		}),
	)
}

// progressCounter feeds concurrent completions into a ProgressManager
type progressCounter struct {
	progress domain.ProgressManager
	total    int
	done     atomic.Int64
}

func newProgressCounter(progress domain.ProgressManager, total int) *progressCounter {
	return &progressCounter{progress: progress, total: total}
}

func (c *progressCounter) increment() {
	n := c.done.Add(1)
	c.progress.Update(int(n), c.total)
}

// noopProgressManager is used when progress output is disabled
type noopProgressManager struct{}

// NewNoOpProgressManager returns a ProgressManager that prints nothing
func NewNoOpProgressManager() domain.ProgressManager {
	return noopProgressManager{}
}

func (noopProgressManager) Initialize(int)      {}
func (noopProgressManager) Start()              {}
func (noopProgressManager) Complete(bool)       {}
func (noopProgressManager) Update(int, int)     {}
func (noopProgressManager) SetWriter(io.Writer) {}
func (noopProgressManager) IsInteractive() bool { return false }
func (noopProgressManager) Close()              {}
