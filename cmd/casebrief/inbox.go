package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Epistemic-Technology/casebrief/internal/operations"
	"github.com/Epistemic-Technology/casebrief/internal/storage"
	"github.com/Epistemic-Technology/casebrief/models"
)

// inbox runs watched documents one at a time so concurrent arrivals share
// the model rate limits instead of competing for them.
type inbox struct {
	ctx          context.Context
	kind         models.RunKind
	instructions string
	output       *storage.JSONSink
	deps         operations.Deps
	queue        chan string
	mu           sync.Mutex
	pending      map[string]bool
	done         chan struct{}
}

func newInbox(ctx context.Context, kind models.RunKind, instructions string, output *storage.JSONSink, deps operations.Deps) *inbox {
	in := &inbox{
		ctx:          ctx,
		kind:         kind,
		instructions: instructions,
		output:       output,
		deps:         deps,
		queue:        make(chan string, 256),
		pending:      make(map[string]bool),
		done:         make(chan struct{}),
	}
	go in.loop()
	return in
}

func (in *inbox) enqueue(path string) {
	in.mu.Lock()
	if in.pending[path] {
		in.mu.Unlock()
		return
	}
	in.pending[path] = true
	in.mu.Unlock()

	select {
	case in.queue <- path:
	case <-in.ctx.Done():
	}
}

func (in *inbox) loop() {
	defer close(in.done)
	for {
		select {
		case <-in.ctx.Done():
			return
		case path := <-in.queue:
			in.mu.Lock()
			delete(in.pending, path)
			in.mu.Unlock()
			in.process(path)
		}
	}
}

func (in *inbox) process(path string) {
	log := in.deps.Log
	name := filepath.Base(path)
	target := in.output.PathFor(&models.Run{Filename: name, Kind: in.kind})
	if upToDate(path, target) {
		log.Debug("Skipping %s: %s is up to date", path, target)
		return
	}
	if _, err := operations.SummarizeFile(in.ctx, path, in.kind, in.instructions, in.deps); err != nil {
		log.Error("Failed to process %s: %v", path, err)
		return
	}
	log.Info("Wrote %s", target)
}

func (in *inbox) wait() {
	<-in.done
}

// upToDate reports whether output exists and is newer than input.
func upToDate(input, output string) bool {
	in, err := os.Stat(input)
	if err != nil {
		return false
	}
	out, err := os.Stat(output)
	if err != nil {
		return false
	}
	return !out.ModTime().Before(in.ModTime())
}

// expandInputs resolves files and directories to a sorted list of
// documents. Directories contribute their top-level files with a matching
// extension; explicit files are always kept.
func expandInputs(args []string, extensions []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !hasExtension(e.Name(), extensions) {
				continue
			}
			found = append(found, filepath.Join(arg, e.Name()))
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

func hasExtension(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
