package main

import (
	"context"
	"path/filepath"
	"slices"
	"time"

	"github.com/bep/debounce"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/navmlang/navc/internal/utils"
)

const WATCH_DEBOUNCE_DURATION = 150 * time.Millisecond

// watch rebuilds the modified source files until ctx is done. The inputs and the files
// matching one of the glob patterns in args are watched. Builds run one at a time on the
// calling goroutine.
func (b *builder) watch(ctx context.Context, args []string, inputs []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	var patterns []string
	watchedInputs := map[string]struct{}{}
	watchedDirs := map[string]struct{}{}

	for _, arg := range args {
		if isPattern(arg) {
			patterns = append(patterns, arg)
		}
	}

	for _, input := range inputs {
		watchedInputs[filepath.Clean(input)] = struct{}{}
		watchedDirs[filepath.Dir(input)] = struct{}{}
	}

	for dir := range watchedDirs {
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}

	isWatched := func(path string) bool {
		path = filepath.Clean(path)
		if _, ok := watchedInputs[path]; ok {
			return true
		}
		for _, pattern := range patterns {
			if ok, _ := doublestar.PathMatch(pattern, path); ok {
				return true
			}
		}
		return false
	}

	b.logger.Info().Int("files", len(inputs)).Msg("watching")

	var (
		debounced = debounce.New(WATCH_DEBOUNCE_DURATION)
		rebuild   = make(chan struct{}, 1)
		changed   = map[string]struct{}{}
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.logger.Warn().Err(err).Msg("watcher error")
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isWatched(event.Name) {
				continue
			}

			changed[filepath.Clean(event.Name)] = struct{}{}
			debounced(func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})
		case <-rebuild:
			paths := make([]string, 0, len(changed))
			for path := range changed {
				paths = append(paths, path)
			}
			clear(changed)
			slices.Sort(paths)

			b.logger.Debug().Strs("files", paths).Msg("rebuilding")
			err := utils.Recover(func() error {
				return b.buildAll(paths)
			})
			if err != nil {
				b.logger.Debug().Err(err).Msg("rebuild failed")
			}
		}
	}
}
