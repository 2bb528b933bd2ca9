package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/keyed/internal/plugin"
	"github.com/dshills/keyed/internal/watch"
)

// Start loads every plugin and, when configured, starts the theme and
// development plugin watchers. Plugin load errors are logged and returned
// joined; they never stop the launcher from running.
func (l *Launcher) Start(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	ctx, l.cancel = context.WithCancel(ctx)

	loadErr := l.LoadPlugins(ctx)

	l.goBackground(func() {
		if err := l.themes.Watch(ctx); err != nil {
			l.logger.Warn("theme watcher: %v", err)
		}
	})
	if l.cfg.Plugins.Watch && l.cfg.Plugins.DevelopmentDir != "" {
		l.goBackground(func() {
			if err := l.watchDevelopment(ctx); err != nil {
				l.logger.Warn("plugin watcher: %v", err)
			}
		})
	}
	return loadErr
}

func (l *Launcher) goBackground(fn func()) {
	l.bg.Add(1)
	go func() {
		defer l.bg.Done()
		fn()
	}()
}

// LoadPlugins registers the bundled plugins, then every plugin found on
// disk, then applies plugins.disabled.
func (l *Launcher) LoadPlugins(ctx context.Context) error {
	l.reloadMu.Lock()
	defer l.reloadMu.Unlock()
	return l.loadPlugins()
}

func (l *Launcher) loadPlugins() error {
	var errs []error
	for _, p := range l.bundle.Plugins() {
		if err := l.plugins.Register(p); err != nil {
			errs = append(errs, err)
		}
	}

	result := l.loader.Discover()
	for _, p := range result.Plugins {
		if err := l.plugins.Register(p); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, result.Err())

	for _, id := range l.cfg.Plugins.Disabled {
		if err := l.plugins.Disable(id); err != nil {
			l.logger.WithField("plugin", id).Warn("cannot disable: %v", err)
		}
	}

	l.logger.Info("loaded %d plugins, %d commands", l.plugins.Count(), l.commands.Len())
	return errors.Join(errs...)
}

// Reload clears every plugin, running their unload hooks, and loads them
// again. Builtin commands are untouched.
func (l *Launcher) Reload(ctx context.Context) error {
	l.reloadMu.Lock()
	defer l.reloadMu.Unlock()

	l.plugins.Clear(ctx)
	return l.loadPlugins()
}

// watchDevelopment re-registers development plugins whose files change.
func (l *Launcher) watchDevelopment(ctx context.Context) error {
	dir := l.cfg.Plugins.DevelopmentDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	w, err := watch.New(l.logger, watch.WithRecursive(),
		watch.WithExtensions(".json", ".yaml", ".yml", ".lua"))
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	err = w.Run(ctx, func(events []watch.Event) {
		for _, pluginDir := range changedPluginDirs(dir, events) {
			l.ReloadDevelopment(ctx, pluginDir)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// changedPluginDirs maps file events to the distinct top-level plugin
// directories under root that contain them.
func changedPluginDirs(root string, events []watch.Event) []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, ev := range events {
		rel, err := filepath.Rel(root, ev.Path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		first, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
		dir := filepath.Join(root, first)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// ReloadDevelopment reloads the development plugin in dir. A plugin whose
// manifest disappeared is unregistered. A manifest that now fails
// validation leaves the previous registration in place.
func (l *Launcher) ReloadDevelopment(ctx context.Context, dir string) {
	l.reloadMu.Lock()
	defer l.reloadMu.Unlock()

	log := l.logger.WithField("dir", dir)
	path, err := plugin.FindManifest(dir)
	if err != nil {
		l.unregisterDir(ctx, dir)
		return
	}
	m, err := plugin.LoadManifest(path)
	if err != nil {
		log.Error("reload failed: %v", err)
		return
	}
	if existing, ok := l.plugins.Get(m.ID); ok && existing.Source != plugin.SourceDevelopment {
		log.Warn("plugin %s: %v", m.ID, plugin.ErrDuplicatePlugin)
		return
	}

	// The old registration owns the Lua state; unload it before the new
	// hooks are loaded into a fresh one.
	l.unregisterDir(ctx, dir)
	_ = l.plugins.Unregister(ctx, m.ID)

	p, err := l.loader.LoadDir(dir, plugin.SourceDevelopment)
	if err != nil {
		log.Error("reload failed: %v", err)
		return
	}
	if err := l.plugins.Register(p); err != nil {
		log.Error("register %s: %v", p.ID(), err)
		return
	}
	if l.cfg.IsDisabled(p.ID()) {
		l.plugins.Disable(p.ID())
	}
	log.Info("plugin %s reloaded", p.ID())
}

func (l *Launcher) unregisterDir(ctx context.Context, dir string) {
	for _, p := range l.plugins.All() {
		if p.Source == plugin.SourceDevelopment && p.Dir() == dir {
			l.logger.WithField("plugin", p.ID()).Info("removed")
			l.plugins.Unregister(ctx, p.ID())
		}
	}
}

// Close stops the watchers, cancels in-flight evaluation, waits for
// background work and unloads every plugin.
func (l *Launcher) Close() error {
	if l.cancel != nil {
		l.cancel()
	}
	l.inline.Close()
	l.dispatcher.Wait()
	l.bg.Wait()
	l.plugins.Clear(context.Background())
	l.plugins.Wait()
	l.running.Store(false)

	return errors.Join(l.runtime.Close(), l.bundle.Close())
}
