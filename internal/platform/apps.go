package platform

import (
	"bufio"
	"context"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// scanBundles lists *.app bundles directly under dirs.
func scanBundles(ctx context.Context, dirs []string) ([]Application, error) {
	seen := make(map[string]bool)
	var apps []Application

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !strings.HasSuffix(e.Name(), ".app") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			app := Application{
				Name:     strings.TrimSuffix(e.Name(), ".app"),
				Path:     path,
				BundleID: bundleIdentifier(filepath.Join(path, "Contents", "Info.plist")),
			}
			if seen[app.Key()] {
				continue
			}
			seen[app.Key()] = true
			apps = append(apps, app)
		}
	}

	sortApps(apps)
	return apps, nil
}

// bundleIdentifier reads CFBundleIdentifier from an XML Info.plist.
// Binary plists yield "".
func bundleIdentifier(plistPath string) string {
	f, err := os.Open(plistPath)
	if err != nil {
		return ""
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	wantValue := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "key" && se.Name.Local != "string" {
			if se.Name.Local != "dict" && se.Name.Local != "plist" {
				wantValue = false
			}
			continue
		}
		var text string
		if err := dec.DecodeElement(&text, &se); err != nil {
			return ""
		}
		if se.Name.Local == "key" {
			wantValue = text == "CFBundleIdentifier"
			continue
		}
		if wantValue {
			return strings.TrimSpace(text)
		}
	}
}

// scanDesktopEntries lists applications from freedesktop .desktop files.
// Earlier directories shadow later ones with the same file id.
func scanDesktopEntries(ctx context.Context, dirs []string) ([]Application, error) {
	seen := make(map[string]bool)
	var apps []Application

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".desktop") {
				continue
			}
			id := strings.TrimSuffix(e.Name(), ".desktop")
			if seen[id] {
				continue
			}
			seen[id] = true

			path := filepath.Join(dir, e.Name())
			f, err := os.Open(path)
			if err != nil {
				continue
			}
			app, ok := parseDesktopEntry(f)
			f.Close()
			if !ok {
				continue
			}
			app.Path = path
			app.BundleID = id
			apps = append(apps, app)
		}
	}

	sortApps(apps)
	return apps, nil
}

// parseDesktopEntry reads the [Desktop Entry] group. Hidden, NoDisplay and
// non-Application entries are rejected.
func parseDesktopEntry(r io.Reader) (Application, bool) {
	var app Application
	inEntry := false
	appType := ""

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inEntry = line == "[Desktop Entry]"
			continue
		}
		if !inEntry {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Name":
			app.Name = strings.TrimSpace(value)
		case "Exec":
			app.Exec = stripFieldCodes(strings.TrimSpace(value))
		case "Type":
			appType = strings.TrimSpace(value)
		case "NoDisplay", "Hidden":
			if strings.EqualFold(strings.TrimSpace(value), "true") {
				return Application{}, false
			}
		}
	}

	if app.Name == "" || appType != "Application" {
		return Application{}, false
	}
	return app, true
}

// stripFieldCodes removes %f, %U and similar placeholders from an Exec line.
func stripFieldCodes(exec string) string {
	fields := strings.Fields(exec)
	out := fields[:0]
	for _, f := range fields {
		if len(f) == 2 && f[0] == '%' {
			if f[1] == '%' {
				out = append(out, "%")
			}
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

func sortApps(apps []Application) {
	slices.SortFunc(apps, func(a, b Application) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}
