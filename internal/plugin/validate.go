package plugin

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"

	"github.com/tidwall/gjson"
)

// idPattern validates reverse-DNS plugin ids such as "com.author.plugin-name".
var idPattern = regexp.MustCompile(`^[a-z0-9]+(\.[a-z0-9-]+)+$`)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?$`)

// commandNamePattern restricts command names to a safe character class.
var commandNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// supportedAPIVersions lists every accepted apiVersion.
var supportedAPIVersions = []string{APIVersion}

// Validate checks an untyped manifest value and returns the typed manifest.
//
// raw may be JSON text ([]byte or json.RawMessage) or an already decoded
// value such as map[string]any. Every violation is collected before
// returning, so a *ValidationError lists all problems in one pass. source
// only labels the error.
func Validate(raw any, source string) (*Manifest, error) {
	data, ok := asJSON(raw)
	if !ok {
		return nil, &ValidationError{Source: source, format: true}
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &ValidationError{Source: source, format: true}
	}

	v := &validator{root: root}
	v.validateIdentity()
	v.validatePermissions()
	v.validateCommands()

	if len(v.violations) > 0 {
		return nil, &ValidationError{Source: source, Violations: v.violations}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", source, err)
	}
	return &m, nil
}

// asJSON normalizes raw into JSON text.
func asJSON(raw any) ([]byte, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, false
	case []byte:
		return v, gjson.ValidBytes(v)
	case json.RawMessage:
		return v, gjson.ValidBytes(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		return data, true
	}
}

type validator struct {
	root       gjson.Result
	violations []string
}

func (v *validator) addf(format string, args ...any) {
	v.violations = append(v.violations, fmt.Sprintf(format, args...))
}

// present reports whether an optional field is set to something other
// than null.
func present(r gjson.Result) bool {
	return r.Exists() && r.Type != gjson.Null
}

func nonEmptyString(r gjson.Result) (string, bool) {
	if r.Type != gjson.String || r.Str == "" {
		return "", false
	}
	return r.Str, true
}

func (v *validator) requireString(field string) (string, bool) {
	s, ok := nonEmptyString(v.root.Get(field))
	if !ok {
		v.addf(`Missing or invalid %q field`, field)
	}
	return s, ok
}

func (v *validator) validateIdentity() {
	if id, ok := v.requireString("id"); ok && !idPattern.MatchString(id) {
		v.addf(`Invalid plugin ID format (should be like "com.author.plugin-name")`)
	}
	v.requireString("name")
	if version, ok := v.requireString("version"); ok && !semverPattern.MatchString(version) {
		v.addf(`Invalid version format (should be semver like "1.0.0")`)
	}
	if api, ok := v.requireString("apiVersion"); ok && !slices.Contains(supportedAPIVersions, api) {
		v.addf(`Incompatible API version %q (supported: %s)`, api, APIVersion)
	}
	v.requireString("description")
	v.requireString("author")
}

func (v *validator) validatePermissions() {
	perms := v.root.Get("permissions")
	if !present(perms) {
		return
	}
	if !perms.IsObject() {
		v.addf(`Invalid "permissions" field (must be an object)`)
		return
	}
	for _, key := range permissionKeys {
		r := perms.Get(key)
		if !present(r) {
			continue
		}
		if r.Type != gjson.String || !slices.Contains(permissionValues[key], r.Str) {
			v.addf("%s", invalidPermission(key, r.String()))
		}
	}
}

func (v *validator) validateCommands() {
	cmds := v.root.Get("commands")
	if !cmds.IsArray() {
		v.addf(`Missing or invalid "commands" field (must be an array)`)
		return
	}

	seen := make(map[string]bool)
	for i, c := range cmds.Array() {
		if !c.IsObject() {
			v.addf("Command %d: must be an object", i)
			continue
		}

		name, ok := nonEmptyString(c.Get("name"))
		switch {
		case !ok:
			v.addf(`Command %d: missing or invalid "name" field`, i)
		case !commandNamePattern.MatchString(name):
			v.addf("Command %d: invalid name format (only alphanumeric, hyphens, and underscores allowed)", i)
		case seen[name]:
			v.addf("Command %d: duplicate name %q", i, name)
		}
		seen[name] = true

		for _, field := range []string{"displayName", "description", "handler"} {
			if _, ok := nonEmptyString(c.Get(field)); !ok {
				v.addf(`Command %d: missing or invalid %q field`, i, field)
			}
		}

		mode, ok := nonEmptyString(c.Get("mode"))
		if !ok || !Mode(mode).Valid() {
			v.addf(`Command %d: missing or invalid "mode" field (must be "view", "no-view", or "inline")`, i)
		}

		for _, field := range []string{"subtitle", "category", "icon"} {
			if r := c.Get(field); present(r) && r.Type != gjson.String {
				v.addf(`Command %d: invalid %q field (must be a string)`, i, field)
			}
		}

		if kw := c.Get("keywords"); present(kw) {
			valid := kw.IsArray()
			if valid {
				for _, k := range kw.Array() {
					if k.Type != gjson.String {
						valid = false
						break
					}
				}
			}
			if !valid {
				v.addf(`Command %d: invalid "keywords" field (must be an array of strings)`, i)
			}
		}
	}
}
