// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hub

import (
	_ "embed"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/schema"
	"gopkg.in/yaml.v3"
)

// HubConfFile is the file a repository may carry at its root to declare
// the models it provides. It takes precedence over the built-in catalogue.
const HubConfFile = "hubconf.yaml"

//go:embed catalogue.yaml
var builtinCatalogue []byte

// Entry describes where a named model lives inside a repository.
type Entry struct {
	Name        string
	Path        string
	Description string
	// SHA256 is optional. When set the artifact is verified against it.
	SHA256 string
}

// Catalogue maps a lower-cased "owner/name" repository key to the models
// that repository provides.
type Catalogue map[string]map[string]Entry

// BuiltinCatalogue returns the catalogue compiled into the binary.
func BuiltinCatalogue() Catalogue {
	c, err := ParseCatalogue(builtinCatalogue)
	if err != nil {
		panic(errors.Annotate(err, "built-in catalogue"))
	}
	return c
}

var entryChecker = schema.FieldMap(
	schema.Fields{
		"path":        schema.String(),
		"description": schema.String(),
		"sha256":      schema.String(),
	},
	schema.Defaults{
		"description": "",
		"sha256":      "",
	},
)

// ParseCatalogue parses a YAML catalogue document.
func ParseCatalogue(data []byte) (Catalogue, error) {
	var source map[string]interface{}
	if err := yaml.Unmarshal(data, &source); err != nil {
		return nil, errors.Annotate(err, "parsing catalogue")
	}
	checker := schema.FieldMap(
		schema.Fields{
			"repositories": schema.StringMap(schema.StringMap(entryChecker)),
		},
		schema.Defaults{
			"repositories": schema.Omit,
		},
	)
	coerced, err := checker.Coerce(source, nil)
	if err != nil {
		return nil, errors.Annotate(err, "catalogue schema check failed")
	}
	valid := coerced.(map[string]interface{})

	result := make(Catalogue)
	repos, _ := valid["repositories"].(map[string]interface{})
	for id, models := range repos {
		repo, err := ParseRepo(id)
		if err != nil {
			return nil, errors.Trace(err)
		}
		entries, err := entriesFromMap(models.(map[string]interface{}))
		if err != nil {
			return nil, errors.Annotatef(err, "repository %q", id)
		}
		result[repo.Key()] = entries
	}
	return result, nil
}

// parseHubConf parses the models declared in a repository's hubconf.yaml.
func parseHubConf(data []byte) (map[string]Entry, error) {
	var source map[string]interface{}
	if err := yaml.Unmarshal(data, &source); err != nil {
		return nil, errors.Annotate(err, "parsing "+HubConfFile)
	}
	checker := schema.FieldMap(
		schema.Fields{
			"models": schema.StringMap(entryChecker),
		},
		nil,
	)
	coerced, err := checker.Coerce(source, nil)
	if err != nil {
		return nil, errors.Annotate(err, HubConfFile+" schema check failed")
	}
	valid := coerced.(map[string]interface{})
	return entriesFromMap(valid["models"].(map[string]interface{}))
}

// readHubConf returns the models declared by the repository extracted at
// dir. found is false if the repository has no hubconf.yaml.
func readHubConf(dir string) (_ map[string]Entry, found bool, _ error) {
	data, err := os.ReadFile(filepath.Join(dir, HubConfFile))
	if os.IsNotExist(err) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, errors.Trace(err)
	}
	entries, err := parseHubConf(data)
	if err != nil {
		return nil, true, errors.Trace(err)
	}
	return entries, true, nil
}

func entriesFromMap(models map[string]interface{}) (map[string]Entry, error) {
	entries := make(map[string]Entry, len(models))
	for name, raw := range models {
		fields := raw.(map[string]interface{})
		entry := Entry{
			Name:        name,
			Path:        fields["path"].(string),
			Description: fields["description"].(string),
			SHA256:      strings.ToLower(fields["sha256"].(string)),
		}
		if err := validateEntryPath(entry.Path); err != nil {
			return nil, errors.Annotatef(err, "model %q", name)
		}
		entries[name] = entry
	}
	return entries, nil
}

func validateEntryPath(p string) error {
	if p == "" || path.IsAbs(p) || strings.Contains(p, `\`) {
		return errors.NotValidf("path %q", p)
	}
	if cleaned := path.Clean(p); cleaned != p || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return errors.NotValidf("path %q", p)
	}
	return nil
}

// Lookup returns the entry for model in repo.
func (c Catalogue) Lookup(repo Repo, model string) (Entry, error) {
	models, ok := c[repo.Key()]
	if !ok {
		return Entry{}, errors.NotFoundf("models for repository %q", repo.Owner+"/"+repo.Name)
	}
	return lookupEntry(models, repo, model)
}

func lookupEntry(models map[string]Entry, repo Repo, model string) (Entry, error) {
	entry, ok := models[model]
	if !ok {
		return Entry{}, errors.NotFoundf("model %q in %q (available: %s)", model, repo.String(), strings.Join(modelNames(models), ", "))
	}
	return entry, nil
}

func modelNames(models map[string]Entry) []string {
	names := set.NewStrings()
	for name := range models {
		names.Add(name)
	}
	return names.SortedValues()
}
