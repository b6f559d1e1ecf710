// Package catalog loads the persona, knowledge, and resource catalogs from
// YAML files and supports hot-reloading them while the process runs. A
// reload swaps whole value sets; nothing mutates in place, so the engine
// always sees a consistent catalog per invocation.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"peerloop/internal/knowledge"
	"peerloop/internal/logging"
	"peerloop/internal/persona"
	"peerloop/internal/resource"
	"peerloop/internal/types"
)

// Catalog file names inside the catalog directory.
const (
	PersonasFile  = "personas.yaml"
	KnowledgeFile = "knowledge.yaml"
	ResourcesFile = "resources.yaml"
)

// Catalog is one consistent snapshot of the three catalogs.
type Catalog struct {
	Personas  []types.Persona
	Knowledge []knowledge.Entry
	Resources []resource.Resource
}

// personasDoc mirrors personas.yaml.
type personasDoc struct {
	Personas []types.Persona `yaml:"personas"`
}

// knowledgeDoc mirrors knowledge.yaml.
type knowledgeDoc struct {
	Entries []knowledge.Entry `yaml:"entries"`
}

// resourcesDoc mirrors resources.yaml.
type resourcesDoc struct {
	Resources []resource.Resource `yaml:"resources"`
}

// Load reads the three catalog files concurrently. A missing personas file
// falls back to the built-in roster; missing knowledge/resource files load
// as empty sets. Any parse error aborts the whole load: a half-read catalog
// is worse than the previous one.
func Load(dir string) (*Catalog, error) {
	cat := &Catalog{}

	var g errgroup.Group
	g.Go(func() error {
		var doc personasDoc
		found, err := readYAML(filepath.Join(dir, PersonasFile), &doc)
		if err != nil {
			return err
		}
		if !found {
			cat.Personas = persona.DefaultRoster()
			return nil
		}
		cat.Personas = doc.Personas
		return nil
	})
	g.Go(func() error {
		var doc knowledgeDoc
		if _, err := readYAML(filepath.Join(dir, KnowledgeFile), &doc); err != nil {
			return err
		}
		cat.Knowledge = doc.Entries
		return nil
	})
	g.Go(func() error {
		var doc resourcesDoc
		if _, err := readYAML(filepath.Join(dir, ResourcesFile), &doc); err != nil {
			return err
		}
		cat.Resources = doc.Resources
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Catalog("loaded catalog from %s: %d personas, %d knowledge entries, %d resources",
		dir, len(cat.Personas), len(cat.Knowledge), len(cat.Resources))
	return cat, nil
}

// Registry builds a persona registry from the catalog snapshot.
func (c *Catalog) Registry() (*persona.Registry, error) {
	return persona.NewRegistry(c.Personas)
}

// Validate checks the catalog for structural problems without building
// anything: duplicate resource ids, entries without questions, and a
// roster the registry would reject.
func (c *Catalog) Validate() error {
	if _, err := c.Registry(); err != nil {
		return fmt.Errorf("personas: %w", err)
	}
	seen := make(map[string]bool, len(c.Resources))
	for _, r := range c.Resources {
		if r.ID == "" {
			return fmt.Errorf("resource %q has no id", r.Title)
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate resource id %q", r.ID)
		}
		seen[r.ID] = true
		if len(r.TriggerKeywords) == 0 {
			return fmt.Errorf("resource %q has no trigger keywords", r.ID)
		}
	}
	for i, e := range c.Knowledge {
		if e.Question == "" {
			return fmt.Errorf("knowledge entry %d has no question", i)
		}
	}
	return nil
}

// readYAML unmarshals path into out. Returns found=false (and no error)
// when the file does not exist.
func readYAML(path string, out interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return true, nil
}
