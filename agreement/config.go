package agreement

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultTextColumns are the free-text fields of the annotation tool export.
var DefaultTextColumns = []string{
	"TEXT",
	"Patient and Family Care Preferences Text",
	"Communication with Family Text",
	"Full Code Status Text",
	"Code Status Limitations Text",
	"Palliative Care Team Involvement Text",
	"Ambiguous Text",
	"Ambiguous Comments",
}

// DefaultOutputDir receives result files when no output path is given.
const DefaultOutputDir = "results"

// DefaultComposite is the care-preference-or-limitation composite.
var DefaultComposite = Composite{Name: "CIM", Of: []string{"CAR", "LIM"}}

// ArchiveConfig locates the run archive database. An empty DSN disables it.
type ArchiveConfig struct {
	DSN string `json:"dsn" yaml:"dsn"`
}

// Config is passed to every entry point in place of global lists.
type Config struct {
	Annotators  []string      `json:"annotators" yaml:"annotators"`
	Categories  []string      `json:"categories" yaml:"categories"`
	Composites  []Composite   `json:"composites" yaml:"composites"`
	TextColumns []string      `json:"textColumns" yaml:"text_columns"`
	ItemColumn  string        `json:"itemColumn" yaml:"item_column"`
	OutputDir   string        `json:"outputDir" yaml:"output_dir"`
	Archive     ArchiveConfig `json:"archive" yaml:"archive"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// Clone creates a deep copy of the configuration so callers can mutate safely.
func (c Config) Clone() Config {
	buf, _ := json.Marshal(c)
	var out Config
	_ = json.Unmarshal(buf, &out)
	return out
}

// ApplyDefaults populates zero values with the study defaults.
func (c *Config) ApplyDefaults() {
	if len(c.Categories) == 0 {
		c.Categories = []string{"COD", "LIM", "CAR", "FAM", DefaultComposite.Name}
	}
	if len(c.Composites) == 0 {
		c.Composites = []Composite{{Name: DefaultComposite.Name, Of: append([]string(nil), DefaultComposite.Of...)}}
	}
	if len(c.TextColumns) == 0 {
		c.TextColumns = append([]string(nil), DefaultTextColumns...)
	}
	if c.ItemColumn == "" {
		c.ItemColumn = "note_name"
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	c.Annotators = trimAll(c.Annotators)
	c.Categories = trimAll(c.Categories)
}

// Validate checks the lists for blanks and duplicates and every composite for
// a name and at least one base.
func (c Config) Validate() error {
	if err := distinct("annotator", c.Annotators); err != nil {
		return err
	}
	if err := distinct("category", c.Categories); err != nil {
		return err
	}
	for _, comp := range c.Composites {
		if strings.TrimSpace(comp.Name) == "" || len(comp.Of) == 0 {
			return fmt.Errorf("composite %q needs a name and at least one base category", comp.Name)
		}
	}
	return nil
}

// Composite returns the composite definition named name.
func (c Config) Composite(name string) (Composite, bool) {
	for _, comp := range c.Composites {
		if comp.Name == name {
			return comp, true
		}
	}
	return Composite{}, false
}

// members returns the codes whose presence marks category name present.
func (c Config) members(name string) []string {
	if comp, ok := c.Composite(name); ok {
		return comp.Of
	}
	return []string{name}
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func distinct(kind string, values []string) error {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("blank %s name", kind)
		}
		if _, ok := seen[v]; ok {
			return fmt.Errorf("duplicate %s %q", kind, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}
