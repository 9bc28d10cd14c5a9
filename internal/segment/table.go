package segment

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed tables/*.toml
var tableFS embed.FS

// commonTable is applied for every language before the language table.
const commonTable = "common"

// ErrInvalidSubstitution is returned for a table entry that sets neither or
// both of pattern and literal, or whose pattern does not compile.
var ErrInvalidSubstitution = errors.New("segment: invalid substitution")

// Substitution replaces a literal string or a regular expression match.
type Substitution struct {
	literal string
	re      *regexp.Regexp
	replace string
}

// Literal returns a substitution that replaces every occurrence of old.
func Literal(old, replace string) Substitution {
	return Substitution{literal: old, replace: replace}
}

// Pattern returns a substitution for a regular expression. The replacement
// may reference groups as $1 or ${name}.
func Pattern(expr, replace string) (Substitution, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Substitution{}, fmt.Errorf("%w: %q: %v", ErrInvalidSubstitution, expr, err)
	}
	return Substitution{re: re, replace: replace}, nil
}

// Apply runs the substitution on text.
func (s Substitution) Apply(text string) string {
	if s.re != nil {
		return s.re.ReplaceAllString(text, s.replace)
	}
	if s.literal == "" {
		return text
	}
	return strings.ReplaceAll(text, s.literal, s.replace)
}

type tableFile struct {
	Pauses       *Pauses     `toml:"pauses"`
	Substitution []tableItem `toml:"substitution"`
}

type tableItem struct {
	Pattern string `toml:"pattern"`
	Literal string `toml:"literal"`
	Replace string `toml:"replace"`
}

// Table is the segmenter data for one language.
type Table struct {
	Language      string
	Substitutions []Substitution
	// Pauses overrides the default pause lengths when set.
	Pauses *Pauses
}

// ParseTable decodes a TOML substitution table.
func ParseTable(lang string, data []byte) (Table, error) {
	// Keys missing from [pauses] keep their default length.
	pauses := DefaultPauses()
	f := tableFile{Pauses: &pauses}
	if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&f); err != nil {
		return Table{}, fmt.Errorf("decode table %s: %w", lang, err)
	}

	t := Table{Language: lang, Substitutions: make([]Substitution, 0, len(f.Substitution))}
	if pauses != DefaultPauses() {
		t.Pauses = &pauses
	}
	for i, item := range f.Substitution {
		switch {
		case item.Pattern != "" && item.Literal == "":
			sub, err := Pattern(item.Pattern, item.Replace)
			if err != nil {
				return Table{}, fmt.Errorf("table %s entry %d: %w", lang, i, err)
			}
			t.Substitutions = append(t.Substitutions, sub)
		case item.Literal != "" && item.Pattern == "":
			t.Substitutions = append(t.Substitutions, Literal(item.Literal, item.Replace))
		default:
			return Table{}, fmt.Errorf("table %s entry %d: %w", lang, i, ErrInvalidSubstitution)
		}
	}
	return t, nil
}

// Tables holds the common table and one table per base language.
type Tables struct {
	common Table
	byLang map[string]Table
}

// LoadTables parses the embedded tables.
func LoadTables() (*Tables, error) {
	return LoadTablesFS(tableFS, "tables")
}

// LoadTablesFS parses every *.toml file in dir. The file name without
// extension is the language; common.toml applies to all of them.
func LoadTablesFS(fsys fs.FS, dir string) (*Tables, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read tables: %w", err)
	}

	t := &Tables{byLang: make(map[string]Table)}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".toml" {
			continue
		}
		lang := strings.TrimSuffix(e.Name(), ".toml")
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read table %s: %w", lang, err)
		}
		table, err := ParseTable(lang, data)
		if err != nil {
			return nil, err
		}
		if lang == commonTable {
			t.common = table
			continue
		}
		t.byLang[lang] = table
	}
	return t, nil
}

// Languages returns the base languages that have their own table.
func (t *Tables) Languages() []string {
	langs := make([]string, 0, len(t.byLang))
	for l := range t.byLang {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// BaseLanguage reduces a language tag such as "en-US" or "de_AT" to its
// base language. Tags that do not parse are returned lower-cased.
func BaseLanguage(tag string) string {
	tag = strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
	parsed, err := language.Parse(tag)
	if err != nil {
		return strings.ToLower(tag)
	}
	base, _ := parsed.Base()
	return base.String()
}

// Config builds a segmenter configuration for a language tag. Languages
// without a table get the common substitutions only.
func (t *Tables) Config(tag string) Config {
	cfg := DefaultConfig()
	subs := make([]Substitution, 0, len(t.common.Substitutions))
	subs = append(subs, t.common.Substitutions...)

	if table, ok := t.byLang[BaseLanguage(tag)]; ok {
		subs = append(subs, table.Substitutions...)
		if table.Pauses != nil {
			cfg.Pauses = *table.Pauses
		}
	}
	cfg.Substitutions = subs
	return cfg
}

// Has reports whether a dedicated table exists for the tag's base language.
func (t *Tables) Has(tag string) bool {
	_, ok := t.byLang[BaseLanguage(tag)]
	return ok
}
