// Package catalog holds the static table of documents offered by the menu.
//
// A catalog is built once from YAML and never changes afterwards, so a single
// value may be shared by any number of goroutines.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultData []byte

// MaxTokenBytes is Telegram's limit for inline button callback data.
const MaxTokenBytes = 64

// longest callback token is "send_<subject>_<command>"
const sendTokenOverhead = len("send_") + len("_")

var (
	ErrDuplicateSubject = errors.New("catalog: duplicate subject")
	ErrDuplicateCommand = errors.New("catalog: duplicate command")
	ErrInvalidKey       = errors.New("catalog: invalid key")
	ErrInvalidPath      = errors.New("catalog: invalid file path")
	ErrTokenTooLong     = errors.New("catalog: callback token too long")
)

var (
	subjectKeyRx = regexp.MustCompile(`^[a-z0-9]+$`)
	commandRx    = regexp.MustCompile(`^[a-z0-9][a-z0-9_]*$`)
)

// Entry is one deliverable document.
type Entry struct {
	Command string
	Subject string
	Label   string
	File    string

	dir string
}

// Path returns the slash-separated path of the file relative to the base
// directory.
func (e Entry) Path() string {
	return path.Join(e.dir, e.File)
}

// Subject groups entries under one menu button.
type Subject struct {
	Key     string
	Title   string
	Dir     string
	Entries []Entry
}

// SubjectSpec is the hand-authored form of a subject.
type SubjectSpec struct {
	Key     string      `yaml:"key"`
	Title   string      `yaml:"title"`
	Dir     string      `yaml:"dir"`
	Entries []EntrySpec `yaml:"entries"`
}

// EntrySpec is the hand-authored form of an entry.
type EntrySpec struct {
	Command string `yaml:"command"`
	File    string `yaml:"file"`
}

type document struct {
	Subjects []SubjectSpec `yaml:"subjects"`
}

// Catalog is an immutable, validated set of subjects.
type Catalog struct {
	subjects  []Subject
	bySubject map[string]int
	byCommand map[string]Entry
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultData)
}

// Load reads and parses a catalog file.
func Load(filename string) (*Catalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", filename, err)
	}
	return Parse(data)
}

// Parse decodes YAML catalog data. Unknown fields are rejected.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	return New(doc.Subjects...)
}

// New validates specs and builds a catalog. Files are not checked for
// existence; that happens when an entry is delivered.
func New(specs ...SubjectSpec) (*Catalog, error) {
	c := &Catalog{
		subjects:  make([]Subject, 0, len(specs)),
		bySubject: make(map[string]int, len(specs)),
		byCommand: make(map[string]Entry),
	}
	for _, spec := range specs {
		s, err := c.buildSubject(spec)
		if err != nil {
			return nil, err
		}
		c.bySubject[s.Key] = len(c.subjects)
		c.subjects = append(c.subjects, s)
	}
	return c, nil
}

func (c *Catalog) buildSubject(spec SubjectSpec) (Subject, error) {
	key := strings.TrimSpace(spec.Key)
	if !subjectKeyRx.MatchString(key) {
		return Subject{}, fmt.Errorf("%w: subject %q", ErrInvalidKey, spec.Key)
	}
	if _, dup := c.bySubject[key]; dup {
		return Subject{}, fmt.Errorf("%w: %s", ErrDuplicateSubject, key)
	}
	title := strings.TrimSpace(spec.Title)
	if title == "" {
		title = key
	}
	dir := strings.TrimSpace(spec.Dir)
	if dir == "" {
		dir = title
	}
	if !fs.ValidPath(dir) {
		return Subject{}, fmt.Errorf("%w: subject %s dir %q", ErrInvalidPath, key, dir)
	}

	s := Subject{Key: key, Title: title, Dir: dir, Entries: make([]Entry, 0, len(spec.Entries))}
	for _, es := range spec.Entries {
		cmd := strings.TrimSpace(es.Command)
		if !commandRx.MatchString(cmd) {
			return Subject{}, fmt.Errorf("%w: command %q in subject %s", ErrInvalidKey, es.Command, key)
		}
		if _, dup := c.byCommand[cmd]; dup {
			return Subject{}, fmt.Errorf("%w: %s", ErrDuplicateCommand, cmd)
		}
		if n := sendTokenOverhead + len(key) + len(cmd); n > MaxTokenBytes {
			return Subject{}, fmt.Errorf("%w: %s/%s needs %d bytes", ErrTokenTooLong, key, cmd, n)
		}
		if es.File == "" || es.File == "." || !fs.ValidPath(es.File) {
			return Subject{}, fmt.Errorf("%w: %s %q", ErrInvalidPath, cmd, es.File)
		}
		e := Entry{
			Command: cmd,
			Subject: key,
			Label:   Label(key, cmd),
			File:    es.File,
			dir:     dir,
		}
		c.byCommand[cmd] = e
		s.Entries = append(s.Entries, e)
	}
	return s, nil
}

// Subjects returns all subjects in authoring order.
func (c *Catalog) Subjects() []Subject {
	out := make([]Subject, len(c.subjects))
	for i, s := range c.subjects {
		s.Entries = slices.Clone(s.Entries)
		out[i] = s
	}
	return out
}

// Subject returns the subject with the given key.
func (c *Catalog) Subject(key string) (Subject, bool) {
	i, ok := c.bySubject[key]
	if !ok {
		return Subject{}, false
	}
	s := c.subjects[i]
	s.Entries = slices.Clone(s.Entries)
	return s, true
}

// Lookup resolves a command within a subject.
func (c *Catalog) Lookup(subject, command string) (Entry, bool) {
	e, ok := c.byCommand[command]
	if !ok || e.Subject != subject {
		return Entry{}, false
	}
	return e, true
}

// Find resolves a command regardless of its subject. Commands are unique
// across the whole catalog.
func (c *Catalog) Find(command string) (Entry, bool) {
	e, ok := c.byCommand[command]
	return e, ok
}

// Len reports the number of subjects.
func (c *Catalog) Len() int {
	return len(c.subjects)
}

// Size reports the number of entries across all subjects.
func (c *Catalog) Size() int {
	return len(c.byCommand)
}
