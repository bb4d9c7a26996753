package curriculum

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

//go:embed default.yaml
var defaultYAML []byte

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func curriculumSchema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("parse curriculum schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://curriculum.json"
		if err := c.AddResource(url, doc); err != nil {
			compileErr = fmt.Errorf("add curriculum schema: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(url)
	})
	return compiledSchema, compileErr
}

// Parse decodes and validates a YAML curriculum document.
func Parse(data []byte) (*Curriculum, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse curriculum yaml: %w", err)
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}

	var c Curriculum
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode curriculum: %w", err)
	}
	for _, s := range c.Subjects {
		for _, t := range s.Topics {
			if t.GradeRange.Min > t.GradeRange.Max {
				return nil, fmt.Errorf("subject %s topic %q: grade min %d > max %d",
					s.ID, t.Title, t.GradeRange.Min, t.GradeRange.Max)
			}
		}
	}
	return &c, nil
}

// Validate checks a decoded YAML document against the curriculum schema.
func Validate(doc any) error {
	schema, err := curriculumSchema()
	if err != nil {
		return err
	}

	// The validator wants JSON-shaped values, so round-trip through JSON.
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal curriculum: %w", err)
	}
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("parse curriculum json: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return fmt.Errorf("curriculum schema validation failed: %w", err)
	}
	return nil
}

// FileProvider serves topics from a YAML curriculum. An empty path uses
// the built-in curriculum.
type FileProvider struct {
	path string

	mu       sync.RWMutex
	subjects map[string][]Topic
}

// NewFileProvider loads the curriculum at path.
func NewFileProvider(path string) (*FileProvider, error) {
	fp := &FileProvider{path: path}
	if err := fp.Reload(); err != nil {
		return nil, err
	}
	return fp, nil
}

// Path returns the curriculum file path, or "" for the built-in curriculum.
func (fp *FileProvider) Path() string {
	return fp.path
}

// Reload re-reads the curriculum. On error the previous content is kept.
func (fp *FileProvider) Reload() error {
	data := defaultYAML
	if fp.path != "" {
		b, err := os.ReadFile(fp.path)
		if err != nil {
			return fmt.Errorf("read curriculum: %w", err)
		}
		data = b
	}

	c, err := Parse(data)
	if err != nil {
		return err
	}

	subjects := make(map[string][]Topic, len(c.Subjects))
	for _, s := range c.Subjects {
		subjects[strings.ToUpper(s.ID)] = s.Topics
	}

	fp.mu.Lock()
	fp.subjects = subjects
	fp.mu.Unlock()
	return nil
}

// Subjects returns the known subject IDs.
func (fp *FileProvider) Subjects() []string {
	fp.mu.RLock()
	defer fp.mu.RUnlock()
	out := make([]string, 0, len(fp.subjects))
	for id := range fp.subjects {
		out = append(out, id)
	}
	return out
}

// TopicsFor returns every topic of the subject.
func (fp *FileProvider) TopicsFor(_ context.Context, subjectID string, _ int) ([]Topic, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()
	topics, ok := fp.subjects[strings.ToUpper(subjectID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSubject, subjectID)
	}
	out := make([]Topic, len(topics))
	copy(out, topics)
	return out, nil
}
