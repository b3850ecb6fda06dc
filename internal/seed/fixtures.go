package seed

import (
	"fmt"
	"io"
	"os"

	"postdesk/internal/models"

	"gopkg.in/yaml.v3"
)

// Fixture is the YAML layout of a seed file:
//
//	posts:
//	  - title: Hello
//	    author: Ann
//	    content: ...
//	    tags: [go, testing]   # or "go, testing"
type Fixture struct {
	Posts []models.Draft `yaml:"posts"`
}

// LoadFixtures decodes drafts from r. Unknown keys are rejected.
func LoadFixtures(r io.Reader) ([]models.Draft, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fx Fixture
	if err := dec.Decode(&fx); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return fx.Posts, nil
}

// LoadFixtureFile reads drafts from a YAML file.
func LoadFixtureFile(path string) ([]models.Draft, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return LoadFixtures(f)
}
