package mockapi

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/default.yaml
var defaultFixture []byte

// Fixture is the seed state of the stand-in API.
type Fixture struct {
	Notices []FixtureNotice `yaml:"notices"`
}

// FixtureNotice is one notice with everything attached to it.
type FixtureNotice struct {
	ID               string            `yaml:"id"`
	Title            string            `yaml:"title"`
	Source           string            `yaml:"source"`
	OrganisationName map[string]string `yaml:"organisation_name"`
	CPVCode          string            `yaml:"cpv_code"`
	PublicationDate  string            `yaml:"publication_date"`
	DeadlineDate     string            `yaml:"deadline_date"`
	EstimatedValue   *float64          `yaml:"estimated_value"`
	AwardedValue     *float64          `yaml:"awarded_value"`
	Favorite         bool              `yaml:"favorite"`

	// Summaries are cached AI summaries by language.
	Summaries map[string]string `yaml:"summaries"`

	Lots         []FixtureLot      `yaml:"lots"`
	Documents    []FixtureDocument `yaml:"documents"`
	Discoverable []FixtureDocument `yaml:"discoverable"`
}

// FixtureLot is one lot of a notice.
type FixtureLot struct {
	Number      string `yaml:"lot_number"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	CPVCode     string `yaml:"cpv_code"`
}

// FixtureDocument is a document attached to, or discoverable for, a notice.
// HasText marks documents whose text can be extracted once acquired;
// FailsDownload makes every download attempt fail.
type FixtureDocument struct {
	ID             string `yaml:"id"`
	Title          string `yaml:"title"`
	URL            string `yaml:"url"`
	FileType       string `yaml:"file_type"`
	Language       string `yaml:"language"`
	DownloadStatus string `yaml:"download_status"`
	HasAIAnalysis  bool   `yaml:"has_ai_analysis"`
	HasText        bool   `yaml:"has_text"`
	FailsDownload  bool   `yaml:"fails_download"`
}

// DefaultFixture returns the embedded demo data.
func DefaultFixture() (*Fixture, error) {
	return ParseFixture(defaultFixture)
}

// LoadFixture reads a fixture from a YAML file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes YAML fixture data.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	seen := make(map[string]bool, len(f.Notices))
	for i, n := range f.Notices {
		if n.ID == "" {
			return nil, fmt.Errorf("parse fixture: notice %d has no id", i)
		}
		if seen[n.ID] {
			return nil, fmt.Errorf("parse fixture: duplicate notice %q", n.ID)
		}
		seen[n.ID] = true
	}
	return &f, nil
}
