// Package knowledge is the static reference text offered to the response model.
package knowledge

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var defaultData []byte

// MaxTopics bounds how many topics are returned for one message.
const MaxTopics = 3

type topic struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Text     string   `yaml:"text"`
}

type document struct {
	Default string  `yaml:"default"`
	Topics  []topic `yaml:"topics"`
}

// Base matches messages to topics by keyword stems.
type Base struct {
	doc document
}

// New parses a knowledge document.
func New(data []byte) (*Base, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse knowledge: %w", err)
	}
	for i := range doc.Topics {
		for j, kw := range doc.Topics[i].Keywords {
			doc.Topics[i].Keywords[j] = strings.ToLower(kw)
		}
	}
	return &Base{doc: doc}, nil
}

// Default returns the embedded knowledge base.
func Default() (*Base, error) {
	return New(defaultData)
}

// RelevantKnowledge returns the default text followed by up to MaxTopics matching topics.
func (b *Base) RelevantKnowledge(message string) string {
	msg := strings.ToLower(message)
	parts := []string{strings.TrimSpace(b.doc.Default)}
	for _, t := range b.doc.Topics {
		if len(parts) > MaxTopics {
			break
		}
		for _, kw := range t.Keywords {
			if kw != "" && strings.Contains(msg, kw) {
				parts = append(parts, strings.TrimSpace(t.Text))
				break
			}
		}
	}
	return strings.Join(parts, "\n\n")
}
