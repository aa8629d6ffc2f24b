package card

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed cards.yaml
var embeddedCards []byte

type catalogFile struct {
	Version int    `yaml:"version"`
	Cards   []Card `yaml:"cards"`
}

// ParseYAML decodes a catalog document.
func ParseYAML(data []byte) ([]Card, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if f.Version != 1 {
		return nil, fmt.Errorf("unsupported catalog version %d", f.Version)
	}
	return f.Cards, nil
}

// NewEmbeddedCatalog loads the catalog compiled into the binary.
func NewEmbeddedCatalog() (*MemoryCatalog, error) {
	cards, err := ParseYAML(embeddedCards)
	if err != nil {
		return nil, err
	}
	return NewMemoryCatalog(cards)
}

// MustEmbeddedCatalog is NewEmbeddedCatalog for tests and static setup.
func MustEmbeddedCatalog() *MemoryCatalog {
	c, err := NewEmbeddedCatalog()
	if err != nil {
		panic(err)
	}
	return c
}
