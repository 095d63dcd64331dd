package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.yaml.in/yaml/v3"

	"github.com/ekisa-team/toolvision/internal/xfs"
)

// Manifest describes a YOLO dataset: class names and split directories.
type Manifest struct {
	// Path is the manifest file the manifest was loaded from.
	Path string `yaml:"-"`

	Root  string `yaml:"path,omitempty"`
	Train string `yaml:"train"`
	Val   string `yaml:"val"`
	Test  string `yaml:"test,omitempty"`
	NC    int    `yaml:"nc"`
	Names Names  `yaml:"names"`
}

// Names holds class names indexed by class id. The manifest may list them
// as a sequence or as an id -> name mapping.
type Names []string

// UnmarshalYAML accepts both `names: [a, b]` and `names: {0: a, 1: b}`.
func (n *Names) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*n = list
		return nil

	case yaml.MappingNode:
		var m map[int]string
		if err := node.Decode(&m); err != nil {
			return err
		}

		ids := make([]int, 0, len(m))
		for id := range m {
			if id < 0 {
				return fmt.Errorf("negative class id %d", id)
			}
			ids = append(ids, id)
		}
		sort.Ints(ids)

		names := Names{}
		if len(ids) > 0 {
			names = make(Names, ids[len(ids)-1]+1)
		}
		for _, id := range ids {
			names[id] = m[id]
		}
		*n = names
		return nil

	default:
		return fmt.Errorf("names: expected a sequence or a mapping, got %s", node.Tag)
	}
}

// ManifestPath returns dir/name if it exists, or an error wrapping
// ErrManifestNotFound that names the attempted path.
func ManifestPath(dir, name string) (string, error) {
	path := filepath.Join(dir, name)

	ok, err := xfs.Exists(path)
	if err != nil {
		return "", fmt.Errorf("failed to check manifest %s: %w", path, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s not found at %s. Please check dataset structure", ErrManifestNotFound, name, path)
	}

	return path, nil
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	m.Path = path

	if m.NC == 0 {
		m.NC = len(m.Names)
	}

	return &m, nil
}
