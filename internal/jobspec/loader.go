package jobspec

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a job spec document. Parsing is strict: unknown
// keys are rejected so typos surface immediately rather than silently
// producing an incomplete job.
//
// Load performs no semantic validation — that is Validate's job — but it
// does enforce the structural minimum: the document must be a mapping and
// must carry job_name and queries at all. This keeps "malformed document"
// (*ParseError), "structurally incomplete" (*ShapeError) and "invalid job"
// (Validate issues) distinguishable for the caller.
func Load(path string) (*JobSpec, error) {
	data, err := os.ReadFile(path) //nolint:gosec // intentional: reading user-specified spec files
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	// First decode into a generic node to distinguish syntax errors and
	// non-mapping documents from field-level type errors.
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if len(doc.Content) == 0 {
		return nil, &ShapeError{Path: path, Missing: []string{"job_name", "queries"}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("document must be a mapping, got %s", nodeKind(root))}
	}

	if missing := missingTopLevelKeys(root); len(missing) > 0 {
		return nil, &ShapeError{Path: path, Missing: missing}
	}

	var spec JobSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &spec, nil
}

// missingTopLevelKeys returns the structural-minimum keys absent from the
// root mapping. Only job_name and queries are required this early; all
// other requiredness is deferred to Validate.
func missingTopLevelKeys(root *yaml.Node) []string {
	present := make(map[string]bool, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		present[root.Content[i].Value] = true
	}

	var missing []string
	for _, key := range []string{"job_name", "queries"} {
		if !present[key] {
			missing = append(missing, key)
		}
	}
	return missing
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
