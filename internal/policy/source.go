package policy

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads and validates a policy document from a JSON file. All
// input errors surface here, before anything touches AWS.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing policy file '%s': %w", path, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("validating policy file '%s': %w", path, err)
	}
	return &doc, nil
}

// Save writes the document as indented JSON.
func Save(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding policy document: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("writing policy file '%s': %w", path, err)
	}
	return nil
}

// CheckWritable verifies the output path can be created before the
// search starts. A minimization run can take many minutes of
// propagation delays; discovering an unwritable output path at the end
// would waste all of them.
func CheckWritable(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("output path '%s' is not writable: %w", path, err)
	}
	return f.Close()
}
