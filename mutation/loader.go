package mutation

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ruleFile is the top-level shape of a mutation rule file: a flat list of
// rules plus the strict-mode switch. This loader only ever produces
// Rule/Condition/Action values for the Engine; it has nothing to do with
// the scenario-description format the harness explicitly keeps out of
// core scope.
type ruleFile struct {
	Strict bool   `yaml:"strict"`
	Rules  []Rule `yaml:"rules"`
}

// LoadRules decodes a YAML rule file into an Engine. Grounded on the
// pack's YAML-driven config loading convention: plain struct tags, no
// custom unmarshalers.
func LoadRules(r io.Reader) (*Engine, error) {
	var parsed ruleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("mutation: decoding rule file: %w", err)
	}
	return NewEngine(parsed.Rules, parsed.Strict), nil
}
