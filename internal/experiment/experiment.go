// Package experiment loads the YAML definition of a study: its stimulus
// lists and the instruction text shown before the first trial.
package experiment

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition describes one experiment.
type Definition struct {
	Title        string   `yaml:"title"`
	Instructions string   `yaml:"instructions"`
	LeftStimuli  []string `yaml:"left_stimuli"`
	RightStimuli []string `yaml:"right_stimuli"`
}

// Load reads and validates a definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read experiment file: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse experiment file: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid experiment definition: %w", err)
	}
	return &def, nil
}

// Validate checks the stimulus lists are usable for pairing.
func (d *Definition) Validate() error {
	if len(d.LeftStimuli) == 0 {
		return fmt.Errorf("left_stimuli is empty")
	}
	if len(d.LeftStimuli) != len(d.RightStimuli) {
		return fmt.Errorf("left_stimuli and right_stimuli differ in length: %d vs %d",
			len(d.LeftStimuli), len(d.RightStimuli))
	}
	for i, s := range d.LeftStimuli {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("left_stimuli[%d] is blank", i)
		}
	}
	for i, s := range d.RightStimuli {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("right_stimuli[%d] is blank", i)
		}
	}
	return nil
}

// TrialCount is the number of trials the definition produces.
func (d *Definition) TrialCount() int {
	return len(d.LeftStimuli)
}

// RenderInstructions substitutes the {trials} placeholder in the
// instruction template.
func (d *Definition) RenderInstructions() string {
	return strings.ReplaceAll(d.Instructions, "{trials}", strconv.Itoa(d.TrialCount()))
}
