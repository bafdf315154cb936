package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/decision-gate/core/pkg/model"
)

// LoadScenarioFixture reads a single YAML-authored ScenarioSpec from
// scenariosDir/scenario_<id>.yaml. Operators and test fixtures author specs
// this way; the wire format the engine actually registers against is still
// the JSON ScenarioSpec define_scenario accepts — this loader exists so a
// human can write scenarios by hand without reformatting to JSON first.
func LoadScenarioFixture(scenariosDir, scenarioID string) (*model.ScenarioSpec, error) {
	path := filepath.Join(scenariosDir, fmt.Sprintf("scenario_%s.yaml", strings.ToLower(scenarioID)))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario fixture %q: %w", scenarioID, err)
	}

	var spec model.ScenarioSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse scenario fixture %q: %w", scenarioID, err)
	}

	if spec.ScenarioID == "" {
		spec.ScenarioID = scenarioID
	}

	return &spec, nil
}

// LoadAllScenarioFixtures loads every scenario_*.yaml file in scenariosDir,
// keyed by scenario_id.
func LoadAllScenarioFixtures(scenariosDir string) (map[string]*model.ScenarioSpec, error) {
	matches, err := filepath.Glob(filepath.Join(scenariosDir, "scenario_*.yaml"))
	if err != nil {
		return nil, err
	}

	specs := make(map[string]*model.ScenarioSpec, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var spec model.ScenarioSpec
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if spec.ScenarioID == "" {
			base := filepath.Base(path)
			spec.ScenarioID = strings.TrimSuffix(strings.TrimPrefix(base, "scenario_"), ".yaml")
		}

		specs[spec.ScenarioID] = &spec
	}

	return specs, nil
}
