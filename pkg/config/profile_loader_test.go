package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const onboardingFixture = `
scenario_id: onboarding
namespace_id: 1
spec_version: "1.0.0"
default_tenant_id: 1
conditions:
  - condition_id: c1
    query:
      provider_id: kyc
      check_id: verified
    comparator: equals
    expected: true
stages:
  - stage_id: s1
    gates:
      - gate_id: g1
        requirement:
          kind: condition
          condition_id: c1
    advance_to:
      kind: terminal
`

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadScenarioFixture(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "scenario_onboarding.yaml", onboardingFixture)

	spec, err := LoadScenarioFixture(dir, "onboarding")
	require.NoError(t, err)
	require.Equal(t, "onboarding", spec.ScenarioID)
	require.Equal(t, "1.0.0", spec.SpecVersion)
	require.Len(t, spec.Conditions, 1)
	require.Equal(t, "kyc", spec.Conditions[0].Query.ProviderID)
}

func TestLoadScenarioFixture_MissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadScenarioFixture(dir, "does-not-exist")
	require.Error(t, err)
}

func TestLoadAllScenarioFixtures(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "scenario_onboarding.yaml", onboardingFixture)
	writeFixture(t, dir, "scenario_renewal.yaml", strings.Replace(onboardingFixture, "scenario_id: onboarding", "scenario_id: renewal", 1))

	specs, err := LoadAllScenarioFixtures(dir)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	require.Contains(t, specs, "onboarding")
	require.Contains(t, specs, "renewal")
}
