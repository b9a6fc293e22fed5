package panel

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYaml = `
default_user_set: UserSet1
features:
  - name: Gain
    kind: numeric-slider
    min: 0
    max: 10
  - name: exposure
    kind: group
    content:
      - name: ExposureTimeAbs
        kind: numeric-text
        unit: us
      - name: ExposureAuto
        kind: choice
        options: ["Off", "Once", "Continuous"]
  - name: AcquisitionFrameRateAbs
    kind: numeric-text
    dependency:
      AcquisitionFrameRateEnable: true
  - name: AcquisitionFrameRateEnable
    kind: boolean
features_layout:
  - [Gain, ExposureTimeAbs]
  - [AcquisitionFrameRateEnable, AcquisitionFrameRateAbs]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panel.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYaml))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DefaultUserSet != "UserSet1" {
		t.Errorf("default_user_set = %q", cfg.DefaultUserSet)
	}
	if len(cfg.Features) != 4 {
		t.Fatalf("expected 4 top-level features, got %d", len(cfg.Features))
	}
	g := cfg.Features[0]
	if g.Name != "Gain" || g.Kind != NumericSlider || g.Min == nil || *g.Min != 0 || g.Max == nil || *g.Max != 10 {
		t.Errorf("Gain decoded wrong: %+v", g)
	}
	grp := cfg.Features[1]
	if grp.Kind != Group || len(grp.Content) != 2 {
		t.Errorf("group decoded wrong: %+v", grp)
	}
	dep := cfg.Features[2].Dependency
	if v, ok := dep["AcquisitionFrameRateEnable"]; !ok || v != true {
		t.Errorf("dependency decoded wrong: %v", dep)
	}
	if len(cfg.FeaturesLayout) != 2 || cfg.FeaturesLayout[0][1] != "ExposureTimeAbs" {
		t.Errorf("layout decoded wrong: %v", cfg.FeaturesLayout)
	}
}

func TestLoadConfigBadYaml(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "features: {this is not a list"))
	if _, ok := err.(ValidationError); !ok {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Error("expected error for missing file")
	}
	if _, ok := err.(ValidationError); ok {
		t.Error("IO errors should not masquerade as validation errors")
	}
}
