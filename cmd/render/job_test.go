package main

import (
	"errors"
	"path/filepath"
	"testing"

	"option-guide/src/chart"
	"option-guide/src/config"
	"option-guide/src/helpers"
	"option-guide/src/logger"
	"option-guide/src/models"
)

func testConfig() *models.MConfig {
	c := &config.Config{MConfig: &models.MConfig{LogLevel: "ERROR"}}
	c.ApplyDefaults()
	c.Chart.Width, c.Chart.Height = 320, 160
	return c.MConfig
}

func TestRenderJobAllTabs(t *testing.T) {
	job := renderJob{ContentPath: "../../content/tabs.json", S0: 60000, OutDir: t.TempDir(), Format: chart.FormatPNG}
	paths, err := job.run(testConfig(), logger.Nop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected one chart per shipped strategy, got %v", paths)
	}
}

func TestRenderJobSingleTab(t *testing.T) {
	job := renderJob{ContentPath: "../../content/tabs.json", TabID: "spread", S0: 60000, OutDir: t.TempDir(), Format: chart.FormatSVG}
	paths, err := job.run(testConfig(), logger.Nop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "spread-0.svg" {
		t.Fatalf("unexpected paths %v", paths)
	}
}

func TestRenderJobErrors(t *testing.T) {
	job := renderJob{ContentPath: "../../content/tabs.json", TabID: "missing", S0: 60000, OutDir: t.TempDir(), Format: chart.FormatPNG}
	if _, err := job.run(testConfig(), logger.Nop()); err == nil {
		t.Fatalf("expected unknown tab error")
	}

	job.TabID = ""
	job.S0 = -1
	_, err := job.run(testConfig(), logger.Nop())
	var vErr *helpers.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
