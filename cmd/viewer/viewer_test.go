package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"option-guide/src/chart"
	"option-guide/src/config"
	"option-guide/src/logger"
	"option-guide/src/models"
	"option-guide/src/network"
)

func testConfig() *models.MConfig {
	c := &config.Config{MConfig: &models.MConfig{LogLevel: "ERROR"}}
	c.ApplyDefaults()
	c.Chart.Width, c.Chart.Height = 320, 160
	return c.MConfig
}

func TestLoadDocumentFromFile(t *testing.T) {
	doc, err := loadDocument(context.Background(), "../../content/tabs.json", "", nil)
	if err != nil {
		t.Fatalf("loadDocument: %v", err)
	}
	if len(doc.Tabs) == 0 {
		t.Fatalf("expected tabs in shipped content")
	}
}

func TestLoadDocumentFromServer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/teaching" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"meta":{},"tabs":[{"id":"basic","name":"Basics","strategies":[]}]}`))
	}))
	defer ts.Close()

	netMgr := network.NewAsyncNetworkManager(testConfig(), logger.Nop())
	doc, err := loadDocument(context.Background(), "", ts.URL+"/api/teaching", netMgr)
	if err != nil {
		t.Fatalf("loadDocument: %v", err)
	}
	if len(doc.Tabs) != 1 || doc.Tabs[0].ID != "basic" {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestViewerRendersOnPriceChange(t *testing.T) {
	doc, err := loadDocument(context.Background(), "../../content/tabs.json", "", nil)
	if err != nil {
		t.Fatalf("loadDocument: %v", err)
	}
	dir := t.TempDir()
	v := newViewer(testConfig(), doc, dir, chart.FormatSVG, logger.Nop())

	v.onTick(models.MTickMessage{Type: "tick", S0: 61000})
	v.onTick(models.MTickMessage{Type: "tick", S0: 61000})
	if v.renders != 1 {
		t.Fatalf("unchanged price should not re-render, renders = %d", v.renders)
	}
	v.onTick(models.MTickMessage{Type: "tick", S0: 61200})
	if v.renders != 2 || v.ref.Value() != 61200 {
		t.Fatalf("renders = %d, ref = %v", v.renders, v.ref.Value())
	}

	for _, tab := range doc.Tabs {
		path := filepath.Join(dir, chart.FileName(tab.ID, 0, chart.FormatSVG))
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing chart for tab %s: %v", tab.ID, err)
		}
	}
}

func TestViewerIgnoresInvalidTick(t *testing.T) {
	v := newViewer(testConfig(), &models.MTeachingData{}, t.TempDir(), chart.FormatPNG, logger.Nop())
	v.onTick(models.MTickMessage{Type: "tick", S0: -5})
	if v.renders != 0 {
		t.Fatalf("negative price should be rejected")
	}
}
