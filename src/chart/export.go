package chart

import (
	"fmt"
	"os"
	"path/filepath"

	"option-guide/src/models"
)

// FileName is the on-disk name used for one strategy chart of a tab.
func FileName(tabID string, index int, format Format) string {
	return fmt.Sprintf("%s-%d.%s", tabID, index, format)
}

// ExportTab writes one chart per strategy series into dir and returns the
// written paths. Files are replaced atomically so viewers never see a
// half-written image.
func (r *Renderer) ExportTab(dir, tabID string, series []models.MStrategySeries, format Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(series))
	for _, s := range series {
		path := filepath.Join(dir, FileName(tabID, s.Index, format))
		if err := r.writeFile(path, s.Series, format); err != nil {
			return paths, fmt.Errorf("chart %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (r *Renderer) writeFile(path string, series models.MSeries, format Format) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".chart-*")
	if err != nil {
		return err
	}
	if err := r.Write(tmp, series, format); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
