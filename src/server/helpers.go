package server

import (
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"

	"option-guide/src/chart"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------

// referenceFromQuery reads ?s0=, falling back to the shared reference price.
func (s *Server) referenceFromQuery(c *gin.Context) (float64, error) {
	raw := strings.TrimSpace(c.Query("s0"))
	if raw == "" {
		return s.Reference.Value(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("invalid s0 '%s'", raw)
	}
	return v, nil
}

// -----------------------------------------------------------------------------

// parseChartFile splits "2.png" into a strategy index and format.
func parseChartFile(file string) (int, chart.Format, error) {
	ext := path.Ext(file)
	if ext == "" {
		return 0, "", fmt.Errorf("chart file '%s' has no extension", file)
	}
	format, err := chart.ParseFormat(strings.TrimPrefix(ext, "."))
	if err != nil {
		return 0, "", err
	}
	idx, err := strconv.Atoi(strings.TrimSuffix(file, ext))
	if err != nil || idx < 0 {
		return 0, "", fmt.Errorf("invalid strategy index in '%s'", file)
	}
	return idx, format, nil
}

// -----------------------------------------------------------------------------

func errorBody(err error) gin.H {
	return gin.H{"error": err.Error()}
}
