package server

import (
	"bytes"
	"net/http"
	"time"

	"option-guide/src/content"
	"option-guide/src/metrics"
	"option-guide/src/pricing"
	"option-guide/src/trace"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

// getTeaching serves the content document. Missing or malformed content
// yields the empty loading state with 503, never a partial document.
func (s *Server) getTeaching(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	doc, err := s.Content.Load()
	if err != nil {
		s.Logger.Warning("Content unavailable: %v", err)
		c.JSON(http.StatusServiceUnavailable, content.EmptyDocument())
		return
	}
	c.JSON(http.StatusOK, doc)
}

// -----------------------------------------------------------------------------

func (s *Server) getSeries(c *gin.Context) {
	ref, err := s.referenceFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err))
		return
	}
	doc, err := s.Content.Load()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorBody(err))
		return
	}
	tab, err := content.FindTab(doc, c.Param("tab"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorBody(err))
		return
	}

	strategies := s.Builder.BuildStrategies(tab.Strategies, ref)
	for _, st := range strategies {
		if st.Excluded > 0 {
			metrics.ExcludedRowsTotal.Add(float64(st.Excluded))
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"tab":        tab.ID,
		"S0":         ref,
		"strategies": strategies,
	})
}

// -----------------------------------------------------------------------------

func (s *Server) getChart(c *gin.Context) {
	idx, format, err := parseChartFile(c.Param("file"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err))
		return
	}
	ref, err := s.referenceFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err))
		return
	}
	doc, err := s.Content.Load()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorBody(err))
		return
	}
	tab, err := content.FindTab(doc, c.Param("tab"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorBody(err))
		return
	}
	if idx >= len(tab.Strategies) {
		c.JSON(http.StatusNotFound, gin.H{"error": "strategy index out of range"})
		return
	}

	_, span := trace.StartSpan(c.Request.Context(), "chart.render",
		attribute.String("tab", tab.ID), attribute.Int("index", idx), attribute.String("format", string(format)))
	defer span.End()

	series, _ := s.Builder.Build(tab.Strategies[idx].PnLTable.Rows, ref)
	var buf bytes.Buffer
	if err := s.Charts.Write(&buf, series, format); err != nil {
		trace.RecordError(span, err)
		s.Logger.Error("Chart render failed: %v", err)
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	metrics.ChartsRenderedTotal.WithLabelValues(string(format)).Inc()

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// -----------------------------------------------------------------------------

func (s *Server) getQuote(c *gin.Context) {
	q := s.Reference.Quote()
	c.JSON(http.StatusOK, gin.H{
		"quote":   q,
		"strikes": pricing.StrikeHints(q.Price, s.Config.Pricing.StrikeStep, s.Config.Pricing.PremiumRate),
	})
}

// -----------------------------------------------------------------------------

func (s *Server) getHealth(c *gin.Context) {
	_, contentErr := s.Content.Load()
	q := s.Reference.Quote()

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"sessions":        s.ActiveSessions(),
		"content_ok":      contentErr == nil,
		"reference_price": q.Price,
		"price_source":    q.Source,
		"latest_update":   q.ObservedAt.Format(time.RFC3339),
	})
}
