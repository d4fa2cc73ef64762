// Package cli provides output formatting for the matchfeed command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/matchfeed/internal/catalog"
	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one line per feed entry.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
}

// StatusReport is the shape of GET /api/v1/status.
type StatusReport struct {
	Items           int64         `json:"items"`
	ActiveItems     int64         `json:"active_items"`
	Users           int64         `json:"users"`
	Interactions    int64         `json:"interactions"`
	VectorIndexSize int           `json:"vector_index_size"`
	DiskUsageBytes  *int64        `json:"disk_usage_bytes,omitempty"`
	Config          *StatusConfig `json:"config,omitempty"`
}

// StatusConfig is the configuration part of a StatusReport.
type StatusConfig struct {
	VectorIndexType     string `json:"vector_index_type"`
	WeightSet           string `json:"weight_set,omitempty"`
	EmbeddingDimensions int    `json:"embedding_dimensions,omitempty"`
	DatabasePath        string `json:"database_path,omitempty"`
	BleveIndexPath      string `json:"bleve_index_path,omitempty"`
	VectorIndexPath     string `json:"vector_index_path,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteFeed writes a discovery page to w in the given format.
func WriteFeed(w io.Writer, resp *models.DiscoverResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, resp)
	case OutputCompact:
		for _, it := range resp.Items {
			title := ""
			if it.Item != nil {
				title = it.Item.Title
			}
			fmt.Fprintf(w, "%3d  %s  %s\n", it.Score, it.ItemID, title)
		}
	default:
		writeFeedText(w, resp)
	}
	return nil
}

func writeFeedText(w io.Writer, resp *models.DiscoverResponse) {
	fmt.Fprintf(w, "\n%d items from %d candidates in %dms\n\n", len(resp.Items), resp.Candidates, resp.QueryTime)
	for i, it := range resp.Items {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "#%d | Score: %d | ID: %s\n", i+1, it.Score, it.ItemID)
		if it.Item != nil {
			fmt.Fprintf(w, "%s", it.Item.Title)
			if it.Item.Company != "" {
				fmt.Fprintf(w, " at %s", it.Item.Company)
			}
			fmt.Fprintln(w)
			if line := utils.JoinNonEmpty(" | ", it.Item.Location, strings.Join(it.Item.Tags, ", ")); line != "" {
				fmt.Fprintf(w, "%s\n", line)
			}
			if it.Item.Description != "" {
				fmt.Fprintf(w, "\n%s\n", utils.Truncate(it.Item.Description, 200))
			}
		}
		if b := it.Breakdown; b != nil {
			fmt.Fprintf(w, "similarity %.2f  skills %.2f  seniority %.2f  recency %.2f  location %.2f\n",
				b.EmbeddingSimilarity, b.SkillOverlap, b.SeniorityMatch, b.RecencyDecay, b.LocationMatch)
		}
		fmt.Fprintln(w)
	}
	if resp.HasMore {
		fmt.Fprintf(w, "More results: --cursor %s\n", resp.NextCursor)
	} else {
		fmt.Fprintln(w, "End of feed.")
	}
}

// WriteImportResult writes an import summary to w.
func WriteImportResult(w io.Writer, res *catalog.ImportResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	if res.Path != "" {
		fmt.Fprintf(w, "Imported %s\n", res.Path)
	}
	fmt.Fprintf(w, "created: %d  updated: %d  unchanged: %d  failed: %d\n",
		res.Created, res.Updated, res.Unchanged, res.Failed)
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  ! %s\n", e)
	}
	return nil
}

// WriteStatus writes a status report to w.
func WriteStatus(w io.Writer, s *StatusReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "items:              %d   # %d active\n", s.Items, s.ActiveItems)
	fmt.Fprintf(w, "users:              %d\n", s.Users)
	fmt.Fprintf(w, "interactions:       %d   # recorded swipes\n", s.Interactions)
	fmt.Fprintf(w, "vector_index_size:  %d   # vectors in the candidate index\n", s.VectorIndexSize)
	if s.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # storage + indices on disk\n", *s.DiskUsageBytes)
	}
	if c := s.Config; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "vector_index_type:  %s\n", c.VectorIndexType)
		if c.WeightSet != "" {
			fmt.Fprintf(w, "weight_set:         %s\n", c.WeightSet)
		}
		if c.EmbeddingDimensions > 0 {
			fmt.Fprintf(w, "embedding_dims:     %d\n", c.EmbeddingDimensions)
		}
		if c.DatabasePath != "" {
			fmt.Fprintf(w, "database_path:      %s\n", c.DatabasePath)
		}
		if c.BleveIndexPath != "" {
			fmt.Fprintf(w, "bleve_index_path:   %s\n", c.BleveIndexPath)
		}
		if c.VectorIndexPath != "" {
			fmt.Fprintf(w, "vector_index_path:  %s\n", c.VectorIndexPath)
		}
	}
	return nil
}
