package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/fileid"
	"github.com/hyperjump/matchfeed/internal/models"
)

// Record is one item as it appears in an import file.
type Record struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Seniority   string   `json:"seniority"`
	Location    string   `json:"location"`
	CreatedAt   string   `json:"created_at"`
}

// ImportResult summarizes an import.
type ImportResult struct {
	Path      string   `json:"path,omitempty"`
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Unchanged int      `json:"unchanged"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

func (r *ImportResult) add(o *ImportResult) {
	r.Created += o.Created
	r.Updated += o.Updated
	r.Unchanged += o.Unchanged
	r.Failed += o.Failed
	r.Errors = append(r.Errors, o.Errors...)
}

func (r *ImportResult) fail(format string, args ...any) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// ImportFile imports every record of a .xlsx or .json file. Item IDs are derived from the file
// path and each record's key, so importing the same file again updates the same items.
// Invalid records are counted and reported without aborting the import.
func (c *Catalog) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	var records []Record
	switch ext := strings.ToLower(filepath.Ext(absPath)); ext {
	case ".xlsx":
		records, err = ReadXLSX(absPath)
	case ".json":
		records, err = ReadJSON(absPath)
	default:
		return nil, fmt.Errorf("%w: unsupported import format %q", models.ErrInvalidInput, ext)
	}
	if err != nil {
		return nil, err
	}

	res := &ImportResult{Path: absPath}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if strings.TrimSpace(rec.Title) == "" {
			res.fail("record %d: title is required", i+1)
			continue
		}
		id := fileid.ItemID(absPath, fileid.RecordKey(rec.ID, rec.Title, rec.Company))
		outcome, err := c.upsert(ctx, id, rec)
		if err != nil {
			if !errors.Is(err, models.ErrInvalidInput) {
				return res, fmt.Errorf("record %d: %w", i+1, err)
			}
			res.fail("record %d: %v", i+1, err)
			continue
		}
		switch outcome {
		case upsertCreated:
			res.Created++
		case upsertUpdated:
			res.Updated++
		default:
			res.Unchanged++
		}
	}
	c.logger.Info("catalog file imported",
		zap.String("path", absPath),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("failed", res.Failed))
	return res, nil
}

// ImportDirectory imports every file in dir (recursively) whose extension is in allowedExts
// (all supported files when empty).
func (c *Catalog) ImportDirectory(ctx context.Context, dir string, allowedExts []string) (*ImportResult, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}
	total := &ImportResult{Path: absDir}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !Importable(path, allowedExts) {
			return nil
		}
		res, err := c.ImportFile(ctx, path)
		if res != nil {
			total.add(res)
		}
		if err != nil {
			if errors.Is(err, models.ErrUnavailable) || ctx.Err() != nil {
				return err
			}
			total.fail("%s: %v", path, err)
		}
		return nil
	})
	return total, err
}

// Importable reports whether path has a supported extension that is also in allowedExts
// (when non-empty).
func Importable(path string, allowedExts []string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext != "xlsx" && ext != "json" {
		return false
	}
	if len(allowedExts) == 0 {
		return true
	}
	return slices.ContainsFunc(allowedExts, func(a string) bool {
		return strings.ToLower(strings.TrimPrefix(a, ".")) == ext
	})
}

type upsertOutcome int

const (
	upsertUnchanged upsertOutcome = iota
	upsertCreated
	upsertUpdated
)

func (c *Catalog) upsert(ctx context.Context, id string, rec Record) (upsertOutcome, error) {
	createdAt, err := parseCreatedAt(rec.CreatedAt)
	if err != nil {
		return upsertUnchanged, err
	}
	existing, err := c.store.GetItem(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		in := rec.input()
		in.ID = id
		in.CreatedAt = createdAt
		if _, err := c.Create(ctx, in); err != nil {
			return upsertUnchanged, err
		}
		return upsertCreated, nil
	}
	if err != nil {
		return upsertUnchanged, err
	}
	in, err := changes(existing, rec)
	if err != nil {
		return upsertUnchanged, err
	}
	if in == nil {
		return upsertUnchanged, nil
	}
	if _, err := c.Update(ctx, id, in); err != nil {
		return upsertUnchanged, err
	}
	return upsertUpdated, nil
}

func (r Record) input() *models.ItemInput {
	tags := r.Tags
	return &models.ItemInput{
		Title:       &r.Title,
		Company:     &r.Company,
		Description: &r.Description,
		Tags:        &tags,
		Seniority:   &r.Seniority,
		Location:    &r.Location,
	}
}

// changes returns an input holding only the fields of rec that differ from existing, or nil.
func changes(existing *models.Item, rec Record) (*models.ItemInput, error) {
	seniority, err := models.ParseSeniority(rec.Seniority)
	if err != nil {
		return nil, err
	}
	in := &models.ItemInput{}
	changed := false
	set := func(dst **string, old, v string) {
		if strings.TrimSpace(v) != old {
			*dst = &v
			changed = true
		}
	}
	set(&in.Title, existing.Title, rec.Title)
	set(&in.Company, existing.Company, rec.Company)
	set(&in.Description, existing.Description, rec.Description)
	set(&in.Location, existing.Location, rec.Location)
	if seniority != existing.Seniority {
		in.Seniority = &rec.Seniority
		changed = true
	}
	if tags := models.NormalizeTags(rec.Tags); !slices.Equal(tags, existing.Tags) {
		in.Tags = &tags
		changed = true
	}
	if !changed {
		return nil, nil
	}
	return in, nil
}

func parseCreatedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized created_at %q", models.ErrInvalidInput, s)
}

// ReadJSON reads an array of records.
func ReadJSON(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", models.ErrInvalidInput, filepath.Base(path), err)
	}
	return records, nil
}

// ReadXLSX reads records from the first sheet of a workbook. The first row holds column names
// (id, title, company, description, tags, seniority, location, created_at, in any order and
// case); tags are separated by commas or semicolons.
func ReadXLSX(path string) ([]Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open Excel: %v", models.ErrInvalidInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	columns := make(map[string]int)
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["title"]; !ok {
		return nil, fmt.Errorf("%w: %s has no title column", models.ErrInvalidInput, filepath.Base(path))
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cell := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		rec := Record{
			ID:          cell("id"),
			Title:       cell("title"),
			Company:     cell("company"),
			Description: cell("description"),
			Tags:        splitTags(cell("tags")),
			Seniority:   cell("seniority"),
			Location:    cell("location"),
			CreatedAt:   cell("created_at"),
		}
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func splitTags(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
}
