package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ibeckermayer/tweetscope/internal/types"
)

// Export formats
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var csvHeader = []string{
	"id", "author_handle", "author_name", "content", "created_at",
	"likes", "reshares", "replies", "views", "verified",
	"hashtags", "mentions", "urls", "media_urls",
	"sentiment_score", "sentiment_label", "scraped_at", "source",
}

// ExportPath returns a timestamped file path for format inside dir
func ExportPath(dir, format string, at time.Time) string {
	// Dashes instead of colons for filesystem compatibility
	return filepath.Join(dir, "records_"+at.Format("2006-01-02T15-04-05")+"."+format)
}

// Export writes the records matching f to destination and returns how many were written.
// Set f.Limit negative to export everything.
func (s *Store) Export(ctx context.Context, format, destination string, f types.Filter) (int, error) {
	if format != FormatJSON && format != FormatCSV {
		return 0, fmt.Errorf("unknown export format %q", format)
	}

	recs, err := s.Query(ctx, f)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return 0, err
	}
	file, err := os.Create(destination)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	switch format {
	case FormatJSON:
		err = WriteJSON(file, recs)
	case FormatCSV:
		err = WriteCSV(file, recs)
	}
	if err != nil {
		return 0, fmt.Errorf("export %s: %w", destination, err)
	}
	return len(recs), file.Close()
}

// WriteJSON writes recs as an indented JSON array
func WriteJSON(w io.Writer, recs []types.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// ReadJSON reads a JSON array written by WriteJSON
func ReadJSON(r io.Reader) ([]types.Record, error) {
	var recs []types.Record
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// WriteCSV writes recs with a header row. List columns hold JSON arrays.
func WriteCSV(w io.Writer, recs []types.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range recs {
		views := ""
		if r.Views != nil {
			views = strconv.Itoa(*r.Views)
		}
		row := []string{
			r.ID, r.AuthorHandle, r.AuthorName, r.Content, r.CreatedAt.UTC().Format(time.RFC3339Nano),
			strconv.Itoa(r.Likes), strconv.Itoa(r.Reshares), strconv.Itoa(r.Replies), views, strconv.FormatBool(r.Verified),
			jsonList(r.Hashtags), jsonList(r.Mentions), jsonList(r.URLs), jsonList(r.MediaURLs),
			strconv.FormatFloat(r.SentimentScore, 'g', -1, 64), string(r.SentimentLabel),
			r.ScrapedAt.UTC().Format(time.RFC3339Nano), string(r.Source),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV reads rows written by WriteCSV
func ReadCSV(r io.Reader) ([]types.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing csv header")
	}

	recs := make([]types.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseCSVRow(row)
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", i+2, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func parseCSVRow(row []string) (types.Record, error) {
	var (
		r   types.Record
		err error
	)
	r.ID, r.AuthorHandle, r.AuthorName, r.Content = row[0], row[1], row[2], row[3]

	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, row[4]); err != nil {
		return r, err
	}
	if r.Likes, err = strconv.Atoi(row[5]); err != nil {
		return r, err
	}
	if r.Reshares, err = strconv.Atoi(row[6]); err != nil {
		return r, err
	}
	if r.Replies, err = strconv.Atoi(row[7]); err != nil {
		return r, err
	}
	if row[8] != "" {
		v, err := strconv.Atoi(row[8])
		if err != nil {
			return r, err
		}
		r.Views = &v
	}
	if r.Verified, err = strconv.ParseBool(row[9]); err != nil {
		return r, err
	}
	if r.Hashtags, err = parseList(row[10]); err != nil {
		return r, err
	}
	if r.Mentions, err = parseList(row[11]); err != nil {
		return r, err
	}
	if r.URLs, err = parseList(row[12]); err != nil {
		return r, err
	}
	if r.MediaURLs, err = parseList(row[13]); err != nil {
		return r, err
	}
	if r.SentimentScore, err = strconv.ParseFloat(row[14], 64); err != nil {
		return r, err
	}
	r.SentimentLabel = types.SentimentLabel(row[15])
	if r.ScrapedAt, err = time.Parse(time.RFC3339Nano, row[16]); err != nil {
		return r, err
	}
	r.Source = types.Provenance(row[17])

	r.CreatedAt = r.CreatedAt.UTC()
	r.ScrapedAt = r.ScrapedAt.UTC()
	return r, nil
}

// Import upserts the records of a file written by Export. Existing IDs are left untouched.
func (s *Store) Import(ctx context.Context, format, source string) (inserted, duplicates int, err error) {
	file, err := os.Open(source)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	var recs []types.Record
	switch format {
	case FormatJSON:
		recs, err = ReadJSON(file)
	case FormatCSV:
		recs, err = ReadCSV(file)
	default:
		return 0, 0, fmt.Errorf("unknown import format %q", format)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("import %s: %w", source, err)
	}

	for _, r := range recs {
		ok, err := s.Upsert(ctx, r)
		if err != nil {
			return inserted, duplicates, err
		}
		if ok {
			inserted++
		} else {
			duplicates++
		}
	}
	return inserted, duplicates, nil
}

// FormatFromPath infers the export format from a file extension
func FormatFromPath(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
