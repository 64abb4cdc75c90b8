// Package importer turns place sheets (CSV, TSV, XLSX, HTML tables) into
// entities.Place rows ready for a PlaceWriter.
package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"daytrip/entities"
)

// Result is the outcome of parsing one sheet.
type Result struct {
	Places  []entities.Place
	Skipped int // rows without a name
}

var ErrMissingColumns = errors.New("missing required columns")

func norm(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "\uFEFF") // BOM
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

// header aliases, matched after norm
var columns = map[string][]string{
	"id":       {"place_id", "placeId", "id", "code", "장소id"},
	"name":     {"name", "title", "상호명", "장소명", "이름"},
	"category": {"category", "type", "카테고리", "분류"},
	"address":  {"address", "addr", "주소"},
	"lat":      {"lat", "latitude", "위도", "y"},
	"lng":      {"lng", "lon", "long", "longitude", "경도", "x"},
	"sido":     {"sido", "시도", "province"},
	"sigungu":  {"sigungu", "시군구", "district"},
	"discount": {"discountpercent", "discount", "할인율"},
	"score":    {"totalscore", "score", "점수"},
	"benefit":  {"benefit", "혜택"},
}

// ParseRows maps a header row plus records onto places. Only a name column
// is required; rows without an id get a fresh UUID.
func ParseRows(head []string, rows [][]string) (Result, error) {
	hmap := map[string]int{}
	for i, h := range head {
		if _, dup := hmap[norm(h)]; !dup {
			hmap[norm(h)] = i
		}
	}
	idx := map[string]int{}
	for field, aliases := range columns {
		idx[field] = -1
		for _, a := range aliases {
			if i, ok := hmap[norm(a)]; ok {
				idx[field] = i
				break
			}
		}
	}
	if idx["name"] == -1 {
		return Result{}, fmt.Errorf("%w: found headers %v, need at least a name column", ErrMissingColumns, head)
	}

	var res Result
	for _, rec := range rows {
		get := func(field string) string {
			i := idx[field]
			if i < 0 || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		name := get("name")
		if name == "" {
			res.Skipped++
			continue
		}
		id := get("id")
		if id == "" {
			id = uuid.NewString()
		}
		res.Places = append(res.Places, entities.Place{
			PlaceID:         id,
			Name:            name,
			Category:        get("category"),
			Address:         get("address"),
			Lat:             parseCoord(get("lat")),
			Lng:             parseCoord(get("lng")),
			Sido:            get("sido"),
			Sigungu:         get("sigungu"),
			DiscountPercent: parseNonNegInt(get("discount")),
			TotalScore:      parseNonNegInt(get("score")),
			Benefit:         get("benefit"),
		})
	}
	return res, nil
}

func parseCoord(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// parseNonNegInt accepts "15", "15%", "15.0" and clamps negatives to 0.
func parseNonNegInt(s string) int {
	s = strings.TrimSuffix(strings.ReplaceAll(s, ",", ""), "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || math.IsNaN(v) {
		return 0
	}
	return int(math.Round(v))
}

func ParseCSV(r io.Reader, comma rune) (Result, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	recs, err := cr.ReadAll()
	if err != nil {
		return Result{}, err
	}
	if len(recs) == 0 {
		return Result{}, fmt.Errorf("%w: empty sheet", ErrMissingColumns)
	}
	return ParseRows(recs[0], recs[1:])
}

// ParseXLSX reads the first sheet of a workbook.
func ParseXLSX(r io.Reader) (Result, error) {
	x, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, err
	}
	defer x.Close()
	sheets := x.GetSheetList()
	if len(sheets) == 0 {
		return Result{}, fmt.Errorf("%w: workbook has no sheets", ErrMissingColumns)
	}
	rows, err := x.GetRows(sheets[0])
	if err != nil {
		return Result{}, err
	}
	if len(rows) == 0 {
		return Result{}, fmt.Errorf("%w: empty sheet %q", ErrMissingColumns, sheets[0])
	}
	return ParseRows(rows[0], rows[1:])
}

// ParseHTML reads the first table whose header names a place.
func ParseHTML(r io.Reader) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Result{}, err
	}
	var (
		res   Result
		found bool
		lastE error
	)
	doc.Find("table").EachWithBreak(func(_ int, tbl *goquery.Selection) bool {
		var head []string
		var rows [][]string
		tbl.Find("tr").Each(func(i int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th,td").Each(func(_ int, td *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(td.Text()))
			})
			if len(cells) == 0 {
				return
			}
			if head == nil {
				head = cells
				return
			}
			rows = append(rows, cells)
		})
		parsed, err := ParseRows(head, rows)
		if err != nil {
			lastE = err
			return true
		}
		res, found = parsed, true
		return false
	})
	if !found {
		if lastE == nil {
			lastE = fmt.Errorf("%w: no table in page", ErrMissingColumns)
		}
		return Result{}, lastE
	}
	return res, nil
}

// LoadFile dispatches on the file extension.
func LoadFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ParseCSV(f, ',')
	case ".tsv", ".tab":
		return ParseCSV(f, '\t')
	case ".xlsx":
		return ParseXLSX(f)
	case ".html", ".htm":
		return ParseHTML(f)
	default:
		return Result{}, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

var ErrTooLarge = errors.New("page too large")

// FetchURL downloads a sheet (CSV, TSV or an HTML page with a table) of at
// most maxBytes and parses it according to its content type.
func FetchURL(ctx context.Context, client *http.Client, u string, maxBytes int) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("fetch %s: %s", u, resp.Status)
	}
	if resp.ContentLength > int64(maxBytes) {
		return Result{}, ErrTooLarge
	}
	limited := io.LimitedReader{R: resp.Body, N: int64(maxBytes) + 1}
	b, err := io.ReadAll(&limited)
	if err != nil {
		return Result{}, err
	}
	if len(b) > maxBytes {
		return Result{}, ErrTooLarge
	}

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	switch {
	case strings.Contains(ct, "text/html"):
		return ParseHTML(bytes.NewReader(b))
	case strings.Contains(ct, "text/tab-separated-values"):
		return ParseCSV(bytes.NewReader(b), '\t')
	case strings.Contains(ct, "text/csv"), strings.Contains(ct, "text/plain"):
		return ParseCSV(bytes.NewReader(b), ',')
	case strings.Contains(ct, "spreadsheetml"):
		return ParseXLSX(bytes.NewReader(b))
	default:
		return Result{}, fmt.Errorf("unsupported content-type: %s", ct)
	}
}
