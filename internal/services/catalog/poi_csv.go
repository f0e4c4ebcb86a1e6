package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ssmoliagin/weekendguide/internal/domain/enums"
	"github.com/ssmoliagin/weekendguide/internal/domain/model"
	"github.com/ssmoliagin/weekendguide/internal/services/geo"
)

var requiredPOIColumns = []string{"id", "lat", "lon", "title"}

// parsePOICSV reads a region POI file. Columns are matched by header name, so
// extra or reordered columns are tolerated. Rows with a missing id or bad
// coordinates are skipped and counted.
func parsePOICSV(r io.Reader, countryCode, regionCode string) ([]model.POI, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []model.POI{}, 0, nil
		}
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range requiredPOIColumns {
		if _, ok := columns[name]; !ok {
			return nil, 0, fmt.Errorf("missing column %q", name)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	pois := make([]model.POI, 0)
	seen := make(map[string]struct{})
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read row: %w", err)
		}

		id := field(record, "id")
		lat, latErr := strconv.ParseFloat(field(record, "lat"), 64)
		lon, lonErr := strconv.ParseFloat(field(record, "lon"), 64)
		if id == "" || latErr != nil || lonErr != nil || geo.ValidateCoordinates(lat, lon) != nil {
			skipped++
			continue
		}
		if _, dup := seen[id]; dup {
			skipped++
			continue
		}
		seen[id] = struct{}{}

		pois = append(pois, model.POI{
			ID:          id,
			CountryCode: countryCode,
			RegionCode:  regionCode,
			Lat:         lat,
			Lon:         lon,
			Title:       field(record, "title"),
			Description: field(record, "description"),
			Category:    enums.ParsePlaceCategory(field(record, "category")),
			ImageURL:    field(record, "image_url"),
			WikiTitle:   field(record, "wiki_title"),
		})
	}

	return pois, skipped, nil
}
