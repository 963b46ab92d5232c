package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientName(t *testing.T) {
	assert.Equal(t, "Dana Lee", ClientName(map[string]any{"person_name": "Dana Lee", "title": "Search"}))
	assert.Equal(t, "Search", ClientName(map[string]any{"title": "Search"}))
	assert.Equal(t, "Client", ClientName(map[string]any{}))
}

func TestClientRequirements(t *testing.T) {
	req := ClientRequirements(map[string]any{
		"title":           "Search",
		"neighborhood_id": map[string]any{"label": "Chelsea"},
		"Profession":      "Psychiatry",
		"budget":          "",
		"start_date":      12,
	})
	assert.Equal(t, map[string]string{"title": "Search", "neighborhood": "Chelsea", "profession": "Psychiatry"}, req)
}

func TestSummarizePartner(t *testing.T) {
	s := SummarizePartner(map[string]any{
		"id":             float64(7),
		"title":          "Sunny suite",
		"Budget":         "$900",
		"Office Notes":   "Window",
		"Availability":   map[string]any{"label": "Part-time"},
		"Neighborhood A": map[string]any{"id": 3},
	})
	assert.Equal(t, PartnerSummary{
		DealID:       float64(7),
		Title:        "Sunny suite",
		Availability: "Part-time",
		Price:        "$900",
		OfficeNotes:  "Window",
	}, s)
}
