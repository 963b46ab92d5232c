package mirror

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CurlyBracesAI/RosieImageSync/internal/crm"
	"github.com/CurlyBracesAI/RosieImageSync/internal/domain"
)

func testFieldMap() *crm.FieldMap {
	fields := []crm.Field{
		{Key: "title", Name: "Title"},
		{Key: "stage_id", Name: "Stage", FieldType: "stage"},
		{Key: "hood1", Name: "Neighborhood (primary)"},
		{Key: "use1", Name: "Profession | Use", FieldType: "set", Options: []crm.FieldOption{
			{ID: "53", Label: "Psychotherapy"},
			{ID: "78", Label: "Label78"},
			{ID: "79", Label: "Label79"},
		}},
		{Key: "avail", Name: "FT | PT Availability/ Requirement", FieldType: "enum", Options: []crm.FieldOption{
			{ID: "12", Label: "Full time"},
		}},
	}
	for _, n := range []int{1, 2, 3} {
		fields = append(fields,
			crm.Field{Key: "pic" + domain.StringValue(n), Name: domain.PictureFieldName(n)},
			crm.Field{Key: "alt" + domain.StringValue(n), Name: domain.DealFieldPrefix + domain.AltTextFieldName(n)},
			crm.Field{Key: "tip" + domain.StringValue(n), Name: domain.DealFieldPrefix + domain.TooltipFieldName(n)},
		)
	}
	stages := []crm.Stage{{ID: 4, Name: "Listed"}}
	return crm.NewFieldMap(fields, stages)
}

func TestBuildTranslatesValues(t *testing.T) {
	b := NewBuilder(testFieldMap(), nil, nil)
	deal := domain.Deal{
		"id":       json.Number("4181"),
		"title":    "West 72nd Office",
		"stage_id": json.Number("4"),
		"hood1":    "Upper West Side",
		"use1":     "53",
		"avail":    "Remote",
	}

	rec, err := b.Build(deal)
	require.NoError(t, err)
	assert.Equal(t, "4181", rec.ID)
	assert.Equal(t, "West 72nd Office", rec.Data["Title"])
	assert.Equal(t, "Listed", rec.Data["Stage"])
	assert.Equal(t, "Psychotherapy", rec.Data["Profession | Use"])
	assert.Equal(t, "Remote", rec.Data["FT | PT Availability/ Requirement"])
	assert.Equal(t, "Upper West Side", rec.Data["Neighborhood (primary)"])

	deal["use1"] = "78,79"
	rec, err = b.Build(deal)
	require.NoError(t, err)
	assert.Equal(t, "Label78, Label79", rec.Data["Profession | Use"])
}

func TestBuildPictureSlots(t *testing.T) {
	b := NewBuilder(testFieldMap(), nil, nil)
	deal := domain.Deal{
		"id":   "4181",
		"pic1": "https://cdn.example.com/4181/1.jpg",
		"alt1": "Office with desk",
		"tip1": "Quiet office",
		"pic2": "N/A",
		"alt2": "stale alt",
		"pic3": "https://cdn.example.com/static/placeholder.png",
	}

	rec, err := b.Build(deal)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/4181/1.jpg", rec.Data["Picture 1"])
	assert.Equal(t, "Office with desk", rec.Data["Alt Text Pic 1"])
	assert.Equal(t, "Quiet office", rec.Data["Tooltip Pic 1"])
	assert.NotContains(t, rec.Data, "Picture 2")
	assert.NotContains(t, rec.Data, "Alt Text Pic 2")
	assert.NotContains(t, rec.Data, "Picture 3")
	assert.NotContains(t, rec.Data, "Title")
}

func TestBuildRequiresID(t *testing.T) {
	_, err := NewBuilder(testFieldMap(), nil, nil).Build(domain.Deal{"title": "x"})
	assert.Error(t, err)
}

func TestCustomPlaceholders(t *testing.T) {
	b := NewBuilder(testFieldMap(), nil, []string{" Coming-Soon "})
	assert.True(t, b.IsPlaceholder("coming-soon"))
	assert.False(t, b.IsPlaceholder("n/a"))
}

func TestPlaceholderFileNames(t *testing.T) {
	b := NewBuilder(testFieldMap(), nil, nil)
	assert.True(t, b.IsPlaceholder("https://cdn.example.com/static/Placeholder.PNG"))
	assert.True(t, b.IsPlaceholder("none"))
	assert.False(t, b.IsPlaceholder("https://cdn.example.com/4181/na.jpg"))
	assert.False(t, b.IsPlaceholder("https://cdn.example.com/4181/none.png"))
	assert.False(t, b.IsPlaceholder("https://cdn.example.com/4181/tbd.jpg"))
}

func TestNeo4jProperties(t *testing.T) {
	props := neo4jProperties(map[string]any{
		"Order": json.Number("3"),
		"Rate":  json.Number("12.5"),
		"Title": "x",
		"Empty": nil,
		"Tags":  []any{"a", "b"},
	})
	assert.Equal(t, int64(3), props["Order"])
	assert.Equal(t, 12.5, props["Rate"])
	assert.Equal(t, "x", props["Title"])
	assert.NotContains(t, props, "Empty")
	assert.Equal(t, `["a","b"]`, props["Tags"])
}
