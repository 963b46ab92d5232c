package match

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	content string
	err     error
	calls   int
	last    openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.content}}},
	}, nil
}

func partners(n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, map[string]any{"id": float64(100 + i), "title": "Office", "Neighborhood (primary)": "UWS"})
	}
	return out
}

func clientDeal() map[string]any {
	return map[string]any{
		"title":           "Dr. Lee office search",
		"person_name":     "Dana Lee",
		"neighborhood_id": map[string]any{"label": "Upper West Side", "value": 53},
		"Profession":      "Psychotherapy",
		"budget_max":      "",
	}
}

func TestMatchValidation(t *testing.T) {
	m := NewMatcher(&fakeChat{}, Config{}, nil)

	_, err := m.Match(context.Background(), Request{Partners: partners(1)})
	assert.ErrorIs(t, err, ErrMissingClient)

	_, err = m.Match(context.Background(), Request{Client: clientDeal()})
	assert.ErrorIs(t, err, ErrMissingPartners)
}

func TestMatchWithoutModelReturnsFirstFive(t *testing.T) {
	m := NewMatcher(nil, Config{}, nil)

	res, err := m.Match(context.Background(), Request{Client: clientDeal(), Partners: partners(7)})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(101), float64(102), float64(103), float64(104), float64(105)}, res.SelectedDealIDs)
	assert.Equal(t, "<p>Dear Dana Lee,</p><p>We have found 5 potential matches for you.</p>", res.EmailHTML)
	assert.Equal(t, "OpenAI not configured - returning first 5 partners", res.InternalNotes)
}

func TestMatchModelErrorFallsBack(t *testing.T) {
	chat := &fakeChat{err: errors.New("rate limited")}
	m := NewMatcher(chat, Config{}, nil)

	in := partners(2)
	in = append(in, map[string]any{"title": "No id"})
	res, err := m.Match(context.Background(), Request{Client: clientDeal(), Partners: in})
	require.NoError(t, err)
	assert.Equal(t, 1, chat.calls)
	assert.Equal(t, []any{float64(101), float64(102)}, res.SelectedDealIDs)
	assert.Contains(t, res.EmailHTML, "potential office matches")
	assert.Contains(t, res.InternalNotes, "OpenAI error: ")
	assert.Contains(t, res.InternalNotes, "rate limited")
}

func TestMatchUnparsableResponseFallsBack(t *testing.T) {
	m := NewMatcher(&fakeChat{content: "not json"}, Config{}, nil)

	res, err := m.Match(context.Background(), Request{Client: clientDeal(), Partners: partners(1)})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(101)}, res.SelectedDealIDs)
	assert.Contains(t, res.InternalNotes, "OpenAI error")
}

func TestMatchParsesModelResponse(t *testing.T) {
	chat := &fakeChat{content: `{"selected_deal_ids": [102, 105], "email_html": "<p>Hi Dana</p>", "internal_notes": "UWS, part-time"}`}
	m := NewMatcher(chat, Config{}, nil)

	res, err := m.Match(context.Background(), Request{Client: clientDeal(), Partners: partners(5)})
	require.NoError(t, err)
	require.Len(t, res.SelectedDealIDs, 2)
	assert.Equal(t, []any{json.Number("102"), json.Number("105")}, res.SelectedDealIDs)
	assert.Equal(t, "<p>Hi Dana</p>", res.EmailHTML)
	assert.Equal(t, "UWS, part-time", res.InternalNotes)

	assert.Equal(t, openai.GPT4o, chat.last.Model)
	assert.InDelta(t, 0.7, chat.last.Temperature, 0.001)
	require.NotNil(t, chat.last.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, chat.last.ResponseFormat.Type)
	require.Len(t, chat.last.Messages, 1)
	prompt := chat.last.Messages[0].Content
	assert.Contains(t, prompt, "Upper West Side")
	assert.Contains(t, prompt, "Psychotherapy")
	assert.Contains(t, prompt, `"deal_id": 105`)
}

func TestMatchEmptySelection(t *testing.T) {
	m := NewMatcher(&fakeChat{content: `{"email_html": "<p>None</p>", "internal_notes": "no fit"}`}, Config{}, nil)

	res, err := m.Match(context.Background(), Request{Client: clientDeal(), Partners: partners(1)})
	require.NoError(t, err)
	assert.NotNil(t, res.SelectedDealIDs)
	assert.Empty(t, res.SelectedDealIDs)
}
