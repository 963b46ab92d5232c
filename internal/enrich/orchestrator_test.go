package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CurlyBracesAI/RosieImageSync/internal/crm"
	"github.com/CurlyBracesAI/RosieImageSync/internal/domain"
)

// memoryCRM 是一个内存版 CRM，记录调用次数。
type memoryCRM struct {
	fields     []crm.Field
	deals      map[string]domain.Deal
	fieldsErr  error
	updateErr  error
	fieldCalls int
	getCalls   int
	updates    []map[string]any
}

func newMemoryCRM() *memoryCRM {
	var fields []crm.Field
	for n := 1; n <= 10; n++ {
		fields = append(fields,
			crm.Field{Key: keyFor("pic", n), Name: domain.PictureFieldName(n)},
			crm.Field{Key: keyFor("alt", n), Name: domain.DealFieldPrefix + domain.AltTextFieldName(n)},
			crm.Field{Key: keyFor("tip", n), Name: domain.DealFieldPrefix + domain.TooltipFieldName(n)},
		)
	}
	return &memoryCRM{fields: fields, deals: map[string]domain.Deal{"4181": {"id": "4181"}}}
}

func keyFor(prefix string, n int) string {
	return prefix + domain.StringValue(n)
}

func (m *memoryCRM) ListDealFields(context.Context) ([]crm.Field, error) {
	m.fieldCalls++
	return m.fields, m.fieldsErr
}

func (m *memoryCRM) ListStages(context.Context) ([]crm.Stage, error) { return nil, nil }

func (m *memoryCRM) GetDeal(_ context.Context, id string) (domain.Deal, error) {
	m.getCalls++
	deal, ok := m.deals[id]
	if !ok {
		return nil, crm.ErrDealNotFound
	}
	return deal, nil
}

func (m *memoryCRM) UpdateDeal(_ context.Context, id string, fields map[string]any) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, fields)
	deal := m.deals[id]
	if deal == nil {
		deal = domain.Deal{"id": id}
		m.deals[id] = deal
	}
	for k, v := range fields {
		deal[k] = v
	}
	return nil
}

func (m *memoryCRM) SearchDealIDs(context.Context, string) ([]string, error) { return nil, nil }

type fakeFetcher struct {
	failing map[string]bool
	calls   int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls++
	if f.failing[url] {
		return nil, errors.New("unexpected status: 404 Not Found")
	}
	return []byte("jpeg-bytes"), nil
}

type fakeDetector struct {
	labels domain.LabelSet
	err    error
}

func (d *fakeDetector) Detect(context.Context, []byte) (domain.LabelSet, error) {
	return d.labels, d.err
}

type mockGenerator struct {
	mock.Mock
}

func (g *mockGenerator) Generate(ctx context.Context, in DescriptionInput) (domain.DescriptionPair, error) {
	args := g.Called(ctx, in)
	return args.Get(0).(domain.DescriptionPair), args.Error(1)
}

var generatedPair = domain.DescriptionPair{
	AltText:     "Bright therapy office with two armchairs and a tall window",
	TooltipText: "A quiet professional office in Upper West Side with two armchairs, a side table and natural light from a tall window facing the street.",
}

func newOrchestrator(store *memoryCRM, fetcher *fakeFetcher, gen *mockGenerator) *Orchestrator {
	return &Orchestrator{
		CRM:       store,
		Fetcher:   fetcher,
		Detector:  &fakeDetector{labels: domain.LabelSet{"Chair", "Window"}},
		Generator: gen,
		Cache:     NewCacheGate(store),
	}
}

func TestRunRejectsMissingFields(t *testing.T) {
	cases := []Request{
		{Neighborhood: "UES", ImageURLs: []string{"https://x/1.jpg"}},
		{DealID: "4181", ImageURLs: []string{"https://x/1.jpg"}},
		{DealID: "4181", Neighborhood: "UES"},
		{DealID: "4181", Neighborhood: "UES", ImageURLs: []string{"https://x/1.jpg"}, PictureNumber: 11},
	}
	for _, req := range cases {
		store := newMemoryCRM()
		fetcher := &fakeFetcher{}
		gen := new(mockGenerator)
		o := newOrchestrator(store, fetcher, gen)

		_, err := o.Run(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidRequest)
		assert.Zero(t, store.fieldCalls)
		assert.Zero(t, store.getCalls)
		assert.Zero(t, fetcher.calls)
		gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	}
}

func TestRunEmptyImageList(t *testing.T) {
	store := newMemoryCRM()
	o := newOrchestrator(store, &fakeFetcher{}, new(mockGenerator))

	resp, err := o.Run(context.Background(), Request{DealID: "4181", Neighborhood: "UES", ImageURLs: []string{}})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.ImageCount)
	assert.NotNil(t, resp.Images)
	assert.Empty(t, resp.Images)
	assert.Zero(t, store.fieldCalls)
}

func TestRunIsIdempotentWithoutForce(t *testing.T) {
	store := newMemoryCRM()
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(generatedPair, nil).Once()
	o := newOrchestrator(store, &fakeFetcher{}, gen)
	req := Request{DealID: "4181", Neighborhood: "Upper West Side", ImageURLs: []string{"https://cdn.example.com/4181/7.jpg"}}

	first, err := o.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, first.Images, 1)
	assert.Equal(t, domain.StatusProcessed, first.Images[0].Status)
	assert.Equal(t, 7, first.Images[0].PictureNumber)
	assert.Equal(t, domain.LabelSet{"Chair", "Window"}, first.Images[0].Labels)
	require.Len(t, store.updates, 1)
	assert.Equal(t, map[string]any{
		"pic7": "https://cdn.example.com/4181/7.jpg",
		"alt7": generatedPair.AltText,
		"tip7": generatedPair.TooltipText,
	}, store.updates[0])

	second, err := o.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, second.Images, 1)
	assert.Equal(t, domain.StatusCached, second.Images[0].Status)
	assert.Equal(t, generatedPair.AltText, second.Images[0].AltText)
	assert.Equal(t, generatedPair.TooltipText, second.Images[0].TooltipText)
	assert.Len(t, store.updates, 1)
	gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestRunForceRefreshRegenerates(t *testing.T) {
	store := newMemoryCRM()
	store.deals["4181"]["alt7"] = "old alt"
	store.deals["4181"]["tip7"] = "old tooltip"
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(generatedPair, nil)
	o := newOrchestrator(store, &fakeFetcher{}, gen)
	req := Request{DealID: "4181", Neighborhood: "UES", ImageURLs: []string{"https://cdn.example.com/4181/7.jpg"}, ForceRefresh: true}

	for i := 0; i < 2; i++ {
		resp, err := o.Run(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusProcessed, resp.Images[0].Status)
	}
	gen.AssertNumberOfCalls(t, "Generate", 2)
	assert.Equal(t, generatedPair.AltText, store.deals["4181"]["alt7"])
}

func TestRunPartialBatch(t *testing.T) {
	store := newMemoryCRM()
	fetcher := &fakeFetcher{failing: map[string]bool{"https://cdn.example.com/4181/2.jpg": true}}
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(generatedPair, nil)
	o := newOrchestrator(store, fetcher, gen)

	resp, err := o.Run(context.Background(), Request{
		DealID:       "4181",
		Neighborhood: "UES",
		ImageURLs: []string{
			"https://cdn.example.com/4181/1.jpg",
			"https://cdn.example.com/4181/2.jpg",
			"https://cdn.example.com/4181/3.jpg",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.ImageCount)
	require.Len(t, resp.Images, 3)

	assert.Equal(t, domain.StatusProcessed, resp.Images[0].Status)
	assert.Equal(t, domain.StatusError, resp.Images[1].Status)
	assert.False(t, resp.Images[1].BytesFetched)
	assert.NotEmpty(t, resp.Images[1].Error)
	assert.Equal(t, domain.StatusProcessed, resp.Images[2].Status)
	assert.True(t, resp.Images[2].BytesFetched)
	gen.AssertNumberOfCalls(t, "Generate", 2)
	assert.Len(t, store.updates, 2)
}

func TestRunDetectorFailureStillGenerates(t *testing.T) {
	store := newMemoryCRM()
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(in DescriptionInput) bool {
		return len(in.Labels) == 0 && in.Neighborhood == "UES"
	})).Return(generatedPair, nil)
	o := newOrchestrator(store, &fakeFetcher{}, gen)
	o.Detector = &fakeDetector{err: ErrDetectorDisabled}

	resp, err := o.Run(context.Background(), Request{DealID: "4181", Neighborhood: "UES", ImageURLs: []string{"https://cdn.example.com/4181/5.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, resp.Images[0].Status)
	assert.Equal(t, domain.LabelSet{}, resp.Images[0].Labels)
	gen.AssertExpectations(t)
}

func TestRunGenerationFailureSkipsWrite(t *testing.T) {
	store := newMemoryCRM()
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(domain.DescriptionPair{}, ErrIncompletePair)
	o := newOrchestrator(store, &fakeFetcher{}, gen)

	resp, err := o.Run(context.Background(), Request{DealID: "4181", Neighborhood: "UES", ImageURLs: []string{"https://cdn.example.com/4181/5.jpg"}})
	require.NoError(t, err)
	img := resp.Images[0]
	assert.Equal(t, domain.StatusError, img.Status)
	assert.True(t, img.BytesFetched)
	assert.Empty(t, img.AltText)
	assert.Empty(t, img.TooltipText)
	assert.Empty(t, store.updates)
}

func TestRunWriteBackFailure(t *testing.T) {
	store := newMemoryCRM()
	store.updateErr = errors.New("CRM 返回状态码 500")
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(generatedPair, nil)
	o := newOrchestrator(store, &fakeFetcher{}, gen)

	resp, err := o.Run(context.Background(), Request{DealID: "4181", Neighborhood: "UES", ImageURLs: []string{"https://cdn.example.com/4181/5.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, resp.Images[0].Status)
	assert.Equal(t, generatedPair.AltText, resp.Images[0].AltText)
}

func TestRunFieldMapFailureMarksEveryImage(t *testing.T) {
	store := newMemoryCRM()
	store.fieldsErr = errors.New("unauthorized")
	fetcher := &fakeFetcher{}
	gen := new(mockGenerator)
	o := newOrchestrator(store, fetcher, gen)

	resp, err := o.Run(context.Background(), Request{DealID: "4181", Neighborhood: "UES", ImageURLs: []string{
		"https://cdn.example.com/4181/1.jpg",
		"https://cdn.example.com/4181/2.jpg",
	}})
	require.NoError(t, err)
	require.Len(t, resp.Images, 2)
	for _, img := range resp.Images {
		assert.Equal(t, domain.StatusError, img.Status)
	}
	assert.Equal(t, 1, store.fieldCalls)
	assert.Zero(t, fetcher.calls)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestRunExplicitPictureNumber(t *testing.T) {
	store := newMemoryCRM()
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(generatedPair, nil)
	o := newOrchestrator(store, &fakeFetcher{}, gen)

	resp, err := o.Run(context.Background(), Request{
		DealID:        "4181",
		Neighborhood:  "UES",
		ImageURLs:     []string{"https://cdn.example.com/4181/cover.jpg"},
		PictureNumber: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, resp.Images[0].Status)
	assert.Equal(t, 2, resp.Images[0].PictureNumber)
	assert.Contains(t, store.updates[0], "pic2")
}

func TestRunUninferablePictureNumber(t *testing.T) {
	store := newMemoryCRM()
	fetcher := &fakeFetcher{}
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(generatedPair, nil)
	o := newOrchestrator(store, fetcher, gen)

	resp, err := o.Run(context.Background(), Request{
		DealID:       "4181",
		Neighborhood: "UES",
		ImageURLs:    []string{"https://cdn.example.com/4181/cover.jpg", "https://cdn.example.com/4181/1.jpg"},
		// 多张图片时显式编号不生效
		PictureNumber: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, resp.Images[0].Status)
	assert.Equal(t, domain.StatusProcessed, resp.Images[1].Status)
	assert.Equal(t, 1, resp.Images[1].PictureNumber)
	assert.Equal(t, 1, fetcher.calls)
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateCached.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateFetch.Terminal())
	assert.Equal(t, "cache_check", StateCacheCheck.String())
}

func TestRunConcurrentWithoutLogger(t *testing.T) {
	o := &Orchestrator{}
	req := Request{DealID: "4181", Neighborhood: "UES", ImageURLs: []string{"https://x/1.jpg", "https://x/2.jpg"}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := o.Run(context.Background(), req)
			assert.NoError(t, err)
			assert.Len(t, resp.Images, 2)
		}()
	}
	wg.Wait()
	assert.Nil(t, o.Logger)
}
