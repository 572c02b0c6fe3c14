package views

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarpress/quire/internal/backend"
	"github.com/scholarpress/quire/internal/config"
	"github.com/scholarpress/quire/model"
)

type fixtureSources struct {
	articles     []model.Article
	journals     []model.Journal
	translations []model.Translation
	users        []model.User
	transactions []model.Transaction

	articleCalls int
	journalCalls int
	lastFilters  backend.ListFilters
}

func (f *fixtureSources) List(ctx context.Context, rctx *model.RequestContext, filters backend.ListFilters) ([]model.Article, error) {
	f.articleCalls++
	f.lastFilters = filters
	return f.articles, nil
}

type journalSource struct{ f *fixtureSources }

func (s journalSource) List(ctx context.Context, rctx *model.RequestContext, filters backend.ListFilters) ([]model.Journal, error) {
	s.f.journalCalls++
	return s.f.journals, nil
}

type translationSource struct{ f *fixtureSources }

func (s translationSource) List(ctx context.Context, rctx *model.RequestContext, filters backend.ListFilters) ([]model.Translation, error) {
	return s.f.translations, nil
}

type userSource struct{ f *fixtureSources }

func (s userSource) List(ctx context.Context, rctx *model.RequestContext, filters backend.ListFilters) ([]model.User, error) {
	return s.f.users, nil
}

type transactionSource struct{ f *fixtureSources }

func (s transactionSource) List(ctx context.Context, rctx *model.RequestContext, filters backend.ListFilters) ([]model.Transaction, error) {
	return s.f.transactions, nil
}

func newTestProvider(f *fixtureSources) *Provider {
	cfg := config.ViewsConfig{Cache: config.CacheConfig{TTL: time.Minute, MaxEntries: 100}}
	return NewProvider(Sources{
		Articles:     f,
		Journals:     journalSource{f},
		Translations: translationSource{f},
		Users:        userSource{f},
		Transactions: transactionSource{f},
	}, cfg, nil)
}

func viewerCtx(subject string) *model.RequestContext {
	return &model.RequestContext{SubjectID: subject, TenantID: "tenant-1"}
}

func TestProvider_adminDashboard(t *testing.T) {
	f := &fixtureSources{
		journals: []model.Journal{{ID: "j-1", AdminID: "u-1"}},
		articles: []model.Article{
			{ID: "a-1", JournalID: "j-1", Status: model.StatusNew},
			{ID: "a-2", JournalID: "j-other", Status: model.StatusNew},
		},
	}
	p := newTestProvider(f)

	dash, err := p.Admin(context.Background(), viewerCtx("u-1"))
	require.NoError(t, err)
	require.Len(t, dash.Journals, 1)
	assert.Equal(t, 1, dash.Tabs[len(dash.Tabs)-1].Count)
}

func TestProvider_cachesCollectionsPerTenant(t *testing.T) {
	f := &fixtureSources{articles: []model.Article{{ID: "a-1", Status: model.StatusInReview}}}
	p := newTestProvider(f)

	rctx := viewerCtx("u-1")
	_, err := p.Reviewer(context.Background(), rctx)
	require.NoError(t, err)
	_, err = p.Reviewer(context.Background(), rctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.articleCalls, "second read must hit the cache")

	// A different tenant misses.
	other := &model.RequestContext{SubjectID: "u-1", TenantID: "tenant-2"}
	_, err = p.Reviewer(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, 2, f.articleCalls)
}

func TestProvider_invalidateDropsTenantEntries(t *testing.T) {
	f := &fixtureSources{articles: []model.Article{{ID: "a-1", Status: model.StatusInReview}}}
	p := newTestProvider(f)

	rctx := viewerCtx("u-1")
	_, err := p.Reviewer(context.Background(), rctx)
	require.NoError(t, err)

	p.Invalidate("tenant-1")
	_, err = p.Reviewer(context.Background(), rctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.articleCalls)
}

func TestProvider_authorScopesBySubject(t *testing.T) {
	f := &fixtureSources{articles: []model.Article{{ID: "a-1", AuthorID: "u-1"}}}
	p := newTestProvider(f)

	dash, err := p.Author(context.Background(), viewerCtx("u-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, dash.Count)
	assert.Equal(t, "u-1", f.lastFilters.AuthorID, "author listing must be scoped at the backend")

	// Cached per subject, not per tenant.
	_, err = p.Author(context.Background(), viewerCtx("u-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.articleCalls)

	_, err = p.Author(context.Background(), viewerCtx("u-2"))
	require.NoError(t, err)
	assert.Equal(t, 2, f.articleCalls)
}

func TestProvider_financeDashboard(t *testing.T) {
	f := &fixtureSources{
		articles:     []model.Article{{ID: "a-1"}},
		translations: []model.Translation{{ID: "tr-1"}, {ID: "tr-2"}},
		users:        []model.User{{ID: "u-1"}},
		transactions: []model.Transaction{
			{Amount: 200000, ServiceType: model.ServiceArticle, Status: model.TxCompleted, CreatedAt: time.Now()},
		},
	}
	p := newTestProvider(f)

	dash, err := p.Finance(context.Background(), viewerCtx("u-acct"))
	require.NoError(t, err)
	assert.Equal(t, 1, dash.ArticleCount)
	assert.Equal(t, 2, dash.TranslationCount)
	assert.Equal(t, 1, dash.UserCount)
	assert.Equal(t, int64(200000), dash.Revenue.Total)
	assert.Equal(t, int64(200000), dash.Revenue.Today)
}

func TestListCache_expiry(t *testing.T) {
	c := newListCache(10*time.Millisecond, 10)
	c.put("k", "v")

	got, hit := c.get("k")
	require.True(t, hit)
	assert.Equal(t, "v", got)

	time.Sleep(15 * time.Millisecond)
	_, hit = c.get("k")
	assert.False(t, hit)
}

func TestListCache_evictsExpiredAtCapacity(t *testing.T) {
	c := newListCache(time.Minute, 2)
	c.put("a", 1)
	c.put("b", 2)
	c.put("c", 3)
	// Nothing expired, so the map simply grows past the soft cap.
	assert.Equal(t, 3, c.size())
}
