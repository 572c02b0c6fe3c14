package views

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/scholarpress/quire/internal/backend"
	"github.com/scholarpress/quire/internal/config"
	"github.com/scholarpress/quire/model"
)

// Collection listers the provider depends on. The backend services satisfy
// these; tests substitute fixtures.
type (
	ArticleLister interface {
		List(ctx context.Context, rctx *model.RequestContext, filters backend.ListFilters) ([]model.Article, error)
	}
	JournalLister interface {
		List(ctx context.Context, rctx *model.RequestContext, filters backend.ListFilters) ([]model.Journal, error)
	}
	TranslationLister interface {
		List(ctx context.Context, rctx *model.RequestContext, filters backend.ListFilters) ([]model.Translation, error)
	}
	UserLister interface {
		List(ctx context.Context, rctx *model.RequestContext, filters backend.ListFilters) ([]model.User, error)
	}
	TransactionLister interface {
		List(ctx context.Context, rctx *model.RequestContext, filters backend.ListFilters) ([]model.Transaction, error)
	}
)

// Sources bundles the collection listers behind the provider.
type Sources struct {
	Articles     ArticleLister
	Journals     JournalLister
	Translations TranslationLister
	Users        UserLister
	Transactions TransactionLister
}

// Provider serves role-scoped dashboards, caching the raw collections per
// tenant so repeated tab and role switches do not refetch.
type Provider struct {
	sources Sources
	cache   *listCache
	logger  *zap.Logger
}

func NewProvider(sources Sources, cfg config.ViewsConfig, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		sources: sources,
		cache:   newListCache(cfg.Cache.TTL, cfg.Cache.MaxEntries),
		logger:  logger,
	}
}

// Admin returns the journal administrator's dashboard for the current user.
func (p *Provider) Admin(ctx context.Context, rctx *model.RequestContext) (AdminDashboard, error) {
	journals, err := p.journals(ctx, rctx)
	if err != nil {
		return AdminDashboard{}, err
	}
	articles, err := p.articles(ctx, rctx)
	if err != nil {
		return AdminDashboard{}, err
	}
	return AdminView(journals, articles, rctx.SubjectID), nil
}

// Reviewer returns the awaiting-review queue, fast-track first.
func (p *Provider) Reviewer(ctx context.Context, rctx *model.RequestContext) ([]model.Article, error) {
	articles, err := p.articles(ctx, rctx)
	if err != nil {
		return nil, err
	}
	return ReviewerQueue(articles), nil
}

// Author returns the author's own submissions. The listing is scoped by the
// backend, so it is cached per subject rather than per tenant.
func (p *Provider) Author(ctx context.Context, rctx *model.RequestContext) (AuthorDashboard, error) {
	key := rctx.TenantID + ":articles:author:" + rctx.SubjectID
	if cached, hit := p.cache.get(key); hit {
		return AuthorView(cached.([]model.Article)), nil
	}
	articles, err := p.sources.Articles.List(ctx, rctx, backend.ListFilters{AuthorID: rctx.SubjectID})
	if err != nil {
		return AuthorDashboard{}, err
	}
	p.cache.put(key, articles)
	return AuthorView(articles), nil
}

// Finance returns the accountant and super-admin dashboard. Time windows
// truncate to calendar days in the caller's time zone.
func (p *Provider) Finance(ctx context.Context, rctx *model.RequestContext) (FinanceDashboard, error) {
	articles, err := p.articles(ctx, rctx)
	if err != nil {
		return FinanceDashboard{}, err
	}
	translations, err := p.translations(ctx, rctx)
	if err != nil {
		return FinanceDashboard{}, err
	}
	users, err := p.users(ctx, rctx)
	if err != nil {
		return FinanceDashboard{}, err
	}
	transactions, err := p.transactions(ctx, rctx)
	if err != nil {
		return FinanceDashboard{}, err
	}
	return FinanceView(articles, translations, users, transactions, time.Now(), rctx.Location()), nil
}

// Invalidate drops the tenant's cached collections, called after a new
// submission lands.
func (p *Provider) Invalidate(tenantID string) {
	p.cache.invalidate(tenantID + ":")
}

func (p *Provider) articles(ctx context.Context, rctx *model.RequestContext) ([]model.Article, error) {
	key := rctx.TenantID + ":articles"
	if cached, hit := p.cache.get(key); hit {
		return cached.([]model.Article), nil
	}
	articles, err := p.sources.Articles.List(ctx, rctx, backend.ListFilters{})
	if err != nil {
		return nil, err
	}
	p.cache.put(key, articles)
	return articles, nil
}

func (p *Provider) journals(ctx context.Context, rctx *model.RequestContext) ([]model.Journal, error) {
	key := rctx.TenantID + ":journals"
	if cached, hit := p.cache.get(key); hit {
		return cached.([]model.Journal), nil
	}
	journals, err := p.sources.Journals.List(ctx, rctx, backend.ListFilters{})
	if err != nil {
		return nil, err
	}
	p.cache.put(key, journals)
	return journals, nil
}

func (p *Provider) translations(ctx context.Context, rctx *model.RequestContext) ([]model.Translation, error) {
	key := rctx.TenantID + ":translations"
	if cached, hit := p.cache.get(key); hit {
		return cached.([]model.Translation), nil
	}
	translations, err := p.sources.Translations.List(ctx, rctx, backend.ListFilters{})
	if err != nil {
		return nil, err
	}
	p.cache.put(key, translations)
	return translations, nil
}

func (p *Provider) users(ctx context.Context, rctx *model.RequestContext) ([]model.User, error) {
	key := rctx.TenantID + ":users"
	if cached, hit := p.cache.get(key); hit {
		return cached.([]model.User), nil
	}
	users, err := p.sources.Users.List(ctx, rctx, backend.ListFilters{})
	if err != nil {
		return nil, err
	}
	p.cache.put(key, users)
	return users, nil
}

func (p *Provider) transactions(ctx context.Context, rctx *model.RequestContext) ([]model.Transaction, error) {
	key := rctx.TenantID + ":transactions"
	if cached, hit := p.cache.get(key); hit {
		return cached.([]model.Transaction), nil
	}
	transactions, err := p.sources.Transactions.List(ctx, rctx, backend.ListFilters{})
	if err != nil {
		return nil, err
	}
	p.cache.put(key, transactions)
	return transactions, nil
}
