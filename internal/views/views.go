// Package views derives role-scoped dashboard projections from raw backend
// collections. Every projection is a pure function over its inputs: source
// slices are never mutated, and the same inputs always produce the same
// view, so the provider can cache the raw collections and recompute cheaply.
package views

import (
	"sort"
	"time"

	"github.com/scholarpress/quire/model"
)

// Tab names for the journal administrator's article buckets.
const (
	TabNew            = "New"
	TabWithEditor     = "WithEditor"
	TabInReview       = "InReview"
	TabReadyToPublish = "ReadyToPublish"
	TabPublished      = "Published"
	TabAll            = "All"
)

// TabOrder is the display order of the admin tabs.
var TabOrder = []string{TabNew, TabWithEditor, TabInReview, TabReadyToPublish, TabPublished, TabAll}

var tabStatus = map[string]model.ArticleStatus{
	TabNew:            model.StatusNew,
	TabWithEditor:     model.StatusWithEditor,
	TabInReview:       model.StatusInReview,
	TabReadyToPublish: model.StatusReadyToPublish,
	TabPublished:      model.StatusPublished,
}

// Tab is one status bucket of the admin dashboard.
type Tab struct {
	Name     string          `json:"name"`
	Count    int             `json:"count"`
	Articles []model.Article `json:"articles"`
}

// AdminDashboard is the journal administrator's view: the journals they
// manage and their articles bucketed by status.
type AdminDashboard struct {
	Journals []model.Journal `json:"journals"`
	Tabs     []Tab           `json:"tabs"`
}

// ManagedJournals filters journals to those administered by the given user.
// The admin reference already went through the normalization boundary, so a
// single AdminID comparison covers all backend field spellings.
func ManagedJournals(journals []model.Journal, adminID string) []model.Journal {
	managed := make([]model.Journal, 0)
	for _, j := range journals {
		if j.AdminID != "" && j.AdminID == adminID {
			managed = append(managed, j)
		}
	}
	return managed
}

// AdminView computes the administrator dashboard: articles belonging to the
// user's managed journals, bucketed into the status tabs plus an All tab.
func AdminView(journals []model.Journal, articles []model.Article, adminID string) AdminDashboard {
	managed := ManagedJournals(journals, adminID)

	managedIDs := make(map[string]bool, len(managed))
	for _, j := range managed {
		managedIDs[j.ID] = true
	}

	scoped := make([]model.Article, 0)
	for _, a := range articles {
		if managedIDs[a.JournalID] {
			scoped = append(scoped, a)
		}
	}

	tabs := make([]Tab, 0, len(TabOrder))
	for _, name := range TabOrder {
		if name == TabAll {
			tabs = append(tabs, Tab{Name: name, Count: len(scoped), Articles: scoped})
			continue
		}
		status := tabStatus[name]
		bucket := make([]model.Article, 0)
		for _, a := range scoped {
			if a.Status == status {
				bucket = append(bucket, a)
			}
		}
		tabs = append(tabs, Tab{Name: name, Count: len(bucket), Articles: bucket})
	}

	return AdminDashboard{Journals: managed, Tabs: tabs}
}

// reviewerStatuses is the fixed "awaiting review" subset shown in the
// reviewer queue.
var reviewerStatuses = map[model.ArticleStatus]bool{
	model.StatusWithEditor: true,
	model.StatusInReview:   true,
}

// ReviewerQueue filters articles to the awaiting-review subset with
// fast-track items ranked first. The sort is stable, so within each group
// the backend's insertion order is preserved.
func ReviewerQueue(articles []model.Article) []model.Article {
	queue := make([]model.Article, 0)
	for _, a := range articles {
		if reviewerStatuses[a.Status] {
			queue = append(queue, a)
		}
	}
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].FastTrack && !queue[j].FastTrack
	})
	return queue
}

// AuthorDashboard is the author's view. The backend already scopes the
// listing by ownership, so no further filtering happens here.
type AuthorDashboard struct {
	Articles []model.Article `json:"articles"`
	Count    int             `json:"count"`
}

func AuthorView(articles []model.Article) AuthorDashboard {
	return AuthorDashboard{Articles: articles, Count: len(articles)}
}

// RevenueReport aggregates completed transactions for accountants and
// super admins.
type RevenueReport struct {
	Total         int64                       `json:"total"`
	ByServiceType map[model.ServiceType]int64 `json:"by_service_type"`
	Today         int64                       `json:"today"`
	Last7Days     int64                       `json:"last_7_days"`

	TransactionCount int `json:"transaction_count"`
	CompletedCount   int `json:"completed_count"`
}

// Revenue sums completed transactions grouped by service type, plus the
// today and last-7-days windows. Windows truncate to calendar days in the
// given location, so "today" starts at local midnight and "last 7 days"
// covers the six preceding days plus today.
func Revenue(transactions []model.Transaction, now time.Time, loc *time.Location) RevenueReport {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	todayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	weekStart := todayStart.AddDate(0, 0, -6)

	report := RevenueReport{
		ByServiceType:    make(map[model.ServiceType]int64),
		TransactionCount: len(transactions),
	}

	for _, tx := range transactions {
		if tx.Status != model.TxCompleted {
			continue
		}
		report.CompletedCount++
		report.Total += tx.Amount
		report.ByServiceType[tx.ServiceType] += tx.Amount

		created := tx.CreatedAt.In(loc)
		if !created.Before(todayStart) {
			report.Today += tx.Amount
		}
		if !created.Before(weekStart) {
			report.Last7Days += tx.Amount
		}
	}
	return report
}

// FinanceDashboard is the accountant and super-admin view: global counts
// plus the revenue aggregates.
type FinanceDashboard struct {
	ArticleCount     int           `json:"article_count"`
	TranslationCount int           `json:"translation_count"`
	UserCount        int           `json:"user_count"`
	Revenue          RevenueReport `json:"revenue"`
}

func FinanceView(articles []model.Article, translations []model.Translation, users []model.User, transactions []model.Transaction, now time.Time, loc *time.Location) FinanceDashboard {
	return FinanceDashboard{
		ArticleCount:     len(articles),
		TranslationCount: len(translations),
		UserCount:        len(users),
		Revenue:          Revenue(transactions, now, loc),
	}
}
