package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarpress/quire/model"
)

func TestManagedJournals(t *testing.T) {
	journals := []model.Journal{
		{ID: "j-1", AdminID: "u-1"},
		{ID: "j-2", AdminID: "u-2"},
		{ID: "j-3", AdminID: "u-1"},
		{ID: "j-4", AdminID: ""},
	}

	managed := ManagedJournals(journals, "u-1")
	require.Len(t, managed, 2)
	assert.Equal(t, "j-1", managed[0].ID)
	assert.Equal(t, "j-3", managed[1].ID)

	assert.Empty(t, ManagedJournals(journals, "u-9"))
	assert.Empty(t, ManagedJournals(journals, ""), "empty admin id must never match unowned journals")
}

func TestAdminView_bucketsByStatus(t *testing.T) {
	journals := []model.Journal{
		{ID: "j-1", AdminID: "u-1"},
		{ID: "j-2", AdminID: "u-2"},
	}
	articles := []model.Article{
		{ID: "a-1", JournalID: "j-1", Status: model.StatusNew},
		{ID: "a-2", JournalID: "j-1", Status: model.StatusInReview},
		{ID: "a-3", JournalID: "j-2", Status: model.StatusNew},
		{ID: "a-4", JournalID: "j-1", Status: model.StatusPublished},
		{ID: "a-5", JournalID: "j-1", Status: model.StatusInReview},
	}

	dash := AdminView(journals, articles, "u-1")
	require.Len(t, dash.Journals, 1)

	byName := make(map[string]Tab)
	for _, tab := range dash.Tabs {
		byName[tab.Name] = tab
	}

	assert.Equal(t, 1, byName[TabNew].Count)
	assert.Equal(t, 2, byName[TabInReview].Count)
	assert.Equal(t, 0, byName[TabWithEditor].Count)
	assert.Equal(t, 0, byName[TabReadyToPublish].Count)
	assert.Equal(t, 1, byName[TabPublished].Count)
	assert.Equal(t, 4, byName[TabAll].Count, "articles of other admins' journals are excluded")

	// Input slices stay untouched.
	assert.Len(t, articles, 5)
	assert.Equal(t, "j-2", journals[1].ID)
}

func TestAdminView_tabOrderIsStable(t *testing.T) {
	dash := AdminView(nil, nil, "u-1")
	require.Len(t, dash.Tabs, len(TabOrder))
	for i, tab := range dash.Tabs {
		assert.Equal(t, TabOrder[i], tab.Name)
	}
}

func TestReviewerQueue_fastTrackFirstStableOrder(t *testing.T) {
	articles := []model.Article{
		{ID: "a-1", Status: model.StatusInReview},
		{ID: "a-2", Status: model.StatusPublished, FastTrack: true},
		{ID: "a-3", Status: model.StatusInReview, FastTrack: true},
		{ID: "a-4", Status: model.StatusWithEditor},
		{ID: "a-5", Status: model.StatusWithEditor, FastTrack: true},
		{ID: "a-6", Status: model.StatusInReview},
	}

	queue := ReviewerQueue(articles)
	ids := make([]string, len(queue))
	for i, a := range queue {
		ids[i] = a.ID
	}

	// Fast-track items first in insertion order, then the rest in insertion
	// order. Published items never enter the queue.
	assert.Equal(t, []string{"a-3", "a-5", "a-1", "a-4", "a-6"}, ids)
}

func TestRevenue_aggregatesCompletedOnly(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	transactions := []model.Transaction{
		{Amount: 200000, ServiceType: model.ServiceArticle, Status: model.TxCompleted, CreatedAt: now.Add(-time.Hour)},
		{Amount: 500000, ServiceType: model.ServiceWriting, Status: model.TxCompleted, CreatedAt: now.AddDate(0, 0, -3)},
		{Amount: 300000, ServiceType: model.ServiceArticle, Status: model.TxCompleted, CreatedAt: now.AddDate(0, 0, -30)},
		{Amount: 999999, ServiceType: model.ServiceArticle, Status: model.TxPending, CreatedAt: now},
		{Amount: 111111, ServiceType: model.ServiceBook, Status: model.TxFailed, CreatedAt: now},
	}

	report := Revenue(transactions, now, time.UTC)

	assert.Equal(t, int64(1000000), report.Total)
	assert.Equal(t, int64(500000), report.ByServiceType[model.ServiceArticle])
	assert.Equal(t, int64(500000), report.ByServiceType[model.ServiceWriting])
	assert.NotContains(t, report.ByServiceType, model.ServiceBook)
	assert.Equal(t, int64(200000), report.Today)
	assert.Equal(t, int64(700000), report.Last7Days)
	assert.Equal(t, 5, report.TransactionCount)
	assert.Equal(t, 3, report.CompletedCount)
}

func TestRevenue_calendarDayTruncationInLocalTime(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tashkent")
	require.NoError(t, err)

	// 01:00 local on March 10th is still March 9th in UTC.
	now := time.Date(2026, 3, 10, 1, 0, 0, 0, loc)
	transactions := []model.Transaction{
		// 00:30 local the same day: inside "today" despite being "yesterday" in UTC.
		{Amount: 100, Status: model.TxCompleted, CreatedAt: time.Date(2026, 3, 10, 0, 30, 0, 0, loc)},
		// 23:30 local the previous day: outside "today".
		{Amount: 200, Status: model.TxCompleted, CreatedAt: time.Date(2026, 3, 9, 23, 30, 0, 0, loc)},
	}

	report := Revenue(transactions, now, loc)
	assert.Equal(t, int64(100), report.Today)
	assert.Equal(t, int64(300), report.Last7Days)
}

func TestAuthorView(t *testing.T) {
	articles := []model.Article{{ID: "a-1"}, {ID: "a-2"}}
	dash := AuthorView(articles)
	assert.Equal(t, 2, dash.Count)
	assert.Equal(t, articles, dash.Articles)
}
