package feed

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/recruitfeed/internal/model"
	"github.com/hitoshi/recruitfeed/internal/repository"
)

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

// fakeStore はテスト用のインメモリPostReader兼PendingCounter。
// 論理削除とリレーション条件はPostgres実装と同じ規則で評価する。
type fakeStore struct {
	mu           sync.Mutex
	posts        []model.Post
	applications []model.Application
	favorites    []model.Favorite

	readCalls  int
	countCalls int
	readErr    error
	countErr   error
	pendingErr error
	filters    []repository.PostFilter
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (s *fakeStore) addPost(id, owner string, status model.PostStatus, deadline, createdAt time.Time) *fakeStore {
	s.posts = append(s.posts, model.Post{
		ID:             id,
		OwnerProfileID: owner,
		Title:          "title-" + id,
		Deadline:       deadline,
		Status:         status,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	})
	return s
}

func (s *fakeStore) softDeletePost(id string) {
	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts[i].IsDeleted = true
		}
	}
}

func (s *fakeStore) addApplication(id, postID, applicant string, status model.ApplicationStatus, createdAt time.Time) *fakeStore {
	s.applications = append(s.applications, model.Application{
		ID:                 id,
		PostID:             postID,
		ApplicantProfileID: applicant,
		Message:            "message-" + id,
		Status:             status,
		CreatedAt:          createdAt,
	})
	return s
}

func (s *fakeStore) softDeleteApplication(id string) {
	for i := range s.applications {
		if s.applications[i].ID == id {
			s.applications[i].IsDeleted = true
		}
	}
}

func (s *fakeStore) addFavorite(id, postID, profile string, createdAt time.Time) *fakeStore {
	s.favorites = append(s.favorites, model.Favorite{
		ID:        id,
		PostID:    postID,
		ProfileID: profile,
		CreatedAt: createdAt,
	})
	return s
}

func (s *fakeStore) findPost(id string) *model.Post {
	for i := range s.posts {
		if s.posts[i].ID == id {
			return &s.posts[i]
		}
	}
	return nil
}

func (s *fakeStore) visiblePost(id string, f repository.PostFilter) *model.Post {
	p := s.findPost(id)
	if p == nil || p.IsDeleted || !matchesPost(f, p) {
		return nil
	}
	return p
}

func (s *fakeStore) match(f repository.PostFilter) []model.FeedRow {
	var rows []model.FeedRow
	switch f.FeedType {
	case model.FeedTypeGlobal, model.FeedTypeAuthored:
		for i := range s.posts {
			p := &s.posts[i]
			if f.FeedType == model.FeedTypeAuthored && p.OwnerProfileID != f.ProfileID {
				continue
			}
			if p.IsDeleted || !matchesPost(f, p) {
				continue
			}
			rows = append(rows, model.FeedRow{Post: *p})
		}
	case model.FeedTypeApplied:
		for i := range s.applications {
			a := s.applications[i]
			if a.IsDeleted || a.ApplicantProfileID != f.ProfileID {
				continue
			}
			if p := s.visiblePost(a.PostID, f); p != nil {
				rows = append(rows, model.FeedRow{Post: *p, Application: &a})
			}
		}
	case model.FeedTypeFavorited:
		for i := range s.favorites {
			fav := s.favorites[i]
			if fav.IsDeleted || fav.ProfileID != f.ProfileID {
				continue
			}
			if p := s.visiblePost(fav.PostID, f); p != nil {
				rows = append(rows, model.FeedRow{Post: *p, Favorite: &fav})
			}
		}
	}
	return rows
}

func (s *fakeStore) ReadPosts(_ context.Context, f repository.PostFilter, order model.SortOrder, rng *repository.Range) ([]model.FeedRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readCalls++
	s.filters = append(s.filters, f)
	if s.readErr != nil {
		return nil, s.readErr
	}

	rows := s.match(f)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if order == model.SortDeadline {
			if !a.Post.Deadline.Equal(b.Post.Deadline) {
				return a.Post.Deadline.Before(b.Post.Deadline)
			}
		} else if !a.SortTime().Equal(b.SortTime()) {
			return a.SortTime().After(b.SortTime())
		}
		return a.RowID() > b.RowID()
	})

	if rng != nil {
		if rng.Offset >= len(rows) {
			return []model.FeedRow{}, nil
		}
		end := rng.Offset + rng.Limit
		if end > len(rows) {
			end = len(rows)
		}
		rows = rows[rng.Offset:end]
	}
	return rows, nil
}

func (s *fakeStore) CountPosts(_ context.Context, f repository.PostFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.countCalls++
	if s.countErr != nil {
		return 0, s.countErr
	}
	return len(s.match(f)), nil
}

func (s *fakeStore) CountPendingByPostIDs(_ context.Context, postIDs []string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingErr != nil {
		return nil, s.pendingErr
	}
	want := make(map[string]bool, len(postIDs))
	for _, id := range postIDs {
		want[id] = true
	}
	counts := make(map[string]int)
	for _, a := range s.applications {
		if want[a.PostID] && !a.IsDeleted && a.Status == model.ApplicationStatusPending {
			counts[a.PostID]++
		}
	}
	return counts, nil
}

// fakeProfiles はテスト用のProfileRepository。
type fakeProfiles struct {
	byID map[string]*model.Profile
	err  error
}

func newFakeProfiles(profiles ...*model.Profile) *fakeProfiles {
	f := &fakeProfiles{byID: make(map[string]*model.Profile)}
	for _, p := range profiles {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakeProfiles) FindByID(_ context.Context, id string) (*model.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byID[id], nil
}

func (f *fakeProfiles) FindByUserID(_ context.Context, userID string) (*model.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.byID {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, nil
}

// mockMetrics はテスト用のMetricsCollector。
type mockMetrics struct {
	mu                sync.Mutex
	applicantFailures int
	feedRequests      map[string]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{feedRequests: make(map[string]int)}
}

func (m *mockMetrics) RecordFeedRequest(feedType, bucket string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedRequests[feedType+"/"+bucket]++
}

func (m *mockMetrics) RecordFeedLatency(string, time.Duration) {}

func (m *mockMetrics) RecordApplicantCountFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applicantFailures++
}

func (m *mockMetrics) RecordWriteOperation(string, string) {}
func (m *mockMetrics) RecordHTTPStatus(int) {}
func (m *mockMetrics) RecordSessionsCleaned(int64) {}

var errStoreDown = errors.New("connection refused")

func rowIDs(rows []model.FeedRow) []string {
	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].Post.ID
	}
	return ids
}
