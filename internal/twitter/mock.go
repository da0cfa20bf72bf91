package twitter

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"
)

// MockClient is an in-memory Client for tests.
// The timeline is kept newest first; maxID is inclusive like the REST API.
type MockClient struct {
	mu       sync.Mutex
	timeline []Tweet
	friends  []User
	deleted  map[string]bool
	unfollow map[string]bool

	deleteCalls   map[string]int
	timelineCalls int
	inFlight      int
	maxInFlight   int

	// FailDelete, when set, may fail the call-th (zero-based) delete of id.
	FailDelete func(id string, call int) error
	// FailTimeline, when set, may fail the call-th timeline request.
	FailTimeline func(call int) error
	// Delay is slept inside every DestroyTweet.
	Delay time.Duration
}

// NewMockClient creates a mock holding the given tweets in the given order.
func NewMockClient(timeline []Tweet) *MockClient {
	return &MockClient{
		timeline:    slices.Clone(timeline),
		deleted:     make(map[string]bool),
		unfollow:    make(map[string]bool),
		deleteCalls: make(map[string]int),
	}
}

// SetFriends replaces the followed accounts.
func (m *MockClient) SetFriends(users []User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.friends = slices.Clone(users)
}

// UserTimeline implements Client.
func (m *MockClient) UserTimeline(ctx context.Context, maxID string, count int) ([]Tweet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	call := m.timelineCalls
	m.timelineCalls++
	if m.FailTimeline != nil {
		if err := m.FailTimeline(call); err != nil {
			return nil, err
		}
	}

	start := 0
	if maxID != "" {
		start = len(m.timeline)
		for i, t := range m.timeline {
			if !m.deleted[t.ID] && !idGreater(t.ID, maxID) {
				start = i
				break
			}
		}
	}

	page := make([]Tweet, 0, count)
	for _, t := range m.timeline[start:] {
		if len(page) == count {
			break
		}
		if m.deleted[t.ID] {
			continue
		}
		page = append(page, t)
	}
	return page, nil
}

// DestroyTweet implements Client.
func (m *MockClient) DestroyTweet(ctx context.Context, id string) error {
	m.mu.Lock()
	call := m.deleteCalls[id]
	m.deleteCalls[id]++
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if m.FailDelete != nil {
		if err := m.FailDelete(id, call); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleted[id] || !m.exists(id) {
		return &APIError{StatusCode: 404, Details: []ErrorDetail{{Code: CodeNoStatusFound, Message: "No status found with that ID."}}}
	}
	m.deleted[id] = true
	return nil
}

// Friends implements Client. Cursors are decimal offsets; "0" marks the end.
func (m *MockClient) Friends(ctx context.Context, cursor string, count int) (FriendsPage, error) {
	if err := ctx.Err(); err != nil {
		return FriendsPage{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	offset := 0
	if cursor != "" && cursor != "-1" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return FriendsPage{}, fmt.Errorf("bad cursor %q", cursor)
		}
		offset = n
	}

	var active []User
	for _, u := range m.friends {
		if !m.unfollow[u.ID] {
			active = append(active, u)
		}
	}
	if offset > len(active) {
		offset = len(active)
	}
	end := min(offset+count, len(active))

	next := "0"
	if end < len(active) {
		next = strconv.Itoa(end)
	}
	return FriendsPage{Users: slices.Clone(active[offset:end]), NextCursor: next}, nil
}

// DestroyFriendship implements Client.
func (m *MockClient) DestroyFriendship(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unfollow[userID] = true
	return nil
}

// IsDeleted reports whether id was removed through DestroyTweet.
func (m *MockClient) IsDeleted(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleted[id]
}

// MarkDeleted removes id as if it was deleted out of band.
func (m *MockClient) MarkDeleted(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted[id] = true
}

// DeleteCalls returns how many times DestroyTweet was called for id.
func (m *MockClient) DeleteCalls(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteCalls[id]
}

// TotalDeleteCalls returns the number of DestroyTweet calls.
func (m *MockClient) TotalDeleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.deleteCalls {
		total += n
	}
	return total
}

// TimelineCalls returns the number of UserTimeline calls.
func (m *MockClient) TimelineCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timelineCalls
}

// MaxInFlight returns the peak number of concurrent DestroyTweet calls.
func (m *MockClient) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// Unfollowed reports whether userID was unfollowed.
func (m *MockClient) Unfollowed(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unfollow[userID]
}

func (m *MockClient) exists(id string) bool {
	for _, t := range m.timeline {
		if t.ID == id {
			return true
		}
	}
	return false
}

// idGreater compares snowflake-style ids; longer decimal strings are larger.
// Non-numeric ids fall back to lexical order.
func idGreater(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}
