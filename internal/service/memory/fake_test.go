package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sandevgo/stridemem/internal/core"
)

// fakeStore keeps insights, summaries and messages in memory.
type fakeStore struct {
	mu        sync.Mutex
	insights  map[string]core.Insight
	order     []string
	summaries []core.ConversationSummary
	messages  []core.StoredMessage
	nextMsgID int64

	candidateCalls int
	pruneCalls     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{insights: make(map[string]core.Insight)}
}

func (f *fakeStore) InsertInsight(ctx context.Context, ins core.Insight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insights[ins.ID] = ins
	f.order = append(f.order, ins.ID)
	return nil
}

func (f *fakeStore) UpdateInsight(ctx context.Context, ins core.Insight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.insights[ins.ID]
	if !ok {
		return core.ErrNotFound
	}
	if cur.Version != ins.Version {
		return core.ErrVersionConflict
	}
	ins.Version++
	f.insights[ins.ID] = ins
	return nil
}

func (f *fakeStore) ListActiveInsights(ctx context.Context, subjectID string, category core.Category) ([]core.Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Insight
	for _, id := range f.order {
		ins := f.insights[id]
		if ins.SubjectID != subjectID || !ins.Active {
			continue
		}
		if category != "" && ins.Category != category {
			continue
		}
		out = append(out, ins)
	}
	return out, nil
}

func (f *fakeStore) ListCandidateInsights(ctx context.Context, subjectID string, now time.Time, limit int) ([]core.Insight, error) {
	all, _ := f.ListActiveInsights(ctx, subjectID, "")
	f.mu.Lock()
	f.candidateCalls++
	f.mu.Unlock()

	var out []core.Insight
	for _, ins := range all {
		if !ins.Expired(now) {
			out = append(out, ins)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].LastValidated.After(out[j].LastValidated)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) DeactivateInsight(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ins, ok := f.insights[id]
	if !ok {
		return core.ErrNotFound
	}
	ins.Active = false
	f.insights[id] = ins
	return nil
}

func (f *fakeStore) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, ins := range f.insights {
		if ins.Active && ins.Expired(now) {
			ins.Active = false
			f.insights[id] = ins
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) DeleteInsight(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.insights, id)
	return nil
}

func (f *fakeStore) UpsertSummary(ctx context.Context, s core.ConversationSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, cur := range f.summaries {
		if cur.SubjectID == s.SubjectID && cur.Date == s.Date {
			s.ID = cur.ID
			f.summaries[i] = s
			return nil
		}
	}
	s.ID = int64(len(f.summaries) + 1)
	f.summaries = append(f.summaries, s)
	return nil
}

func (f *fakeStore) ListSummaries(ctx context.Context, subjectID string, limit int) ([]core.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.ConversationSummary
	for i := len(f.summaries) - 1; i >= 0 && len(out) < limit; i-- {
		if f.summaries[i].SubjectID == subjectID {
			out = append(out, f.summaries[i])
		}
	}
	return out, nil
}

func (f *fakeStore) PruneSummaries(ctx context.Context, subjectID string, keep int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruneCalls++
	var kept []core.ConversationSummary
	var n int64
	seen := 0
	for i := len(f.summaries) - 1; i >= 0; i-- {
		s := f.summaries[i]
		if s.SubjectID == subjectID {
			seen++
			if seen > keep {
				n++
				continue
			}
		}
		kept = append([]core.ConversationSummary{s}, kept...)
	}
	f.summaries = kept
	return n, nil
}

func (f *fakeStore) ListSubjects(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, s := range f.summaries {
		if _, ok := seen[s.SubjectID]; !ok {
			seen[s.SubjectID] = struct{}{}
			out = append(out, s.SubjectID)
		}
	}
	return out, nil
}

func (f *fakeStore) AddMessage(ctx context.Context, subjectID string, msg core.Message) error {
	f.addMessageAt(subjectID, msg, time.Now())
	return nil
}

func (f *fakeStore) addMessageAt(subjectID string, msg core.Message, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMsgID++
	f.messages = append(f.messages, core.StoredMessage{
		ID:        f.nextMsgID,
		SubjectID: subjectID,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: at,
	})
}

func (f *fakeStore) GetMessages(ctx context.Context, subjectID string, limit int) ([]core.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Message
	for _, m := range f.messages {
		if m.SubjectID == subjectID {
			out = append(out, core.Message{Role: m.Role, Content: m.Content})
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeStore) GetUnextractedMessages(ctx context.Context, limit int) ([]core.StoredMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.StoredMessage
	for _, m := range f.messages {
		if !m.Extracted && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) ListPendingSubjects(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, m := range f.messages {
		if !m.Extracted && !seen[m.SubjectID] {
			seen[m.SubjectID] = true
			out = append(out, m.SubjectID)
		}
	}
	return out, nil
}

func (f *fakeStore) GetSubjectUnextracted(ctx context.Context, subjectID string, afterID int64, limit int) ([]core.StoredMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.StoredMessage
	for _, m := range f.messages {
		if m.SubjectID == subjectID && !m.Extracted && m.ID > afterID && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkMessagesExtracted(ctx context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	marked := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		marked[id] = struct{}{}
	}
	for i := range f.messages {
		if _, ok := marked[f.messages[i].ID]; ok {
			f.messages[i].Extracted = true
		}
	}
	return nil
}

func (f *fakeStore) active(subjectID string) []core.Insight {
	out, _ := f.ListActiveInsights(context.Background(), subjectID, "")
	return out
}

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestEngine(store *fakeStore, clock *fixedClock, opts ...Option) *Engine {
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewEngine(store, store, opts...)
}

func userMsg(content string) core.Message {
	return core.Message{Role: core.RoleUser, Content: content}
}
