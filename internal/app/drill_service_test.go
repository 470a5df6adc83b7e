package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ipormac/internal/address"
	"ipormac/internal/app"
	"ipormac/internal/domain"
	"ipormac/internal/infra/memory"
)

// queueSource hands out tokens in order and repeats the last one.
type queueSource struct {
	queue []domain.GeneratedAddress
}

func (q *queueSource) Generate() domain.GeneratedAddress {
	next := q.queue[0]
	if len(q.queue) > 1 {
		q.queue = q.queue[1:]
	}
	return next
}

func newTestService(source app.QuestionSource, overrides ...domain.Site) *app.DrillService {
	sites := app.NewSites(overrides)
	managers := app.NewManagers(memory.NewScoreStores().Open, sites)
	return app.NewDrillService(memory.NewSessionStore(time.Minute), source, managers, sites)
}

func TestSubmitAnswerScoresAndStreaks(t *testing.T) {
	ctx := context.Background()
	source := &queueSource{queue: []domain.GeneratedAddress{
		{Address: "192.168.1.1", Type: domain.IPv4},
		{Address: "2001:db8::1", Type: domain.IPv6},
		{Address: "AA:BB:CC:DD:EE:GG", Type: domain.None, InvalidType: domain.MAC, InvalidReason: "contains a non-hex character", Defect: "mac-non-hex"},
		{Address: "00-1A-2B-3C-4D-5E", Type: domain.MAC},
	}}
	service := newTestService(source)

	choices := []int{1, 2, 3, 3}
	wantStreaks := []int{1, 2, 0, 1}
	for i, choice := range choices {
		q, err := service.NextQuestion(ctx, "network-addresses")
		if err != nil {
			t.Fatalf("next question: %v", err)
		}
		result, err := service.SubmitAnswer(ctx, "network-addresses", q.ID, choice)
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if result.Streak != wantStreaks[i] {
			t.Fatalf("step %d: expected streak %d, got %d", i, wantStreaks[i], result.Streak)
		}
	}

	stats, err := service.Stats(ctx, "network-addresses")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Overall.TotalAttempts != 4 || stats.Overall.TotalCorrect != 3 || stats.Overall.TotalPoints != 300 {
		t.Fatalf("unexpected overall stats %+v", stats.Overall)
	}
	// The miss is filed under the true label, not the learner's pick.
	if stats.ByType[domain.None].Attempts != 1 || stats.ByType[domain.None].Correct != 0 {
		t.Fatalf("expected one missed none attempt, got %+v", stats.ByType[domain.None])
	}
	if stats.ByType[domain.MAC].Attempts != 1 || stats.Streak != 1 || stats.StreakEmojis != "🔥" {
		t.Fatalf("unexpected snapshot %+v", stats)
	}
}

func TestSubmitAnswerFeedback(t *testing.T) {
	ctx := context.Background()
	service := newTestService(&queueSource{queue: []domain.GeneratedAddress{
		{Address: "10.0.0.300", Type: domain.None, InvalidType: domain.IPv4, InvalidReason: "has an octet greater than 255", Defect: "ipv4-octet-out-of-range"},
	}})

	q, _ := service.NextQuestion(ctx, "")
	result, err := service.SubmitAnswer(ctx, "", q.ID, 4)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Correct || result.Score != 100 || result.MaxScore != 100 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Feedback.Message != "Correct! This is an invalid address. 🎉" {
		t.Fatalf("unexpected message %q", result.Feedback.Message)
	}
	if result.Feedback.Explanation != "This IPv4 has an octet greater than 255." {
		t.Fatalf("unexpected explanation %q", result.Feedback.Explanation)
	}
	if result.Answer.Defect != "ipv4-octet-out-of-range" {
		t.Fatalf("expected the defect to be revealed, got %+v", result.Answer)
	}
}

func TestSubmitAnswerErrors(t *testing.T) {
	ctx := context.Background()
	service := newTestService(&queueSource{queue: []domain.GeneratedAddress{{Address: "::1", Type: domain.IPv6}}})

	if _, err := service.SubmitAnswer(ctx, "network-addresses", "nope", 2); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}

	q, _ := service.NextQuestion(ctx, "network-addresses")
	if _, err := service.SubmitAnswer(ctx, "network-addresses", q.ID, 0); !errors.Is(err, domain.ErrInvalidChoice) {
		t.Fatalf("expected invalid choice, got %v", err)
	}
	// An invalid choice does not consume the question.
	if _, err := service.SubmitAnswer(ctx, "network-addresses", q.ID, 2); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := service.SubmitAnswer(ctx, "network-addresses", q.ID, 2); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected answered question to be gone, got %v", err)
	}
}

func TestPendingQuestionsExpire(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	session := app.NewSessionWithClock("network-addresses", time.Minute, func() time.Time { return now })
	if !session.IsEmpty() || session.Pending() != 0 {
		t.Fatalf("expected new session empty")
	}

	sessions := &fixedSessions{session: session}
	sites := app.NewSites(nil)
	service := app.NewDrillService(sessions, &queueSource{queue: []domain.GeneratedAddress{{Address: "1.2.3.4", Type: domain.IPv4}}},
		app.NewManagers(memory.NewScoreStores().Open, sites), sites)

	ctx := context.Background()
	q, _ := service.NextQuestion(ctx, "network-addresses")
	if session.Pending() != 1 {
		t.Fatalf("expected one pending question")
	}
	now = now.Add(2 * time.Minute)
	if _, err := service.SubmitAnswer(ctx, "network-addresses", q.ID, 1); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected expired question rejected, got %v", err)
	}
}

func TestResetClearsHistoryAndPending(t *testing.T) {
	ctx := context.Background()
	service := newTestService(&queueSource{queue: []domain.GeneratedAddress{{Address: "1.2.3.4", Type: domain.IPv4}}})

	q1, _ := service.NextQuestion(ctx, "network-addresses")
	_, _ = service.SubmitAnswer(ctx, "network-addresses", q1.ID, 1)
	q2, _ := service.NextQuestion(ctx, "network-addresses")

	if err := service.Reset(ctx, "network-addresses"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	stats, _ := service.Stats(ctx, "network-addresses")
	if stats.Overall.TotalAttempts != 0 || stats.Streak != 0 || stats.Overall.Level.Title != "Duck Egg" {
		t.Fatalf("expected cleared stats, got %+v", stats)
	}
	if _, err := service.SubmitAnswer(ctx, "network-addresses", q2.ID, 1); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected pending question dropped by reset, got %v", err)
	}
}

func TestSubscribeReceivesStats(t *testing.T) {
	ctx := context.Background()
	service := newTestService(&queueSource{queue: []domain.GeneratedAddress{{Address: "00:1A:2B:3C:4D:5E", Type: domain.MAC}}})

	ch, cancel, err := service.Subscribe(ctx, "network-addresses")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if initial := <-ch; initial.Overall.TotalAttempts != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", initial.Overall)
	}

	q, _ := service.NextQuestion(ctx, "network-addresses")
	if _, err := service.SubmitAnswer(ctx, "network-addresses", q.ID, 3); err != nil {
		t.Fatalf("submit: %v", err)
	}
	update := <-ch
	if update.Overall.TotalAttempts != 1 || update.ByType[domain.MAC].Correct != 1 || update.Streak != 1 {
		t.Fatalf("unexpected update %+v", update)
	}

	_ = service.Reset(ctx, "network-addresses")
	if afterReset := <-ch; afterReset.Overall.TotalAttempts != 0 {
		t.Fatalf("expected reset snapshot, got %+v", afterReset.Overall)
	}
}

func TestSitesKeepSeparateHistories(t *testing.T) {
	ctx := context.Background()
	service := newTestService(
		&queueSource{queue: []domain.GeneratedAddress{{Address: "1.2.3.4", Type: domain.IPv4}}},
		domain.Site{Key: "number-systems", Title: "Number Systems", MaxPoints: 10, CorrectPoints: 10},
	)

	q, _ := service.NextQuestion(ctx, "number-systems")
	result, err := service.SubmitAnswer(ctx, "number-systems", q.ID, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 10 || result.MaxScore != 10 {
		t.Fatalf("expected site scoring 10/10, got %d/%d", result.Score, result.MaxScore)
	}

	other, _ := service.Stats(ctx, "network-addresses")
	if other.Overall.TotalAttempts != 0 {
		t.Fatalf("expected default site untouched, got %+v", other.Overall)
	}
	if service.Site("number-systems").Title != "Number Systems" || service.Site("missing").Key != domain.DefaultSiteKey {
		t.Fatalf("unexpected site lookup")
	}
}

func TestDrillWithSeededGenerator(t *testing.T) {
	ctx := context.Background()
	service := newTestService(address.NewSeededGenerator(7))

	for i := 0; i < 50; i++ {
		q, err := service.NextQuestion(ctx, "network-addresses")
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		choice := 4
		switch address.Classify(q.Address) {
		case domain.IPv4:
			choice = 1
		case domain.IPv6:
			choice = 2
		case domain.MAC:
			choice = 3
		}
		result, err := service.SubmitAnswer(ctx, "network-addresses", q.ID, choice)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if !result.Correct {
			t.Fatalf("classifier disagreed with the label for %q: %+v", q.Address, result.Answer)
		}
	}
	stats, _ := service.Stats(ctx, "network-addresses")
	if stats.Overall.Accuracy != 100 || stats.Streak != 50 {
		t.Fatalf("expected a perfect run, got %+v", stats.Overall)
	}
}

type fixedSessions struct {
	session *app.Session
}

func (f *fixedSessions) WithSession(_ string, fn func(*app.Session)) { fn(f.session) }

func (f *fixedSessions) Get(string) (*app.Session, bool) { return f.session, true }

func (f *fixedSessions) DeleteIfEmpty(string) {}

// failingStore wraps a memory store and fails the first failAll reads and the
// first failAppends writes.
type failingStore struct {
	*memory.ScoreStore

	mu          sync.Mutex
	failAll     int
	failAppends int
}

func (f *failingStore) All(ctx context.Context) ([]domain.Attempt, error) {
	f.mu.Lock()
	fail := f.failAll > 0
	if fail {
		f.failAll--
	}
	f.mu.Unlock()
	if fail {
		return nil, errors.New("connection refused")
	}
	return f.ScoreStore.All(ctx)
}

func (f *failingStore) Append(ctx context.Context, a domain.Attempt) error {
	f.mu.Lock()
	fail := f.failAppends > 0
	if fail {
		f.failAppends--
	}
	f.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}
	return f.ScoreStore.Append(ctx, a)
}

func TestSubmitAnswerKeepsQuestionWhenAppendFails(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{ScoreStore: memory.NewScoreStore(), failAppends: 1}
	sites := app.NewSites(nil)
	managers := app.NewManagers(func(string) (app.ScoreStore, error) { return store, nil }, sites)
	service := app.NewDrillService(memory.NewSessionStore(time.Minute),
		&queueSource{queue: []domain.GeneratedAddress{{Address: "1.2.3.4", Type: domain.IPv4}}}, managers, sites)

	q, _ := service.NextQuestion(ctx, "network-addresses")
	if _, err := service.SubmitAnswer(ctx, "network-addresses", q.ID, 1); err == nil {
		t.Fatalf("expected the failed append to be reported")
	}
	result, err := service.SubmitAnswer(ctx, "network-addresses", q.ID, 1)
	if err != nil {
		t.Fatalf("expected the question to survive a failed append, got %v", err)
	}
	if !result.Correct || result.Stats.TotalAttempts != 1 || result.Streak != 1 {
		t.Fatalf("unexpected result after retry %+v", result)
	}
	if _, err := service.SubmitAnswer(ctx, "network-addresses", q.ID, 1); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected the question consumed after success, got %v", err)
	}
}

func TestManagersRetryAfterLoadFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{ScoreStore: memory.NewScoreStore(), failAll: 1}
	for i := 0; i < 3; i++ {
		_ = store.ScoreStore.Append(ctx, domain.Attempt{ID: fmt.Sprintf("a%d", i), Score: 100, MaxScore: 100, Type: domain.IPv4})
	}
	_ = store.ScoreStore.SetStreak(ctx, 3)

	sites := app.NewSites(nil)
	managers := app.NewManagers(func(string) (app.ScoreStore, error) { return store, nil }, sites)

	if _, err := managers.Get(ctx, "network-addresses"); err == nil {
		t.Fatalf("expected the unreadable store to be reported")
	}
	manager, err := managers.Get(ctx, "network-addresses")
	if err != nil {
		t.Fatalf("expected the second load to succeed, got %v", err)
	}
	if _, err := manager.RecordScore(ctx, "q4", 100, 100, domain.IPv4, "1.2.3.4"); err != nil {
		t.Fatalf("record: %v", err)
	}
	persisted, _ := store.ScoreStore.All(ctx)
	if got := manager.OverallStats().TotalAttempts; got != 4 || len(persisted) != 4 {
		t.Fatalf("expected memory and store to agree on 4 attempts, got %d and %d", got, len(persisted))
	}
	if manager.Streak() != 3 {
		t.Fatalf("expected persisted streak 3, got %d", manager.Streak())
	}
}

func TestConcurrentAnswersNeverLoseQuestions(t *testing.T) {
	ctx := context.Background()
	sites := app.NewSites(nil)
	service := app.NewDrillService(memory.NewSessionStore(time.Minute),
		address.NewSeededGenerator(3), app.NewManagers(memory.NewScoreStores().Open, sites), sites)

	const workers, rounds = 8, 200
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				q, err := service.NextQuestion(ctx, "network-addresses")
				if err != nil {
					errs <- err
					return
				}
				if _, err := service.SubmitAnswer(ctx, "network-addresses", q.ID, 4); err != nil {
					errs <- fmt.Errorf("question %s: %w", q.ID, err)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent drill lost a question: %v", err)
	}

	stats, _ := service.Stats(ctx, "network-addresses")
	if stats.Overall.TotalAttempts != workers*rounds {
		t.Fatalf("expected %d attempts, got %d", workers*rounds, stats.Overall.TotalAttempts)
	}
}
