package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ipormac/internal/domain"
	"ipormac/internal/monitoring"
)

// SessionRepository abstracts where per-site drill sessions live.
// WithSession and DeleteIfEmpty must be serialized so a session is never
// dropped while fn is adding to it.
type SessionRepository interface {
	WithSession(siteKey string, fn func(*Session))
	Get(siteKey string) (*Session, bool)
	DeleteIfEmpty(siteKey string)
}

// QuestionSource produces labelled tokens; *address.Generator satisfies it.
type QuestionSource interface {
	Generate() domain.GeneratedAddress
}

// DrillService contains the drill use cases: issue a question, score an answer, report progress.
type DrillService struct {
	sessions  SessionRepository
	questions QuestionSource
	managers  *Managers
	sites     *Sites
	metrics   *monitoring.Metrics
	now       func() time.Time
}

// DrillOption configures a DrillService.
type DrillOption func(*DrillService)

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *monitoring.Metrics) DrillOption {
	return func(s *DrillService) { s.metrics = m }
}

// WithDrillClock overrides the question timestamp source.
func WithDrillClock(now func() time.Time) DrillOption {
	return func(s *DrillService) { s.now = now }
}

func NewDrillService(sessions SessionRepository, questions QuestionSource, managers *Managers, sites *Sites, opts ...DrillOption) *DrillService {
	s := &DrillService{
		sessions:  sessions,
		questions: questions,
		managers:  managers,
		sites:     sites,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Site resolves a site key against the catalogue.
func (s *DrillService) Site(siteKey string) domain.Site {
	return s.sites.Lookup(siteKey)
}

// NextQuestion generates a token and holds its label until it is answered or expires.
func (s *DrillService) NextQuestion(_ context.Context, siteKey string) (domain.Question, error) {
	key := s.sites.Lookup(siteKey).Key
	generated := s.questions.Generate()
	q := domain.Question{
		ID:       uuid.NewString(),
		SiteKey:  key,
		Address:  generated.Address,
		IssuedAt: s.now(),
	}
	s.sessions.WithSession(key, func(session *Session) {
		session.issue(q.ID, generated)
	})
	s.metrics.ObserveQuestion(string(generated.Type))
	return q, nil
}

// SubmitAnswer scores choice against a pending question, records the attempt and
// then updates the streak. If the attempt cannot be recorded the question stays
// pending and may be answered again. A failed streak write is returned after the
// attempt is already recorded; the question is consumed in that case.
func (s *DrillService) SubmitAnswer(ctx context.Context, siteKey, questionID string, choice int) (domain.AnswerResult, error) {
	selected, ok := domain.ChoiceType(choice)
	if !ok {
		return domain.AnswerResult{}, domain.ErrInvalidChoice
	}

	site := s.sites.Lookup(siteKey)
	session, ok := s.sessions.Get(site.Key)
	if !ok {
		return domain.AnswerResult{}, domain.ErrQuestionNotFound
	}
	pending, ok := session.take(questionID)
	if !ok {
		s.sessions.DeleteIfEmpty(site.Key)
		return domain.AnswerResult{}, domain.ErrQuestionNotFound
	}
	generated := pending.generated

	manager, err := s.managers.Get(ctx, site.Key)
	if err != nil {
		s.restore(site.Key, questionID, pending)
		s.metrics.ObserveStoreError("open")
		return domain.AnswerResult{}, err
	}

	correct := selected == generated.Type
	score := 0
	if correct {
		score = site.CorrectPoints
	}
	if _, err := manager.RecordScore(ctx, questionID, score, site.MaxPoints, generated.Type, generated.Address); err != nil {
		s.restore(site.Key, questionID, pending)
		s.metrics.ObserveStoreError("append")
		return domain.AnswerResult{}, err
	}
	s.sessions.DeleteIfEmpty(site.Key)
	streak, err := manager.UpdateStreak(ctx, correct)
	if err != nil {
		s.metrics.ObserveStoreError("streak")
		return domain.AnswerResult{}, err
	}
	s.metrics.ObserveAnswer(string(generated.Type), correct)
	s.publish(ctx, site.Key)

	return domain.AnswerResult{
		QuestionID:   questionID,
		Selected:     selected,
		Correct:      correct,
		Answer:       generated,
		Score:        score,
		MaxScore:     site.MaxPoints,
		Feedback:     BuildFeedback(correct, generated),
		Streak:       streak,
		StreakEmojis: FormatStreakEmojis(streak),
		Stats:        manager.OverallStats(),
	}, nil
}

// Stats returns the progress snapshot for a site.
func (s *DrillService) Stats(ctx context.Context, siteKey string) (domain.StatsSnapshot, error) {
	site := s.sites.Lookup(siteKey)
	manager, err := s.managers.Get(ctx, site.Key)
	if err != nil {
		return domain.StatsSnapshot{}, err
	}
	streak := manager.Streak()
	return domain.StatsSnapshot{
		Site:         site,
		Overall:      manager.OverallStats(),
		ByType:       manager.ScoresByType(),
		Streak:       streak,
		StreakEmojis: manager.FormatStreakEmojis(streak),
	}, nil
}

// Reset clears a site's history and any questions still pending for it.
func (s *DrillService) Reset(ctx context.Context, siteKey string) error {
	key := s.sites.Lookup(siteKey).Key
	manager, err := s.managers.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := manager.ResetAllScores(ctx); err != nil {
		s.metrics.ObserveStoreError("clear")
		return err
	}
	if session, ok := s.sessions.Get(key); ok {
		session.clear()
		s.sessions.DeleteIfEmpty(key)
	}
	s.metrics.ObserveReset()
	s.publish(ctx, key)
	return nil
}

// Subscribe returns a channel that receives the current stats snapshot and one
// more after every answer or reset on the site.
func (s *DrillService) Subscribe(ctx context.Context, siteKey string) (<-chan domain.StatsSnapshot, func(), error) {
	snapshot, err := s.Stats(ctx, siteKey)
	if err != nil {
		return nil, nil, err
	}
	key := snapshot.Site.Key
	var (
		ch          <-chan domain.StatsSnapshot
		unsubscribe func()
	)
	s.sessions.WithSession(key, func(session *Session) {
		ch, unsubscribe = session.subscribe(snapshot)
	})
	cancel := func() {
		unsubscribe()
		s.sessions.DeleteIfEmpty(key)
	}
	return ch, cancel, nil
}

// restore puts a taken question back. The session is looked up again because
// it may have been dropped while the question was out.
func (s *DrillService) restore(key, questionID string, p pendingQuestion) {
	s.sessions.WithSession(key, func(session *Session) {
		session.restore(questionID, p)
	})
}

func (s *DrillService) publish(ctx context.Context, key string) {
	session, ok := s.sessions.Get(key)
	if !ok || !session.hasSubscribers() {
		return
	}
	snapshot, err := s.Stats(ctx, key)
	if err != nil {
		return
	}
	session.broadcast(snapshot)
}

// Session holds the questions issued for one site that have not been answered
// yet, plus the listeners waiting for stats updates.
type Session struct {
	siteKey     string
	ttl         time.Duration
	now         func() time.Time
	mu          sync.Mutex
	pending     map[string]pendingQuestion
	subscribers map[chan domain.StatsSnapshot]struct{}
}

type pendingQuestion struct {
	generated domain.GeneratedAddress
	expiresAt time.Time
}

// NewSession is exported for infrastructure layers that create sessions.
func NewSession(siteKey string, ttl time.Duration) *Session {
	return NewSessionWithClock(siteKey, ttl, time.Now)
}

// NewSessionWithClock allows deterministic expiry in tests.
func NewSessionWithClock(siteKey string, ttl time.Duration, now func() time.Time) *Session {
	return &Session{
		siteKey:     siteKey,
		ttl:         ttl,
		now:         now,
		pending:     make(map[string]pendingQuestion),
		subscribers: make(map[chan domain.StatsSnapshot]struct{}),
	}
}

func (s *Session) issue(id string, generated domain.GeneratedAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.pruneLocked(now)
	p := pendingQuestion{generated: generated}
	if s.ttl > 0 {
		p.expiresAt = now.Add(s.ttl)
	}
	s.pending[id] = p
}

// take removes and returns a pending question; expired questions are reported missing.
func (s *Session) take(id string) (pendingQuestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if !ok {
		return pendingQuestion{}, false
	}
	delete(s.pending, id)
	if !p.expiresAt.IsZero() && !p.expiresAt.After(s.now()) {
		return pendingQuestion{}, false
	}
	return p, true
}

// restore returns a taken question with its original expiry.
func (s *Session) restore(id string, p pendingQuestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = p
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[string]pendingQuestion)
}

func (s *Session) pruneLocked(now time.Time) {
	for id, p := range s.pending {
		if !p.expiresAt.IsZero() && !p.expiresAt.After(now) {
			delete(s.pending, id)
		}
	}
}

func (s *Session) subscribe(initial domain.StatsSnapshot) (<-chan domain.StatsSnapshot, func()) {
	ch := make(chan domain.StatsSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// broadcast never blocks: a full listener loses its oldest snapshot.
func (s *Session) broadcast(snapshot domain.StatsSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (s *Session) hasSubscribers() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers) > 0
}

// IsEmpty reports whether the session has no pending questions and no listeners.
func (s *Session) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) == 0 && len(s.subscribers) == 0
}

// Pending returns the number of unanswered questions.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
