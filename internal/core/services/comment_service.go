package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"collections-console/internal/adapters/persistence/kvstore"
	"collections-console/internal/adapters/upstream"
	"collections-console/internal/core/domain"
	"collections-console/internal/obs"
	"collections-console/internal/pkg/ids"
)

// Where a comment history came from
const (
	SourceServer = "server"
	SourceCache  = "cache"
	SourceNone   = "none"
)

// NoticeSavedLocally is shown when a comment could not reach the server
const NoticeSavedLocally = "Comment saved locally. It will sync when the server is reachable."

// threadIdleTTL is how long an untouched customer view is kept in memory
const threadIdleTTL = 30 * time.Minute

// pruneEvery bounds how often Thread sweeps idle views
const pruneEvery = time.Minute

// Notice is a transient, auto-dismissing message attached to a customer view
type Notice struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CommentView is the comment history of one customer view
type CommentView struct {
	CustomerID string                   `json:"customerId"`
	Source     string                   `json:"source"`
	Comments   []domain.FollowUpComment `json:"comments"`
	Notice     *Notice                  `json:"notice,omitempty"`
}

// ReconcileResult summarises one reconciliation pass
type ReconcileResult struct {
	CustomerID string `json:"customerId"`
	Attempted  int    `json:"attempted"`
	Synced     int    `json:"synced"`
	Failed     int    `json:"failed"`
	Stalled    int    `json:"stalled"`
}

// CommentService keeps follow-up comments consistent between the console,
// its local cache and the collections API
type CommentService struct {
	api         CollectionsAPI
	cache       CommentCache
	maxAttempts int
	noticeTTL   time.Duration
	now         func() time.Time

	mu         sync.Mutex
	threads    map[string]*CommentThread
	customers  map[string]*customerLock
	lastPruned time.Time
}

// customerLock is held while a customer's pending comments are pushed.
// refs counts holders and waiters; the entry is dropped when it reaches zero.
type customerLock struct {
	mu   sync.Mutex
	refs int
}

// NewCommentService creates a new comment service. maxAttempts <= 0 retries forever.
func NewCommentService(api CollectionsAPI, cache CommentCache, maxAttempts int, noticeTTL time.Duration) *CommentService {
	if noticeTTL <= 0 {
		noticeTTL = 4 * time.Second
	}
	return &CommentService{
		api:         api,
		cache:       cache,
		maxAttempts: maxAttempts,
		noticeTTL:   noticeTTL,
		now:         time.Now,
		threads:     make(map[string]*CommentThread),
		customers:   make(map[string]*customerLock),
	}
}

// SetClock replaces the clock used for optimistic timestamps and notices
func (s *CommentService) SetClock(now func() time.Time) {
	s.now = now
}

// Thread returns the view of customerID owned by sessionID. Views idle for
// longer than threadIdleTTL are dropped along the way.
func (s *CommentService) Thread(sessionID, customerID string) *CommentThread {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastPruned) >= pruneEvery {
		s.pruneLocked(now.Add(-threadIdleTTL))
		s.lastPruned = now
	}

	key := threadKey(sessionID, customerID)
	t, ok := s.threads[key]
	if !ok {
		// ids often come from request buffers that are reused after the request
		t = &CommentThread{svc: s, customerID: strings.Clone(customerID)}
		s.threads[strings.Clone(key)] = t
	}
	t.lastUsed = now
	return t
}

func threadKey(sessionID, customerID string) string {
	return sessionID + "|" + customerID
}

// Prune forgets views untouched for longer than idle
func (s *CommentService) Prune(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(s.now().Add(-idle))
}

func (s *CommentService) pruneLocked(cutoff time.Time) int {
	removed := 0
	for key, t := range s.threads {
		if t.lastUsed.Before(cutoff) {
			delete(s.threads, key)
			removed++
		}
	}
	return removed
}

// DropSession forgets every view of a session that has ended
func (s *CommentService) DropSession(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := sessionID + "|"
	removed := 0
	for key := range s.threads {
		if strings.HasPrefix(key, prefix) {
			delete(s.threads, key)
			removed++
		}
	}
	return removed
}

// lockCustomer serialises reconciliation of one customer across views.
// The returned func releases the lock.
func (s *CommentService) lockCustomer(customerID string) func() {
	s.mu.Lock()
	l, ok := s.customers[customerID]
	if !ok {
		l = &customerLock{}
		s.customers[customerID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.customers, customerID)
		}
		s.mu.Unlock()
	}
}

// ReconcileAll runs an automatic reconciliation pass over every customer
// with locally pending comments
func (s *CommentService) ReconcileAll(ctx context.Context, sess *domain.Session) ([]ReconcileResult, error) {
	if n := s.Prune(threadIdleTTL); n > 0 {
		log.Printf("🧹 Dropped %d idle comment views", n)
	}

	customers, err := s.cache.PendingCustomers()
	if err != nil {
		return nil, err
	}

	results := make([]ReconcileResult, 0, len(customers))
	for _, customerID := range customers {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		res, err := s.Thread(sess.ID, customerID).Reconcile(ctx, sess, false)
		results = append(results, res)
		if errors.Is(err, domain.ErrUnauthenticated) {
			return results, err
		}
	}
	return results, nil
}

// CommentThread is the in-memory history of one customer view.
// Its operations are serialised.
type CommentThread struct {
	svc        *CommentService
	customerID string

	mu       sync.Mutex
	history  []domain.FollowUpComment
	source   string
	notice   *Notice
	lastUsed time.Time
}

// Load refreshes the history from the server, falling back to the cache.
// It never fails: an unreachable server yields the cached or an empty history.
func (t *CommentThread) Load(ctx context.Context, sess *domain.Session) CommentView {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.load(ctx, sess)
	return t.view()
}

// History returns the current history without contacting the server
func (t *CommentThread) History() CommentView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view()
}

func (t *CommentThread) load(ctx context.Context, sess *domain.Session) {
	server, err := t.svc.api.ListComments(ctx, sess.AuthToken, t.customerID)
	if err != nil {
		log.Printf("⚠️ Loading comments for %s from cache: %v", t.customerID, err)
		t.loadFromCache()
		return
	}

	server = kvstore.SortNewestFirst(server)
	var merged []domain.FollowUpComment
	err = t.svc.cache.Update(t.customerID, func(current []domain.FollowUpComment) []domain.FollowUpComment {
		merged = append(append([]domain.FollowUpComment{}, server...), pendingOf(current)...)
		return merged
	})
	if err != nil {
		log.Printf("❌ Failed to cache comments for %s: %v", t.customerID, err)
		merged = append(append([]domain.FollowUpComment{}, server...), t.pendingInHistory()...)
	}

	t.history = kvstore.SortNewestFirst(merged)
	t.source = SourceServer
}

func (t *CommentThread) loadFromCache() {
	cached, ok, err := t.svc.cache.Snapshot(t.customerID)
	if err != nil {
		log.Printf("❌ Failed to read comment cache for %s: %v", t.customerID, err)
	}
	if err != nil || !ok {
		t.history = []domain.FollowUpComment{}
		t.source = SourceNone
		return
	}
	t.history = cached
	t.source = SourceCache
}

// Save records a comment optimistically and confirms it with the server.
// When the server cannot be reached the comment is kept locally as pending
// and a notice is raised; that is not an error. An authentication failure
// still keeps the comment locally but is returned so the session can be torn down.
func (t *CommentThread) Save(ctx context.Context, sess *domain.Session, text, commentType string) (*domain.FollowUpComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyComment
	}
	if commentType == "" {
		commentType = domain.CommentTypeFollowUp
	}
	if !domain.ValidCommentType(commentType) {
		return nil, domain.ValidationError("unknown comment type %q", commentType)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	optimistic := domain.FollowUpComment{
		ID:         ids.NewTemp(),
		CustomerID: t.customerID,
		AuthorName: sess.Name,
		Text:       text,
		Type:       commentType,
		CreatedAt:  t.svc.now(),
		State:      domain.CommentOptimistic,
	}
	t.history = append([]domain.FollowUpComment{optimistic}, t.history...)

	created, err := t.svc.api.CreateComment(ctx, sess.AuthToken, t.customerID, upstream.NewComment{
		Text:       text,
		AuthorName: sess.Name,
		Type:       commentType,
	})
	if err == nil {
		t.swap(optimistic.ID, *created)
		if cerr := t.svc.cache.Update(t.customerID, func(current []domain.FollowUpComment) []domain.FollowUpComment {
			return prepend(withoutTemp(current), *created)
		}); cerr != nil {
			log.Printf("❌ Failed to cache comment %s: %v", created.ID, cerr)
		}
		obs.CommentSaved(string(domain.CommentConfirmed))
		return created, nil
	}

	local := optimistic
	local.ID = ids.NewLocal()
	local.State = domain.CommentPendingLocal
	t.swap(optimistic.ID, local)
	if cerr := t.svc.cache.Update(t.customerID, func(current []domain.FollowUpComment) []domain.FollowUpComment {
		return prepend(withoutTemp(current), local)
	}); cerr != nil {
		log.Printf("❌ Failed to cache local comment for %s: %v", t.customerID, cerr)
	}
	t.notice = &Notice{
		Level:     "warning",
		Message:   NoticeSavedLocally,
		ExpiresAt: t.svc.now().Add(t.svc.noticeTTL),
	}
	obs.CommentSaved(string(domain.CommentPendingLocal))
	log.Printf("⚠️ Comment for %s kept locally as %s: %v", t.customerID, local.ID, err)

	if errors.Is(err, domain.ErrUnauthenticated) {
		return &local, err
	}
	return &local, nil
}

// Reconcile pushes every locally pending comment of the customer to the
// server. Successes leave the cache and trigger a fresh Load; failures stay
// pending. Entries past the attempt cap are only retried when force is set.
func (t *CommentThread) Reconcile(ctx context.Context, sess *domain.Session, force bool) (ReconcileResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	unlock := t.svc.lockCustomer(t.customerID)
	defer unlock()

	result := ReconcileResult{CustomerID: t.customerID}

	cached, ok, err := t.svc.cache.Snapshot(t.customerID)
	if err != nil {
		return result, err
	}
	if !ok {
		return result, nil
	}

	for _, p := range pendingOf(cached) {
		if !force && t.svc.stalled(p) {
			result.Stalled++
			obs.Reconciled("stalled")
			continue
		}
		result.Attempted++

		created, err := t.svc.api.CreateComment(ctx, sess.AuthToken, t.customerID, upstream.NewComment{
			Text:       p.Text,
			AuthorName: p.AuthorName,
			Type:       p.Type,
		})
		if err != nil {
			result.Failed++
			obs.Reconciled("failed")
			t.recordAttempt(p.ID)
			if errors.Is(err, domain.ErrUnauthenticated) {
				return result, err
			}
			continue
		}

		result.Synced++
		obs.Reconciled("synced")
		pendingID := p.ID
		if cerr := t.svc.cache.Update(t.customerID, func(current []domain.FollowUpComment) []domain.FollowUpComment {
			return prepend(without(current, pendingID), *created)
		}); cerr != nil {
			log.Printf("❌ Failed to drop reconciled comment %s: %v", pendingID, cerr)
		}
		t.load(ctx, sess)
	}

	if result.Synced > 0 {
		log.Printf("✅ Reconciled %d comment(s) for %s", result.Synced, t.customerID)
	} else if result.Attempted > 0 {
		t.refreshPending()
	}
	return result, nil
}

func (t *CommentThread) recordAttempt(id string) {
	now := t.svc.now()
	err := t.svc.cache.Update(t.customerID, func(current []domain.FollowUpComment) []domain.FollowUpComment {
		for i := range current {
			if current[i].ID == id {
				current[i].Attempts++
				current[i].LastAttemptAt = &now
			}
		}
		return current
	})
	if err != nil {
		log.Printf("❌ Failed to record attempt for %s: %v", id, err)
	}
}

// refreshPending copies attempt bookkeeping from the cache into the history
func (t *CommentThread) refreshPending() {
	cached, ok, err := t.svc.cache.Snapshot(t.customerID)
	if err != nil || !ok {
		return
	}
	byID := make(map[string]domain.FollowUpComment, len(cached))
	for _, c := range pendingOf(cached) {
		byID[c.ID] = c
	}
	for i := range t.history {
		if c, ok := byID[t.history[i].ID]; ok {
			t.history[i] = c
		}
	}
}

func (s *CommentService) stalled(c domain.FollowUpComment) bool {
	return s.maxAttempts > 0 && c.Attempts >= s.maxAttempts
}

func (t *CommentThread) view() CommentView {
	if t.notice != nil && !t.svc.now().Before(t.notice.ExpiresAt) {
		t.notice = nil
	}
	source := t.source
	if source == "" {
		source = SourceNone
	}
	comments := append([]domain.FollowUpComment{}, t.history...)
	var notice *Notice
	if t.notice != nil {
		n := *t.notice
		notice = &n
	}
	return CommentView{CustomerID: t.customerID, Source: source, Comments: comments, Notice: notice}
}

// swap replaces the history entry with id by c
func (t *CommentThread) swap(id string, c domain.FollowUpComment) {
	for i := range t.history {
		if t.history[i].ID == id {
			t.history[i] = c
			return
		}
	}
	t.history = append([]domain.FollowUpComment{c}, t.history...)
}

func (t *CommentThread) pendingInHistory() []domain.FollowUpComment {
	return pendingOf(t.history)
}

func pendingOf(comments []domain.FollowUpComment) []domain.FollowUpComment {
	var out []domain.FollowUpComment
	for _, c := range comments {
		if c.LocallyPersisted() {
			out = append(out, c)
		}
	}
	return out
}

func withoutTemp(comments []domain.FollowUpComment) []domain.FollowUpComment {
	out := comments[:0:0]
	for _, c := range comments {
		if !ids.IsTemp(c.ID) {
			out = append(out, c)
		}
	}
	return out
}

func without(comments []domain.FollowUpComment, id string) []domain.FollowUpComment {
	out := comments[:0:0]
	for _, c := range comments {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// prepend puts c at the head, dropping any older copy of the same id
func prepend(comments []domain.FollowUpComment, c domain.FollowUpComment) []domain.FollowUpComment {
	return append([]domain.FollowUpComment{c}, without(comments, c.ID)...)
}
