package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
)

// storageKey is the single namespaced key holding the JSON array of
// transactions.
const storageKey = "finora.guest.transactions"

// defaultNoticeDelay is how long after the first ever create the one-time
// durability notice fires.
const defaultNoticeDelay = 1500 * time.Millisecond

const defaultPageLimit = 10

// ListOptions filter, sort and paginate a listing. Filters apply in order:
// type, category, inclusive date range, then free text over description,
// category and notes (case-insensitive).
type ListOptions struct {
	Type      string
	Category  string
	StartDate time.Time
	EndDate   time.Time
	Search    string

	// SortBy is "date" (default) or "amount"; SortOrder is "desc" (default)
	// or "asc".
	SortBy    string
	SortOrder string

	Page  int
	Limit int
}

// Pagination describes the returned page slice.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Page is one page of a listing.
type Page struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   Pagination    `json:"pagination"`
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) StoreOption {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides the time source (test seam).
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNoticeDelay overrides the delay before the first-create durability
// notice.
func WithNoticeDelay(d time.Duration) StoreOption {
	return func(s *Store) {
		s.noticeDelay = d
	}
}

// Store provides transaction CRUD plus dashboard aggregation over a Storage
// port. Safe for concurrent use; all operations are synchronous.
type Store struct {
	mu       sync.Mutex
	storage  Storage
	notifier Notifier
	now      func() time.Time

	noticeDelay time.Duration
	noticeSent  bool

	// id generation state
	lastStamp int64
	seq       int
	rnd       *rand.Rand
}

// NewStore creates a store persisting through storage.
func NewStore(storage Storage, opts ...StoreOption) *Store {
	s := &Store{
		storage:     storage,
		notifier:    NoopNotifier{},
		now:         time.Now,
		noticeDelay: defaultNoticeDelay,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// nextID combines a millisecond timestamp, a same-millisecond counter and a
// short random suffix into an identifier that is practically unique within
// one session without server coordination. Callers hold s.mu.
func (s *Store) nextID() string {
	stamp := s.now().UnixMilli()
	if stamp == s.lastStamp {
		s.seq++
	} else {
		s.lastStamp = stamp
		s.seq = 0
	}
	return fmt.Sprintf("local-%d-%d-%04x", stamp, s.seq, s.rnd.Intn(0x10000))
}

// Create normalizes and stores a new transaction, newest first. The very
// first transaction ever created in the session schedules a one-time notice
// that guest data is not durably saved.
func (s *Store) Create(data Transaction) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	tx := data
	tx.normalize(now)
	tx.ID = s.nextID()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	list, err := s.load()
	if err != nil {
		return nil, err
	}
	list = append([]Transaction{tx}, list...)

	if err := s.persist(list); err != nil {
		return nil, err
	}

	if !s.noticeSent {
		s.noticeSent = true
		notifier := s.notifier
		time.AfterFunc(s.noticeDelay, func() {
			notifier.Info("You are in guest mode: transactions are kept for this session only and are not saved durably.")
		})
	}

	return &tx, nil
}

// Get returns one transaction by id.
func (s *Store) Get(id string) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			tx := list[i]
			return &tx, nil
		}
	}
	return nil, ErrNotFound
}

// Update merges fields onto the stored record, preserving the id and
// refreshing the modification timestamp.
func (s *Store) Update(id string, fields UpdateFields) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return nil, err
	}

	for i := range list {
		if list[i].ID != id {
			continue
		}
		fields.apply(&list[i])
		list[i].ID = id
		list[i].UpdatedAt = s.now()
		if err := s.persist(list); err != nil {
			return nil, err
		}
		tx := list[i]
		return &tx, nil
	}

	return nil, ErrNotFound
}

// Delete removes a transaction by id. Deleting an absent id is a no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return err
	}

	for i := range list {
		if list[i].ID == id {
			list = append(list[:i], list[i+1:]...)
			return s.persist(list)
		}
	}
	return nil
}

// List applies filters, sorting and pagination and returns the page slice
// with its metadata. Pages is never below 1, even for an empty result.
func (s *Store) List(opts ListOptions) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return nil, err
	}

	filtered := filterTransactions(list, opts)
	sortTransactions(filtered, opts.SortBy, opts.SortOrder)

	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit < 1 {
		limit = defaultPageLimit
	}

	total := len(filtered)
	pages := int(math.Ceil(float64(total) / float64(limit)))
	if pages < 1 {
		pages = 1
	}

	startIdx := (page - 1) * limit
	if startIdx > total {
		startIdx = total
	}
	endIdx := startIdx + limit
	if endIdx > total {
		endIdx = total
	}

	return &Page{
		Transactions: filtered[startIdx:endIdx],
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	}, nil
}

// Clear wipes all locally mirrored transactions. Invoked on logout so guest
// data does not leak into a subsequent authenticated session.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storage.Remove(storageKey)
}

func filterTransactions(list []Transaction, opts ListOptions) []Transaction {
	filtered := make([]Transaction, 0, len(list))
	search := strings.ToLower(strings.TrimSpace(opts.Search))

	for _, tx := range list {
		if opts.Type != "" && tx.Type != opts.Type {
			continue
		}
		if opts.Category != "" && tx.Category != opts.Category {
			continue
		}
		if !opts.StartDate.IsZero() && tx.Date.Before(opts.StartDate) {
			continue
		}
		if !opts.EndDate.IsZero() && tx.Date.After(opts.EndDate) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(tx.Description), search) &&
			!strings.Contains(strings.ToLower(tx.Category), search) &&
			!strings.Contains(strings.ToLower(tx.Notes), search) {
			continue
		}
		filtered = append(filtered, tx)
	}
	return filtered
}

func sortTransactions(list []Transaction, sortBy, order string) {
	asc := order == "asc"
	switch sortBy {
	case "amount":
		sort.SliceStable(list, func(i, j int) bool {
			if asc {
				return list[i].Amount.LessThan(list[j].Amount)
			}
			return list[i].Amount.GreaterThan(list[j].Amount)
		})
	default: // date
		sort.SliceStable(list, func(i, j int) bool {
			if asc {
				return list[i].Date.Before(list[j].Date)
			}
			return list[i].Date.After(list[j].Date)
		})
	}
}

// load reads the stored collection. Callers hold s.mu.
func (s *Store) load() ([]Transaction, error) {
	raw, ok := s.storage.Get(storageKey)
	if !ok || raw == "" {
		return nil, nil
	}

	var list []Transaction
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("ledger: corrupt stored collection: %w", err)
	}
	return list, nil
}

// persist writes the collection back. A quota failure surfaces a user-facing
// warning before the error is returned, so the caller's operation fails
// loudly instead of losing data silently.
func (s *Store) persist(list []Transaction) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("ledger: cannot encode collection: %w", err)
	}

	if err := s.storage.Set(storageKey, string(raw)); err != nil {
		if errors.Is(err, ErrStorageFull) {
			s.notifier.Warn("Local storage is full: the last change was not saved.")
		}
		return err
	}
	return nil
}
