package finora

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const transactionsEndpoint = "/transactions"

// maxPageLimit is the server-side cap on the list page size.
const maxPageLimit = 100

// Transaction is the wire representation of one ledger entry.
type Transaction struct {
	ID          string          `json:"id,omitempty"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Date        time.Time       `json:"date"`
	Tags        []string        `json:"tags,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"createdAt,omitempty"`
	UpdatedAt   time.Time       `json:"updatedAt,omitempty"`
}

// Pagination is the list metadata returned by the backend.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// TransactionPage is one page of a transaction listing.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   Pagination    `json:"pagination"`
}

// Summary holds the aggregate statistics for a period.
type Summary struct {
	TotalIncome      decimal.Decimal `json:"totalIncome"`
	TotalExpense     decimal.Decimal `json:"totalExpense"`
	Balance          decimal.Decimal `json:"balance"`
	TransactionCount int             `json:"transactionCount"`
}

// ListQuery holds the supported list filters. Zero values are omitted from
// the request.
type ListQuery struct {
	Page      int
	Limit     int
	Type      string
	Category  string
	StartDate time.Time
	EndDate   time.Time
	Sort      string
	Order     string
}

func (q ListQuery) params() map[string]string {
	params := map[string]string{}
	if q.Page > 0 {
		params["page"] = strconv.Itoa(q.Page)
	}
	if q.Limit > 0 {
		limit := q.Limit
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
		params["limit"] = strconv.Itoa(limit)
	}
	if q.Type != "" {
		params["type"] = q.Type
	}
	if q.Category != "" {
		params["category"] = q.Category
	}
	if !q.StartDate.IsZero() {
		params["startDate"] = q.StartDate.Format("2006-01-02")
	}
	if !q.EndDate.IsZero() {
		params["endDate"] = q.EndDate.Format("2006-01-02")
	}
	if q.Sort != "" {
		params["sort"] = q.Sort
	}
	if q.Order != "" {
		params["order"] = q.Order
	}
	return params
}

// TransactionsService is a typed view over the transactions resource. Read
// responses are cached; every mutation invalidates the whole resource family.
type TransactionsService struct {
	client *Client
}

// NewTransactionsService creates a service bound to client.
func NewTransactionsService(client *Client) *TransactionsService {
	return &TransactionsService{client: client}
}

// Create stores a new transaction and returns the created record.
func (s *TransactionsService) Create(ctx context.Context, tx *Transaction) (*Transaction, error) {
	res, err := s.client.Post(ctx, transactionsEndpoint, tx, nil)
	if err != nil {
		return nil, err
	}
	s.client.InvalidateCache(transactionsEndpoint)

	var created Transaction
	if err := res.Decode(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

// List fetches one page of transactions matching the query.
func (s *TransactionsService) List(ctx context.Context, query ListQuery) (*TransactionPage, error) {
	res, err := s.client.Get(ctx, transactionsEndpoint, &RequestOptions{
		Params: query.params(),
		Cache:  true,
	})
	if err != nil {
		return nil, err
	}

	var page TransactionPage
	if err := res.Decode(&page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get fetches one transaction by id.
func (s *TransactionsService) Get(ctx context.Context, id string) (*Transaction, error) {
	res, err := s.client.Get(ctx, transactionsEndpoint+"/"+id, &RequestOptions{Cache: true})
	if err != nil {
		return nil, err
	}

	var tx Transaction
	if err := res.Decode(&tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Update replaces the mutable fields of a transaction.
func (s *TransactionsService) Update(ctx context.Context, id string, tx *Transaction) (*Transaction, error) {
	res, err := s.client.Put(ctx, transactionsEndpoint+"/"+id, tx, nil)
	if err != nil {
		return nil, err
	}
	s.client.InvalidateCache(transactionsEndpoint)

	var updated Transaction
	if err := res.Decode(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes one transaction by id.
func (s *TransactionsService) Delete(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, transactionsEndpoint+"/"+id, nil)
	if err != nil {
		return err
	}
	s.client.InvalidateCache(transactionsEndpoint)
	return nil
}

// DeleteAll removes every transaction. The backend guards the operation with
// an explicit confirmation flag; calling it without confirm fails locally.
func (s *TransactionsService) DeleteAll(ctx context.Context, confirm bool) (int, error) {
	if !confirm {
		return 0, &ClientError{
			Type:      ErrorTypeValidation,
			Message:   "bulk delete requires explicit confirmation",
			Timestamp: time.Now(),
		}
	}

	res, err := s.client.Delete(ctx, transactionsEndpoint, &RequestOptions{
		Params: map[string]string{"confirm": "true"},
	})
	if err != nil {
		return 0, err
	}
	s.client.InvalidateCache(transactionsEndpoint)

	var body struct {
		Deleted int `json:"deleted"`
	}
	if err := res.Decode(&body); err != nil {
		// Some deployments return an empty body on bulk delete.
		return 0, nil
	}
	return body.Deleted, nil
}

// Summary fetches the aggregate statistics, optionally scoped to one month.
// Pass month 0 for the all-time summary.
func (s *TransactionsService) Summary(ctx context.Context, month time.Month, year int) (*Summary, error) {
	params := map[string]string{}
	if month != 0 {
		params["month"] = strconv.Itoa(int(month))
		params["year"] = fmt.Sprintf("%d", year)
	}

	res, err := s.client.Get(ctx, transactionsEndpoint+"/summary", &RequestOptions{
		Params: params,
		Cache:  true,
	})
	if err != nil {
		return nil, err
	}

	var summary Summary
	if err := res.Decode(&summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
