package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/infrastructure/postgres/generated"
	"github.com/iho/beanledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	db      generated.DBTX
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{
		db:      db,
		queries: generated.New(db),
	}
}

// Create inserts the transaction with its postings, tags and links. Posting
// accounts are share-locked first so a concurrent close either waits for this
// transaction or is observed by it.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	if err := lockPostingAccounts(ctx, queries, txn.Date, postingAccountIDs(txn)); err != nil {
		return err
	}

	metadata, err := encodeMetadata(txn.Metadata)
	if err != nil {
		return err
	}

	err = queries.CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:        txn.ID,
		Date:      timeToPgDate(txn.Date),
		Flag:      string(txn.Flag),
		Payee:     txn.Payee,
		Narration: txn.Narration,
		Metadata:  metadata,
		CreatedAt: timeToPgTimestamptz(txn.CreatedAt),
	})
	if err != nil {
		return mapWriteError(err)
	}

	for _, p := range txn.Postings {
		postingMetadata, err := encodeMetadata(p.Metadata)
		if err != nil {
			return err
		}

		err = queries.CreatePosting(ctx, generated.CreatePostingParams{
			ID:            p.ID,
			TransactionID: txn.ID,
			AccountID:     p.AccountID,
			Amount:        decimalToNumeric(p.Amount),
			Currency:      p.Currency,
			Position:      int32(p.Position),
			Metadata:      postingMetadata,
		})
		if err != nil {
			return mapWriteError(err)
		}
	}

	for _, tag := range txn.Tags {
		if err := queries.CreateTransactionTag(ctx, generated.CreateTransactionTagParams{
			TransactionID: txn.ID,
			Tag:           tag,
		}); err != nil {
			return err
		}
	}

	for _, link := range txn.Links {
		if err := queries.CreateTransactionLink(ctx, generated.CreateTransactionLinkParams{
			TransactionID: txn.ID,
			Link:          link,
		}); err != nil {
			return err
		}
	}

	return nil
}

func postingAccountIDs(txn *domain.Transaction) []string {
	ids := make([]string, 0, len(txn.Postings))
	seen := make(map[string]bool, len(txn.Postings))
	for _, p := range txn.Postings {
		if !seen[p.AccountID] {
			seen[p.AccountID] = true
			ids = append(ids, p.AccountID)
		}
	}

	return ids
}

// lockPostingAccounts share-locks the accounts and checks that each one
// accepts postings dated date.
func lockPostingAccounts(ctx context.Context, queries *generated.Queries, date time.Time, ids []string) error {
	rows, err := queries.LockAccountsForShare(ctx, ids)
	if err != nil {
		return err
	}

	locked := make(map[string]*domain.Account, len(rows))
	for _, row := range rows {
		locked[row.ID] = rowToAccount(row)
	}

	for _, id := range ids {
		account, ok := locked[id]
		if !ok {
			return fmt.Errorf("%w: %w: %s", domain.ErrInvalidPosting, domain.ErrAccountNotFound, id)
		}
		if !account.AcceptsPostingsAt(date) {
			return fmt.Errorf("%w: %w: %s", domain.ErrInvalidPosting, domain.ErrAccountInactive, account.Name)
		}
	}

	return nil
}

// GetByID retrieves a transaction with its postings. The header and its
// postings, tags and links are read from one snapshot.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var txn *domain.Transaction

	err := readSnapshot(ctx, r.db, func(queries *generated.Queries) error {
		row, err := queries.GetTransactionByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrTransactionNotFound
			}
			return err
		}

		txns, err := hydrate(ctx, queries, []generated.Transaction{row})
		if err != nil {
			return err
		}
		txn = txns[0]

		return nil
	})
	if err != nil {
		return nil, err
	}

	return txn, nil
}

// UpdatePosting moves a posting to another account. Amount and currency are
// never written; a database trigger rejects any attempt. The target account
// is share-locked and must accept postings at the transaction date.
func (r *TransactionRepository) UpdatePosting(ctx context.Context, tx usecase.Transaction, posting *domain.Posting) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	header, err := queries.GetTransactionByID(ctx, posting.TransactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTransactionNotFound
		}
		return err
	}

	// A close committed after the caller validated the target waits on
	// this lock or is seen by it.
	if err := lockPostingAccounts(ctx, queries, pgDateToTime(header.Date), []string{posting.AccountID}); err != nil {
		return err
	}

	metadata, err := encodeMetadata(posting.Metadata)
	if err != nil {
		return err
	}

	affected, err := queries.UpdatePostingAccount(ctx, generated.UpdatePostingAccountParams{
		ID:            posting.ID,
		TransactionID: posting.TransactionID,
		AccountID:     posting.AccountID,
		Metadata:      metadata,
	})
	if err != nil {
		return mapWriteError(err)
	}

	if affected == 0 {
		return domain.ErrPostingNotFound
	}

	return nil
}

// ListByLink returns transactions carrying the link, oldest first.
func (r *TransactionRepository) ListByLink(ctx context.Context, link string) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction

	err := readSnapshot(ctx, r.db, func(queries *generated.Queries) error {
		rows, err := queries.ListTransactionsByLink(ctx, link)
		if err != nil {
			return err
		}

		txns, err = hydrate(ctx, queries, rows)
		return err
	})

	return txns, err
}

// Search returns transactions matching the filter, newest first.
func (r *TransactionRepository) Search(ctx context.Context, filter domain.SearchFilter) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction

	err := readSnapshot(ctx, r.db, func(queries *generated.Queries) error {
		rows, err := queries.SearchTransactions(ctx, generated.SearchTransactionsParams{
			Text:      escapeLike(filter.Text),
			Tag:       filter.Tag,
			FromDate:  optionalDate(filter.From),
			ToDate:    optionalDate(filter.To),
			MinAmount: optionalNumeric(filter.MinAmount),
			MaxAmount: optionalNumeric(filter.MaxAmount),
			Limit:     int32(filter.Limit),
		})
		if err != nil {
			return err
		}

		txns, err = hydrate(ctx, queries, rows)
		return err
	})

	return txns, err
}

// StatementPostings reads the account's opening balance before from and its
// postings dated in [from, to] from one snapshot.
func (r *TransactionRepository) StatementPostings(ctx context.Context, accountID string, from, to time.Time) (domain.Balance, []*domain.PostingRecord, error) {
	opening := make(domain.Balance)
	var records []*domain.PostingRecord

	err := readSnapshot(ctx, r.db, func(queries *generated.Queries) error {
		if !from.IsZero() {
			sums, err := queries.SumPostingsByAccount(ctx, generated.SumPostingsByAccountParams{
				AccountID: accountID,
				AsOf:      timeToPgDate(from.AddDate(0, 0, -1)),
			})
			if err != nil {
				return err
			}
			opening = balanceFromRows(sums)
		}

		rows, err := queries.ListAccountPostings(ctx, generated.ListAccountPostingsParams{
			AccountID: accountID,
			FromDate:  timeToPgDate(from),
			ToDate:    timeToPgDate(to),
		})
		if err != nil {
			return err
		}

		records = make([]*domain.PostingRecord, 0, len(rows))
		for _, row := range rows {
			records = append(records, &domain.PostingRecord{
				Date:      pgDateToTime(row.Date),
				Payee:     row.Payee,
				Narration: row.Narration,
				Posting: &domain.Posting{
					ID:            row.ID,
					TransactionID: row.TransactionID,
					AccountID:     row.AccountID,
					Amount:        numericToDecimal(row.Amount),
					Currency:      row.Currency,
					Position:      int(row.Position),
					Metadata:      decodeMetadata(row.Metadata),
				},
			})
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return opening, records, nil
}

// SumByAccount folds the account's postings dated on or before asOf.
func (r *TransactionRepository) SumByAccount(ctx context.Context, accountID string, asOf time.Time) (domain.Balance, error) {
	rows, err := r.queries.SumPostingsByAccount(ctx, generated.SumPostingsByAccountParams{
		AccountID: accountID,
		AsOf:      timeToPgDate(asOf),
	})
	if err != nil {
		return nil, err
	}

	return balanceFromRows(rows), nil
}

// SumByAccounts folds postings of several accounts in a single statement.
func (r *TransactionRepository) SumByAccounts(ctx context.Context, accountIDs []string, asOf time.Time) (map[string]domain.Balance, error) {
	out := make(map[string]domain.Balance, len(accountIDs))
	for _, id := range accountIDs {
		out[id] = make(domain.Balance)
	}

	rows, err := r.queries.SumPostingsByAccounts(ctx, generated.SumPostingsByAccountsParams{
		AccountIds: accountIDs,
		AsOf:       timeToPgDate(asOf),
	})
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if b, ok := out[row.AccountID]; ok {
			b.Add(row.Currency, numericToDecimal(row.Total))
		}
	}

	return out, nil
}

// SumByAccountTypes folds postings per account type in a single statement.
// Every requested type is present in the result, possibly empty.
func (r *TransactionRepository) SumByAccountTypes(ctx context.Context, types []domain.AccountType, asOf time.Time) (map[domain.AccountType]domain.Balance, error) {
	names := make([]string, len(types))
	out := make(map[domain.AccountType]domain.Balance, len(types))
	for i, t := range types {
		names[i] = string(t)
		out[t] = make(domain.Balance)
	}

	rows, err := r.queries.SumPostingsByAccountTypes(ctx, generated.SumPostingsByAccountTypesParams{
		AccountTypes: names,
		AsOf:         timeToPgDate(asOf),
	})
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		b, ok := out[domain.AccountType(row.AccountType)]
		if !ok {
			continue
		}
		b.Add(row.Currency, numericToDecimal(row.Total))
	}

	return out, nil
}

// Residuals returns the non-zero per-currency sums keyed by transaction ID.
func (r *TransactionRepository) Residuals(ctx context.Context) (map[string]domain.Balance, error) {
	rows, err := r.queries.ListTransactionResiduals(ctx)
	if err != nil {
		return nil, err
	}

	residuals := make(map[string]domain.Balance)
	for _, row := range rows {
		b, ok := residuals[row.TransactionID]
		if !ok {
			b = make(domain.Balance)
			residuals[row.TransactionID] = b
		}
		b.Add(row.Currency, numericToDecimal(row.Total))
	}

	return residuals, nil
}

// hydrate loads postings, tags and links for the header rows, preserving
// their order.
func hydrate(ctx context.Context, queries *generated.Queries, rows []generated.Transaction) ([]*domain.Transaction, error) {
	txns := make([]*domain.Transaction, 0, len(rows))
	if len(rows) == 0 {
		return txns, nil
	}

	byID := make(map[string]*domain.Transaction, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		txn := &domain.Transaction{
			ID:        row.ID,
			Date:      pgDateToTime(row.Date),
			Flag:      domain.Flag(row.Flag),
			Payee:     row.Payee,
			Narration: row.Narration,
			Metadata:  decodeMetadata(row.Metadata),
			CreatedAt: row.CreatedAt.Time,
		}
		txns = append(txns, txn)
		byID[row.ID] = txn
		ids = append(ids, row.ID)
	}

	postings, err := queries.ListPostingsByTransactionIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range postings {
		txn := byID[p.TransactionID]
		txn.Postings = append(txn.Postings, &domain.Posting{
			ID:            p.ID,
			TransactionID: p.TransactionID,
			AccountID:     p.AccountID,
			Amount:        numericToDecimal(p.Amount),
			Currency:      p.Currency,
			Position:      int(p.Position),
			Metadata:      decodeMetadata(p.Metadata),
		})
	}

	tags, err := queries.ListTagsByTransactionIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		byID[t.TransactionID].Tags = append(byID[t.TransactionID].Tags, t.Tag)
	}

	links, err := queries.ListLinksByTransactionIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		byID[l.TransactionID].Links = append(byID[l.TransactionID].Links, l.Link)
	}

	return txns, nil
}
