package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/iho/beanledger/internal/domain"
)

// SearchUseCase finds transactions by text, tag, amount and date.
type SearchUseCase struct {
	txnRepo TransactionRepository
}

// NewSearchUseCase creates a new SearchUseCase.
func NewSearchUseCase(txnRepo TransactionRepository) *SearchUseCase {
	return &SearchUseCase{txnRepo: txnRepo}
}

// Search returns matching transactions ordered by date descending, then ID.
// Text matches narration or payee case-insensitively; the amount range
// applies to the absolute value of any posting.
func (uc *SearchUseCase) Search(ctx context.Context, filter domain.SearchFilter) ([]*domain.Transaction, error) {
	filter.Text = strings.TrimSpace(filter.Text)

	if filter.Tag != "" {
		tags, err := domain.NormalizeLabels([]string{filter.Tag})
		if err != nil {
			return nil, err
		}
		filter.Tag = ""
		if len(tags) > 0 {
			filter.Tag = tags[0]
		}
	}

	if filter.MinAmount != nil && filter.MaxAmount != nil && filter.MinAmount.GreaterThan(*filter.MaxAmount) {
		return nil, fmt.Errorf("%w: min amount %s exceeds max amount %s",
			domain.ErrInvalidQuery, filter.MinAmount, filter.MaxAmount)
	}

	if filter.From != nil {
		from := domain.TruncateDate(*filter.From)
		filter.From = &from
	}
	if filter.To != nil {
		to := domain.TruncateDate(*filter.To)
		filter.To = &to
	}

	filter.Limit, _, _ = domain.ValidatePagination(filter.Limit, 0)

	txns, err := uc.txnRepo.Search(ctx, filter)
	if err != nil {
		return nil, domain.StorageError("search", err)
	}

	return txns, nil
}
