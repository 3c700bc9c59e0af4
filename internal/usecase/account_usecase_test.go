package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/usecase"
	"github.com/iho/beanledger/internal/usecase/mocks"
)

func TestAccountUseCase_CreateAccount(t *testing.T) {
	tests := []struct {
		name        string
		input       usecase.CreateAccountInput
		expectedErr error
	}{
		{
			name:  "nested asset account",
			input: usecase.CreateAccountInput{Name: "Assets:Bank:Checking", Currency: "usd"},
		},
		{
			name:  "root only",
			input: usecase.CreateAccountInput{Name: "Equity", Currency: "EUR"},
		},
		{
			name:        "unknown root",
			input:       usecase.CreateAccountInput{Name: "Savings:Main", Currency: "USD"},
			expectedErr: domain.ErrInvalidAccountName,
		},
		{
			name:        "empty segment",
			input:       usecase.CreateAccountInput{Name: "Assets::Checking", Currency: "USD"},
			expectedErr: domain.ErrInvalidAccountName,
		},
		{
			name:        "unknown currency",
			input:       usecase.CreateAccountInput{Name: "Assets:Cash", Currency: "ZZZ"},
			expectedErr: domain.ErrInvalidCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture()

			account, err := f.accounts.CreateAccount(context.Background(), tt.input)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, account)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.input.Name, account.Name)
			assert.Equal(t, domain.NormalizeCurrency(tt.input.Currency), account.Currency)
			assert.True(t, account.IsActive())
			assert.Equal(t, 1, f.metrics.AccountsCreated)
		})
	}
}

func TestAccountUseCase_CreateAccount_DerivesType(t *testing.T) {
	f := newLedgerFixture()

	card := f.open(t, "Liabilities:CreditCard", "USD")
	assert.Equal(t, domain.AccountTypeLiabilities, card.Type)

	events, err := f.outbox.GetByAggregate(context.Background(), domain.AggregateTypeAccount, card.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeAccountCreated, events[0].EventType)
	assert.Equal(t, "Liabilities:CreditCard", events[0].Payload["name"])
}

func TestAccountUseCase_CreateAccount_Duplicate(t *testing.T) {
	f := newLedgerFixture()
	f.open(t, "Assets:Checking", "USD")

	_, err := f.accounts.CreateAccount(context.Background(), usecase.CreateAccountInput{
		Name:     "Assets:Checking",
		Currency: "USD",
	})

	assert.ErrorIs(t, err, domain.ErrDuplicateAccount)
	assert.False(t, errors.Is(err, domain.ErrStorage), "duplicates are domain errors, not storage failures")
}

func TestAccountUseCase_CreateAccount_ValidationBeforeStorage(t *testing.T) {
	ctrl := gomock.NewController(t)

	// No expectations: any storage call fails the test.
	txManager := mocks.NewMockTransactionManager(ctrl)
	accountRepo := mocks.NewMockAccountRepository(ctrl)
	outboxRepo := mocks.NewMockOutboxRepository(ctrl)

	uc := usecase.NewAccountUseCase(txManager, accountRepo, outboxRepo, mocks.NewSequenceIDGenerator("id"))

	_, err := uc.CreateAccount(context.Background(), usecase.CreateAccountInput{Name: "Savings:Main", Currency: "USD"})
	assert.ErrorIs(t, err, domain.ErrInvalidAccountName)
}

func TestAccountUseCase_CreateAccount_StorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)

	tx := mocks.NewMockTransaction(ctrl)
	txManager := mocks.NewMockTransactionManager(ctrl)
	accountRepo := mocks.NewMockAccountRepository(ctrl)
	outboxRepo := mocks.NewMockOutboxRepository(ctrl)

	txManager.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	accountRepo.EXPECT().CreateTx(gomock.Any(), tx, gomock.Any()).Return(errors.New("connection reset"))
	tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	uc := usecase.NewAccountUseCase(txManager, accountRepo, outboxRepo, mocks.NewSequenceIDGenerator("id"))

	_, err := uc.CreateAccount(context.Background(), usecase.CreateAccountInput{Name: "Assets:Cash", Currency: "USD"})
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestAccountUseCase_CloseAccount(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	account := f.open(t, "Assets:Checking", "USD")

	_, err := f.accounts.CloseAccount(ctx, account.ID, day(2023, 12, 1))
	assert.ErrorIs(t, err, domain.ErrInvalidCloseDate)

	closed, err := f.accounts.CloseAccount(ctx, account.ID, day(2024, 6, 30))
	require.NoError(t, err)
	require.NotNil(t, closed.CloseDate)
	assert.Equal(t, day(2024, 6, 30), *closed.CloseDate)

	_, err = f.accounts.CloseAccount(ctx, account.ID, day(2024, 7, 1))
	assert.ErrorIs(t, err, domain.ErrAlreadyClosed)

	_, err = f.accounts.CloseAccount(ctx, "missing", day(2024, 7, 1))
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	// A closed name may be reused by a new account.
	reopened := f.open(t, "Assets:Checking", "USD")
	assert.NotEqual(t, account.ID, reopened.ID)

	// The closed account still resolves for historical postings.
	resolved, err := f.accounts.ResolveAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, resolved.IsActive())

	_, err = f.accounts.ResolveForPosting(ctx, account.ID, day(2024, 7, 1))
	assert.ErrorIs(t, err, domain.ErrAccountInactive)

	_, err = f.accounts.ResolveForPosting(ctx, account.ID, day(2024, 6, 30))
	assert.NoError(t, err)
}

func TestAccountUseCase_CloseAccount_RejectsLaterPostings(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	food := f.open(t, "Expenses:Food", "USD")
	checking := f.open(t, "Assets:Checking", "USD")

	f.record(t, day(2024, 3, 15), "groceries", post(food.ID, "52.50"), post(checking.ID, ""))

	_, err := f.accounts.CloseAccount(ctx, checking.ID, day(2024, 3, 1))
	assert.ErrorIs(t, err, domain.ErrPostingsAfterClose)
	assert.NotErrorIs(t, err, domain.ErrStorage)

	still, err := f.accounts.GetAccount(ctx, checking.ID)
	require.NoError(t, err)
	assert.True(t, still.IsActive())

	closed, err := f.accounts.CloseAccount(ctx, checking.ID, day(2024, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, day(2024, 3, 15), *closed.CloseDate)
}

func TestAccountUseCase_ListAccounts(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()
	f.open(t, "Expenses:Food", "USD")
	f.open(t, "Assets:Savings", "USD")
	checking := f.open(t, "Assets:Checking", "USD")

	_, err := f.accounts.CloseAccount(ctx, checking.ID, day(2024, 2, 1))
	require.NoError(t, err)

	active := true
	got, err := f.accounts.ListAccounts(ctx, domain.AccountFilter{Type: domain.AccountTypeAssets, Active: &active})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Assets:Savings", got[0].Name)

	all, err := f.accounts.ListAccounts(ctx, domain.AccountFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "Assets:Checking", all[0].Name)

	_, err = f.accounts.ListAccounts(ctx, domain.AccountFilter{Type: "Savings"})
	assert.ErrorIs(t, err, domain.ErrInvalidAccountName)

	byName, err := f.accounts.GetAccountByName(ctx, "Expenses:Food")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountTypeExpenses, byName.Type)
}
