package repo

import (
	"context"

	"nudio/internal/domain"
	"nudio/internal/infra"
	"nudio/internal/sqlinline"
)

// CreditTransactionRepositoryPG appends to the credit_transactions journal.
type CreditTransactionRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewCreditTransactionRepository(sql infra.SQLExecutor) *CreditTransactionRepositoryPG {
	return &CreditTransactionRepositoryPG{sql: sql}
}

func (r *CreditTransactionRepositoryPG) Append(ctx context.Context, tx *domain.CreditTransaction) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertCreditTransaction,
		tx.ID,
		tx.ProfileID,
		string(tx.Type),
		tx.PaidAmount,
		tx.FreeAmount,
		tx.Source,
		tx.Reference,
	)
	return row.Scan(&tx.ID, &tx.CreatedAt)
}

func (r *CreditTransactionRepositoryPG) ListByProfile(ctx context.Context, profileID string, limit int) ([]domain.CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectCreditTransactions, profileID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CreditTransaction
	for rows.Next() {
		var (
			tx     domain.CreditTransaction
			txType string
		)
		if err := rows.Scan(&tx.ID, &tx.ProfileID, &txType, &tx.PaidAmount, &tx.FreeAmount, &tx.Source, &tx.Reference, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.Type = domain.TransactionType(txType)
		out = append(out, tx)
	}
	return out, rows.Err()
}

var _ domain.CreditTransactionRepository = (*CreditTransactionRepositoryPG)(nil)
