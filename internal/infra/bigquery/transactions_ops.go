package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
)

// InsertTransactions inserts a batch of rows into the transactions table.
func InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	client, err := bigquery.NewClient(ctx, ProjectID())
	if err != nil {
		return fmt.Errorf("InsertTransactions: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertTransactionsWithClient(ctx, client, rows)
}

// InsertTransactionsWithClient inserts a batch of rows using the provided
// client. Transactions are append-only, so the streaming inserter is fine
// here.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	table := client.DatasetInProject(ProjectID(), DatasetID()).Table(transactionsTable)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// ExistsTransaction reports whether a transaction with the same user, date,
// description and amount is already stored.
func ExistsTransaction(ctx context.Context, tx *domain.Transaction) (bool, error) {
	client, err := bigquery.NewClient(ctx, ProjectID())
	if err != nil {
		return false, fmt.Errorf("ExistsTransaction: bigquery client: %w", err)
	}
	defer client.Close()

	return ExistsTransactionWithClient(ctx, client, tx)
}

// ExistsTransactionWithClient runs the duplicate check using the provided
// client.
func ExistsTransactionWithClient(ctx context.Context, client *bigquery.Client, tx *domain.Transaction) (bool, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT COUNT(1) AS n
		FROM `+"`%s.%s.%s`"+`
		WHERE user_id = @user_id
		  AND transaction_date = @transaction_date
		  AND description = @description
		  AND amount = @amount
	`, ProjectID(), DatasetID(), transactionsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: tx.UserID},
		{Name: "transaction_date", Value: tx.Date},
		{Name: "description", Value: tx.Description},
		{Name: "amount", Value: tx.Amount.Rat()},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("ExistsTransaction: query read: %w", err)
	}

	var row struct {
		N int64 `bigquery:"n"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ExistsTransaction: reading row: %w", err)
	}
	return row.N > 0, nil
}

// QueryTransactionsByMonth retrieves a user's transactions for one YYYY-MM
// month key, ordered by date.
func QueryTransactionsByMonth(ctx context.Context, userID, monthKey string) ([]*TransactionRow, error) {
	client, err := bigquery.NewClient(ctx, ProjectID())
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByMonth: bigquery client: %w", err)
	}
	defer client.Close()

	return QueryTransactionsByMonthWithClient(ctx, client, userID, monthKey)
}

// QueryTransactionsByMonthWithClient retrieves a month of transactions using
// the provided client.
func QueryTransactionsByMonthWithClient(ctx context.Context, client *bigquery.Client, userID, monthKey string) ([]*TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			user_id,
			upload_id,
			transaction_date,
			date_inferred,
			amount,
			direction,
			description,
			category,
			category_source,
			month_key,
			created_ts
		FROM `+"`%s.%s.%s`"+`
		WHERE user_id = @user_id
		  AND month_key = @month_key
		ORDER BY transaction_date, created_ts
	`, ProjectID(), DatasetID(), transactionsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "month_key", Value: monthKey},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByMonth: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByMonth: iterating: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
