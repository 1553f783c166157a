package transaction

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"novac/kit/db"
	"novac/kit/observability"
)

const (
	qColumns    = "id, transaction_ref, customer_email, customer_name, amount, currency, status, payment_method, description, metadata, created_at, updated_at"
	qInsert     = "INSERT INTO novac_transactions (transaction_ref, customer_email, customer_name, amount, currency, status, payment_method, description, metadata, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	qInsertedID = "SELECT id FROM novac_transactions WHERE transaction_ref = ?"
	qUpdate     = "UPDATE novac_transactions SET status = ?, payment_method = ?, updated_at = ? WHERE transaction_ref = ?"
	qGet        = "SELECT " + qColumns + " FROM novac_transactions WHERE transaction_ref = ?"
	qCount      = "SELECT COUNT(*) FROM novac_transactions"
	qList       = "SELECT " + qColumns + " FROM novac_transactions"
)

type SQLRepository struct {
	db     db.Client
	logger *observability.Logger
	now    func() time.Time
}

func NewSQLRepository(dbClient db.Client, logger *observability.Logger) *SQLRepository {
	return &SQLRepository{db: dbClient, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (r *SQLRepository) Insert(ctx context.Context, t *Transaction) (int64, error) {
	if err := ValidateForInsert(t); err != nil {
		return 0, err
	}
	applyInsertDefaults(t)
	now := r.now()

	if _, err := r.db.Exec(
		ctx,
		qInsert,
		t.Reference,
		t.CustomerEmail,
		nullString(t.CustomerName),
		t.Amount,
		t.Currency,
		string(t.Status),
		nullString(t.PaymentMethod),
		nullString(t.Description),
		t.Metadata,
		now,
		now,
	); err != nil {
		if db.IsConflict(err) {
			return 0, errors.Join(duplicate(t.Reference), err)
		}
		r.logger.Error("insert failed", "layer", "repo", "component", "transaction", "method", "Insert", "reference", t.Reference, "error", err.Error())
		return 0, err
	}

	row, err := r.db.QueryRow(ctx, qInsertedID, t.Reference)
	if err != nil {
		r.logger.Error("read inserted id failed", "layer", "repo", "component", "transaction", "method", "Insert", "reference", t.Reference, "error", err.Error())
		return 0, err
	}
	var id int64
	if err := row.Scan(&id); err != nil {
		r.logger.Error("read inserted id failed", "layer", "repo", "component", "transaction", "method", "Insert", "reference", t.Reference, "error", err.Error())
		return 0, err
	}
	t.ID, t.CreatedAt, t.UpdatedAt = id, now, now
	return id, nil
}

func (r *SQLRepository) UpdateByReference(ctx context.Context, reference string, u Update) (bool, error) {
	n, err := r.db.Exec(ctx, qUpdate, string(u.Status), nullString(u.PaymentMethod), r.now(), reference)
	if err != nil {
		r.logger.Error("update failed", "layer", "repo", "component", "transaction", "method", "UpdateByReference", "reference", reference, "error", err.Error())
		return false, err
	}
	return n > 0, nil
}

func (r *SQLRepository) GetByReference(ctx context.Context, reference string) (*Transaction, error) {
	row, err := r.db.QueryRow(ctx, qGet, reference)
	if err != nil {
		r.logger.Error("get failed", "layer", "repo", "component", "transaction", "method", "GetByReference", "reference", reference, "error", err.Error())
		return nil, err
	}
	t, err := scanTransaction(row)
	if err != nil {
		if !db.IsNotFound(err) {
			r.logger.Error("get failed", "layer", "repo", "component", "transaction", "method", "GetByReference", "reference", reference, "error", err.Error())
		}
		return nil, err
	}
	return t, nil
}

func (r *SQLRepository) List(ctx context.Context, f ListFilter, page, perPage int) (*ListResult, error) {
	f, page, perPage = NormalizeList(f, page, perPage)
	where, args := listWhere(f)

	row, err := r.db.QueryRow(ctx, qCount+where, args...)
	if err != nil {
		r.logger.Error("count failed", "layer", "repo", "component", "transaction", "method", "List", "error", err.Error())
		return nil, err
	}
	var total int64
	if err := row.Scan(&total); err != nil {
		r.logger.Error("count failed", "layer", "repo", "component", "transaction", "method", "List", "error", err.Error())
		return nil, err
	}

	query := qList + where + " ORDER BY " + f.OrderBy + " " + f.Order + ", id " + f.Order + " LIMIT ? OFFSET ?"
	rows, err := r.db.Query(ctx, query, append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		r.logger.Error("list failed", "layer", "repo", "component", "transaction", "method", "List", "error", err.Error())
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := make([]*Transaction, 0, perPage)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("list scan failed", "layer", "repo", "component", "transaction", "method", "List", "error", err.Error())
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("list failed", "layer", "repo", "component", "transaction", "method", "List", "error", err.Error())
		return nil, db.Translate(err)
	}
	return &ListResult{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

// listWhere builds the filter clause. Column names never come from input.
func listWhere(f ListFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Search != "" {
		like := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		clauses = append(clauses, "(LOWER(customer_email) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(transaction_ref) LIKE ?)")
		args = append(args, like, like, like)
	}
	if !f.CreatedBefore.IsZero() {
		clauses = append(clauses, "created_at < ?")
		args = append(args, f.CreatedBefore.UTC())
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanTransaction(row db.Row) (*Transaction, error) {
	var (
		t                         Transaction
		status                    string
		name, method, description sql.NullString
		createdAt, updatedAt      sql.NullTime
	)
	if err := row.Scan(
		&t.ID,
		&t.Reference,
		&t.CustomerEmail,
		&name,
		&t.Amount,
		&t.Currency,
		&status,
		&method,
		&description,
		&t.Metadata,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, db.Translate(err)
	}
	t.Status = Status(status)
	t.CustomerName = name.String
	t.PaymentMethod = method.String
	t.Description = description.String
	t.CreatedAt = createdAt.Time
	t.UpdatedAt = updatedAt.Time
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ RepositoryContract = (*SQLRepository)(nil)
