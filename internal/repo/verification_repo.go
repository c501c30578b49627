package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/passport/internal/model"
	"github.com/xxxsen/passport/internal/pkg/dbutil"
	appErr "github.com/xxxsen/passport/internal/pkg/errors"
)

var verificationColumns = []string{"id", "email", "purpose", "code", "used", "attempt_count", "origin_ip", "ctime", "expires_at"}

type VerificationRepo struct {
	db *sql.DB
}

func NewVerificationRepo(db *sql.DB) *VerificationRepo {
	return &VerificationRepo{db: db}
}

func (r *VerificationRepo) Create(ctx context.Context, code *model.VerificationCode) error {
	data := map[string]interface{}{
		"id":            code.ID,
		"email":         code.Email,
		"purpose":       code.Purpose,
		"code":          code.Code,
		"used":          code.Used,
		"attempt_count": code.AttemptCount,
		"origin_ip":     dbutil.NullIfEmpty(code.OriginIP),
		"ctime":         code.Ctime,
		"expires_at":    code.ExpiresAt,
	}
	sqlStr, args, err := builder.BuildInsert("verification_codes", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

// LatestActive returns the newest unused code for (email, purpose).
// Ties on ctime break by id so repeated calls see the same record.
func (r *VerificationRepo) LatestActive(ctx context.Context, email, purpose string) (*model.VerificationCode, error) {
	where := map[string]interface{}{
		"email":    email,
		"purpose":  purpose,
		"used":     0,
		"_orderby": "ctime desc, id desc",
		"_limit":   []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect("verification_codes", where, verificationColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanVerificationCode(rows)
}

// CountSince counts every code issued to the address after the given
// time, across all purposes. Feeds the hourly issuance ceiling.
func (r *VerificationRepo) CountSince(ctx context.Context, email string, since int64) (int64, error) {
	const query = `SELECT COUNT(*) FROM verification_codes WHERE email = $1 AND ctime > $2`
	var count int64
	if err := r.db.QueryRowContext(ctx, query, email, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// RetireActive marks every unused code for (email, purpose) as used.
func (r *VerificationRepo) RetireActive(ctx context.Context, email, purpose string) error {
	where := map[string]interface{}{"email": email, "purpose": purpose, "used": 0}
	update := map[string]interface{}{"used": 1}
	sqlStr, args, err := builder.BuildUpdate("verification_codes", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// IncrementAttempts bumps the attempt counter and returns the new value.
func (r *VerificationRepo) IncrementAttempts(ctx context.Context, id string) (int, error) {
	const query = `UPDATE verification_codes SET attempt_count = attempt_count + 1 WHERE id = $1 RETURNING attempt_count`
	var count int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		if err == sql.ErrNoRows {
			return 0, appErr.ErrNotFound
		}
		return 0, err
	}
	return count, nil
}

// MarkUsed flips used only when it is still unset, so exactly one of any
// concurrent validations can win. Returns ErrNotFound when the code was
// already used or never existed.
func (r *VerificationRepo) MarkUsed(ctx context.Context, id string) error {
	where := map[string]interface{}{"id": id, "used": 0}
	update := map[string]interface{}{"used": 1}
	sqlStr, args, err := builder.BuildUpdate("verification_codes", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// DeleteBefore removes every code created before the cutoff regardless
// of used or expired state.
func (r *VerificationRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	const query = `DELETE FROM verification_codes WHERE ctime < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanVerificationCode(rows *sql.Rows) (*model.VerificationCode, error) {
	var code model.VerificationCode
	var originIP sql.NullString
	if err := rows.Scan(&code.ID, &code.Email, &code.Purpose, &code.Code, &code.Used,
		&code.AttemptCount, &originIP, &code.Ctime, &code.ExpiresAt); err != nil {
		return nil, err
	}
	code.OriginIP = originIP.String
	return &code, nil
}
