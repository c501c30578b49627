package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/passport/internal/model"
	"github.com/xxxsen/passport/internal/pkg/dbutil"
	appErr "github.com/xxxsen/passport/internal/pkg/errors"
)

var userColumns = []string{
	"id", "email", "password_hash", "first_name", "last_name", "phone", "birth_date",
	"role_id", "google_id", "facebook_id", "twitter_id", "linkedin_id", "ctime", "mtime",
}

// providerColumn maps a provider name to its identifier column. Adding a
// provider means a migration plus an entry here.
var providerColumn = map[string]string{
	"google":   "google_id",
	"facebook": "facebook_id",
	"twitter":  "twitter_id",
	"linkedin": "linkedin_id",
}

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	data := map[string]interface{}{
		"id":            user.ID,
		"email":         user.Email,
		"password_hash": dbutil.NullIfEmpty(user.PasswordHash),
		"first_name":    user.FirstName,
		"last_name":     user.LastName,
		"phone":         dbutil.NullIfEmpty(user.Phone),
		"birth_date":    nullIfZero(user.BirthDate),
		"role_id":       user.RoleID,
		"google_id":     dbutil.NullIfEmpty(user.GoogleID),
		"facebook_id":   dbutil.NullIfEmpty(user.FacebookID),
		"twitter_id":    dbutil.NullIfEmpty(user.TwitterID),
		"linkedin_id":   dbutil.NullIfEmpty(user.LinkedInID),
		"ctime":         user.Ctime,
		"mtime":         user.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("users", []map[string]interface{}{data})
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

func (r *UserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"id": userID})
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"email": email})
}

func (r *UserRepo) GetByProviderID(ctx context.Context, provider, subjectID string) (*model.User, error) {
	column, ok := providerColumn[provider]
	if !ok {
		return nil, appErr.ErrUnknownProvider
	}
	return r.getOne(ctx, map[string]interface{}{column: subjectID})
}

func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT COUNT(*) FROM users WHERE email = $1`
	var count int64
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetProviderID attaches a provider identifier to an existing account.
// The unique index on the column rejects an identifier already linked
// elsewhere.
func (r *UserRepo) SetProviderID(ctx context.Context, userID, provider, subjectID string, mtime int64) error {
	column, ok := providerColumn[provider]
	if !ok {
		return appErr.ErrUnknownProvider
	}
	where := map[string]interface{}{"id": userID}
	update := map[string]interface{}{column: subjectID, "mtime": mtime}
	return r.updateOne(ctx, where, update)
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string, mtime int64) error {
	where := map[string]interface{}{"id": userID}
	update := map[string]interface{}{"password_hash": passwordHash, "mtime": mtime}
	return r.updateOne(ctx, where, update)
}

func (r *UserRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.User, error) {
	sqlStr, args, err := builder.BuildSelect("users", where, userColumns)
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
	return scanUser(rows)
}

func (r *UserRepo) updateOne(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("users", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
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

func scanUser(rows *sql.Rows) (*model.User, error) {
	var user model.User
	var passwordHash, phone, googleID, facebookID, twitterID, linkedInID sql.NullString
	var birthDate sql.NullInt64
	if err := rows.Scan(&user.ID, &user.Email, &passwordHash, &user.FirstName, &user.LastName,
		&phone, &birthDate, &user.RoleID, &googleID, &facebookID, &twitterID, &linkedInID,
		&user.Ctime, &user.Mtime); err != nil {
		return nil, err
	}
	user.PasswordHash = passwordHash.String
	user.Phone = phone.String
	user.BirthDate = birthDate.Int64
	user.GoogleID = googleID.String
	user.FacebookID = facebookID.String
	user.TwitterID = twitterID.String
	user.LinkedInID = linkedInID.String
	return &user, nil
}

func nullIfZero(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}
