// Package sqlite provides the SQLite-backed staff directory.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/staffgate/pkg/adapters/sqlite/migrations"
	"github.com/aretw0/staffgate/pkg/domain"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Directory persists members, the blacklist and roles in SQLite.
type Directory struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite directory and applies embedded migrations.
func Open(path string) (*Directory, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Directory{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (d *Directory) Close() error {
	if d == nil || d.sqlDB == nil {
		return nil
	}
	return d.sqlDB.Close()
}

// SeedSuperuser registers id as the accepting authority. It is a no-op when
// id is already a member.
func (d *Directory) SeedSuperuser(ctx context.Context, id domain.Identity) error {
	if id.IsZero() {
		return fmt.Errorf("superuser identity is required")
	}
	_, err := d.sqlDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO members (tg_id, member_alias, role_id, created_at)
		 VALUES (?, ?, (SELECT id FROM roles WHERE role = ?), ?)`,
		int64(id), string(domain.RoleSuperuser), string(domain.RoleSuperuser), toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("seed superuser: %w", err)
	}
	return nil
}

// InsertStaff records an accepted member.
func (d *Directory) InsertStaff(ctx context.Context, rec domain.StaffRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(rec.Alias) == "" {
		return fmt.Errorf("member alias is required")
	}
	if !rec.Role.Valid() {
		return &domain.InvalidRoleError{Value: string(rec.Role)}
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := d.sqlDB.ExecContext(ctx,
		`INSERT INTO members (tg_id, member_alias, role_id, phone, file_id, created_at)
		 VALUES (?, ?, (SELECT id FROM roles WHERE role = ?), ?, ?, ?)`,
		int64(rec.Identity), rec.Alias, string(rec.Role), nullString(rec.Phone), nullString(rec.FileID), toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// InsertBlacklist records a rejected applicant.
func (d *Directory) InsertBlacklist(ctx context.Context, rec domain.BlacklistRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := d.sqlDB.ExecContext(ctx,
		`INSERT INTO blacklist (tg_id, name, phone, created_at) VALUES (?, ?, ?, ?)`,
		int64(rec.Identity), rec.Name, rec.Phone, toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert blacklist: %w", err)
	}
	return nil
}

// ListAssignedFileIDs returns every file id pinned to a member.
func (d *Directory) ListAssignedFileIDs(ctx context.Context) ([]string, error) {
	rows, err := d.sqlDB.QueryContext(ctx,
		`SELECT file_id FROM members WHERE file_id IS NOT NULL ORDER BY file_id`)
	if err != nil {
		return nil, fmt.Errorf("list file ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan file id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file ids: %w", err)
	}
	return ids, nil
}

// LookupRole returns the role of a member; ok is false for unknown identities.
func (d *Directory) LookupRole(ctx context.Context, id domain.Identity) (domain.Role, bool, error) {
	var raw string
	err := d.sqlDB.QueryRowContext(ctx,
		`SELECT roles.role FROM members
		 JOIN roles ON (members.role_id = roles.id)
		 WHERE members.tg_id = ?`, int64(id),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup role: %w", err)
	}
	role, err := domain.ParseRole(raw)
	if err != nil {
		return "", false, err
	}
	return role, true, nil
}

// IsBlacklisted reports whether id was rejected before.
func (d *Directory) IsBlacklisted(ctx context.Context, id domain.Identity) (bool, error) {
	var found int
	err := d.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM blacklist WHERE tg_id = ?`, int64(id)).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return true, nil
}

// ListStaff returns every member ordered by alias.
func (d *Directory) ListStaff(ctx context.Context) ([]domain.StaffRecord, error) {
	rows, err := d.sqlDB.QueryContext(ctx,
		`SELECT members.tg_id, members.member_alias, roles.role, members.phone, members.file_id, members.created_at
		 FROM members
		 JOIN roles ON (members.role_id = roles.id)
		 ORDER BY members.member_alias ASC`)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var out []domain.StaffRecord
	for rows.Next() {
		var (
			id        int64
			rec       domain.StaffRecord
			role      string
			phone     sql.NullString
			fileID    sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&id, &rec.Alias, &role, &phone, &fileID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		rec.Identity = domain.Identity(id)
		rec.Role = domain.Role(role)
		rec.Phone = phone.String
		rec.FileID = fileID.String
		rec.CreatedAt = fromMillis(createdAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return out, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
