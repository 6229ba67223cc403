// Package history 把每次实际执行的重命名批次记入 SQLite，供撤回使用。
package history

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// FileName 是状态目录下的历史库文件名。
const FileName = "history.db"

// ErrNoBatch 表示没有可撤回的批次。
var ErrNoBatch = errors.New("没有可撤回的重命名批次")

// Move 是一次已完成的 rename（绝对路径）。
type Move struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

// Batch 是一次 apply 运行中成功执行的全部 rename。
type Batch struct {
	ID        string
	Root      string
	CreatedAt time.Time
	Moves     []Move
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID 生成按时间单调递增的批次 ID（ULID）。
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// Store 是历史库句柄。
type Store struct {
	db *sql.DB
}

// Open 打开（必要时创建）历史库并初始化 schema。
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开历史库失败：%w", err)
	}
	// 单连接：同一进程内的写入天然串行。
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("初始化历史库失败：%w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

const schemaSQL = `
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	root TEXT NOT NULL,
	created_at TEXT NOT NULL,
	undone_at TEXT
);

CREATE TABLE IF NOT EXISTS moves (
	batch_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	src TEXT NOT NULL,
	dst TEXT NOT NULL,
	PRIMARY KEY(batch_id, seq),
	FOREIGN KEY(batch_id) REFERENCES batches(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_batches_root ON batches(root, id);
`

// Record 在一个事务内写入批次及其 rename。没有 rename 的批次不记录。
func (s *Store) Record(ctx context.Context, b Batch) error {
	if len(b.Moves) == 0 {
		return nil
	}
	if b.ID == "" {
		return errors.New("batch id 不能为空")
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO batches(id, root, created_at) VALUES(?, ?, ?)`,
		b.ID, b.Root, b.CreatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("写入批次失败：%w", err)
	}
	for i, m := range b.Moves {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO moves(batch_id, seq, src, dst) VALUES(?, ?, ?, ?)`,
			b.ID, i, m.Src, m.Dst,
		); err != nil {
			return fmt.Errorf("写入 rename 记录失败：%w", err)
		}
	}
	return tx.Commit()
}

// Last 返回 root 下最近一个尚未撤回的批次。
func (s *Store) Last(ctx context.Context, root string) (Batch, error) {
	var (
		b       Batch
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, root, created_at FROM batches WHERE root = ? AND undone_at IS NULL ORDER BY id DESC LIMIT 1`,
		root,
	).Scan(&b.ID, &b.Root, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Batch{}, ErrNoBatch
	}
	if err != nil {
		return Batch{}, err
	}
	if b.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Batch{}, fmt.Errorf("批次 %s 的时间戳无效：%w", b.ID, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT src, dst FROM moves WHERE batch_id = ? ORDER BY seq`, b.ID)
	if err != nil {
		return Batch{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var m Move
		if err := rows.Scan(&m.Src, &m.Dst); err != nil {
			return Batch{}, err
		}
		b.Moves = append(b.Moves, m)
	}
	return b, rows.Err()
}

// MarkUndone 把批次标记为已撤回，之后 Last 不再返回它。
func (s *Store) MarkUndone(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE batches SET undone_at = ? WHERE id = ? AND undone_at IS NULL`,
		time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w：%s", ErrNoBatch, id)
	}
	return nil
}
