// internal/storage/sqlite_repository.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/thiswayup/reillustrate/internal/models"
)

const panelSchemaSQL = `
CREATE TABLE IF NOT EXISTS panels (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    panel_id TEXT NOT NULL UNIQUE,
    category TEXT NOT NULL,
    source_file TEXT,
    body TEXT NOT NULL
);
`

// OpenPanelDB 打开 SQLite 数据库并应用表结构
func OpenPanelDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(panelSchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// SeedPanelDB 用给定面板替换数据库中的全部面板，插入顺序即目录顺序
func SeedPanelDB(ctx context.Context, path string, panels []models.Panel) error {
	for _, p := range panels {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	conn, err := OpenPanelDB(path)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM panels`); err != nil {
		return fmt.Errorf("clear panels: %w", err)
	}
	for _, p := range panels {
		body, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode panel %s: %w", p.PanelID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO panels(panel_id, category, source_file, body) VALUES(?,?,?,?)`,
			p.PanelID, string(p.Category), p.SourceFile, string(body),
		); err != nil {
			return fmt.Errorf("insert panel %s: %w", p.PanelID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// SQLitePanelRepository 每次查询都读取数据库，面板以 JSON 文本存储
type SQLitePanelRepository struct {
	db *sql.DB
}

// NewSQLitePanelRepository 打开数据库
func NewSQLitePanelRepository(path string) (*SQLitePanelRepository, error) {
	db, err := OpenPanelDB(path)
	if err != nil {
		return nil, err
	}
	return &SQLitePanelRepository{db: db}, nil
}

// Close 关闭数据库连接
func (r *SQLitePanelRepository) Close() error {
	return r.db.Close()
}

// GetPanel 按 ID 查询
func (r *SQLitePanelRepository) GetPanel(ctx context.Context, panelID string) (*models.Panel, error) {
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM panels WHERE panel_id = ?`, panelID).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query panel %s: %w", panelID, err)
	}

	p, err := decodePanelRow(body)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPanels 按插入顺序返回
func (r *SQLitePanelRepository) ListPanels(ctx context.Context) ([]models.Panel, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT body FROM panels ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query panels: %w", err)
	}
	defer rows.Close()

	panels := []models.Panel{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan panel: %w", err)
		}
		p, err := decodePanelRow(body)
		if err != nil {
			return nil, err
		}
		panels = append(panels, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate panels: %w", err)
	}
	return panels, nil
}

// CountPanels 返回面板数量
func (r *SQLitePanelRepository) CountPanels(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM panels`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count panels: %w", err)
	}
	return n, nil
}

func decodePanelRow(body string) (models.Panel, error) {
	var p models.Panel
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return models.Panel{}, fmt.Errorf("decode panel: %w", err)
	}
	return clonePanel(p), nil
}
