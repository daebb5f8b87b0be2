// internal/storage/factory.go
package storage

import (
	"fmt"
	"io"

	"github.com/thiswayup/reillustrate/internal/config"
)

// NewPanelRepositoryFromConfig 按 PANEL_STORE 选择面板仓库。
// 返回的 io.Closer 在无需释放资源时为空操作。
func NewPanelRepositoryFromConfig(cfg *config.Config) (PanelRepository, io.Closer, error) {
	switch cfg.PanelStore {
	case config.StoreMemory, "":
		return NewSamplePanelRepository(), nopCloser{}, nil
	case config.StoreFile:
		repo, err := NewFilePanelRepository(cfg.PanelFile)
		if err != nil {
			return nil, nil, err
		}
		return repo, nopCloser{}, nil
	case config.StoreSQLite:
		repo, err := NewSQLitePanelRepository(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	default:
		return nil, nil, fmt.Errorf("未知的面板仓库类型: %s", cfg.PanelStore)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
