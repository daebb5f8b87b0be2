// internal/storage/file_storage.go
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/thiswayup/reillustrate/internal/models"
	"github.com/thiswayup/reillustrate/internal/utils"
)

// PanelCatalog 面板目录文件的顶层结构
type PanelCatalog struct {
	Panels []models.Panel `json:"panels" yaml:"panels"`
}

// catalogFormat 根据扩展名判断目录文件格式
func catalogFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	default:
		return "", fmt.Errorf("不支持的面板目录格式: %s", path)
	}
}

// 文件级别锁 path -> *sync.RWMutex
var fileLocks sync.Map

func getFileLock(fullPath string) *sync.RWMutex {
	value, _ := fileLocks.LoadOrStore(fullPath, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

// DecodeCatalog 解析 JSON 或 YAML 格式的面板目录
func DecodeCatalog(data []byte, format string) (*PanelCatalog, error) {
	var catalog PanelCatalog
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&catalog); err != nil {
			return nil, fmt.Errorf("解析JSON面板目录失败: %w", err)
		}
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&catalog); err != nil {
			return nil, fmt.Errorf("解析YAML面板目录失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的格式: %s", format)
	}
	return &catalog, nil
}

// LoadCatalogFile 读取面板目录文件
func LoadCatalogFile(path string) (*PanelCatalog, error) {
	format, err := catalogFormat(path)
	if err != nil {
		return nil, err
	}

	lock := getFileLock(path)
	lock.RLock()
	data, err := os.ReadFile(path)
	lock.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("读取面板目录失败: %w", err)
	}

	return DecodeCatalog(data, format)
}

// WriteCatalogFile 原子写入面板目录，格式由扩展名决定
func WriteCatalogFile(path string, panels []models.Panel) error {
	format, err := catalogFormat(path)
	if err != nil {
		return err
	}

	catalog := PanelCatalog{Panels: panels}
	var content []byte
	if format == "json" {
		content, err = json.MarshalIndent(catalog, "", "  ")
	} else {
		content, err = yaml.Marshal(catalog)
	}
	if err != nil {
		return fmt.Errorf("序列化面板目录失败: %w", err)
	}

	lock := getFileLock(path)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	// 原子性文件写入
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return fmt.Errorf("保存临时文件失败: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			utils.GetLogger().Warn("failed to clean up temporary file", map[string]interface{}{
				"path":  tempPath,
				"error": removeErr.Error(),
			})
		}
		return fmt.Errorf("保存文件失败: %w", err)
	}
	return nil
}

// FilePanelRepository 从目录文件载入的只读仓库。
// 文件只在构造时读取一次，之后与内存仓库行为一致。
type FilePanelRepository struct {
	*MemoryPanelRepository
	path string
}

// NewFilePanelRepository 载入并校验目录文件
func NewFilePanelRepository(path string) (*FilePanelRepository, error) {
	catalog, err := LoadCatalogFile(path)
	if err != nil {
		return nil, err
	}
	mem, err := NewMemoryPanelRepository(catalog.Panels)
	if err != nil {
		return nil, fmt.Errorf("面板目录 %s 无效: %w", path, err)
	}

	utils.GetLogger().Info("panel catalog loaded", map[string]interface{}{
		"path":   path,
		"panels": len(catalog.Panels),
	})
	return &FilePanelRepository{MemoryPanelRepository: mem, path: path}, nil
}

// Path 返回目录文件路径
func (r *FilePanelRepository) Path() string {
	return r.path
}

// ExportCatalog 把任意仓库的内容写成目录文件
func ExportCatalog(ctx context.Context, repo PanelRepository, path string) (int, error) {
	panels, err := repo.ListPanels(ctx)
	if err != nil {
		return 0, err
	}
	if err := WriteCatalogFile(path, panels); err != nil {
		return 0, err
	}
	return len(panels), nil
}
