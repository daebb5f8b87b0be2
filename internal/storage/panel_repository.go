// internal/storage/panel_repository.go
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/thiswayup/reillustrate/internal/models"
)

// PanelRepository 面板只读仓库。生成器和提示词构建器不关心面板来源
// （内置示例、文件目录、数据库或真实的视觉分析流水线）。
type PanelRepository interface {
	// GetPanel 按 ID 获取面板，不存在时返回 (nil, nil)
	GetPanel(ctx context.Context, panelID string) (*models.Panel, error)
	// ListPanels 按目录顺序返回全部面板
	ListPanels(ctx context.Context) ([]models.Panel, error)
}

// MemoryPanelRepository 初始化后只读的内存仓库
type MemoryPanelRepository struct {
	panels []models.Panel
	index  map[string]int
}

// NewMemoryPanelRepository 校验并载入面板，ID 重复时报错
func NewMemoryPanelRepository(panels []models.Panel) (*MemoryPanelRepository, error) {
	repo := &MemoryPanelRepository{
		panels: make([]models.Panel, 0, len(panels)),
		index:  make(map[string]int, len(panels)),
	}
	for _, p := range panels {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := repo.index[p.PanelID]; dup {
			return nil, fmt.Errorf("面板ID重复: %s", p.PanelID)
		}
		repo.index[p.PanelID] = len(repo.panels)
		repo.panels = append(repo.panels, clonePanel(p))
	}
	return repo, nil
}

var (
	sampleRepo     *MemoryPanelRepository
	sampleRepoOnce sync.Once
)

// NewSamplePanelRepository 返回内置 5 个示例面板的仓库
func NewSamplePanelRepository() *MemoryPanelRepository {
	sampleRepoOnce.Do(func() {
		repo, err := NewMemoryPanelRepository(SamplePanels())
		if err != nil {
			// 内置数据不合法属于编程错误
			panic(fmt.Sprintf("内置示例面板无效: %v", err))
		}
		sampleRepo = repo
	})
	return sampleRepo
}

// GetPanel 返回面板副本
func (r *MemoryPanelRepository) GetPanel(ctx context.Context, panelID string) (*models.Panel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i, ok := r.index[panelID]
	if !ok {
		return nil, nil
	}
	p := clonePanel(r.panels[i])
	return &p, nil
}

// ListPanels 返回全部面板副本
func (r *MemoryPanelRepository) ListPanels(ctx context.Context) ([]models.Panel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.Panel, 0, len(r.panels))
	for _, p := range r.panels {
		out = append(out, clonePanel(p))
	}
	return out, nil
}

// clonePanel 深拷贝切片字段，调用方拿到的面板不会影响仓库内容
func clonePanel(p models.Panel) models.Panel {
	p.Characters = cloneSlice(p.Characters)
	p.TherapeuticElements = cloneSlice(p.TherapeuticElements)
	p.SpeechBubbles = cloneSlice(p.SpeechBubbles)
	p.TextOverlays = cloneSlice(p.TextOverlays)
	p.LockedElements = cloneSlice(p.LockedElements)
	p.AdaptableElements = cloneSlice(p.AdaptableElements)
	return p
}

// cloneSlice 空切片也返回非 nil，序列化为 []
func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
