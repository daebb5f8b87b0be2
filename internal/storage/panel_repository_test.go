package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thiswayup/reillustrate/internal/config"
	"github.com/thiswayup/reillustrate/internal/models"
)

func TestSamplePanelsAreValid(t *testing.T) {
	panels := SamplePanels()
	if len(panels) != 5 {
		t.Fatalf("期望 5 个示例面板，实际 %d", len(panels))
	}
	for _, p := range panels {
		if err := p.Validate(); err != nil {
			t.Errorf("面板 %s 校验失败: %v", p.PanelID, err)
		}
	}
}

func TestMemoryRepositoryGetAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewSamplePanelRepository()

	panels, err := repo.ListPanels(ctx)
	if err != nil {
		t.Fatalf("列出面板失败: %v", err)
	}
	want := []string{SampleNarratorIntro, SampleTherapyIntro, SampleBedDistress, SampleCircadianDiagram, SampleBedroomDomestic}
	for i, id := range want {
		if panels[i].PanelID != id {
			t.Errorf("第 %d 个面板期望 %s，实际 %s", i, id, panels[i].PanelID)
		}
	}

	p, err := repo.GetPanel(ctx, SampleBedDistress)
	if err != nil || p == nil {
		t.Fatalf("获取面板失败: %v", err)
	}
	if p.Characters[0].Name != "Leo" || p.Characters[0].Emotion != models.EmotionDistressed {
		t.Errorf("面板内容不符: %+v", p.Characters[0])
	}

	missing, err := repo.GetPanel(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("不存在的面板不应返回错误: %v", err)
	}
	if missing != nil {
		t.Errorf("不存在的面板应返回 nil")
	}
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewSamplePanelRepository()

	p, _ := repo.GetPanel(ctx, SampleBedDistress)
	p.Characters[0].Name = "Changed"
	p.LockedElements[0] = "changed"

	again, _ := repo.GetPanel(ctx, SampleBedDistress)
	if again.Characters[0].Name != "Leo" {
		t.Errorf("修改副本影响了仓库中的角色")
	}
	if again.LockedElements[0] != "distressed expression" {
		t.Errorf("修改副本影响了仓库中的锁定元素")
	}
}

func TestEmptyListsSerializeAsArrays(t *testing.T) {
	repo := NewSamplePanelRepository()
	p, _ := repo.GetPanel(context.Background(), SampleNarratorIntro)

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}
	if !strings.Contains(string(data), `"therapeutic_elements":[]`) {
		t.Errorf("空列表应序列化为 []: %s", data)
	}
}

func TestMemoryRepositoryRejectsDuplicates(t *testing.T) {
	panels := SamplePanels()
	panels = append(panels, panels[0])
	if _, err := NewMemoryPanelRepository(panels); err == nil {
		t.Fatal("重复的面板ID应当报错")
	}
}

func TestMemoryRepositoryRejectsInvalidPanel(t *testing.T) {
	panels := SamplePanels()
	panels[0].Category = "comic_strip"
	if _, err := NewMemoryPanelRepository(panels); err == nil {
		t.Fatal("未知分类应当报错")
	}
}

func TestMemoryRepositoryHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSamplePanelRepository().ListPanels(ctx); err == nil {
		t.Fatal("已取消的上下文应当返回错误")
	}
}

func TestCatalogFileRoundTrip(t *testing.T) {
	for _, name := range []string{"panels.yaml", "panels.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			n, err := ExportCatalog(context.Background(), NewSamplePanelRepository(), path)
			if err != nil {
				t.Fatalf("导出目录失败: %v", err)
			}
			if n != 5 {
				t.Fatalf("期望导出 5 个面板，实际 %d", n)
			}
			if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
				t.Errorf("临时文件未清理")
			}

			repo, err := NewFilePanelRepository(path)
			if err != nil {
				t.Fatalf("载入目录失败: %v", err)
			}
			p, err := repo.GetPanel(context.Background(), SampleCircadianDiagram)
			if err != nil || p == nil {
				t.Fatalf("获取面板失败: %v", err)
			}
			if !p.RequiresClinicalReview {
				t.Errorf("requires_clinical_review 丢失")
			}
			if len(p.TherapeuticElements) != 1 || !p.TherapeuticElements[0].MustPreserve {
				t.Errorf("治疗元素丢失: %+v", p.TherapeuticElements)
			}
		})
	}
}

func TestCatalogDefaultsApplied(t *testing.T) {
	data := []byte(`
panels:
  - panel_id: p1
    category: client_single
    characters:
      - role: client
        name: Sam
        emotion: neutral
    therapeutic_elements:
      - element_type: worksheet
        content_description: sleep diary
`)
	catalog, err := DecodeCatalog(data, "yaml")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	p := catalog.Panels[0]
	if !p.RequiredEmotionPreservation || !p.RequiredCompositionPreservation {
		t.Errorf("保留标志应默认为 true")
	}
	if p.RequiresClinicalReview {
		t.Errorf("requires_clinical_review 应默认为 false")
	}
	if !p.TherapeuticElements[0].MustPreserve {
		t.Errorf("must_preserve 应默认为 true")
	}
}

func TestCatalogRejectsUnknownEnum(t *testing.T) {
	data := []byte(`{"panels":[{"panel_id":"p1","category":"client_single","characters":[{"role":"client","name":"Sam","emotion":"ecstatic"}]}]}`)
	if _, err := DecodeCatalog(data, "json"); err == nil {
		t.Fatal("未知情绪应当报错")
	}
}

func TestCatalogRejectsUnknownFields(t *testing.T) {
	cases := map[string]struct {
		format string
		data   string
	}{
		"json panel":     {"json", `{"panels":[{"panel_id":"p1","category":"client_single","colour":"red"}]}`},
		"json character": {"json", `{"panels":[{"panel_id":"p1","category":"client_single","characters":[{"role":"client","name":"Sam","emotion":"neutral","hat":"yes"}]}]}`},
		"json element":   {"json", `{"panels":[{"panel_id":"p1","category":"client_single","therapeutic_elements":[{"element_type":"diagram","size":3}]}]}`},
		"yaml panel":     {"yaml", "panels:\n  - panel_id: p1\n    category: client_single\n    colour: red\n"},
		"yaml element":   {"yaml", "panels:\n  - panel_id: p1\n    category: client_single\n    therapeutic_elements:\n      - element_type: diagram\n        size: 3\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeCatalog([]byte(tc.data), tc.format); err == nil {
				t.Errorf("%s: 未知字段应当报错", name)
			}
		})
	}

	if _, err := DecodeCatalog([]byte(`{"panels":[{"panel_id":"p1","category":"client_single"}]}`), "json"); err != nil {
		t.Errorf("合法目录不应报错: %v", err)
	}
}

func TestCatalogRejectsUnknownExtension(t *testing.T) {
	if _, err := NewFilePanelRepository(filepath.Join(t.TempDir(), "panels.txt")); err == nil {
		t.Fatal("不支持的扩展名应当报错")
	}
}

func TestSQLiteRepository(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "panels.db")

	if err := SeedPanelDB(ctx, dbPath, SamplePanels()); err != nil {
		t.Fatalf("写入数据库失败: %v", err)
	}
	// 重复写入应替换而不是追加
	if err := SeedPanelDB(ctx, dbPath, SamplePanels()); err != nil {
		t.Fatalf("重复写入数据库失败: %v", err)
	}

	repo, err := NewSQLitePanelRepository(dbPath)
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	defer repo.Close()

	n, err := repo.CountPanels(ctx)
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if n != 5 {
		t.Fatalf("期望 5 个面板，实际 %d", n)
	}

	panels, err := repo.ListPanels(ctx)
	if err != nil {
		t.Fatalf("列出面板失败: %v", err)
	}
	if panels[0].PanelID != SampleNarratorIntro || panels[4].PanelID != SampleBedroomDomestic {
		t.Errorf("面板顺序不符")
	}

	p, err := repo.GetPanel(ctx, SampleBedroomDomestic)
	if err != nil || p == nil {
		t.Fatalf("获取面板失败: %v", err)
	}
	if p.Characters[1].Role != models.RolePartner {
		t.Errorf("角色身份不符: %s", p.Characters[1].Role)
	}

	missing, err := repo.GetPanel(ctx, "nonexistent")
	if err != nil || missing != nil {
		t.Errorf("不存在的面板应返回 (nil, nil)，实际 (%v, %v)", missing, err)
	}
}

func TestNewPanelRepositoryFromConfig(t *testing.T) {
	cfg := config.Default()
	repo, closer, err := NewPanelRepositoryFromConfig(cfg)
	if err != nil {
		t.Fatalf("创建内存仓库失败: %v", err)
	}
	defer closer.Close()
	if _, ok := repo.(*MemoryPanelRepository); !ok {
		t.Errorf("期望内存仓库，实际 %T", repo)
	}

	cfg.PanelStore = config.StoreSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "panels.db")
	repo, closer, err = NewPanelRepositoryFromConfig(cfg)
	if err != nil {
		t.Fatalf("创建 SQLite 仓库失败: %v", err)
	}
	defer closer.Close()
	panels, err := repo.ListPanels(context.Background())
	if err != nil {
		t.Fatalf("列出面板失败: %v", err)
	}
	if len(panels) != 0 {
		t.Errorf("新数据库应为空，实际 %d", len(panels))
	}

	cfg.PanelStore = "redis"
	if _, _, err := NewPanelRepositoryFromConfig(cfg); err == nil {
		t.Error("未知仓库类型应当报错")
	}
}
