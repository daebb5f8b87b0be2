// cmd/reillustrate/root.go
package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thiswayup/reillustrate/internal/config"
	"github.com/thiswayup/reillustrate/internal/services"
	"github.com/thiswayup/reillustrate/internal/storage"
	"github.com/thiswayup/reillustrate/internal/utils"
)

// cliOptions 全局参数，未显式设置时沿用环境变量配置
type cliOptions struct {
	store     string
	panelFile string
	sqlite    string
	strict    bool
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "reillustrate",
		Short:         "TWU 治疗插画重绘规划工具",
		Long:          "为治疗插画面板生成变换规格、图像提示词和临床审核提示词。",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := utils.WARNING
			if opts.verbose {
				level = utils.DEBUG
			}
			utils.GetLogger().SetLogLevel(level)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.store, "store", "", "面板仓库类型: memory, file, sqlite")
	flags.StringVar(&opts.panelFile, "panel-file", "", "JSON/YAML 面板目录文件")
	flags.StringVar(&opts.sqlite, "sqlite", "", "SQLite 面板数据库路径")
	flags.BoolVar(&opts.strict, "strict", false, "严格模式：未知变体族或目标角色直接报错")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "输出调试日志")

	root.AddCommand(
		newPanelsCmd(opts),
		newTransformCmd(opts),
		newValidateCmd(opts),
		newAnalyzePromptCmd(),
		newAnalyzeParseCmd(),
		newDemoCmd(opts),
		newSeedCmd(opts),
		newExportCmd(opts),
	)
	return root
}

// loadConfig 读取环境配置并叠加命令行参数
func (o *cliOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.PanelStore = o.store
	}
	if flags.Changed("panel-file") {
		cfg.PanelFile = o.panelFile
		if !flags.Changed("store") {
			cfg.PanelStore = config.StoreFile
		}
	}
	if flags.Changed("sqlite") {
		cfg.SQLitePath = o.sqlite
		if !flags.Changed("store") {
			cfg.PanelStore = config.StoreSQLite
		}
	}
	if flags.Changed("strict") {
		cfg.StrictVariants = o.strict
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openPipeline 按配置组装流水线，返回的 Closer 负责释放仓库
func (o *cliOptions) openPipeline(cmd *cobra.Command) (*services.PipelineService, io.Closer, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	repo, closer, err := storage.NewPanelRepositoryFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	validator, err := services.NewValidationService()
	if err != nil {
		closer.Close()
		return nil, nil, err
	}

	pipeline := services.NewPipelineService(
		repo,
		services.NewTransformService(cfg.StrictVariants),
		services.NewPromptService(),
		validator,
		utils.NewAPIMetricsWithCollector(utils.NewMetricsCollector()),
	)
	return pipeline, closer, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("输出 JSON 失败: %w", err)
	}
	return nil
}
