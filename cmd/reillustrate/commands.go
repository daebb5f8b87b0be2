// cmd/reillustrate/commands.go
package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thiswayup/reillustrate/internal/models"
	"github.com/thiswayup/reillustrate/internal/services"
	"github.com/thiswayup/reillustrate/internal/storage"
)

func newPanelsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "panels",
		Short: "列出面板目录",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, closer, err := opts.openPipeline(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			panels, err := pipeline.ListPanelSummaries(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PANEL_ID\tCATEGORY\tCHARACTERS\tCLINICAL_REVIEW")
			for _, p := range panels {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", p.PanelID, p.Category, strings.Join(p.Characters, ","), p.RequiresClinicalReview)
			}
			return tw.Flush()
		},
	}
}

// transformFlags transform 和 validate 共用的参数
type transformFlags struct {
	panel   string
	variant string
	targets []string
}

func (f *transformFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.panel, "panel", "", "面板 ID")
	cmd.Flags().StringVar(&f.variant, "variant", "", "变体类型: "+strings.Join(models.ValidVariantIDs(), ", "))
	cmd.Flags().StringSliceVar(&f.targets, "target", nil, "要变换的角色名，缺省为全部来访者")
	_ = cmd.MarkFlagRequired("panel")
	_ = cmd.MarkFlagRequired("variant")
}

// targetList 未指定 --target 时返回 nil，交给生成器选择来访者
func (f *transformFlags) targetList(cmd *cobra.Command) []string {
	if !cmd.Flags().Changed("target") {
		return nil
	}
	return append([]string{}, f.targets...)
}

func newTransformCmd(opts *cliOptions) *cobra.Command {
	f := &transformFlags{}
	cmd := &cobra.Command{
		Use:   "transform",
		Short: "生成变换规格和提示词（JSON）",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, closer, err := opts.openPipeline(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			result, err := pipeline.Transform(cmd.Context(), f.panel, f.variant, f.targetList(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	f.register(cmd)
	return cmd
}

func newValidateCmd(opts *cliOptions) *cobra.Command {
	f := &transformFlags{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "输出临床审核提示词",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, closer, err := opts.openPipeline(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			result, err := pipeline.ValidationPrompt(cmd.Context(), f.panel, f.variant, f.targetList(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.ValidationPrompt)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newAnalyzePromptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze-prompt",
		Short: "输出面板分析提示词",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), services.NewAnalyzerService().AnalysisPrompt())
		},
	}
}

func newAnalyzeParseCmd() *cobra.Command {
	var format, panelID string
	cmd := &cobra.Command{
		Use:   "analyze-parse <response-file>",
		Short: "把视觉模型的分析响应解析为面板（JSON）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("读取响应文件失败: %w", err)
			}
			if format == "" && (strings.HasSuffix(args[0], ".yaml") || strings.HasSuffix(args[0], ".yml")) {
				format = services.FormatYAML
			}
			panel, err := services.NewAnalyzerService().ParseAnalysisResponse(data, format, panelID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), panel)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "响应格式: json 或 yaml，缺省按扩展名判断")
	cmd.Flags().StringVar(&panelID, "panel-id", "", "响应未给出 panel_id 时使用的面板 id")
	return cmd
}

func newDemoCmd(opts *cliOptions) *cobra.Command {
	var (
		variant string
		targets []string
		full    bool
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "对全部面板运行演示流水线（JSON）",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, closer, err := opts.openPipeline(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			demo := services.DemoOptions{Variant: variant, Full: full}
			if cmd.Flags().Changed("target") {
				demo.Targets = append([]string{}, targets...)
			}
			report, err := pipeline.RunDemo(cmd.Context(), demo)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&variant, "variant", services.DefaultDemoVariant, "演示使用的变体")
	cmd.Flags().StringSliceVar(&targets, "target", services.DefaultDemoTargets(), "演示变换的角色名")
	cmd.Flags().BoolVar(&full, "full", false, "附带每个面板的审核提示词")
	return cmd
}

func newSeedCmd(opts *cliOptions) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "把示例面板（或 --from 目录文件）写入 SQLite 仓库",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.sqlite == "" {
				return fmt.Errorf("需要 --sqlite 指定数据库路径")
			}

			panels := storage.SamplePanels()
			if from != "" {
				catalog, err := storage.LoadCatalogFile(from)
				if err != nil {
					return err
				}
				panels = catalog.Panels
			}

			if err := storage.SeedPanelDB(cmd.Context(), opts.sqlite, panels); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ 已写入 %d 个面板到 %s\n", len(panels), opts.sqlite)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "JSON/YAML 面板目录文件")
	return cmd
}

func newExportCmd(opts *cliOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "把当前仓库的面板导出为 JSON/YAML 目录文件",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, closer, err := opts.openPipeline(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			n, err := storage.ExportCatalog(cmd.Context(), pipeline.Panels, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ 已导出 %d 个面板到 %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "输出文件（.json/.yaml/.yml）")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
