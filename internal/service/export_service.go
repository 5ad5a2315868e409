package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"team-sports/backend/internal/model"
	"team-sports/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoEvents     = errors.New("该球队暂无日程")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出球队聚合日程为 Excel (.xlsx)，数据与日程页面同源（ScheduleAggregator）
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - Excel 格式：Sheet "日程" 按开始时间逐行列出，Sheet "统计" 为各类型数量
type ExportService interface {
	// ExportTeamSchedule 导出球队日程为 Excel
	ExportTeamSchedule(ctx context.Context, auth model.AuthContext, teamID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo       *repository.Repository
	aggregator ScheduleAggregator
	logger     *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, aggregator ScheduleAggregator, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, aggregator: aggregator, logger: logger}
}

var sourceLabels = map[model.EventSource]string{
	model.SourcePractice: "训练",
	model.SourceMeeting:  "会议",
	model.SourceGame:     "比赛",
}

const (
	exportSheetEvents  = "日程"
	exportSheetSummary = "统计"
	exportDateLayout   = "2006-01-02"
	exportTimeLayout   = "15:04"
)

// ═══════════════════════════════════════════════════════════
// ExportTeamSchedule：导出球队日程为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：球队名称：日程表
//   - 表头：日期 | 开始 | 结束 | 类型 | 子类型 | 标题 | 地点 | 对阵
//   - 时间统一按 UTC 输出
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportTeamSchedule(ctx context.Context, auth model.AuthContext, teamID string) (*bytes.Buffer, string, error) {
	if !auth.CanManageTeam(teamID) {
		return nil, "", ErrNoPermission
	}

	// 1. 查询球队
	team, err := loadTeam(ctx, s.repo, teamID)
	if err != nil {
		return nil, "", err
	}

	// 2. 聚合日程
	events, err := s.aggregator.FetchTeamSchedule(ctx, teamID, FetchOptions{WindowMode: WindowAll})
	if err != nil {
		return nil, "", err
	}
	if len(events) == 0 {
		return nil, "", ErrExportNoEvents
	}

	// 3. 解析对手球队名称
	names := s.opponentNames(ctx, team, events)

	// 4. 生成 Excel
	buf, err := buildScheduleWorkbook(team, events, names)
	if err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("team_id", teamID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("日程表_%s.xlsx", sanitizeFilename(team.Name))
	return buf, filename, nil
}

// opponentNames 查询比赛中对手球队的名称，查询失败时保留 id
func (s *exportService) opponentNames(ctx context.Context, team *model.Team, events []model.ScheduleEvent) map[string]string {
	names := map[string]string{team.ID: team.Name}
	for _, e := range events {
		for _, id := range []*string{e.Team1ID, e.Team2ID} {
			if id == nil {
				continue
			}
			if _, ok := names[*id]; ok {
				continue
			}
			names[*id] = *id
			if t, err := s.repo.Team.GetByID(ctx, *id); err == nil {
				names[*id] = t.Name
			}
		}
	}
	return names
}

func buildScheduleWorkbook(team *model.Team, events []model.ScheduleEvent, names map[string]string) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(exportSheetEvents)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headers := []string{"日期", "开始", "结束", "类型", "子类型", "标题", "地点", "对阵"}
	widths := []float64{12, 8, 8, 8, 16, 28, 20, 24}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(exportSheetEvents, col, col, w)
	}

	// 样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(exportSheetEvents, "A1", fmt.Sprintf("%s：日程表", team.Name))
	f.MergeCell(exportSheetEvents, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(exportSheetEvents, "A1", "A1", headerStyle)

	// 表头
	row := 2
	for i, h := range headers {
		f.SetCellValue(exportSheetEvents, cell(colName(i), row), h)
	}
	f.SetCellStyle(exportSheetEvents, cell("A", row), cell(colName(len(headers)-1), row), headerStyle)

	// 数据行
	counts := make(map[model.EventSource]int, len(model.EventSources))
	for _, e := range events {
		row++
		counts[e.Source]++
		start := e.StartTime.UTC()
		values := []interface{}{
			start.Format(exportDateLayout),
			start.Format(exportTimeLayout),
			"-",
			sourceLabels[e.Source],
			deref(e.Subtype),
			e.Title,
			deref(e.Location),
			matchupText(e, team.ID, names),
		}
		if e.EndTime != nil {
			values[2] = e.EndTime.UTC().Format(exportTimeLayout)
		}
		for i, v := range values {
			f.SetCellValue(exportSheetEvents, cell(colName(i), row), v)
		}
	}

	// 统计 Sheet
	if _, err := f.NewSheet(exportSheetSummary); err != nil {
		return nil, err
	}
	f.SetCellValue(exportSheetSummary, "A1", "类型")
	f.SetCellValue(exportSheetSummary, "B1", "数量")
	f.SetCellStyle(exportSheetSummary, "A1", "B1", headerStyle)
	for i, src := range model.EventSources {
		f.SetCellValue(exportSheetSummary, cell("A", i+2), sourceLabels[src])
		f.SetCellValue(exportSheetSummary, cell("B", i+2), counts[src])
	}
	total := len(model.EventSources) + 2
	f.SetCellValue(exportSheetSummary, cell("A", total), "合计")
	f.SetCellValue(exportSheetSummary, cell("B", total), len(events))

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// matchupText 比赛对阵描述；训练与会议留空
func matchupText(e model.ScheduleEvent, teamID string, names map[string]string) string {
	if e.Source != model.SourceGame {
		return ""
	}
	switch {
	case e.Team1ID != nil && *e.Team1ID == teamID:
		if e.Team2ID != nil {
			return "主场 vs " + names[*e.Team2ID]
		}
		return "主场"
	case e.Team2ID != nil && *e.Team2ID == teamID:
		return "客场 vs " + names[deref(e.Team1ID)]
	default:
		return ""
	}
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
