package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"team-sports/backend/internal/dto"
	"team-sports/backend/internal/model"
)

var viewNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

// setupScheduleFixture 球队 team-a 有 1 场过去的训练、1 场未来的会议、1 场未来的客场比赛
func setupScheduleFixture() (*mockRepos, ScheduleAggregator) {
	repos := newMockRepos()
	repos.addTeam("team-a", "猛龙")
	repos.addTeam("team-b", "雄鹰")

	repos.Rows.Insert(model.TablePracticeSchedules, practiceRow("p1", "team-a", viewNow.Add(-48*time.Hour)))
	repos.Rows.Insert(model.TableMeetingSchedules, meetingRow("m1", "team-a", viewNow.Add(24*time.Hour)))
	repos.Rows.Insert(model.TableGameSchedules,
		gameRow("g1", "team-b", "team-a", viewNow.Add(72*time.Hour)),
		gameRow("g2", "team-b", "", viewNow.Add(96*time.Hour)),
	)
	return repos, newTestAggregator(repos.Rows, viewNow)
}

func newTestScheduleService(repos *mockRepos, agg ScheduleAggregator) ScheduleService {
	svc := NewScheduleService(repos.Repository, agg, zap.NewNop()).(*scheduleService)
	svc.now = func() time.Time { return viewNow }
	return svc
}

// ── TeamSchedule ──

func TestTeamSchedule_AllEvents(t *testing.T) {
	repos, agg := setupScheduleFixture()
	svc := newTestScheduleService(repos, agg)

	resp, err := svc.TeamSchedule(context.Background(), playerCtx, "team-a", &dto.TeamScheduleRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"practice:p1", "meeting:m1", "game:g1"}, eventIDs(resp.Events))
	assert.Nil(t, resp.Upcoming)
}

func TestTeamSchedule_TypeAndWindow(t *testing.T) {
	repos, agg := setupScheduleFixture()
	svc := newTestScheduleService(repos, agg)

	resp, err := svc.TeamSchedule(context.Background(), playerCtx, "team-a", &dto.TeamScheduleRequest{Type: "game", Window: "upcoming"})
	require.NoError(t, err)
	assert.Equal(t, []string{"game:g1"}, eventIDs(resp.Events))

	resp, err = svc.TeamSchedule(context.Background(), playerCtx, "team-a", &dto.TeamScheduleRequest{Window: "upcoming"})
	require.NoError(t, err)
	assert.Equal(t, []string{"meeting:m1", "game:g1"}, eventIDs(resp.Events))
}

func TestTeamSchedule_Split(t *testing.T) {
	repos, agg := setupScheduleFixture()
	svc := newTestScheduleService(repos, agg)

	resp, err := svc.TeamSchedule(context.Background(), adminCtx, "team-a", &dto.TeamScheduleRequest{Split: true})
	require.NoError(t, err)
	assert.Empty(t, resp.Events)
	assert.Equal(t, []string{"meeting:m1", "game:g1"}, eventIDs(resp.Upcoming))
	assert.Equal(t, []string{"practice:p1"}, eventIDs(resp.Past))
}

func TestTeamSchedule_Errors(t *testing.T) {
	repos, agg := setupScheduleFixture()
	svc := newTestScheduleService(repos, agg)
	ctx := context.Background()

	_, err := svc.TeamSchedule(ctx, playerCtx, "team-b", &dto.TeamScheduleRequest{})
	assert.ErrorIs(t, err, ErrNoPermission)

	_, err = svc.TeamSchedule(ctx, playerCtx, "team-a", &dto.TeamScheduleRequest{Type: "tryout"})
	assert.ErrorIs(t, err, ErrInvalidEventType)

	_, err = svc.TeamSchedule(ctx, playerCtx, "team-a", &dto.TeamScheduleRequest{Window: "past"})
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = svc.TeamSchedule(ctx, adminCtx, "ghost", &dto.TeamScheduleRequest{})
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestTeamSchedule_SourceFailureDegrades(t *testing.T) {
	repos, agg := setupScheduleFixture()
	repos.Rows.FailTable(model.TableGameSchedules, errors.New("connection reset"))
	svc := newTestScheduleService(repos, agg)

	resp, err := svc.TeamSchedule(context.Background(), playerCtx, "team-a", &dto.TeamScheduleRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"practice:p1", "meeting:m1"}, eventIDs(resp.Events))
}

// ── ICS 日历 ──

func TestCalendar_TeamCalendar(t *testing.T) {
	repos, agg := setupScheduleFixture()
	svc := NewCalendarService(testConfig(), repos.Repository, agg, zap.NewNop())

	body, filename, err := svc.TeamCalendar(context.Background(), playerCtx, "team-a")
	require.NoError(t, err)
	assert.Equal(t, "猛龙.ics", filename)

	cal, err := ics.ParseCalendar(strings.NewReader(body))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 3)

	uids := make([]string, 0, len(events))
	for _, e := range events {
		uids = append(uids, e.Id())
	}
	assert.Equal(t, []string{"practice-p1@team-sports", "meeting-m1@team-sports", "game-g1@team-sports"}, uids)
	assert.Contains(t, body, "X-WR-CALNAME:Team Schedule - 猛龙")

	_, _, err = svc.TeamCalendar(context.Background(), playerCtx, "team-b")
	assert.ErrorIs(t, err, ErrNoPermission)
}

func TestBuildCalendar_DefaultDuration(t *testing.T) {
	start := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	body := BuildCalendar("测试", []model.ScheduleEvent{{
		ID:        "x",
		Title:     "无结束时间",
		StartTime: start,
		Source:    model.SourceMeeting,
		Subtype:   strPtr(model.MeetingTypeCoach),
	}}, start)

	assert.Contains(t, body, "DTSTART:20260102T090000Z")
	assert.Contains(t, body, "DTEND:20260102T100000Z")
	assert.Contains(t, body, "CATEGORIES:MEETING")
	assert.Contains(t, body, "CATEGORIES:COACH_MEETING")
}

// ── Excel 导出 ──

func TestExport_TeamSchedule(t *testing.T) {
	repos, agg := setupScheduleFixture()
	svc := NewExportService(repos.Repository, agg, zap.NewNop())

	buf, filename, err := svc.ExportTeamSchedule(context.Background(), coachCtx, "team-a")
	require.NoError(t, err)
	assert.Equal(t, "日程表_猛龙.xlsx", filename)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheetEvents)
	require.NoError(t, err)
	// 标题行 + 表头 + 3 条日程
	require.Len(t, rows, 5)
	assert.Equal(t, "训练", rows[2][3])
	assert.Equal(t, "比赛", rows[4][3])
	assert.Equal(t, "客场 vs 雄鹰", rows[4][7])

	summary, err := f.GetRows(exportSheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"合计", "3"}, summary[len(summary)-1])
}

func TestExport_Errors(t *testing.T) {
	repos, agg := setupScheduleFixture()
	repos.addTeam("team-c", "空队")
	svc := NewExportService(repos.Repository, agg, zap.NewNop())
	ctx := context.Background()

	_, _, err := svc.ExportTeamSchedule(ctx, playerCtx, "team-a")
	assert.ErrorIs(t, err, ErrNoPermission)

	_, _, err = svc.ExportTeamSchedule(ctx, adminCtx, "team-c")
	assert.ErrorIs(t, err, ErrExportNoEvents)
}
