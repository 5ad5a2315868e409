package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"team-sports/backend/internal/model"
	"team-sports/backend/internal/repository"
)

// fakeRecorder 记录聚合器上报的观测数据
type fakeRecorder struct {
	mu        sync.Mutex
	queries   map[string]int
	failures  map[string]int
	malformed map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		queries:   make(map[string]int),
		failures:  make(map[string]int),
		malformed: make(map[string]int),
	}
}

func (r *fakeRecorder) ObserveSourceQuery(source string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries[source]++
	if err != nil {
		r.failures[source]++
	}
}

func (r *fakeRecorder) IncMalformedRow(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.malformed[source]++
}

// seededSource 创建三张日程表均已存在的内存数据源
func seededSource() *repository.MemoryRowSource {
	src := repository.NewMemoryRowSource()
	for _, s := range model.EventSources {
		src.Insert(s.Table())
	}
	return src
}

func practiceRow(id, teamID string, start time.Time) repository.Row {
	return repository.Row{"id": id, "title": "practice " + id, "team_id": teamID, "start_time": start}
}

func meetingRow(id, teamID string, start time.Time) repository.Row {
	return repository.Row{"id": id, "title": "meeting " + id, "team_id": teamID, "start_time": start, "meeting_type": model.MeetingTypeTeam}
}

func gameRow(id, team1, team2 string, start time.Time) repository.Row {
	row := repository.Row{"id": id, "title": "game " + id, "team1_id": team1, "start_time": start, "schedule_type": model.GameTypeGame}
	if team2 != "" {
		row["team2_id"] = team2
	}
	return row
}

func newTestAggregator(src repository.RowSource, now time.Time, opts ...AggregatorOption) ScheduleAggregator {
	opts = append([]AggregatorOption{WithClock(func() time.Time { return now })}, opts...)
	return NewScheduleAggregator(src, time.Second, zap.NewNop(), opts...)
}

func eventIDs(events []model.ScheduleEvent) []string {
	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.Key().String()
	}
	return ids
}

// ────── 场景测试 ──────

// 场景 1：两次训练与一次会议按时间合并
func TestFetchTeamSchedule_MergesAndSorts(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	tomorrow := now.AddDate(0, 0, 1)
	at := func(h int) time.Time {
		return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), h, 0, 0, 0, time.UTC)
	}

	src := seededSource()
	src.Insert(model.TablePracticeSchedules,
		practiceRow("p1", "T1", at(10)),
		practiceRow("p2", "T1", at(14)),
		practiceRow("p-other", "T2", at(9)),
	)
	src.Insert(model.TableMeetingSchedules, meetingRow("m1", "T1", at(12)))

	events, err := newTestAggregator(src, now).FetchTeamSchedule(context.Background(), "T1", FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"practice:p1", "meeting:m1", "practice:p2"}, eventIDs(events))
}

// 场景 2：参考时间为后天，仅查询未来事件时结果为空
func TestFetchTeamSchedule_UpcomingOnly(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	src := seededSource()
	src.Insert(model.TablePracticeSchedules,
		practiceRow("p1", "T1", now.Add(26*time.Hour)),
		practiceRow("p2", "T1", now.Add(30*time.Hour)),
	)
	src.Insert(model.TableMeetingSchedules, meetingRow("m1", "T1", now.Add(28*time.Hour)))

	agg := newTestAggregator(src, now)

	events, err := agg.FetchTeamSchedule(context.Background(), "T1", FetchOptions{
		WindowMode: WindowUpcomingOnly,
		Now:        now.AddDate(0, 0, 2),
	})
	require.NoError(t, err)
	assert.Empty(t, events)

	// 使用聚合器时钟时全部事件都在未来
	events, err = agg.FetchTeamSchedule(context.Background(), "T1", FetchOptions{WindowMode: WindowUpcomingOnly})
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

// 场景 3：会议来源失败，训练与比赛照常返回
func TestFetchTeamSchedule_PartialFailure(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	src := seededSource()
	src.Insert(model.TablePracticeSchedules, practiceRow("p1", "T1", now.Add(time.Hour)))
	src.Insert(model.TableGameSchedules, gameRow("g1", "T2", "T1", now.Add(2*time.Hour)))
	src.FailTable(model.TableMeetingSchedules, errors.New("permission denied"))

	rec := newFakeRecorder()
	events, err := newTestAggregator(src, now, WithSourceRecorder(rec)).
		FetchTeamSchedule(context.Background(), "T1", FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"practice:p1", "game:g1"}, eventIDs(events))
	assert.Equal(t, 1, rec.failures[string(model.SourceMeeting)])
	assert.Equal(t, 0, rec.failures[string(model.SourcePractice)])
	assert.Equal(t, 1, rec.queries[string(model.SourceGame)])
}

// P5：比赛来源失败时返回训练与会议的合并结果
func TestFetchTeamSchedule_GameSourceFails(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	src := seededSource()
	src.Insert(model.TablePracticeSchedules, practiceRow("p1", "T1", now.Add(2*time.Hour)))
	src.Insert(model.TableMeetingSchedules, meetingRow("m1", "T1", now.Add(time.Hour)))
	src.Insert(model.TableGameSchedules, gameRow("g1", "T1", "", now))
	src.FailTable(model.TableGameSchedules, errors.New("column team2_id does not exist"))

	events, err := newTestAggregator(src, now).FetchTeamSchedule(context.Background(), "T1", FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"meeting:m1", "practice:p1"}, eventIDs(events))
}

func TestFetchTeamSchedule_AllSourcesFail(t *testing.T) {
	// 三张表都不存在
	src := repository.NewMemoryRowSource()
	rec := newFakeRecorder()

	events, err := newTestAggregator(src, time.Now(), WithSourceRecorder(rec)).
		FetchTeamSchedule(context.Background(), "T1", FetchOptions{})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
	for _, s := range model.EventSources {
		assert.Equal(t, 1, rec.failures[string(s)], "来源 %s 应记录一次失败", s)
	}
}

func TestFetchTeamSchedule_TimeoutTreatedAsFailure(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	src := seededSource()
	src.Insert(model.TablePracticeSchedules, practiceRow("p1", "T1", now))
	src.Insert(model.TableGameSchedules, gameRow("g1", "T1", "", now))
	src.DelayTable(model.TableGameSchedules, time.Minute)

	rec := newFakeRecorder()
	agg := NewScheduleAggregator(src, 50*time.Millisecond, zap.NewNop(), WithSourceRecorder(rec))

	started := time.Now()
	events, err := agg.FetchTeamSchedule(context.Background(), "T1", FetchOptions{})
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 10*time.Second)
	assert.Equal(t, []string{"practice:p1"}, eventIDs(events))
	assert.Equal(t, 1, rec.failures[string(model.SourceGame)])
}

func TestFetchTeamSchedule_CallerCancellation(t *testing.T) {
	src := seededSource()
	for _, s := range model.EventSources {
		src.DelayTable(s.Table(), time.Minute)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events, err := NewScheduleAggregator(src, time.Minute, zap.NewNop()).
		FetchTeamSchedule(ctx, "T1", FetchOptions{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFetchTeamSchedule_EmptyTeamID(t *testing.T) {
	_, err := newTestAggregator(seededSource(), time.Now()).FetchTeamSchedule(context.Background(), "", FetchOptions{})
	assert.ErrorIs(t, err, ErrTeamIDRequired)
}

func TestFetchTeamSchedule_MalformedRowsSkipped(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	src := seededSource()
	src.Insert(model.TablePracticeSchedules,
		practiceRow("p1", "T1", now),
		repository.Row{"id": "p2", "team_id": "T1", "start_time": nil},
		practiceRow("p3", "T1", now.Add(time.Hour)),
	)

	rec := newFakeRecorder()
	events, err := newTestAggregator(src, now, WithSourceRecorder(rec)).
		FetchTeamSchedule(context.Background(), "T1", FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"practice:p1", "practice:p3"}, eventIDs(events))
	assert.Equal(t, 1, rec.malformed[string(model.SourcePractice)])
}

func TestFetchTeamSchedule_GameMatchesEitherSide(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	src := seededSource()
	src.Insert(model.TableGameSchedules,
		gameRow("home", "T1", "T2", now),
		gameRow("away", "T3", "T1", now.Add(time.Hour)),
		gameRow("other", "T2", "T3", now.Add(2*time.Hour)),
	)

	events, err := newTestAggregator(src, now).FetchTeamSchedule(context.Background(), "T1", FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"game:home", "game:away"}, eventIDs(events))
	for _, ev := range events {
		assert.True(t, ev.InvolvesTeam("T1"))
	}
}

func TestFetchTeamSchedule_LimitPerSource(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	src := seededSource()
	for i := 0; i < 4; i++ {
		at := now.Add(time.Duration(i) * time.Hour)
		src.Insert(model.TablePracticeSchedules, practiceRow(gofakeit.UUID(), "T1", at))
		src.Insert(model.TableMeetingSchedules, meetingRow(gofakeit.UUID(), "T1", at))
	}

	events, err := newTestAggregator(src, now).FetchTeamSchedule(context.Background(), "T1", FetchOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, FilterByType(events, FilterPractice), 2)
	assert.Len(t, FilterByType(events, FilterMeeting), 2)
}

// 多次调用互不影响，不保留状态
func TestFetchTeamSchedule_Restartable(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	src := seededSource()
	src.Insert(model.TablePracticeSchedules, practiceRow("p1", "T1", now))
	agg := newTestAggregator(src, now)

	first, err := agg.FetchTeamSchedule(context.Background(), "T1", FetchOptions{})
	require.NoError(t, err)
	src.Insert(model.TableMeetingSchedules, meetingRow("m1", "T1", now.Add(time.Hour)))
	second, err := agg.FetchTeamSchedule(context.Background(), "T1", FetchOptions{})
	require.NoError(t, err)

	assert.Len(t, first, 1)
	assert.Len(t, second, 2)
}

// ────── 性质测试 ──────

func randomSchedule(t *testing.T, teamID string, base time.Time) *repository.MemoryRowSource {
	t.Helper()
	src := seededSource()
	// 小范围的整点时间，保证出现大量相同 start_time
	slot := func() time.Time { return base.Add(time.Duration(gofakeit.IntRange(0, 5)) * time.Hour) }

	for i := 0; i < gofakeit.IntRange(0, 15); i++ {
		src.Insert(model.TablePracticeSchedules, practiceRow(gofakeit.UUID(), teamID, slot()))
	}
	for i := 0; i < gofakeit.IntRange(0, 15); i++ {
		src.Insert(model.TableMeetingSchedules, meetingRow(gofakeit.UUID(), teamID, slot()))
	}
	for i := 0; i < gofakeit.IntRange(0, 15); i++ {
		if gofakeit.Bool() {
			src.Insert(model.TableGameSchedules, gameRow(gofakeit.UUID(), teamID, gofakeit.UUID(), slot()))
		} else {
			src.Insert(model.TableGameSchedules, gameRow(gofakeit.UUID(), gofakeit.UUID(), teamID, slot()))
		}
	}
	return src
}

func sourceRank(s model.EventSource) int {
	for i, es := range model.EventSources {
		if es == s {
			return i
		}
	}
	return -1
}

// P1 + P2：结果按 start_time 非递减；时间相同时按 训练、会议、比赛 排列
func TestFetchTeamSchedule_OrderingProperties(t *testing.T) {
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for round := 0; round < 50; round++ {
		teamID := gofakeit.UUID()
		src := randomSchedule(t, teamID, base)

		events, err := newTestAggregator(src, base).FetchTeamSchedule(context.Background(), teamID, FetchOptions{})
		require.NoError(t, err)

		for i := 1; i < len(events); i++ {
			prev, cur := events[i-1], events[i]
			require.False(t, cur.StartTime.Before(prev.StartTime), "第 %d 轮: 结果未按时间排序", round)
			if cur.StartTime.Equal(prev.StartTime) {
				require.LessOrEqual(t, sourceRank(prev.Source), sourceRank(cur.Source),
					"第 %d 轮: 相同时间的事件未按来源顺序排列", round)
			}
		}

		seen := make(map[model.EventKey]bool, len(events))
		for _, ev := range events {
			require.False(t, seen[ev.Key()], "事件重复: %s", ev.Key())
			seen[ev.Key()] = true
		}
	}
}

// P3：拆分结果完整且不重叠，各自保持原有顺序
func TestPartitionByTime_Exhaustive(t *testing.T) {
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for round := 0; round < 50; round++ {
		teamID := gofakeit.UUID()
		events, err := newTestAggregator(randomSchedule(t, teamID, base), base).
			FetchTeamSchedule(context.Background(), teamID, FetchOptions{})
		require.NoError(t, err)

		ref := base.Add(time.Duration(gofakeit.IntRange(-1, 6)) * time.Hour)
		upcoming, past := PartitionByTime(events, ref)
		require.Equal(t, len(events), len(upcoming)+len(past))

		for _, ev := range upcoming {
			require.True(t, ev.StartTime.After(ref))
		}
		for _, ev := range past {
			require.False(t, ev.StartTime.After(ref))
		}

		// 归并两组后应与原序列一致
		index := make(map[model.EventKey]int, len(events))
		for i, ev := range events {
			index[ev.Key()] = i
		}
		for _, group := range [][]model.ScheduleEvent{upcoming, past} {
			require.True(t, sort.SliceIsSorted(group, func(i, j int) bool {
				return index[group[i].Key()] < index[group[j].Key()]
			}))
		}
	}
}

// P4：类型筛选幂等
func TestFilterByType_Idempotent(t *testing.T) {
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	filters := []EventTypeFilter{FilterAll, FilterPractice, FilterMeeting, FilterGame}
	for round := 0; round < 20; round++ {
		teamID := gofakeit.UUID()
		events, err := newTestAggregator(randomSchedule(t, teamID, base), base).
			FetchTeamSchedule(context.Background(), teamID, FetchOptions{})
		require.NoError(t, err)

		for _, f := range filters {
			once := FilterByType(events, f)
			assert.Equal(t, once, FilterByType(once, f))
		}
		assert.Equal(t, events, FilterByType(events, FilterAll))
	}
}

// 场景 5：5 条混合事件中筛选出 2 条会议，保持原有顺序
func TestFilterByType_Meetings(t *testing.T) {
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	events := []model.ScheduleEvent{
		{ID: "p1", Source: model.SourcePractice, StartTime: base},
		{ID: "m1", Source: model.SourceMeeting, StartTime: base.Add(time.Hour)},
		{ID: "g1", Source: model.SourceGame, StartTime: base.Add(2 * time.Hour)},
		{ID: "m2", Source: model.SourceMeeting, StartTime: base.Add(3 * time.Hour)},
		{ID: "p2", Source: model.SourcePractice, StartTime: base.Add(4 * time.Hour)},
	}

	got := FilterByType(events, FilterMeeting)
	assert.Equal(t, []string{"meeting:m1", "meeting:m2"}, eventIDs(got))
	assert.Empty(t, FilterByType(nil, FilterGame))
}

// 场景 6：2 条过去、2 条未来
func TestPartitionByTime_Scenario(t *testing.T) {
	ref := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	events := []model.ScheduleEvent{
		{ID: "a", Source: model.SourcePractice, StartTime: ref.Add(-2 * time.Hour)},
		{ID: "b", Source: model.SourceMeeting, StartTime: ref},
		{ID: "c", Source: model.SourceGame, StartTime: ref.Add(time.Hour)},
		{ID: "d", Source: model.SourcePractice, StartTime: ref.Add(3 * time.Hour)},
	}

	upcoming, past := PartitionByTime(events, ref)
	assert.Equal(t, []string{"game:c", "practice:d"}, eventIDs(upcoming))
	// start_time 等于参考时间的事件归入 past
	assert.Equal(t, []string{"practice:a", "meeting:b"}, eventIDs(past))
}

func TestPartitionByTime_ZeroRefMeansNow(t *testing.T) {
	events := []model.ScheduleEvent{
		{ID: "old", Source: model.SourcePractice, StartTime: time.Now().Add(-time.Hour)},
		{ID: "new", Source: model.SourcePractice, StartTime: time.Now().Add(time.Hour)},
	}
	upcoming, past := PartitionByTime(events, time.Time{})
	assert.Equal(t, []string{"practice:new"}, eventIDs(upcoming))
	assert.Equal(t, []string{"practice:old"}, eventIDs(past))
}

func TestParseQueryOptions(t *testing.T) {
	mode, ok := ParseWindowMode("upcoming")
	assert.True(t, ok)
	assert.Equal(t, WindowUpcomingOnly, mode)
	_, ok = ParseWindowMode("later")
	assert.False(t, ok)

	f, ok := ParseEventTypeFilter("")
	assert.True(t, ok)
	assert.Equal(t, FilterAll, f)
	f, ok = ParseEventTypeFilter("game")
	assert.True(t, ok)
	assert.Equal(t, FilterGame, f)
	_, ok = ParseEventTypeFilter("tryout")
	assert.False(t, ok)
}
