package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"team-sports/backend/internal/model"
	"team-sports/backend/internal/repository"
	pkgerrors "team-sports/backend/pkg/errors"
)

// ── Mock UserProfileRepository ──

type mockUserRepo struct {
	users map[string]*model.UserProfile
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.UserProfile)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.UserProfile) error {
	if user.ID == "" {
		m.seq++
		user.ID = fmt.Sprintf("user-%d", m.seq)
	}
	if user.Version == 0 {
		user.Version = 1
	}
	u := *user
	m.users[user.ID] = &u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.UserProfile, error) {
	if u, ok := m.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.UserProfile, error) {
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.UserProfile) error {
	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	u := *user
	m.users[user.ID] = &u
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserListFilter, offset, limit int) ([]model.UserProfile, int64, error) {
	var all []model.UserProfile
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.TeamID != "" && (u.TeamID == nil || *u.TeamID != filter.TeamID) {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) CountByRole(_ context.Context) (map[model.Role]int64, error) {
	counts := make(map[model.Role]int64)
	for _, u := range m.users {
		counts[u.Role]++
	}
	return counts, nil
}

// ── Mock TeamRepository ──

type mockTeamRepo struct {
	teams map[string]*model.Team
	users *mockUserRepo // CountMembers 基于用户 mock 统计
	seq   int
}

func newMockTeamRepo(users *mockUserRepo) *mockTeamRepo {
	return &mockTeamRepo{teams: make(map[string]*model.Team), users: users}
}

func (m *mockTeamRepo) Create(_ context.Context, team *model.Team) error {
	if team.ID == "" {
		m.seq++
		team.ID = fmt.Sprintf("team-%d", m.seq)
	}
	team.Version = 1
	t := *team
	m.teams[team.ID] = &t
	return nil
}

func (m *mockTeamRepo) GetByID(_ context.Context, id string) (*model.Team, error) {
	if t, ok := m.teams[id]; ok {
		c := *t
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeamRepo) GetByName(_ context.Context, name string) (*model.Team, error) {
	for _, t := range m.teams {
		if t.Name == name {
			c := *t
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeamRepo) List(_ context.Context, offset, limit int) ([]model.Team, int64, error) {
	var all []model.Team
	for _, t := range m.teams {
		all = append(all, *t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, offset, limit), int64(len(all)), nil
}

// Update 与 GORM 实现一致：version 不匹配时返回 ErrOptimisticLock
func (m *mockTeamRepo) Update(_ context.Context, team *model.Team) error {
	stored, ok := m.teams[team.ID]
	if !ok || stored.Version != team.Version {
		return pkgerrors.ErrOptimisticLock
	}
	team.Version++
	t := *team
	m.teams[team.ID] = &t
	return nil
}

func (m *mockTeamRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.teams, id)
	return nil
}

func (m *mockTeamRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.teams)), nil
}

func (m *mockTeamRepo) CountMembers(_ context.Context, teamID string) (int64, error) {
	var n int64
	for _, u := range m.users.users {
		if u.TeamID != nil && *u.TeamID == teamID {
			n++
		}
	}
	return n, nil
}

// ── Mock ScheduleEntryRepository[T] ──

type mockEntryRepo[T repository.ScheduleEntry] struct {
	entries map[string]*T
	prefix  string
	seq     int
	idOf    func(*T) *string
	startOf func(*T) time.Time
	hasTeam func(*T, string) bool
}

func newMockPracticeRepo() *mockEntryRepo[model.PracticeSchedule] {
	return &mockEntryRepo[model.PracticeSchedule]{
		entries: make(map[string]*model.PracticeSchedule),
		prefix:  "practice",
		idOf:    func(p *model.PracticeSchedule) *string { return &p.ID },
		startOf: func(p *model.PracticeSchedule) time.Time { return p.StartTime },
		hasTeam: func(p *model.PracticeSchedule, id string) bool { return p.TeamID == id },
	}
}

func newMockMeetingRepo() *mockEntryRepo[model.MeetingSchedule] {
	return &mockEntryRepo[model.MeetingSchedule]{
		entries: make(map[string]*model.MeetingSchedule),
		prefix:  "meeting",
		idOf:    func(m *model.MeetingSchedule) *string { return &m.ID },
		startOf: func(m *model.MeetingSchedule) time.Time { return m.StartTime },
		hasTeam: func(m *model.MeetingSchedule, id string) bool { return m.TeamID == id },
	}
}

func newMockGameRepo() *mockEntryRepo[model.GameSchedule] {
	return &mockEntryRepo[model.GameSchedule]{
		entries: make(map[string]*model.GameSchedule),
		prefix:  "game",
		idOf:    func(g *model.GameSchedule) *string { return &g.ID },
		startOf: func(g *model.GameSchedule) time.Time { return g.StartTime },
		hasTeam: func(g *model.GameSchedule, id string) bool { return g.Involves(id) },
	}
}

func (m *mockEntryRepo[T]) Create(_ context.Context, entry *T) error {
	id := m.idOf(entry)
	if *id == "" {
		m.seq++
		*id = fmt.Sprintf("%s-%d", m.prefix, m.seq)
	}
	c := *entry
	m.entries[*id] = &c
	return nil
}

func (m *mockEntryRepo[T]) GetByID(_ context.Context, id string) (*T, error) {
	if e, ok := m.entries[id]; ok {
		c := *e
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEntryRepo[T]) ListByTeam(_ context.Context, teamID string, offset, limit int) ([]T, int64, error) {
	var all []T
	for _, e := range m.entries {
		if m.hasTeam(e, teamID) {
			all = append(all, *e)
		}
	}
	sort.Slice(all, func(i, j int) bool { return m.startOf(&all[i]).Before(m.startOf(&all[j])) })
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockEntryRepo[T]) Update(_ context.Context, entry *T) error {
	id := *m.idOf(entry)
	if _, ok := m.entries[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	c := *entry
	m.entries[id] = &c
	return nil
}

func (m *mockEntryRepo[T]) Delete(_ context.Context, id string) error {
	delete(m.entries, id)
	return nil
}

func (m *mockEntryRepo[T]) CountSince(_ context.Context, from time.Time) (int64, error) {
	var n int64
	for _, e := range m.entries {
		if !m.startOf(e).Before(from) {
			n++
		}
	}
	return n, nil
}

// ── Mock AnnouncementRepository ──

type mockAnnouncementRepo struct {
	items map[string]*model.Announcement
	seq   int
}

func newMockAnnouncementRepo() *mockAnnouncementRepo {
	return &mockAnnouncementRepo{items: make(map[string]*model.Announcement)}
}

func (m *mockAnnouncementRepo) Create(_ context.Context, a *model.Announcement) error {
	if a.ID == "" {
		m.seq++
		a.ID = fmt.Sprintf("ann-%d", m.seq)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	}
	c := *a
	m.items[a.ID] = &c
	return nil
}

func (m *mockAnnouncementRepo) GetByID(_ context.Context, id string) (*model.Announcement, error) {
	if a, ok := m.items[id]; ok {
		c := *a
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAnnouncementRepo) ListVisible(_ context.Context, teamID string, includeAllTeams bool, offset, limit int) ([]model.Announcement, int64, error) {
	var all []model.Announcement
	for _, a := range m.items {
		visible := includeAllTeams || a.TeamID == nil || (teamID != "" && *a.TeamID == teamID)
		if visible {
			all = append(all, *a)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		hi, hj := all[i].Priority == model.PriorityHigh, all[j].Priority == model.PriorityHigh
		if hi != hj {
			return hi
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockAnnouncementRepo) Update(_ context.Context, a *model.Announcement) error {
	if _, ok := m.items[a.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	c := *a
	m.items[a.ID] = &c
	return nil
}

func (m *mockAnnouncementRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.items, id)
	return nil
}

// ── 测试辅助 ──

func paginate[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

// mockRepos 测试用仓储集合，Repository 字段已装配全部 mock
type mockRepos struct {
	Users         *mockUserRepo
	Teams         *mockTeamRepo
	Practices     *mockEntryRepo[model.PracticeSchedule]
	Meetings      *mockEntryRepo[model.MeetingSchedule]
	Games         *mockEntryRepo[model.GameSchedule]
	Announcements *mockAnnouncementRepo
	Rows          *repository.MemoryRowSource
	Repository    *repository.Repository
}

func newMockRepos() *mockRepos {
	users := newMockUserRepo()
	m := &mockRepos{
		Users:         users,
		Teams:         newMockTeamRepo(users),
		Practices:     newMockPracticeRepo(),
		Meetings:      newMockMeetingRepo(),
		Games:         newMockGameRepo(),
		Announcements: newMockAnnouncementRepo(),
		Rows:          seededSource(),
	}
	m.Repository = &repository.Repository{
		User:         m.Users,
		Team:         m.Teams,
		Practice:     m.Practices,
		Meeting:      m.Meetings,
		Game:         m.Games,
		Announcement: m.Announcements,
		Rows:         m.Rows,
	}
	return m
}

// addTeam 直接写入一支球队
func (m *mockRepos) addTeam(id, name string) *model.Team {
	team := &model.Team{ID: id, Name: name, Sport: "soccer"}
	_ = m.Teams.Create(context.Background(), team)
	return team
}

// addUser 直接写入一个用户，teamID 为空表示未分配球队
func (m *mockRepos) addUser(id string, role model.Role, teamID string) *model.UserProfile {
	user := &model.UserProfile{
		ID:           id,
		Email:        id + "@example.com",
		PasswordHash: "x",
		FullName:     "用户 " + id,
		Role:         role,
	}
	if teamID != "" {
		user.TeamID = &teamID
	}
	_ = m.Users.Create(context.Background(), user)
	return user
}

func strPtr(s string) *string { return &s }

var (
	adminCtx  = model.AuthContext{UserID: "admin-1", Role: model.RoleAdmin}
	coachCtx  = model.AuthContext{UserID: "coach-1", Role: model.RoleCoach, TeamID: "team-a"}
	playerCtx = model.AuthContext{UserID: "player-1", Role: model.RolePlayer, TeamID: "team-a"}
)
