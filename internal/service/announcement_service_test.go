package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"team-sports/backend/internal/dto"
	"team-sports/backend/internal/model"
)

func setupTestAnnouncementService() (AnnouncementService, *mockRepos) {
	repos := newMockRepos()
	repos.addTeam("team-a", "猛龙")
	repos.addTeam("team-b", "雄鹰")
	return NewAnnouncementService(repos.Repository, zap.NewNop()), repos
}

func TestAnnouncement_CreatePermissions(t *testing.T) {
	svc, _ := setupTestAnnouncementService()
	ctx := context.Background()

	tests := []struct {
		name string
		auth model.AuthContext
		team *string
		want error
	}{
		{"管理员发布全局公告", adminCtx, nil, nil},
		{"管理员发布球队公告", adminCtx, strPtr("team-b"), nil},
		{"教练发布本队公告", coachCtx, strPtr("team-a"), nil},
		{"教练不能发布全局公告", coachCtx, nil, ErrGlobalAnnouncement},
		{"教练不能发布其他球队公告", coachCtx, strPtr("team-b"), ErrNoPermission},
		{"球员不能发布公告", playerCtx, strPtr("team-a"), ErrNoPermission},
		{"球队不存在", adminCtx, strPtr("ghost"), ErrTeamNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.auth, &dto.CreateAnnouncementRequest{Title: "通知", Content: "内容", TeamID: tt.team})
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
		})
	}
}

func TestAnnouncement_DefaultPriority(t *testing.T) {
	svc, _ := setupTestAnnouncementService()

	resp, err := svc.Create(context.Background(), coachCtx, &dto.CreateAnnouncementRequest{Title: "训练改期", Content: "周三改到周四", TeamID: strPtr("team-a")})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Priority != model.PriorityNormal {
		t.Errorf("默认优先级应为 normal，实际=%s", resp.Priority)
	}
	if resp.Author == nil || resp.Author.ID != "coach-1" {
		t.Errorf("作者应为当前用户，实际=%+v", resp.Author)
	}
}

func TestAnnouncement_ListVisibility(t *testing.T) {
	svc, _ := setupTestAnnouncementService()
	ctx := context.Background()

	_, _ = svc.Create(ctx, adminCtx, &dto.CreateAnnouncementRequest{Title: "全局", Content: "-"})
	_, _ = svc.Create(ctx, adminCtx, &dto.CreateAnnouncementRequest{Title: "A队", Content: "-", TeamID: strPtr("team-a")})
	_, _ = svc.Create(ctx, adminCtx, &dto.CreateAnnouncementRequest{Title: "B队紧急", Content: "-", TeamID: strPtr("team-b"), Priority: model.PriorityHigh})

	list, total, err := svc.List(ctx, playerCtx, &dto.AnnouncementListRequest{})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 2 {
		t.Errorf("球员应看到本队与全局公告共 2 条，实际=%d", total)
	}
	for _, a := range list {
		if a.Title == "B队紧急" {
			t.Error("不应看到其他球队公告")
		}
	}

	all, total, _ := svc.List(ctx, adminCtx, &dto.AnnouncementListRequest{})
	if total != 3 {
		t.Errorf("管理员应看到全部 3 条，实际=%d", total)
	}
	if all[0].Priority != model.PriorityHigh {
		t.Errorf("高优先级公告应排在最前，实际首条=%s", all[0].Title)
	}

	orphan := model.AuthContext{UserID: "p-x", Role: model.RolePlayer}
	_, total, _ = svc.List(ctx, orphan, &dto.AnnouncementListRequest{})
	if total != 1 {
		t.Errorf("未分配球队的球员只应看到全局公告，实际=%d", total)
	}

	if _, err := svc.GetByID(ctx, playerCtx, all[0].ID); !errors.Is(err, ErrNoPermission) {
		t.Errorf("不应读取其他球队公告，实际: %v", err)
	}
}

func TestAnnouncement_UpdateAndDelete(t *testing.T) {
	svc, repos := setupTestAnnouncementService()
	ctx := context.Background()

	global, _ := svc.Create(ctx, adminCtx, &dto.CreateAnnouncementRequest{Title: "全局", Content: "-"})
	own, _ := svc.Create(ctx, coachCtx, &dto.CreateAnnouncementRequest{Title: "本队", Content: "-", TeamID: strPtr("team-a")})

	if _, err := svc.Update(ctx, coachCtx, global.ID, &dto.UpdateAnnouncementRequest{Title: strPtr("x")}); !errors.Is(err, ErrGlobalAnnouncement) {
		t.Errorf("教练不应修改全局公告，实际: %v", err)
	}

	updated, err := svc.Update(ctx, coachCtx, own.ID, &dto.UpdateAnnouncementRequest{Priority: strPtr(model.PriorityHigh)})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if updated.Priority != model.PriorityHigh || updated.Title != "本队" {
		t.Errorf("更新结果错误: %+v", updated)
	}

	if err := svc.Delete(ctx, playerCtx, own.ID); !errors.Is(err, ErrNoPermission) {
		t.Errorf("球员不应删除公告，实际: %v", err)
	}
	if err := svc.Delete(ctx, coachCtx, own.ID); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, ok := repos.Announcements.items[own.ID]; ok {
		t.Error("公告应已删除")
	}
	if err := svc.Delete(ctx, coachCtx, own.ID); !errors.Is(err, ErrAnnouncementNotFound) {
		t.Errorf("期望 ErrAnnouncementNotFound，实际: %v", err)
	}
}
