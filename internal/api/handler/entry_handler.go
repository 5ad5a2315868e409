package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"team-sports/backend/internal/dto"
	"team-sports/backend/internal/model"
	"team-sports/backend/internal/service"
	"team-sports/backend/pkg/response"
)

// EntryHandler 训练 / 会议 / 比赛日程维护
type EntryHandler struct {
	entrySvc service.ScheduleEntryService
}

// NewEntryHandler 创建 EntryHandler
func NewEntryHandler(entrySvc service.ScheduleEntryService) *EntryHandler {
	return &EntryHandler{entrySvc: entrySvc}
}

// ── 创建 / 更新 ──

// CreatePractice POST /api/v1/practices
func (h *EntryHandler) CreatePractice(c *gin.Context) {
	var req dto.CreatePracticeRequest
	create(c, &req, func(auth model.AuthContext) (*dto.ScheduleEntryResponse, error) {
		return h.entrySvc.CreatePractice(c.Request.Context(), auth, &req)
	})
}

// UpdatePractice PUT /api/v1/practices/:id
func (h *EntryHandler) UpdatePractice(c *gin.Context) {
	var req dto.UpdatePracticeRequest
	update(c, &req, func(auth model.AuthContext, id string) (*dto.ScheduleEntryResponse, error) {
		return h.entrySvc.UpdatePractice(c.Request.Context(), auth, id, &req)
	})
}

// CreateMeeting POST /api/v1/meetings
func (h *EntryHandler) CreateMeeting(c *gin.Context) {
	var req dto.CreateMeetingRequest
	create(c, &req, func(auth model.AuthContext) (*dto.ScheduleEntryResponse, error) {
		return h.entrySvc.CreateMeeting(c.Request.Context(), auth, &req)
	})
}

// UpdateMeeting PUT /api/v1/meetings/:id
func (h *EntryHandler) UpdateMeeting(c *gin.Context) {
	var req dto.UpdateMeetingRequest
	update(c, &req, func(auth model.AuthContext, id string) (*dto.ScheduleEntryResponse, error) {
		return h.entrySvc.UpdateMeeting(c.Request.Context(), auth, id, &req)
	})
}

// CreateGame POST /api/v1/games
func (h *EntryHandler) CreateGame(c *gin.Context) {
	var req dto.CreateGameRequest
	create(c, &req, func(auth model.AuthContext) (*dto.ScheduleEntryResponse, error) {
		return h.entrySvc.CreateGame(c.Request.Context(), auth, &req)
	})
}

// UpdateGame PUT /api/v1/games/:id
func (h *EntryHandler) UpdateGame(c *gin.Context) {
	var req dto.UpdateGameRequest
	update(c, &req, func(auth model.AuthContext, id string) (*dto.ScheduleEntryResponse, error) {
		return h.entrySvc.UpdateGame(c.Request.Context(), auth, id, &req)
	})
}

// ── 查询 / 删除（按来源生成处理函数） ──

// Get GET /api/v1/{practices|meetings|games}/:id
func (h *EntryHandler) Get(source model.EventSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, ok := MustGetAuthContext(c)
		if !ok {
			return
		}

		entry, err := h.entrySvc.Get(c.Request.Context(), auth, source, c.Param("id"))
		if err != nil {
			handleEntryError(c, err)
			return
		}

		response.OK(c, entry)
	}
}

// List GET /api/v1/{practices|meetings|games}?team_id=xxx
func (h *EntryHandler) List(source model.EventSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, ok := MustGetAuthContext(c)
		if !ok {
			return
		}

		var req dto.ScheduleEntryListRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}

		entries, total, err := h.entrySvc.List(c.Request.Context(), auth, source, &req)
		if err != nil {
			handleEntryError(c, err)
			return
		}

		response.OKPage(c, entries, total, req.GetPage(), req.GetPageSize())
	}
}

// Delete DELETE /api/v1/{practices|meetings|games}/:id
func (h *EntryHandler) Delete(source model.EventSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, ok := MustGetAuthContext(c)
		if !ok {
			return
		}

		if err := h.entrySvc.Delete(c.Request.Context(), auth, source, c.Param("id")); err != nil {
			handleEntryError(c, err)
			return
		}

		response.OK(c, nil)
	}
}

func create[Req any](c *gin.Context, req *Req, call func(model.AuthContext) (*dto.ScheduleEntryResponse, error)) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	entry, err := call(auth)
	if err != nil {
		handleEntryError(c, err)
		return
	}

	response.Created(c, entry)
}

func update[Req any](c *gin.Context, req *Req, call func(model.AuthContext, string) (*dto.ScheduleEntryResponse, error)) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	entry, err := call(auth, c.Param("id"))
	if err != nil {
		handleEntryError(c, err)
		return
	}

	response.OK(c, entry)
}

// handleEntryError 统一处理日程维护业务错误
func handleEntryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEntryNotFound):
		response.NotFound(c, 22101, "日程不存在")
	case errors.Is(err, service.ErrEndBeforeStart):
		response.BadRequest(c, 22102, "结束时间不能早于开始时间")
	case errors.Is(err, service.ErrSameTeams):
		response.BadRequest(c, 22103, "比赛双方不能是同一支球队")
	case errors.Is(err, service.ErrOpponentRequired):
		response.BadRequest(c, 22104, "请指定对阵球队或对手名称")
	case errors.Is(err, service.ErrInvalidMeetingType):
		response.BadRequest(c, 22105, "会议类型无效")
	case errors.Is(err, service.ErrInvalidScheduleType):
		response.BadRequest(c, 22106, "比赛类型无效")
	case errors.Is(err, service.ErrUnknownSource):
		response.BadRequest(c, 22107, "未知的日程类型")
	default:
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
	}
}
