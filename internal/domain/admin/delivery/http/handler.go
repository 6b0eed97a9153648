package http

import (
	"strings"

	"github.com/Conte777/affiliate-relay/internal/domain/admin/deps"
	pkgerrors "github.com/Conte777/affiliate-relay/pkg/errors"
	"github.com/Conte777/affiliate-relay/pkg/httputil"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// AdminHandler serves the operator API for domains, chat purposes and link stats
type AdminHandler struct {
	domains deps.DomainService
	targets deps.TargetService
	links   deps.LinkStats
	mapper  *pkgerrors.Mapper
	logger  zerolog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	domains deps.DomainService,
	targets deps.TargetService,
	links deps.LinkStats,
	logger zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		domains: domains,
		targets: targets,
		links:   links,
		mapper:  pkgerrors.NewMapper(logger),
		logger:  logger.With().Str("component", "admin_handler").Logger(),
	}
}

// ListDomains handles GET /api/v1/domains
func (h *AdminHandler) ListDomains(ctx *fasthttp.RequestCtx) {
	domains, err := h.domains.ListDomains(ctx)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	httputil.WriteResponse(ctx, domains)
}

// CreateDomain handles POST /api/v1/domains. An existing domain is updated in place.
func (h *AdminHandler) CreateDomain(ctx *fasthttp.RequestCtx) {
	var req CreateDomainRequest
	if err := httputil.ReadJSON(ctx, &req); err != nil {
		httputil.WriteErrorResponse(ctx, "invalid request body", fasthttp.StatusBadRequest)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	stored, err := h.domains.UpsertDomain(ctx, req.Domain, req.AffiliateCode, active)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	h.logger.Info().
		Str("domain", stored.Domain).
		Bool("is_active", stored.IsActive).
		Msg("affiliate domain saved")

	httputil.WriteResponseWithStatus(ctx, stored, fasthttp.StatusCreated)
}

// UpdateDomain handles PATCH /api/v1/domains/{domain}
func (h *AdminHandler) UpdateDomain(ctx *fasthttp.RequestCtx) {
	name, _ := ctx.UserValue("domain").(string)

	var req UpdateDomainRequest
	if err := httputil.ReadJSON(ctx, &req); err != nil || req.IsActive == nil {
		httputil.WriteErrorResponse(ctx, "is_active is required", fasthttp.StatusBadRequest)
		return
	}

	if err := h.domains.SetActive(ctx, name, *req.IsActive); err != nil {
		h.writeError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, UpdateDomainResponse{Domain: name, IsActive: *req.IsActive})
}

// GetTargets handles GET /api/v1/targets. ?refresh=true drops the cached snapshot first.
func (h *AdminHandler) GetTargets(ctx *fasthttp.RequestCtx) {
	if strings.EqualFold(string(ctx.QueryArgs().Peek("refresh")), "true") {
		h.targets.Invalidate()
	}

	set, err := h.targets.Targets(ctx)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	prefs, err := h.targets.ListPreferences(ctx)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, TargetsResponse{
		Sources:      set.Sources,
		Destinations: set.Destinations,
		Preferences:  prefs,
		RefreshedAt:  set.RefreshedAt,
	})
}

// SetPurpose handles PUT /api/v1/chats/{chat_id}/purpose
func (h *AdminHandler) SetPurpose(ctx *fasthttp.RequestCtx) {
	chatID, _ := ctx.UserValue("chat_id").(string)

	var req SetPurposeRequest
	if err := httputil.ReadJSON(ctx, &req); err != nil {
		httputil.WriteErrorResponse(ctx, "invalid request body", fasthttp.StatusBadRequest)
		return
	}

	if err := h.targets.SetPreference(ctx, chatID, req.Purpose); err != nil {
		h.writeError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, PurposeResponse{ChatID: chatID, Purpose: strings.ToLower(strings.TrimSpace(req.Purpose))})
}

// ClearPurpose handles DELETE /api/v1/chats/{chat_id}/purpose
func (h *AdminHandler) ClearPurpose(ctx *fasthttp.RequestCtx) {
	chatID, _ := ctx.UserValue("chat_id").(string)

	if err := h.targets.ClearPreference(ctx, chatID); err != nil {
		h.writeError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, PurposeResponse{ChatID: chatID})
}

// LinkStats handles GET /api/v1/links/stats
func (h *AdminHandler) LinkStats(ctx *fasthttp.RequestCtx) {
	counts, err := h.links.CountByStatus(ctx)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	httputil.WriteResponse(ctx, LinkStatsResponse{Counts: counts, Total: total})
}

func (h *AdminHandler) writeError(ctx *fasthttp.RequestCtx, err error) {
	status, message := h.mapper.MapErrorToHTTP(err)
	httputil.WriteErrorResponse(ctx, message, status)
}
