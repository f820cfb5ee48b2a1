package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketmotion/internal/api/v1/dto"
	"marketmotion/internal/cache"
	"marketmotion/internal/middleware"
	"marketmotion/internal/model"
	"marketmotion/internal/pgmq"
	"marketmotion/internal/repository"
	"marketmotion/internal/service"
	"marketmotion/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// BriefingHandler handles catalog read and generation endpoints. Generation
// requests are quota-checked here and handed to the orchestrators through
// pgmq; the API never runs the provider pipeline inline.
type BriefingHandler struct {
	briefingService service.BriefingService
	quotaService    service.QuotaService
	userService     service.UserService
	queue           *pgmq.Client
	queueName       string
	dedupe          *cache.RedisCache
	validate        *validator.Validate
}

// NewBriefingHandler creates a new BriefingHandler.
func NewBriefingHandler(
	briefingService service.BriefingService,
	quotaService service.QuotaService,
	userService service.UserService,
	queue *pgmq.Client,
	queueName string,
	dedupe *cache.RedisCache,
	validate *validator.Validate,
) *BriefingHandler {
	return &BriefingHandler{
		briefingService: briefingService,
		quotaService:    quotaService,
		userService:     userService,
		queue:           queue,
		queueName:       queueName,
		dedupe:          dedupe,
		validate:        validate,
	}
}

// RegisterRoutes mounts briefing routes. Reads use optional auth so public
// content stays reachable without an account.
func (h *BriefingHandler) RegisterRoutes(mux *http.ServeMux, authMw, optionalAuthMw func(http.Handler) http.Handler) {
	mux.Handle("/briefings", optionalAuthMw(http.HandlerFunc(h.listBriefings)))
	mux.Handle("/briefings/today", optionalAuthMw(http.HandlerFunc(h.listTodaysBriefings)))
	mux.Handle("/briefings/free", optionalAuthMw(http.HandlerFunc(h.listFreeBriefings)))
	mux.Handle("/briefings/generate", authMw(http.HandlerFunc(h.generateBriefing)))
	mux.Handle("/briefings/usage", authMw(http.HandlerFunc(h.usageSummary)))
	mux.Handle("/briefings/", optionalAuthMw(http.HandlerFunc(h.getBriefing)))
	mux.Handle("/users/me/briefings", authMw(http.HandlerFunc(h.listMyBriefings)))
}

// listTodaysBriefings godoc
// @Summary List today's briefings
// @Description Returns today's catalog, free slots first, each entry annotated with the caller's access decision.
// @Tags briefings
// @Produce json
// @Success 200 {object} dto.BriefingListResponseDTO
// @Router /briefings/today [get]
func (h *BriefingHandler) listTodaysBriefings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	req, err := requesterFrom(r.Context(), h.userService)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	briefings, err := h.briefingService.ListTodaysBriefings(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListDTO(briefings))
}

// listFreeBriefings godoc
// @Summary List recent free briefings
// @Tags briefings
// @Produce json
// @Param limit query int false "Max entries (default 10)"
// @Success 200 {object} dto.BriefingListResponseDTO
// @Router /briefings/free [get]
func (h *BriefingHandler) listFreeBriefings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	req, err := requesterFrom(r.Context(), h.userService)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	briefings, err := h.briefingService.ListFreeBriefings(r.Context(), limit, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListDTO(briefings))
}

// listBriefings godoc
// @Summary List briefings with filters
// @Tags briefings
// @Produce json
// @Param start_date query string false "Earliest briefing date (YYYY-MM-DD)"
// @Param end_date query string false "Latest briefing date (YYYY-MM-DD)"
// @Param briefing_type query string false "Slot type filter"
// @Param limit query int false "Max entries (default 10)"
// @Success 200 {object} dto.BriefingListResponseDTO
// @Failure 400 {string} string "Invalid date filter"
// @Router /briefings [get]
func (h *BriefingHandler) listBriefings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	var filter repository.ListBriefingsFilter
	q := r.URL.Query()
	if v := q.Get("start_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, "Invalid start_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.StartDate = &d
	}
	if v := q.Get("end_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, "Invalid end_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.EndDate = &d
	}
	filter.BriefingType = q.Get("briefing_type")
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	req, err := requesterFrom(r.Context(), h.userService)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	briefings, err := h.briefingService.ListBriefings(r.Context(), filter, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListDTO(briefings))
}

// getBriefing godoc
// @Summary Get a briefing
// @Description Returns one briefing. Content fields are null when the caller is not entitled.
// @Tags briefings
// @Produce json
// @Param briefingId path string true "Briefing ID"
// @Success 200 {object} dto.BriefingResponseDTO
// @Failure 404 {string} string "Not found"
// @Router /briefings/{briefingId} [get]
func (h *BriefingHandler) getBriefing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/briefings/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	req, err := requesterFrom(r.Context(), h.userService)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	ba, err := h.briefingService.GetBriefingWithAccess(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, briefingToDTO(*ba))
}

// listMyBriefings godoc
// @Summary List briefings accessible to the caller
// @Tags briefings
// @Produce json
// @Success 200 {object} dto.BriefingListResponseDTO
// @Router /users/me/briefings [get]
func (h *BriefingHandler) listMyBriefings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	req, err := requesterFrom(r.Context(), h.userService)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	briefings, err := h.briefingService.ListAccessibleBriefings(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListDTO(briefings))
}

// generateBriefing godoc
// @Summary Queue a slot generation job
// @Description Quota-checks the slot and enqueues a generation job for the orchestrator. Rejected with 429 when the slot is already filled.
// @Tags briefings
// @Accept json
// @Produce json
// @Param request body dto.GenerateBriefingDTO true "Generation request"
// @Success 202 {object} dto.GenerationQueuedResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 429 {string} string "Daily generation limit reached"
// @Router /briefings/generate [post]
func (h *BriefingHandler) generateBriefing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var body dto.GenerateBriefingDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	date := util.BriefingDate(time.Now())
	tier := model.TierPremium
	if model.IsFreeSlotType(body.BriefingType) {
		tier = model.TierFree
	}
	if !body.Force {
		if err := h.quotaService.CheckSlotAvailable(r.Context(), date, body.BriefingType, tier); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	jobID := uuid.NewString()
	payload, err := json.Marshal(map[string]interface{}{
		"job_id":        jobID,
		"date":          date.Format("2006-01-02"),
		"briefing_type": body.BriefingType,
		"force":         body.Force,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Dedupe duplicate triggers for the same slot; the catalog uniqueness
	// constraint remains the correctness guard either way.
	dedupeKey := "enqueue:briefing:" + date.Format("2006-01-02") + ":" + body.BriefingType
	enqueued, err := h.dedupe.Once(r.Context(), dedupeKey, 30*time.Second, func() error {
		return h.queue.Send(r.Context(), h.queueName, payload)
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !enqueued {
		// A job for this slot was enqueued moments ago; no new job exists, so
		// no job id is minted.
		writeJSON(w, http.StatusAccepted, dto.GenerationQueuedResponseDTO{
			BriefingType: body.BriefingType,
			Date:         date.Format("2006-01-02"),
			Status:       "duplicate",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, dto.GenerationQueuedResponseDTO{
		JobID:        jobID,
		BriefingType: body.BriefingType,
		Date:         date.Format("2006-01-02"),
		Status:       "queued",
	})
}

// usageSummary godoc
// @Summary Today's generation budget
// @Tags briefings
// @Produce json
// @Success 200 {object} dto.UsageSummaryResponseDTO
// @Router /briefings/usage [get]
func (h *BriefingHandler) usageSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if middleware.UserID(r.Context()) == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	today := util.BriefingDate(time.Now())
	remaining, err := h.quotaService.PremiumSlotsRemaining(r.Context(), today)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UsageSummaryResponseDTO{
		Date:                  today.Format("2006-01-02"),
		PremiumSlotsUsed:      len(model.PremiumSlotTypes) - remaining,
		PremiumSlotsRemaining: remaining,
	})
}

func toListDTO(briefings []service.BriefingAccess) dto.BriefingListResponseDTO {
	out := dto.BriefingListResponseDTO{Briefings: make([]dto.BriefingResponseDTO, 0, len(briefings))}
	for _, ba := range briefings {
		out.Briefings = append(out.Briefings, briefingToDTO(ba))
	}
	out.Count = len(out.Briefings)
	return out
}
