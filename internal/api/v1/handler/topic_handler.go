package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"marketmotion/internal/api/v1/dto"
	"marketmotion/internal/cache"
	"marketmotion/internal/middleware"
	"marketmotion/internal/model"
	"marketmotion/internal/pgmq"
	"marketmotion/internal/service"
	"marketmotion/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TopicHandler handles the topic taxonomy, subscriptions and topic briefings.
// Topic generation is enqueued for the topic orchestrator, mirroring the slot
// generation endpoint.
type TopicHandler struct {
	topicService service.TopicService
	quotaService service.QuotaService
	userService  service.UserService
	queue        *pgmq.Client
	queueName    string
	dedupe       *cache.RedisCache
	validate     *validator.Validate
}

// NewTopicHandler creates a new TopicHandler.
func NewTopicHandler(
	topicService service.TopicService,
	quotaService service.QuotaService,
	userService service.UserService,
	queue *pgmq.Client,
	queueName string,
	dedupe *cache.RedisCache,
	validate *validator.Validate,
) *TopicHandler {
	return &TopicHandler{
		topicService: topicService,
		quotaService: quotaService,
		userService:  userService,
		queue:        queue,
		queueName:    queueName,
		dedupe:       dedupe,
		validate:     validate,
	}
}

// RegisterRoutes mounts topic routes. The collection endpoint takes optional
// auth because listing is open while seeding requires a caller identity.
func (h *TopicHandler) RegisterRoutes(mux *http.ServeMux, authMw, optionalAuthMw func(http.Handler) http.Handler) {
	mux.Handle("/topics", optionalAuthMw(http.HandlerFunc(h.handleTopics)))
	mux.Handle("/topics/", authMw(http.HandlerFunc(h.handleTopic)))
	mux.Handle("/users/me/topics", authMw(http.HandlerFunc(h.listMyTopics)))
}

// handleTopics dispatches the collection endpoint. Listing is open; seeding
// needs auth, checked inline since the same path serves both.
func (h *TopicHandler) handleTopics(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTopics(w, r)
	case http.MethodPost:
		h.seedTopic(w, r)
	default:
		http.NotFound(w, r)
	}
}

// listTopics godoc
// @Summary List active topics
// @Tags topics
// @Produce json
// @Success 200 {array} dto.TopicResponseDTO
// @Router /topics [get]
func (h *TopicHandler) listTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.topicService.ListTopics(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]dto.TopicResponseDTO, 0, len(topics))
	for _, t := range topics {
		out = append(out, topicToDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// seedTopic godoc
// @Summary Create or refresh a topic
// @Description Idempotent: posting an existing name updates its display fields.
// @Tags topics
// @Accept json
// @Produce json
// @Param topic body dto.TopicCreateDTO true "Topic"
// @Success 201 {object} dto.TopicResponseDTO
// @Failure 400 {string} string "Invalid JSON payload, validation failed or unknown category"
// @Failure 401 {string} string "Unauthorized"
// @Router /topics [post]
func (h *TopicHandler) seedTopic(w http.ResponseWriter, r *http.Request) {
	if middleware.UserID(r.Context()) == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var body dto.TopicCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	description := ""
	if body.Description != nil {
		description = *body.Description
	}
	topic := &model.Topic{
		Name:        body.Name,
		DisplayName: body.DisplayName,
		Category:    body.Category,
		Description: description,
		IsActive:    true,
	}
	if err := h.topicService.SeedTopic(r.Context(), topic); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, topicToDTO(*topic))
}

// handleTopic routes /topics/{name}/... subresources.
func (h *TopicHandler) handleTopic(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/topics/")
	parts := strings.SplitN(rest, "/", 2)
	name := parts[0]
	if name == "" {
		http.NotFound(w, r)
		return
	}
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch {
	case sub == "subscribe" && r.Method == http.MethodPost:
		h.subscribe(w, r, name)
	case sub == "subscribe" && r.Method == http.MethodDelete:
		h.unsubscribe(w, r, name)
	case sub == "briefings/today" && r.Method == http.MethodGet:
		h.getTodaysTopicBriefing(w, r, name)
	case sub == "generate" && r.Method == http.MethodPost:
		h.generateTopicBriefing(w, r, name)
	default:
		http.NotFound(w, r)
	}
}

// subscribe godoc
// @Summary Follow a topic
// @Tags topics
// @Produce json
// @Param topicName path string true "Topic name"
// @Success 201 {object} dto.TopicSubscriptionResponseDTO
// @Failure 404 {string} string "Unknown topic"
// @Router /topics/{topicName}/subscribe [post]
func (h *TopicHandler) subscribe(w http.ResponseWriter, r *http.Request, name string) {
	userID := middleware.UserID(r.Context())
	sub, err := h.topicService.Subscribe(r.Context(), userID, name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, subscriptionToDTO(*sub))
}

// unsubscribe godoc
// @Summary Unfollow a topic
// @Tags topics
// @Param topicName path string true "Topic name"
// @Success 204 {string} string ""
// @Failure 404 {string} string "Unknown topic or no subscription"
// @Router /topics/{topicName}/subscribe [delete]
func (h *TopicHandler) unsubscribe(w http.ResponseWriter, r *http.Request, name string) {
	userID := middleware.UserID(r.Context())
	if err := h.topicService.Unsubscribe(r.Context(), userID, name); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listMyTopics godoc
// @Summary List followed topics
// @Tags topics
// @Produce json
// @Success 200 {array} dto.TopicSubscriptionResponseDTO
// @Router /users/me/topics [get]
func (h *TopicHandler) listMyTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := middleware.UserID(r.Context())
	subs, err := h.topicService.ListUserTopics(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]dto.TopicSubscriptionResponseDTO, 0, len(subs))
	for _, sub := range subs {
		out = append(out, subscriptionToDTO(sub))
	}
	writeJSON(w, http.StatusOK, out)
}

// getTodaysTopicBriefing godoc
// @Summary Today's briefing for a followed topic
// @Tags topics
// @Produce json
// @Param topicName path string true "Topic name"
// @Success 200 {object} dto.TopicBriefingResponseDTO
// @Failure 403 {string} string "Not subscribed to this topic"
// @Failure 404 {string} string "No briefing yet today"
// @Router /topics/{topicName}/briefings/today [get]
func (h *TopicHandler) getTodaysTopicBriefing(w http.ResponseWriter, r *http.Request, name string) {
	userID := middleware.UserID(r.Context())
	req, err := requesterFrom(r.Context(), h.userService)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	ba, err := h.topicService.GetTodaysTopicBriefing(r.Context(), userID, name, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topicBriefingToDTO(*ba))
}

// generateTopicBriefing godoc
// @Summary Queue a topic briefing generation job
// @Description Quota-checks the caller's topic budget and enqueues a generation job for the orchestrator.
// @Tags topics
// @Accept json
// @Produce json
// @Param topicName path string true "Topic name"
// @Param request body dto.GenerateTopicBriefingDTO false "Options"
// @Success 202 {object} dto.GenerationQueuedResponseDTO
// @Failure 404 {string} string "Unknown topic"
// @Failure 429 {string} string "Daily generation limit reached"
// @Router /topics/{topicName}/generate [post]
func (h *TopicHandler) generateTopicBriefing(w http.ResponseWriter, r *http.Request, name string) {
	userID := middleware.UserID(r.Context())

	var body dto.GenerateTopicBriefingDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	topic, err := h.topicService.GetTopic(r.Context(), name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	date := util.BriefingDate(time.Now())
	if !body.Force {
		if err := h.quotaService.CheckTopicQuota(r.Context(), userID, topic.ID, date); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	jobID := uuid.NewString()
	payload, err := json.Marshal(map[string]interface{}{
		"job_id":     jobID,
		"topic_name": name,
		"user_id":    userID,
		"date":       date.Format("2006-01-02"),
		"force":      body.Force,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Dedupe duplicate triggers for the same topic and day; the catalog
	// uniqueness constraint remains the correctness guard either way.
	dedupeKey := "enqueue:topic:" + date.Format("2006-01-02") + ":" + name
	enqueued, err := h.dedupe.Once(r.Context(), dedupeKey, 30*time.Second, func() error {
		return h.queue.Send(r.Context(), h.queueName, payload)
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !enqueued {
		writeJSON(w, http.StatusAccepted, dto.GenerationQueuedResponseDTO{
			Topic:  name,
			Date:   date.Format("2006-01-02"),
			Status: "duplicate",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, dto.GenerationQueuedResponseDTO{
		JobID:  jobID,
		Topic:  name,
		Date:   date.Format("2006-01-02"),
		Status: "queued",
	})
}

func subscriptionToDTO(sub model.TopicSubscription) dto.TopicSubscriptionResponseDTO {
	out := dto.TopicSubscriptionResponseDTO{
		ID:                  sub.ID,
		TopicID:             sub.TopicID,
		IsActive:            sub.IsActive,
		NotificationEnabled: sub.NotificationEnabled,
		Priority:            sub.Priority,
		CreatedAt:           sub.CreatedAt,
	}
	if sub.Topic != nil {
		t := topicToDTO(*sub.Topic)
		out.Topic = &t
	}
	return out
}

func topicBriefingToDTO(ba service.TopicBriefingAccess) dto.TopicBriefingResponseDTO {
	b := ba.Briefing
	resp := dto.TopicBriefingResponseDTO{
		ID:           b.ID,
		TopicID:      b.TopicID,
		Title:        b.Title,
		BriefingDate: b.BriefingDate.Format("2006-01-02"),
		Blurb:        b.Blurb,
		CanAccess:    ba.CanAccess,
		AccessReason: ba.AccessReason,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
	if ba.CanAccess {
		resp.TextContent = strPtr(b.TextContent)
		if ba.AudioURL != "" {
			resp.AudioURL = strPtr(ba.AudioURL)
		}
	}
	return resp
}
