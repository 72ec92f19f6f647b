package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/abhisek/diagnostica/internal/attempt"
	"github.com/abhisek/diagnostica/internal/content"
	"github.com/abhisek/diagnostica/internal/store"
	"github.com/abhisek/diagnostica/internal/telemetry"
)

// maxPackBytes bounds uploaded content packs.
const maxPackBytes = 8 << 20

type startAttemptRequest struct {
	ExamID    string `json:"examId" binding:"required"`
	StudentID string `json:"studentId" binding:"required,max=128"`
}

type attemptResponse struct {
	ID          string     `json:"id"`
	ExamID      string     `json:"examId"`
	StudentID   string     `json:"studentId"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func toAttemptResponse(a *store.Attempt) attemptResponse {
	return attemptResponse{
		ID:          a.ID,
		ExamID:      a.ExamID,
		StudentID:   a.StudentID,
		Status:      string(a.Status),
		StartedAt:   a.StartedAt,
		CompletedAt: a.CompletedAt,
	}
}

type payloadRequest struct {
	QuestionID       string `json:"questionId" binding:"required"`
	SelectedOptionID string `json:"selectedOptionId"`
	Confidence       string `json:"confidence" binding:"confidence"`
	TimeMs           *int   `json:"timeMs" binding:"omitempty,min=0"`
	Count            int    `json:"count" binding:"min=0"`
	HesitationCount  int    `json:"hesitationCount" binding:"min=0"`
	FocusLostCount   int    `json:"focusLostCount" binding:"min=0"`
}

type eventRequest struct {
	Type      string         `json:"event_type" binding:"required,oneof=ANSWER_UPDATE HESITATION FOCUS_LOST"`
	Timestamp time.Time      `json:"timestamp" binding:"required"`
	Payload   payloadRequest `json:"payload"`
}

func (e eventRequest) event() telemetry.Event {
	return telemetry.Event{
		Type:      telemetry.EventType(e.Type),
		Timestamp: e.Timestamp,
		Payload: telemetry.Payload{
			QuestionID:       e.Payload.QuestionID,
			SelectedOptionID: e.Payload.SelectedOptionID,
			Confidence:       e.Payload.Confidence,
			TimeMs:           e.Payload.TimeMs,
			Count:            e.Payload.Count,
			HesitationCount:  e.Payload.HesitationCount,
			FocusLostCount:   e.Payload.FocusLostCount,
		},
	}
}

type putTagsRequest struct {
	Tags map[string]string `json:"tags" binding:"required,min=1,dive,keys,required,endkeys,required"`
}

// validateConfidence accepts an empty value or one of the four confidence
// buckets in any case.
func validateConfidence(fl validator.FieldLevel) bool {
	s := strings.ToUpper(strings.TrimSpace(fl.Field().String()))
	if s == "" {
		return true
	}
	for _, c := range telemetry.AllConfidences() {
		if s == string(c) {
			return true
		}
	}
	return false
}

func (s *Server) putExam(c *gin.Context) {
	raw, err := readBody(c, maxPackBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := content.ParsePack(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	examID := c.Param("examID")
	if p.ExamID == "" {
		p.ExamID = examID
	}
	if p.ExamID != examID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "examId in body does not match path"})
		return
	}

	report, err := s.attempts.ImportExam(c.Request.Context(), p)
	if len(report.Errors) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": report.Errors, "warnings": report.Warnings})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"examId": p.ExamID, "version": p.Version, "warnings": report.Warnings})
}

func (s *Server) getReport(c *gin.Context) {
	c.JSON(http.StatusOK, s.reports.Report(c.Request.Context(), c.Param("examID")))
}

func (s *Server) startAttempt(c *gin.Context) {
	var req startAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := s.attempts.Start(c.Request.Context(), req.ExamID, req.StudentID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAttemptResponse(a))
}

func (s *Server) getAttempt(c *gin.Context) {
	a, err := s.attempts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAttemptResponse(a))
}

func (s *Server) appendEvents(c *gin.Context) {
	var req []eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty event batch"})
		return
	}
	events := make([]telemetry.Event, len(req))
	for i := range req {
		events[i] = req[i].event()
	}

	seqs, err := s.attempts.AppendEvents(c.Request.Context(), c.Param("id"), events)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"sequences": seqs})
}

func (s *Server) finalize(c *gin.Context) {
	res, err := s.attempts.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) getResult(c *gin.Context) {
	res, err := s.attempts.Result(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) getRemediation(c *gin.Context) {
	plan, err := s.attempts.Remediation(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attemptId": c.Param("id"), "mutations": plan})
}

func (s *Server) putTags(c *gin.Context) {
	var req putTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.tags.SetTags(c.Request.Context(), c.Param("id"), req.Tags); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// fail maps service errors onto status codes.
func (s *Server) fail(c *gin.Context, err error) {
	var invalid *telemetry.ErrInvalidBatch
	switch {
	case errors.Is(err, attempt.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, attempt.ErrAttemptCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func readBody(c *gin.Context, limit int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	raw, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("empty request body")
	}
	return raw, nil
}
