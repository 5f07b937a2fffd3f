package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/nerdneilsfield/go-page-translator/internal/tabs"
	"github.com/nerdneilsfield/go-page-translator/pkg/pagetrans"
	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
	"github.com/nerdneilsfield/go-page-translator/pkg/translation"
	"go.uber.org/zap"
)

// errorResponse 错误响应体
type errorResponse struct {
	Error   string `json:"error"`
	Tooltip string `json:"tooltip,omitempty"`
}

// errBadRequest 请求体无法解析或缺少字段
type errBadRequest struct {
	msg string
}

func (e *errBadRequest) Error() string { return e.msg }

func badRequest(msg string) error { return &errBadRequest{msg: msg} }

// statusFor 把错误映射为 HTTP 状态码
func statusFor(err error) int {
	var (
		svcErr   *providers.ServiceError
		detErr   *providers.DetectionError
		mismatch *pagetrans.CountMismatchError
		countErr *translation.CountError
		badReq   *errBadRequest
	)

	switch {
	case errors.As(err, &badReq),
		errors.Is(err, pagetrans.ErrNoTargetLanguage),
		errors.Is(err, translation.ErrEmptyText),
		errors.Is(err, translation.ErrUnknownLanguage):
		return http.StatusBadRequest
	case errors.Is(err, tabs.ErrTabNotFound):
		return http.StatusNotFound
	case errors.As(err, &mismatch),
		errors.As(err, &countErr),
		errors.Is(err, pagetrans.ErrStaleBatch),
		errors.Is(err, pagetrans.ErrNoPendingBatch),
		errors.Is(err, pagetrans.ErrCycleInFlight),
		errors.Is(err, tabs.ErrTabExists):
		return http.StatusConflict
	case errors.As(err, &detErr),
		errors.Is(err, translation.ErrNotEnoughText),
		errors.Is(err, translation.ErrDetectionUnsupported):
		return http.StatusUnprocessableEntity
	case errors.As(err, &svcErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return badRequest("invalid request body: " + err.Error())
	}
	return nil
}
