package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"org-lifecycle/internal/middleware"
	"org-lifecycle/internal/model"
)

type MockTransferWorkflow struct {
	mock.Mock
}

func (m *MockTransferWorkflow) RequestTransfer(ctx context.Context, sourceID int64, targetID int64, requester model.Identity) (model.TransferRequest, error) {
	args := m.Called(ctx, sourceID, targetID, requester)
	return args.Get(0).(model.TransferRequest), args.Error(1)
}

func (m *MockTransferWorkflow) ApproveTransfer(ctx context.Context, id int64, approver model.Identity) (model.TransferRequest, error) {
	args := m.Called(ctx, id, approver)
	return args.Get(0).(model.TransferRequest), args.Error(1)
}

func (m *MockTransferWorkflow) DenyTransfer(ctx context.Context, id int64, reason string, approver model.Identity) (model.TransferRequest, error) {
	args := m.Called(ctx, id, reason, approver)
	return args.Get(0).(model.TransferRequest), args.Error(1)
}

func (m *MockTransferWorkflow) GetTransfer(ctx context.Context, id int64) (model.TransferRequest, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.TransferRequest), args.Error(1)
}

func (m *MockTransferWorkflow) ListPending(ctx context.Context) ([]model.TransferRequest, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.TransferRequest), args.Error(1)
}

type MockCleanupJob struct {
	mock.Mock
}

func (m *MockCleanupJob) Trigger(ctx context.Context, actor model.Identity) (model.CleanupReport, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).(model.CleanupReport), args.Error(1)
}

func (m *MockCleanupJob) ListTasks(ctx context.Context, actor model.Identity, status string, limit int) ([]model.ScheduledTask, error) {
	args := m.Called(ctx, actor, status, limit)
	return args.Get(0).([]model.ScheduledTask), args.Error(1)
}

var caller = model.Identity{ID: 7, Name: "Morgan", Role: "manager"}

func withCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), caller)))
	})
}

func serve(t *testing.T, routes func(chi.Router), method string, path string, body string) (*httptest.ResponseRecorder, model.APIResponse) {
	t.Helper()

	r := chi.NewRouter()
	r.Use(withCaller)
	routes(r)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func transferRoutes(h *TransferHandler) func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/transfers", h.Create)
		r.Get("/transfers/pending", h.ListPending)
		r.Get("/transfers/{id}", h.Get)
		r.Post("/transfers/{id}/approve", h.Approve)
		r.Post("/transfers/{id}/deny", h.Deny)
	}
}

func TestTransferHandler(t *testing.T) {
	t.Run("create passes the caller as requester", func(t *testing.T) {
		svc := new(MockTransferWorkflow)
		svc.On("RequestTransfer", mock.Anything, int64(1), int64(2), caller).
			Return(model.TransferRequest{ID: 10, Status: model.StatusPending}, nil)

		rec, resp := serve(t, transferRoutes(NewTransferHandler(svc)), http.MethodPost, "/transfers",
			`{"source_organization_id":1,"target_organization_id":2}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, resp.Success)
		svc.AssertExpectations(t)
	})

	t.Run("unknown JSON fields are rejected", func(t *testing.T) {
		svc := new(MockTransferWorkflow)

		rec, resp := serve(t, transferRoutes(NewTransferHandler(svc)), http.MethodPost, "/transfers", `{"source":1}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
		svc.AssertNotCalled(t, "RequestTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("error mapping", func(t *testing.T) {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{model.NewValidationError("reason", "reason is required"), http.StatusBadRequest, "BAD_REQUEST"},
			{fmt.Errorf("transfer 3: %w", model.ErrConflictOrNotFound), http.StatusConflict, "CONFLICT"},
			{fmt.Errorf("role:recruiter may not deny transfer: %w", model.ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
			{model.StoreError("transition transfer", fmt.Errorf("connection reset")), http.StatusInternalServerError, "INTERNAL_ERROR"},
		}

		for _, tc := range cases {
			svc := new(MockTransferWorkflow)
			svc.On("DenyTransfer", mock.Anything, int64(3), "dup", caller).Return(model.TransferRequest{}, tc.err)

			rec, resp := serve(t, transferRoutes(NewTransferHandler(svc)), http.MethodPost, "/transfers/3/deny", `{"reason":"dup"}`)

			assert.Equal(t, tc.status, rec.Code, tc.err.Error())
			assert.Equal(t, tc.code, resp.Error.Code)
			assert.NotContains(t, resp.Error.Message, "connection reset")
		}
	})

	t.Run("bad id", func(t *testing.T) {
		svc := new(MockTransferWorkflow)

		rec, _ := serve(t, transferRoutes(NewTransferHandler(svc)), http.MethodPost, "/transfers/abc/approve", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockTransferWorkflow)
		svc.On("GetTransfer", mock.Anything, int64(8)).Return(model.TransferRequest{}, fmt.Errorf("transfer 8: %w", model.ErrNotFound))

		rec, _ := serve(t, transferRoutes(NewTransferHandler(svc)), http.MethodGet, "/transfers/8", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("pending list carries a count", func(t *testing.T) {
		svc := new(MockTransferWorkflow)
		svc.On("ListPending", mock.Anything).Return([]model.TransferRequest{{ID: 2}, {ID: 1}}, nil)

		rec, resp := serve(t, transferRoutes(NewTransferHandler(svc)), http.MethodGet, "/transfers/pending", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, 2, resp.Meta.Count)
	})
}

func TestCleanupHandler(t *testing.T) {
	routes := func(h *CleanupHandler) func(chi.Router) {
		return func(r chi.Router) {
			r.Post("/admin/cleanup/run", h.Run)
			r.Get("/admin/cleanup/tasks", h.ListTasks)
		}
	}

	t.Run("overlapping run is a conflict", func(t *testing.T) {
		svc := new(MockCleanupJob)
		svc.On("Trigger", mock.Anything, caller).Return(model.CleanupReport{}, model.ErrCleanupInProgress)

		rec, resp := serve(t, routes(NewCleanupHandler(svc)), http.MethodPost, "/admin/cleanup/run", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "CONFLICT", resp.Error.Code)
	})

	t.Run("tasks honour status and limit", func(t *testing.T) {
		svc := new(MockCleanupJob)
		svc.On("ListTasks", mock.Anything, caller, "completed", 5).Return([]model.ScheduledTask{{ID: 1}}, nil)

		rec, resp := serve(t, routes(NewCleanupHandler(svc)), http.MethodGet, "/admin/cleanup/tasks?status=completed&limit=5", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5, resp.Meta.Limit)
		svc.AssertExpectations(t)
	})
}

func TestCallerRequired(t *testing.T) {
	h := NewTransferHandler(new(MockTransferWorkflow))
	req := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.Create(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
