package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, task *asynq.Task) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type()}, nil
}

func newJobsRouter(enq Enqueuer) chi.Router {
	h := NewHandler(nil, enq, testLogger())
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestSweepEndpointEnqueuesSessionSweep(t *testing.T) {
	enq := &fakeEnqueuer{}
	router := newJobsRouter(enq)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sweep", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, enq.tasks, 1)
	require.Equal(t, TaskSessionSweep, enq.tasks[0].Type())
	require.Contains(t, rec.Body.String(), TaskSessionSweep)
}

func TestSweepEndpointReportsQueueFailure(t *testing.T) {
	router := newJobsRouter(&fakeEnqueuer{err: errors.New("redis down")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sweep", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	router = newJobsRouter(nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sweep", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
