package httpapi

import (
	"net/http"

	"github.com/sendlater/sendlater/pkg/queue"
)

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Queue  *queue.Counts     `json:"queue,omitempty"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := healthResponse{
		Status: "ok",
		Checks: make(map[string]string),
	}

	probe := func(name string, check func() error) {
		if check == nil {
			return
		}
		if err := check(); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			return
		}
		resp.Checks[name] = "ok"
	}

	if h.deps.PGCheck != nil {
		probe("postgres", func() error { return h.deps.PGCheck(ctx) })
	}
	if h.deps.RedisCheck != nil {
		probe("redis", func() error { return h.deps.RedisCheck(ctx) })
	}
	if h.deps.Queue != nil {
		counts, err := h.deps.Queue.Counts(ctx)
		if err != nil {
			resp.Status = "degraded"
			resp.Checks["queue"] = err.Error()
		} else {
			resp.Checks["queue"] = "ok"
			resp.Queue = &counts
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}
