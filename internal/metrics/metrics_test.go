package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.JobsSubmitted.Inc()
	m.JobsFinished.WithLabelValues("completed").Inc()
	m.QueueDepth.Set(3)

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(recorder.Result().Body)
	text := string(body)
	for _, want := range []string{
		`squeeze_jobs_submitted_total 1`,
		`squeeze_jobs_finished_total{status="completed"} 1`,
		`squeeze_queue_depth 3`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := New()
	b := New()
	a.JobsSubmitted.Inc()

	recorder := httptest.NewRecorder()
	b.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(recorder.Result().Body)
	if strings.Contains(string(body), "squeeze_jobs_submitted_total 1") {
		t.Error("registries share state")
	}
}
