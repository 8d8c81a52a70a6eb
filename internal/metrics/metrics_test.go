package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAreExposed(t *testing.T) {
	QuizSubmissions.WithLabelValues("passed").Inc()
	if got := testutil.ToFloat64(QuizSubmissions.WithLabelValues("passed")); got < 1 {
		t.Fatalf("expected counter to be incremented, got %v", got)
	}

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "progression_quiz_submissions_total") {
		t.Fatalf("expected submissions counter in exposition")
	}
}
