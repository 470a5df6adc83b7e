package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ipormac/internal/domain"
)

func newTestServer(t *testing.T, generated domain.GeneratedAddress) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewRouter(newTestService(t, generated), nil))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestAPIAnswerFlow(t *testing.T) {
	server := newTestServer(t, domain.GeneratedAddress{
		Address:       "10.0.0.300",
		Type:          domain.None,
		InvalidType:   domain.IPv4,
		InvalidReason: "has an octet greater than 255",
		Defect:        "ipv4-octet-out-of-range",
	})
	base := server.URL + "/api/sites/network-addresses"

	resp := postJSON(t, base+"/questions", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var q domain.Question
	decodeBody(t, resp, &q)

	// Calling it IPv4 is wrong.
	resp = postJSON(t, base+"/answers", map[string]any{"questionId": q.ID, "choice": 1})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result domain.AnswerResult
	decodeBody(t, resp, &result)
	if result.Correct || result.Score != 0 || result.Streak != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Feedback.Explanation != "This is actually an invalid IPv4. It has an octet greater than 255." {
		t.Fatalf("unexpected explanation %q", result.Feedback.Explanation)
	}

	// The question was consumed.
	resp = postJSON(t, base+"/answers", map[string]any{"questionId": q.ID, "choice": 4})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for answered question, got %d", resp.StatusCode)
	}

	resp = postJSON(t, base+"/answers", map[string]any{"questionId": q.ID, "choice": 9})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid choice, got %d", resp.StatusCode)
	}

	resp, err := http.Get(base + "/stats")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	var snapshot domain.StatsSnapshot
	decodeBody(t, resp, &snapshot)
	if snapshot.Overall.TotalAttempts != 1 || snapshot.ByType[domain.None].Attempts != 1 {
		t.Fatalf("unexpected stats %+v", snapshot)
	}

	req, _ := http.NewRequest(http.MethodDelete, base+"/scores", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete scores: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp, _ = http.Get(base + "/stats")
	decodeBody(t, resp, &snapshot)
	if snapshot.Overall.TotalAttempts != 0 || snapshot.Overall.Level.Title != "Duck Egg" {
		t.Fatalf("expected floor level after reset, got %+v", snapshot.Overall)
	}
}

func TestAPIStaticContent(t *testing.T) {
	server := newTestServer(t, domain.GeneratedAddress{Address: "::1", Type: domain.IPv6})

	resp, err := http.Get(server.URL + "/api/hints")
	if err != nil {
		t.Fatalf("get hints: %v", err)
	}
	var hints []domain.Hint
	decodeBody(t, resp, &hints)
	if len(hints) != 3 || hints[0].Title != "IPv4" {
		t.Fatalf("unexpected hints %+v", hints)
	}

	resp, err = http.Get(server.URL + "/api/choices")
	if err != nil {
		t.Fatalf("get choices: %v", err)
	}
	var choices []domain.AnswerChoice
	decodeBody(t, resp, &choices)
	if len(choices) != 4 || choices[3].Type != domain.None {
		t.Fatalf("unexpected choices %+v", choices)
	}

	resp, err = http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", resp.StatusCode)
	}
}
