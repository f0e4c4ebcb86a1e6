package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	wikisvc "github.com/ssmoliagin/weekendguide/internal/services/wiki"
	"github.com/ssmoliagin/weekendguide/internal/transport/http/dto"
)

func TestWikiSummaryMapsUpstreamResponses(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/de/summary/Stephansdom":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"title":"Stephansdom","extract":"Der Stephansdom ist eine Kathedrale in Wien."}`))
		case "/de/summary/Nirgendwo":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer upstream.Close()

	handler := NewWikiHandler(wikisvc.NewService(upstream.Client(), wikisvc.Config{
		BaseURL: upstream.URL + "/%s/summary/",
	}, nil))

	cases := []struct {
		target string
		status int
	}{
		{"/v1/wiki/summary?title=Stephansdom&lang=de", http.StatusOK},
		{"/v1/wiki/summary?title=Nirgendwo&lang=de", http.StatusNotFound},
		{"/v1/wiki/summary?title=Kaputt&lang=de", http.StatusBadGateway},
		{"/v1/wiki/summary?lang=de", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		handler.Summary(rr, newRequest(http.MethodGet, tc.target, "", "u1", nil))
		if rr.Code != tc.status {
			t.Fatalf("%s: got %d want %d (%s)", tc.target, rr.Code, tc.status, rr.Body.String())
		}
		if tc.status == http.StatusOK {
			var res dto.WikiSummaryResponse
			decodeBody(t, rr, &res)
			if res.Title != "Stephansdom" || res.Extract == "" {
				t.Fatalf("unexpected summary: %+v", res)
			}
		}
	}
}
