package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ssmoliagin/weekendguide/internal/domain/rules"
	redrepo "github.com/ssmoliagin/weekendguide/internal/repo/redis"
	authsvc "github.com/ssmoliagin/weekendguide/internal/services/auth"
	catalogsvc "github.com/ssmoliagin/weekendguide/internal/services/catalog"
	geosvc "github.com/ssmoliagin/weekendguide/internal/services/geo"
	profilesvc "github.com/ssmoliagin/weekendguide/internal/services/profiles"
	ratesvc "github.com/ssmoliagin/weekendguide/internal/services/rate"
	unlocksvc "github.com/ssmoliagin/weekendguide/internal/services/unlock"
	visitssvc "github.com/ssmoliagin/weekendguide/internal/services/visits"
)

const (
	testRegionsJSON = `[
		{"code":"vienna","name":{"en":"Vienna"},"lat":48.2082,"lon":16.3738,"cost_gp":80},
		{"code":"tyrol","name":{"en":"Tyrol"},"lat":47.2692,"lon":11.4041,"cost_gp":500}
	]`
	testViennaCSV = "id,lat,lon,title,description,category,image_url,wiki_title\n" +
		"stephansdom,48.2085,16.3731,St. Stephen's Cathedral,Gothic cathedral,church,,St._Stephen's_Cathedral\n" +
		"belvedere,48.1915,16.3809,Belvedere,Baroque palace,museum,,Belvedere_(palace)\n"
)

type memoryObjects map[string]string

func (m memoryObjects) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := m[key]
	if !ok {
		return nil, catalogsvc.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type testEnv struct {
	redis    *goredis.Client
	auth     *authsvc.Service
	profiles *profilesvc.Service
	catalog  *catalogsvc.Service
	geo      *geosvc.Service
	unlock   *unlocksvc.Service
	visits   *visitssvc.Service
	limiter  *ratesvc.Limiter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	profiles := profilesvc.NewService(redrepo.NewProfileRepo(client), profilesvc.Config{WelcomeBonusGP: 100}, nil)

	auth := authsvc.NewService(authsvc.NewJWTManager("test-secret", 15*time.Minute), redrepo.NewSessionRepo(client), 45*24*time.Hour)
	auth.AttachProfiles(profiles)
	auth.EnableDevLogin(true)

	objects := memoryObjects{
		"data/places/countries.json":       `[{"code":"at","name":{"en":"Austria"}}]`,
		"data/places/at/regions.json":      testRegionsJSON,
		"data/places/at/vienna/poi/en.csv": testViennaCSV,
	}
	catalog := catalogsvc.NewService(catalogsvc.NewDiskCache(objects, t.TempDir(), nil), catalogsvc.Config{
		Prefix:       "data/places",
		FallbackLang: "en",
	}, nil)
	geo := geosvc.NewService(catalog)

	unlock := unlocksvc.NewService(unlocksvc.Dependencies{
		Profiles: profiles,
		Catalog:  catalog,
	}, unlocksvc.Config{DefaultRegionCost: 300})

	visits := visitssvc.NewService(visitssvc.Dependencies{
		Profiles:  profiles,
		Catalog:   catalog,
		Proximity: geo,
	}, visitssvc.Config{
		RadiusM: 200,
		Rewards: rules.NewRewards(map[string]int{"church": 15}, 5),
	})

	return &testEnv{
		redis:    client,
		auth:     auth,
		profiles: profiles,
		catalog:  catalog,
		geo:      geo,
		unlock:   unlock,
		visits:   visits,
		limiter:  ratesvc.NewLimiter(redrepo.NewRateRepo(client), "reviews", ratesvc.Window{Span: time.Minute, Limit: 5}),
	}
}

// login creates the profile through the dev flow and returns its uid.
func (e *testEnv) login(t *testing.T, name string) string {
	t.Helper()
	res, err := e.auth.LoginDev(context.Background(), name, name+"@example.com")
	if err != nil {
		t.Fatalf("dev login %s: %v", name, err)
	}
	return res.UID
}

func newRequest(method, target, body string, uid string, params map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)

	ctx := req.Context()
	if uid != "" {
		ctx = authsvc.WithIdentity(ctx, authsvc.Identity{UID: uid, SID: "sid-" + uid})
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Code string `json:"code"`
	}
	decodeBody(t, rr, &payload)
	return payload.Code
}
