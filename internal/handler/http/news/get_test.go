package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticker-news/internal/domain/entity"
	"ticker-news/internal/repository"
)

type stubReconciler struct {
	calls    int
	got      []string
	articles []*entity.Article
	err      error
}

func (s *stubReconciler) GetNews(_ context.Context, symbols []string) ([]*entity.Article, error) {
	s.calls++
	s.got = symbols
	return s.articles, s.err
}

func serve(t *testing.T, svc Reconciler, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	Register(mux, svc, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGetHandler_ReturnsArticles(t *testing.T) {
	published := time.Date(2026, 3, 2, 13, 30, 0, 0, time.UTC)
	svc := &stubReconciler{articles: []*entity.Article{{
		ID:          "a1",
		Title:       "Nvidia is doing great",
		URL:         "https://example.com/nvda",
		Language:    "en",
		Source:      "example.com",
		PublishedAt: published,
		Entities:    []entity.EntityTag{{Symbol: "NVDA", Name: "NVIDIA Corporation", Type: "equity"}},
	}}}

	rec := serve(t, svc, "/news?symbols=nvda,%20AAPL")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, []string{"AAPL", "NVDA"}, svc.got)

	var got []DTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	want := []DTO{{
		ID:          "a1",
		Title:       "Nvidia is doing great",
		URL:         "https://example.com/nvda",
		Language:    "en",
		Source:      "example.com",
		PublishedAt: published,
		Entities:    []EntityDTO{{Symbol: "NVDA", Name: "NVIDIA Corporation", Type: "equity"}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestGetHandler_RepeatedParams(t *testing.T) {
	svc := &stubReconciler{}
	rec := serve(t, svc, "/news?symbols=TSLA&symbols=msft,tsla")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"MSFT", "TSLA"}, svc.got)
}

func TestGetHandler_EmptyResultIsArray(t *testing.T) {
	rec := serve(t, &stubReconciler{}, "/news?symbols=ZZZZ")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetHandler_NoSymbols(t *testing.T) {
	for _, target := range []string{"/news", "/news?symbols=", "/news?symbols=,%20,"} {
		t.Run(target, func(t *testing.T) {
			svc := &stubReconciler{}
			rec := serve(t, svc, target)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"no symbols provided"}`, rec.Body.String())
			assert.Zero(t, svc.calls)
		})
	}
}

func TestGetHandler_PersistenceFailure(t *testing.T) {
	svc := &stubReconciler{err: fmt.Errorf("bulk insert: %w: connection reset", repository.ErrPersistence)}
	rec := serve(t, svc, "/news?symbols=NVDA")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestGetHandler_MethodNotAllowed(t *testing.T) {
	mux := http.NewServeMux()
	Register(mux, &stubReconciler{}, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/news?symbols=NVDA", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRegister_AppliesWrap(t *testing.T) {
	mux := http.NewServeMux()
	Register(mux, &stubReconciler{}, func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/news?symbols=NVDA", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
