package observability

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcurrencyLimitMiddleware_Saturation(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusOK)
	})
	handler := ConcurrencyLimitMiddleware(1, slow)

	var wg sync.WaitGroup
	wg.Add(1)
	firstRec := httptest.NewRecorder()
	go func() {
		defer wg.Done()
		handler.ServeHTTP(firstRec, httptest.NewRequest(http.MethodGet, "/", nil))
	}()
	<-started

	// The only slot is held, so the second request fails fast.
	secondRec := httptest.NewRecorder()
	handler.ServeHTTP(secondRec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, secondRec.Code)

	close(release)
	wg.Wait()
	assert.Equal(t, http.StatusOK, firstRec.Code)

	// The slot is free again.
	release = make(chan struct{})
	close(release)
	thirdRec := httptest.NewRecorder()
	handler.ServeHTTP(thirdRec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, thirdRec.Code)
}

func TestConcurrencyLimitMiddleware_Disabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := ConcurrencyLimitMiddleware(0, next)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	})

	handler := CORSMiddleware("https://app.example", next)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
