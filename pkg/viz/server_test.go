package viz

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerRoutes(t *testing.T) {
	s := NewServer(0, 10*time.Millisecond)
	plotter := NewTimeDomainPlotter("EEG0chip1 time", 8)
	s.Register("EEG0chip1", plotter)
	s.SetStatusFunc(func() interface{} {
		return map[string]int{"samples": 3}
	})

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/view/EEG0chip1", resp.Header.Get("Location"))

	resp, err = client.Get(srv.URL + "/status")
	require.NoError(t, err)
	var status map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, 3, status["samples"])

	resp, err = client.Get(srv.URL + "/view/ACCX")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/view/EEG0chip1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))

	// nothing rendered yet
	resp, err = client.Get(srv.URL + "/img/EEG0chip1/EEG0chip1%20time")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	plotter.Append(1, 2, 3, 2, 1)
	s.refresh(false)

	resp, err = client.Get(srv.URL + "/img/EEG0chip1/EEG0chip1%20time")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestRefreshSkipsUnviewedBuckets(t *testing.T) {
	s := NewServer(0, time.Second)
	plotter := NewTimeDomainPlotter("ACCX time", 4)
	plotter.Append(1, 2, 3, 4)
	s.Register("ACCX", plotter)

	s.refresh(false)
	assert.Empty(t, s.images)

	s.Enable(false)
	s.refresh(true)
	assert.Empty(t, s.images)

	s.Enable(true)
	s.refresh(true)
	require.Contains(t, s.images, "ACCX")
	img := s.images["ACCX"]["ACCX time"]
	require.NotNil(t, img)
	assert.Equal(t, "ACCX time", img.Name())
	assert.NotEmpty(t, img.Data())
}

func TestStatusWithoutFunc(t *testing.T) {
	s := NewServer(0, time.Second)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
