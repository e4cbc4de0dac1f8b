package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantdash/plantdash/internal/session"
)

// mockAPIServer creates a mock backend for testing
func mockAPIServer(t *testing.T, email, password, token string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var creds session.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if creds.Email != email || creds.Password != password {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "invalid credentials"}`))
			return
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"token": token,
			"user": map[string]interface{}{
				"id":    "user-123",
				"email": creds.Email,
				"name":  "Test User",
				"role":  "admin",
			},
		})
	})

	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "invalid token"}`))
			return false
		}
		return true
	}

	mux.HandleFunc("/api/plants", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		json.NewEncoder(w).Encode([]Plant{
			{ID: "p1", Name: "North Plant", Status: "running", SystemCount: 2},
			{ID: "p2", Name: "South Plant", Status: "maintenance"},
		})
	})

	mux.HandleFunc("/api/plants/p1/systems", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		json.NewEncoder(w).Encode([]System{{ID: "s1", PlantID: "p1", Name: "Boiler"}})
	})

	mux.HandleFunc("/api/systems/s1/parameters", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		json.NewEncoder(w).Encode([]Parameter{{ID: "t1", SystemID: "s1", Name: "Temperature", Unit: "°C", Value: 81.5}})
	})

	mux.HandleFunc("/api/reports", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]Report{{ID: "r1", Title: "Weekly", Status: "ready"}})
		case http.MethodPost:
			var req CreateReportRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if req.PlantID == "missing" {
				w.WriteHeader(http.StatusUnprocessableEntity)
				w.Write([]byte(`{"error": "unknown plant"}`))
				return
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(Report{ID: "r2", Title: req.Title, PlantID: req.PlantID, Format: req.Format, Status: "pending"})
		}
	})

	return httptest.NewServer(mux)
}

func TestLogin_Success(t *testing.T) {
	srv := mockAPIServer(t, "test@example.com", "password123", "tok")
	defer srv.Close()

	c := New(srv.URL + "/")
	result, err := c.Login(context.Background(), session.Credentials{Email: "test@example.com", Password: "password123"})
	require.NoError(t, err)

	assert.Equal(t, "tok", result.Token)
	assert.Equal(t, "user-123", result.User.ID)
	assert.Equal(t, "admin", result.User.Role)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv := mockAPIServer(t, "test@example.com", "password123", "tok")
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Login(context.Background(), session.Credentials{Email: "test@example.com", Password: "wrong"})

	require.ErrorIs(t, err, session.ErrAuthRejected)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestLogin_BackendUnreachable(t *testing.T) {
	srv := mockAPIServer(t, "a", "b", "tok")
	srv.Close()

	c := New(srv.URL)
	c.SetHTTPClient(&http.Client{Timeout: time.Second})
	_, err := c.Login(context.Background(), session.Credentials{Email: "a", Password: "b"})

	assert.ErrorIs(t, err, session.ErrNetwork)
}

func TestPlantsSystemsParameters(t *testing.T) {
	srv := mockAPIServer(t, "a", "b", "tok")
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL)

	plants, err := c.ListPlants(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, plants, 2)
	assert.Equal(t, "North Plant", plants[0].Name)

	systems, err := c.ListSystems(ctx, "tok", "p1")
	require.NoError(t, err)
	require.Len(t, systems, 1)

	params, err := c.ListParameters(ctx, "tok", "s1")
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, 81.5, params[0].Value)
}

func TestExpiredToken(t *testing.T) {
	srv := mockAPIServer(t, "a", "b", "tok")
	defer srv.Close()

	_, err := New(srv.URL).ListPlants(context.Background(), "old-token")
	assert.ErrorIs(t, err, session.ErrAuthRejected)
}

func TestReports(t *testing.T) {
	srv := mockAPIServer(t, "a", "b", "tok")
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL)

	reports, err := c.ListReports(ctx, "tok")
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	created, err := c.CreateReport(ctx, "tok", CreateReportRequest{Title: "Daily", PlantID: "p1", Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "r2", created.ID)
	assert.Equal(t, "pending", created.Status)

	_, err = c.CreateReport(ctx, "tok", CreateReportRequest{Title: "Daily", PlantID: "missing", Format: "pdf"})
	require.Error(t, err)
	assert.True(t, IsAPIError(err, http.StatusUnprocessableEntity))
	assert.Contains(t, err.Error(), "unknown plant")
}
