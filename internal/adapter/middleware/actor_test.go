package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanflow-backend/internal/domain/access"
)

func serveWithActor(t *testing.T, method string, hdr map[string]string) (*httptest.ResponseRecorder, access.Actor) {
	t.Helper()
	var got access.Actor
	e := echo.New()
	e.Use(Actor())
	h := func(c echo.Context) error {
		got = ActorFrom(c)
		return c.NoContent(http.StatusNoContent)
	}
	e.GET("/loans/:loan_id", h)
	e.POST("/loans/:loan_id/approve", h)

	path := "/loans/L1"
	if method == http.MethodPost {
		path += "/approve"
	}
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, got
}

func TestActor_ParsesHeaders(t *testing.T) {
	rec, a := serveWithActor(t, http.MethodPost, map[string]string{
		HeaderActorID:        "u-42",
		HeaderActorName:      "Sari",
		HeaderActorRole:      "Perusahaan",
		HeaderActorCompanies: " acme, ,globex ",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u-42", a.ID)
	assert.Equal(t, "Sari", a.Name)
	assert.Equal(t, access.RoleCompany, a.Role)
	assert.Equal(t, []string{"acme", "globex"}, a.Companies)
}

func TestActor_MutationsNeedID(t *testing.T) {
	rec, _ := serveWithActor(t, http.MethodPost, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = serveWithActor(t, http.MethodPost, map[string]string{HeaderActorID: "has space"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActor_ReadsPassWithoutID(t *testing.T) {
	rec, a := serveWithActor(t, http.MethodGet, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, a.ID)
	assert.Equal(t, access.RoleBorrower, a.Role)
}

func TestActorFrom_Unset(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, access.Actor{}, ActorFrom(c))
}
