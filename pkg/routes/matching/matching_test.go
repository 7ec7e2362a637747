package matching

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engine "github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/middleware"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
	"github.com/Ramsey-B/thistle/pkg/store/memory"
)

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	st := memory.New()
	n := normalizers.New()

	res := n.Normalize("Jane.Doe@Example.com", models.KindEmail, models.Hints{})
	rec := &models.IdentifierRecord{
		ID:              "rec-1",
		Kind:            res.Kind,
		RawValue:        "Jane.Doe@Example.com",
		NormalizedValue: res.Normalized,
		SearchValue:     res.SearchForm,
	}
	rec.SetOwner(models.SubjectOwner("subj-1"))
	require.NoError(t, st.CreateRecord(context.Background(), rec))

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	NewHandler(engine.NewEngine(logger, st, n, engine.DefaultConfig())).Register(e.Group("/v1"))
	return e
}

func post(e *echo.Echo, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/matches", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestFindMatches(t *testing.T) {
	e := newServer(t)

	rec := post(e, `{"type":"email","value":"  jane.doe@EXAMPLE.com "}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var set models.MatchSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	require.NotEmpty(t, set.Matches)
	assert.Equal(t, "subj-1", set.Matches[0].SubjectOrOrphanID)
	assert.Equal(t, "rec-1", set.Matches[0].MatchedRecordID)
}

func TestFindMatches_Rejects(t *testing.T) {
	e := newServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing value", body: `{"type":"email"}`},
		{name: "threshold above one", body: `{"type":"email","value":"a@b.com","threshold":1.5}`},
		{name: "threshold below the engine minimum", body: `{"type":"email","value":"a@b.com","threshold":0.1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(e, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
