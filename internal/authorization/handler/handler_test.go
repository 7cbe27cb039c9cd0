package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"studio_portal_backend/internal/authorization/service"
	"studio_portal_backend/internal/authorization/transport"
	conditionsdomain "studio_portal_backend/internal/conditions/domain"
	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/httpkit"
	"studio_portal_backend/platform/money"
	"studio_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthorizer struct {
	got    service.Request
	result service.Result
	err    error
}

func (s *stubAuthorizer) AuthorizeQuotation(_ context.Context, req service.Request) (service.Result, error) {
	s.got = req
	return s.result, s.err
}

func serve(t *testing.T, stub *stubAuthorizer, studioID, quotationID uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	engine := gin.New()
	group := engine.Group("/quotations", httpkit.StudioScope())
	New(stub, validator.New()).RegisterRoutes(group, nil)

	req := httptest.NewRequest(http.MethodPost, "/quotations/"+quotationID.String()+"/authorize", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httpkit.HeaderStudioID, studioID.String())
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAuthorizeMapsRequestAndResponse(t *testing.T) {
	studioID, quotationID, leadID, condID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	stub := &stubAuthorizer{result: service.Result{
		EventID:         uuid.New(),
		QuotationID:     quotationID,
		QuotationStatus: "authorized",
		Breakdown: conditionsdomain.Breakdown{
			Mode:     conditionsdomain.ModeStandard,
			Total:    money.MustParse("900"),
			Advance:  money.MustParse("450"),
			Deferred: money.MustParse("450"),
		},
		ArchivedSiblings: 2,
	}}

	body := `{"leadId":"` + leadID.String() + `","conditionId":"` + condID.String() + `","amount":"900",
		"payment":{"amount":"450","method":"transfer","paidAt":"2026-10-01T10:00:00Z","concept":"<em>Advance</em>  50%"}}`
	w := serve(t, stub, studioID, quotationID, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, studioID, stub.got.StudioID)
	assert.Equal(t, quotationID, stub.got.QuotationID)
	assert.Equal(t, leadID, stub.got.LeadID)
	require.NotNil(t, stub.got.Payment)
	assert.True(t, stub.got.Payment.Amount.Equal(money.MustParse("450")))
	assert.True(t, stub.got.Amount.Equal(money.MustParse("900")))
	assert.Equal(t, "Advance 50%", stub.got.Payment.Concept)

	var resp transport.AuthorizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, stub.result.EventID, resp.EventID)
	assert.Equal(t, int64(2), resp.ArchivedSiblings)
}

func TestAuthorizeRejectsInvalidBody(t *testing.T) {
	stub := &stubAuthorizer{}
	body := `{"conditionId":"` + uuid.NewString() + `","amount":"900","payment":{"amount":"0","method":"cash","paidAt":"2026-10-01T10:00:00Z","concept":"x"}}`

	w := serve(t, stub, uuid.New(), uuid.New(), body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp httpkit.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "leadId")
	assert.Contains(t, details, "amount")
	assert.Equal(t, uuid.Nil, stub.got.QuotationID)
}

func TestAuthorizeConflictStatus(t *testing.T) {
	stub := &stubAuthorizer{err: apperr.Conflict("quotation is already authorized")}
	body := `{"leadId":"` + uuid.NewString() + `","conditionId":"` + uuid.NewString() + `","amount":"900"}`

	w := serve(t, stub, uuid.New(), uuid.New(), body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already authorized")
}
