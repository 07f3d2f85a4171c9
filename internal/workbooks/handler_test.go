package workbooks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/internal/middleware"
	"github.com/inkwell-funnel/backend/internal/models"
)

type fakeGate struct {
	granted bool
	err     error
}

func (f *fakeGate) Verify(ctx context.Context, userID uuid.UUID, productType models.ProductType) (bool, error) {
	return f.granted, f.err
}

func doDownload(t *testing.T, gate AccessGate, productType string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, gate, nil, zap.NewNop())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/workbooks/"+productType+"/download-url", nil)
	c.Params = gin.Params{{Key: "product_type", Value: productType}}
	c.Set(middleware.ContextUserID, uuid.New())
	h.DownloadURL(c)
	return w
}

func TestDownloadURLDeniedWithoutEntitlement(t *testing.T) {
	w := doDownload(t, &fakeGate{granted: false}, "workbook")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDownloadURLGateFailureIsRetryableNotGranted(t *testing.T) {
	w := doDownload(t, &fakeGate{err: errors.New("db timeout")}, "workbook")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"retryable":true`)
}

func TestDownloadURLRejectsUnknownProduct(t *testing.T) {
	w := doDownload(t, &fakeGate{granted: true}, "ebook")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
