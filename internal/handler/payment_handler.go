package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/azs-pg/ilawa-courses-api/internal/service"
	appErrors "github.com/azs-pg/ilawa-courses-api/pkg/errors"
	"github.com/azs-pg/ilawa-courses-api/pkg/response"
)

// PaymentHandler receives payment confirmation uploads.
type PaymentHandler struct {
	payments    *service.PaymentService
	maxFileSize int64
}

// NewPaymentHandler constructs PaymentHandler. maxFileSize caps the accepted
// upload size in bytes; zero means no cap.
func NewPaymentHandler(payments *service.PaymentService, maxFileSize int64) *PaymentHandler {
	return &PaymentHandler{payments: payments, maxFileSize: maxFileSize}
}

// ValidateConfirmation godoc
// @Summary Upload and validate a payment confirmation for a course
// @Tags Payments
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param paymentConfirmation formData file true "Payment confirmation document"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/payment-confirmations [post]
func (h *PaymentHandler) ValidateConfirmation(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("paymentConfirmation")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "no file uploaded"))
		return
	}
	if h.maxFileSize > 0 && fileHeader.Size > h.maxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "uploaded file is too large"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read uploaded file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read uploaded file"))
		return
	}

	if err := h.payments.ValidateUpload(c.Request.Context(), c.Param("id"), claims.UserID, fileHeader.Filename, data); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Pomyślnie zweryfikowano potwierdzenie zapłaty!")
}
