package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/azs-pg/ilawa-courses-api/internal/models"
	"github.com/azs-pg/ilawa-courses-api/internal/service"
	appErrors "github.com/azs-pg/ilawa-courses-api/pkg/errors"
	"github.com/azs-pg/ilawa-courses-api/pkg/response"
)

// EnrollmentHandler exposes student registration and instructor enrollment
// endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Register godoc
// @Summary Register the authenticated user for a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body service.RegisterRequest true "Registration field sets"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/registrations [post]
func (h *EnrollmentHandler) Register(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	form, err := h.enrollments.Register(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, form)
}

// Unregister godoc
// @Summary Remove the authenticated user's registration for a course
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 204
// @Router /courses/{id}/registrations [delete]
func (h *EnrollmentHandler) Unregister(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.enrollments.Unregister(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateRegistration godoc
// @Summary Replace the field sets of an existing registration
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body service.RegisterRequest true "Registration field sets"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/registrations [put]
func (h *EnrollmentHandler) UpdateRegistration(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	form, err := h.enrollments.UpdateRegistration(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, form, nil)
}

// ListInstructors godoc
// @Summary List a course's instructors in roster order
// @Tags Enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/instructors [get]
func (h *EnrollmentHandler) ListInstructors(c *gin.Context) {
	roster, err := h.enrollments.InstructorRoster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// EnrollInstructor godoc
// @Summary Enroll the authenticated instructor into a course
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/instructors [post]
func (h *EnrollmentHandler) EnrollInstructor(c *gin.Context) {
	h.enrollInstructor(c, false)
}

// EnrollInstructorHalfDay godoc
// @Summary Enroll the authenticated instructor for the first day of a 2-day course
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/instructors/half-day [post]
func (h *EnrollmentHandler) EnrollInstructorHalfDay(c *gin.Context) {
	h.enrollInstructor(c, true)
}

func (h *EnrollmentHandler) enrollInstructor(c *gin.Context, halfDay bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	roster, err := h.enrollments.EnrollInstructor(c.Request.Context(), models.PrincipalFromClaims(claims), c.Param("id"), halfDay)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"instructors": roster}, nil)
}
