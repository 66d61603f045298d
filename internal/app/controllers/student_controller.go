package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/models/dto"
	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/app/services"
	"github.com/yigit/unihousing/internal/middleware"
	"github.com/yigit/unihousing/internal/pkg/helpers"
)

// StudentController handles student records
type StudentController struct {
	students  *services.StudentService
	occupancy *services.OccupancyService
}

// NewStudentController creates a new StudentController
func NewStudentController(students *services.StudentService, occupancy *services.OccupancyService) *StudentController {
	return &StudentController{students: students, occupancy: occupancy}
}

// RegisterStudent handles student registration
// @Summary Register a student
// @Tags students
// @Accept json
// @Produce json
// @Param request body dto.RegisterStudentRequest true "Student information"
// @Success 201 {object} dto.APIResponse{data=models.Student}
// @Failure 400 {object} dto.APIResponse "Invalid student data"
// @Failure 409 {object} dto.APIResponse "Private university students need premium rooms"
// @Router /students [post]
func (c *StudentController) RegisterStudent(ctx *gin.Context) {
	var req dto.RegisterStudentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	actorID, ok := requester(ctx, req.RequesterID)
	if !ok {
		return
	}

	student, err := c.students.Register(ctx.Request.Context(), actorID, services.RegisterStudentInput{
		RegistrationNumber: req.RegistrationNumber,
		NationalID:         req.NationalID,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Email:              req.Email,
		Phone:              req.Phone,
		University:         models.University(upper(req.University)),
		RoomType:           models.RoomType(upper(req.RoomType)),
		Status:             models.StudentStatus(upper(req.Status)),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, student)
}

// UpdateStudent handles partial student updates
// @Summary Update a student
// @Tags students
// @Accept json
// @Produce json
// @Param id path string true "Student id"
// @Param request body dto.UpdateStudentRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Student}
// @Router /students/{id} [patch]
func (c *StudentController) UpdateStudent(ctx *gin.Context) {
	var req dto.UpdateStudentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	actorID, ok := requester(ctx, req.RequesterID)
	if !ok {
		return
	}

	input := services.UpdateStudentInput{
		NationalID: req.NationalID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
	}
	if v := upperPtr(req.University); v != nil {
		u := models.University(*v)
		input.University = &u
	}
	if v := upperPtr(req.RoomType); v != nil {
		t := models.RoomType(*v)
		input.RoomType = &t
	}
	if v := upperPtr(req.Status); v != nil {
		s := models.StudentStatus(*v)
		input.Status = &s
	}

	student, err := c.students.Update(ctx.Request.Context(), actorID, ctx.Param("id"), input)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, student)
}

// GetStudent returns one student
func (c *StudentController) GetStudent(ctx *gin.Context) {
	student, err := c.students.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, student)
}

// ListStudents lists students with filters and paging
// @Summary List students
// @Tags students
// @Produce json
// @Param status query string false "Student status"
// @Param university query string false "GOVERNMENT or PRIVATE"
// @Param housed query bool false "Only housed or only unhoused students"
// @Param search query string false "Name or registration number"
// @Param limit query int false "Page size"
// @Param skip query int false "Offset"
// @Success 200 {object} dto.APIResponse{data=services.StudentPage}
// @Router /students [get]
func (c *StudentController) ListStudents(ctx *gin.Context) {
	limit, skip := helpers.ParsePaginationParams(ctx)
	filter := repositories.StudentFilter{
		Status:     models.StudentStatus(upper(ctx.Query("status"))),
		RoomType:   models.RoomType(upper(ctx.Query("roomType"))),
		University: models.University(upper(ctx.Query("university"))),
		RoomNumber: strings.TrimSpace(ctx.Query("roomNumber")),
		Housed:     helpers.ParseOptionalBool(ctx, "housed"),
		Search:     ctx.Query("search"),
		Limit:      limit,
		Skip:       skip,
	}
	page, err := c.students.List(ctx.Request.Context(), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, page)
}

// UnassignStudent releases the student's room
// @Summary Unassign a student from their room
// @Tags students
// @Param id path string true "Student id"
// @Success 200 {object} dto.APIResponse{data=services.Assignment}
// @Failure 409 {object} dto.APIResponse "Student is not assigned"
// @Router /students/{id}/unassign [post]
func (c *StudentController) UnassignStudent(ctx *gin.Context) {
	var req dto.RequesterRequest
	if !middleware.BindOptionalJSON(ctx, &req) {
		return
	}
	actorID, ok := requester(ctx, claimedRequester(ctx, req.RequesterID))
	if !ok {
		return
	}

	result, err := c.occupancy.Unassign(ctx.Request.Context(), actorID, ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, result)
}
