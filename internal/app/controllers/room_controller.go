package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/unihousing/internal/app/models"
	"github.com/yigit/unihousing/internal/app/models/dto"
	"github.com/yigit/unihousing/internal/app/repositories"
	"github.com/yigit/unihousing/internal/app/services"
	"github.com/yigit/unihousing/internal/middleware"
	"github.com/yigit/unihousing/internal/pkg/helpers"
)

// RoomController handles room inventory and assignment endpoints
type RoomController struct {
	occupancy *services.OccupancyService
}

// NewRoomController creates a new RoomController
func NewRoomController(occupancy *services.OccupancyService) *RoomController {
	return &RoomController{occupancy: occupancy}
}

// CreateRoom handles room creation
// @Summary Create a room
// @Tags rooms
// @Accept json
// @Produce json
// @Param request body dto.CreateRoomRequest true "Room information"
// @Success 201 {object} dto.APIResponse{data=models.Room}
// @Failure 400 {object} dto.APIResponse "Invalid room data"
// @Failure 403 {object} dto.APIResponse "Requester is not an active manager"
// @Router /rooms [post]
func (c *RoomController) CreateRoom(ctx *gin.Context) {
	var req dto.CreateRoomRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	actorID, ok := requester(ctx, req.RequesterID)
	if !ok {
		return
	}

	room, err := c.occupancy.CreateRoom(ctx.Request.Context(), actorID, services.CreateRoomInput{
		RoomNumber: req.RoomNumber,
		Floor:      req.Floor,
		Wing:       req.Wing,
		Kind:       models.RoomKind(upper(req.Kind)),
		Capacity:   req.Capacity,
		RoomType:   models.RoomType(upper(req.RoomType)),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, room)
}

// UpdateRoom handles partial room updates
// @Summary Update a room
// @Tags rooms
// @Accept json
// @Produce json
// @Param id path string true "Room id or number"
// @Param request body dto.UpdateRoomRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Room}
// @Failure 400 {object} dto.APIResponse "Capacity below current occupancy"
// @Failure 404 {object} dto.APIResponse "Room not found"
// @Router /rooms/{id} [patch]
func (c *RoomController) UpdateRoom(ctx *gin.Context) {
	var req dto.UpdateRoomRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	actorID, ok := requester(ctx, req.RequesterID)
	if !ok {
		return
	}

	input := services.UpdateRoomInput{
		Capacity: req.Capacity,
		Floor:    req.Floor,
		Wing:     req.Wing,
	}
	if req.RoomType != nil {
		t := models.RoomType(upper(*req.RoomType))
		input.RoomType = &t
	}

	room, err := c.occupancy.UpdateRoom(ctx.Request.Context(), actorID, ctx.Param("id"), input)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, room)
}

// DeleteRoom removes an empty room
// @Summary Delete a room
// @Tags rooms
// @Param id path string true "Room id or number"
// @Success 200 {object} dto.APIResponse{data=dto.MessageData}
// @Failure 409 {object} dto.APIResponse "Room is not empty"
// @Router /rooms/{id} [delete]
func (c *RoomController) DeleteRoom(ctx *gin.Context) {
	var req dto.RequesterRequest
	if !middleware.BindOptionalJSON(ctx, &req) {
		return
	}
	actorID, ok := requester(ctx, claimedRequester(ctx, req.RequesterID))
	if !ok {
		return
	}

	if err := c.occupancy.DeleteRoom(ctx.Request.Context(), actorID, ctx.Param("id")); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.MessageData{Message: "Room deleted"})
}

// GetRooms lists rooms
// @Summary List rooms
// @Tags rooms
// @Produce json
// @Param status query string false "available, occupied or storage"
// @Param floor query int false "Floor"
// @Param wing query string false "Wing letter"
// @Param roomType query string false "STANDARD or PREMIUM"
// @Success 200 {object} dto.APIResponse{data=[]models.Room}
// @Router /rooms [get]
func (c *RoomController) GetRooms(ctx *gin.Context) {
	filter := repositories.RoomFilter{
		Status:   ctx.Query("status"),
		Floor:    helpers.ParseOptionalInt(ctx, "floor"),
		Wing:     ctx.Query("wing"),
		RoomType: models.RoomType(upper(ctx.Query("roomType"))),
		Kind:     models.RoomKind(upper(ctx.Query("kind"))),
	}
	rooms, err := c.occupancy.GetRooms(ctx.Request.Context(), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, rooms)
}

// GetAvailableRooms lists residential rooms with a free bed
// @Summary List available rooms
// @Tags rooms
// @Produce json
// @Param roomType query string false "STANDARD or PREMIUM"
// @Success 200 {object} dto.APIResponse{data=[]models.Room}
// @Router /rooms/available [get]
func (c *RoomController) GetAvailableRooms(ctx *gin.Context) {
	rooms, err := c.occupancy.GetAvailableRooms(ctx.Request.Context(), models.RoomType(upper(ctx.Query("roomType"))))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, rooms)
}

// AssignStudent places a student in the room
// @Summary Assign a student to a room
// @Tags rooms
// @Accept json
// @Produce json
// @Param id path string true "Room id or number"
// @Param request body dto.AssignRoomRequest true "Student to assign"
// @Success 200 {object} dto.APIResponse{data=services.Assignment}
// @Failure 409 {object} dto.APIResponse "Room full, tier mismatch or student already housed"
// @Router /rooms/{id}/assign [post]
func (c *RoomController) AssignStudent(ctx *gin.Context) {
	var req dto.AssignRoomRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	actorID, ok := requester(ctx, req.RequesterID)
	if !ok {
		return
	}

	result, err := c.occupancy.Assign(ctx.Request.Context(), actorID, req.StudentID, ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, result)
}

// DashboardStats returns the occupancy summary
// @Summary Occupancy dashboard
// @Tags dashboard
// @Produce json
// @Success 200 {object} dto.APIResponse{data=services.DashboardStats}
// @Router /dashboard/stats [get]
func (c *RoomController) DashboardStats(ctx *gin.Context) {
	stats, err := c.occupancy.DashboardStats(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, stats)
}
