package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/yigit/unihousing/internal/app/controllers"
)

// Controllers groups the handlers mounted under /api/v1
type Controllers struct {
	Rooms         *controllers.RoomController
	Students      *controllers.StudentController
	Requests      *controllers.RequestController
	Users         *controllers.UserController
	Notifications *controllers.NotificationController
	Logs          *controllers.LogController
	Backup        *controllers.BackupController
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, middleware ...gin.HandlerFunc) {
	v1 := router.Group("/api/v1")
	v1.Use(middleware...)

	rooms := v1.Group("/rooms")
	{
		rooms.GET("", c.Rooms.GetRooms)
		rooms.GET("/available", c.Rooms.GetAvailableRooms)
		rooms.POST("", c.Rooms.CreateRoom)
		rooms.PATCH("/:id", c.Rooms.UpdateRoom)
		rooms.DELETE("/:id", c.Rooms.DeleteRoom)
		rooms.POST("/:id/assign", c.Rooms.AssignStudent)
	}

	v1.GET("/dashboard/stats", c.Rooms.DashboardStats)

	students := v1.Group("/students")
	{
		students.GET("", c.Students.ListStudents)
		students.POST("", c.Students.RegisterStudent)
		students.GET("/:id", c.Students.GetStudent)
		students.PATCH("/:id", c.Students.UpdateStudent)
		students.POST("/:id/unassign", c.Students.UnassignStudent)
	}

	requests := v1.Group("/requests")
	{
		requests.GET("", c.Requests.GetRequests)
		requests.POST("", c.Requests.CreateRequest)
		requests.PATCH("/:id/status", c.Requests.UpdateRequestStatus)
		requests.POST("/:id/execute", c.Requests.ExecuteRequest)
	}

	users := v1.Group("/users")
	{
		users.GET("", c.Users.ListUsers)
		users.POST("", c.Users.CreateUser)
		users.PATCH("/:id", c.Users.UpdateUser)
		users.DELETE("/:id", c.Users.DeleteUser)
		users.POST("/:id/reset-password", c.Users.ResetPassword)
	}

	notifications := v1.Group("/notifications")
	{
		notifications.GET("", c.Notifications.ListNotifications)
		notifications.GET("/ws", c.Notifications.Stream)
		notifications.PATCH("/:id/read", c.Notifications.MarkRead)
	}

	v1.GET("/logs", c.Logs.ListLogs)
	v1.POST("/backup", c.Backup.CreateBackup)
}
