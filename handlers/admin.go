package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-canteen/models"
	"campus-canteen/store"
)

// CreateUserRequest is used by the superadmin to add staff and report readers.
type CreateUserRequest struct {
	Name     string      `json:"name" binding:"required,max=100"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=8,max=72"`
	Role     models.Role `json:"role" binding:"required"`
	ShopID   *uint       `json:"shop_id"`
}

func ListPendingStudentsHandler(c *gin.Context) {
	users, err := Store.ListPendingStudents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": users})
}

func ApproveStudentHandler(c *gin.Context) {
	reviewStudent(c, true)
}

func RejectStudentHandler(c *gin.Context) {
	reviewStudent(c, false)
}

func reviewStudent(c *gin.Context, approve bool) {
	userID, ok := uintParam(c, "user_id")
	if !ok {
		return
	}
	user, err := Store.ReviewStudent(c.Request.Context(), userID, approve)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func CreateUserHandler(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role == models.RoleStudent {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Students sign up through /auth/register"})
		return
	}

	user, err := Store.CreateUser(c.Request.Context(), store.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		ShopID:   req.ShopID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func ListUsersHandler(c *gin.Context) {
	role := models.Role(c.Query("role"))
	if role != "" && !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}
	users, err := Store.ListUsers(c.Request.Context(), role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
