package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/models"
	"github.com/nimbuscrm/crm_backend/utils"
	"github.com/sirupsen/logrus"
)

type RegisterRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone"`
	UserName    string `json:"user_name" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates a tenant and its first admin user.
func Register(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		client, err := models.CreateClient(c.Request.Context(), &models.NewClient{
			Name:  req.CompanyName,
			Email: req.Email,
			Phone: req.Phone,
		})
		if err != nil {
			config.LogError(logger, "authController.go", "Register", "create client", req.Email, err)
			respondBadRequest(c, err.Error())
			return
		}

		user, err := models.CreateUser(c.Request.Context(), client.ID.String(), &models.NewUser{
			Name:     req.UserName,
			Email:    req.Email,
			Password: req.Password,
			Role:     models.RoleAdmin,
		})
		if err != nil {
			config.LogError(logger, "authController.go", "Register", "create user", req.Email, err)
			respondBadRequest(c, err.Error())
			return
		}

		token, err := utils.JwtGenerate(user.ID, client.ID.String(), user.Role)
		if err != nil {
			respondError(c, err)
			return
		}
		respondCreated(c, "registered", gin.H{"token": token, "client_id": client.ID.String(), "user_id": user.ID})
	}
}

// Login exchanges credentials for a bearer token.
func Login(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		user, err := models.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid credentials"})
			return
		}
		if err := utils.ComparePassword(user.PasswordHash, req.Password); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid credentials"})
			return
		}

		token, err := utils.JwtGenerate(user.ID, user.ClientId, user.Role)
		if err != nil {
			config.LogError(logger, "authController.go", "Login", "generate token", user.ID, err)
			respondError(c, err)
			return
		}
		respondOK(c, "logged in", gin.H{"token": token, "client_id": user.ClientId, "user_id": user.ID, "role": user.Role})
	}
}
