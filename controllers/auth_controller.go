package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/nirmalhandloom/storebackend/apperrors"
	"github.com/nirmalhandloom/storebackend/database"
	"github.com/nirmalhandloom/storebackend/dto"
	"github.com/nirmalhandloom/storebackend/models"
	"github.com/nirmalhandloom/storebackend/utils"
)

// Users serves registration, login, profile and the admin user endpoints.
type Users struct {
	Store    UserStore
	Secret   string
	TokenTTL time.Duration
	Now      func() time.Time
}

type authResponse struct {
	ID    bson.ObjectID `json:"id"`
	Name  string        `json:"name"`
	Email string        `json:"email,omitempty"`
	Phone string        `json:"phone,omitempty"`
	Role  models.Role   `json:"role"`
	Token string        `json:"token"`
}

func (h *Users) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

func (h *Users) authResponse(u *models.User) (*authResponse, error) {
	token, err := utils.GenerateAccessToken(u.ID.Hex(), string(u.Role), h.Secret, h.TokenTTL)
	if err != nil {
		return nil, err
	}
	return &authResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Phone: u.Phone,
		Role:  u.Role,
		Token: token,
	}, nil
}

// POST /api/users
func (h *Users) Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var body dto.RegisterDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			respondBindError(c, err)
			return
		}
		if body.Password != body.ConfirmPassword {
			respondError(c, apperrors.ValidationFailed("Passwords do not match"))
			return
		}

		email := utils.NormalizeEmail(body.Email)
		phone := strings.TrimSpace(body.Phone)
		if email == "" && phone == "" {
			respondError(c, apperrors.ValidationFailed("Please provide either email or phone number"))
			return
		}

		exists, err := h.Store.Exists(ctx, email, phone)
		if err != nil {
			respondError(c, apperrors.Persistence(err))
			return
		}
		if exists {
			respondError(c, apperrors.ValidationFailed("User already exists"))
			return
		}

		hash, err := utils.HashPassword(body.Password)
		if err != nil {
			respondError(c, err)
			return
		}

		now := h.now()
		user := &models.User{
			ID:           bson.NewObjectID(),
			Name:         strings.TrimSpace(body.Name),
			Email:        email,
			Phone:        phone,
			PasswordHash: hash,
			Role:         models.RoleUser,
			IsActive:     true,
			Addresses:    []models.Address{},
			Wishlist:     []bson.ObjectID{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := h.Store.Insert(ctx, user); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				respondError(c, apperrors.ValidationFailed("User already exists"))
				return
			}
			respondError(c, apperrors.Persistence(err))
			return
		}

		resp, err := h.authResponse(user)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// POST /api/users/login
func (h *Users) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			respondBindError(c, err)
			return
		}

		invalid := apperrors.Unauthorized("Invalid email/phone or password")
		user, err := h.Store.FindByLogin(c.Request.Context(), body.EmailOrPhone)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				respondError(c, invalid)
				return
			}
			respondError(c, apperrors.Persistence(err))
			return
		}
		if err := utils.CheckPassword(user.PasswordHash, body.Password); err != nil {
			respondError(c, invalid)
			return
		}
		if !user.IsActive {
			respondError(c, apperrors.Unauthorized("Account is disabled. Please contact admin."))
			return
		}

		resp, err := h.authResponse(user)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
