package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/nirmalhandloom/storebackend/apperrors"
	"github.com/nirmalhandloom/storebackend/database"
	"github.com/nirmalhandloom/storebackend/dto"
	"github.com/nirmalhandloom/storebackend/middleware"
	"github.com/nirmalhandloom/storebackend/models"
	"github.com/nirmalhandloom/storebackend/utils"
)

// PUT /api/users/profile
func (h *Users) UpdateProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.UpdateProfileDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			respondBindError(c, err)
			return
		}

		user := *middleware.CurrentUser(c)
		if name := strings.TrimSpace(body.Name); name != "" {
			user.Name = name
		}
		if email := utils.NormalizeEmail(body.Email); email != "" {
			user.Email = email
		}
		if phone := strings.TrimSpace(body.Phone); phone != "" {
			user.Phone = phone
		}
		if body.Password != "" {
			hash, err := utils.HashPassword(body.Password)
			if err != nil {
				respondError(c, err)
				return
			}
			user.PasswordHash = hash
		}
		user.UpdatedAt = h.now()

		if err := h.Store.SaveProfile(c.Request.Context(), &user); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				respondError(c, apperrors.Conflict("Email or phone already in use"))
				return
			}
			respondError(c, storeError(err, "User not found"))
			return
		}

		resp, err := h.authResponse(&user)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GET /api/users/address
func (h *Users) Addresses() gin.HandlerFunc {
	return func(c *gin.Context) {
		addresses := middleware.CurrentUser(c).Addresses
		if addresses == nil {
			addresses = []models.Address{}
		}
		c.JSON(http.StatusOK, addresses)
	}
}

// POST /api/users/address
func (h *Users) AddAddress() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.AddressDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			respondBindError(c, err)
			return
		}

		user := *middleware.CurrentUser(c)
		user.Addresses = append([]models.Address(nil), user.Addresses...)
		if err := user.AddAddress(addressFromDTO(body, bson.NewObjectID())); err != nil {
			respondError(c, addressError(err))
			return
		}
		h.saveAddresses(c, &user, http.StatusCreated)
	}
}

// PUT /api/users/address/:id
func (h *Users) UpdateAddress() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, apperrors.NotFound("Address not found"))
			return
		}
		var body dto.AddressDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			respondBindError(c, err)
			return
		}

		user := *middleware.CurrentUser(c)
		user.Addresses = append([]models.Address(nil), user.Addresses...)
		if err := user.UpdateAddress(addressFromDTO(body, id)); err != nil {
			respondError(c, addressError(err))
			return
		}
		h.saveAddresses(c, &user, http.StatusOK)
	}
}

// DELETE /api/users/address/:id
func (h *Users) DeleteAddress() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, apperrors.NotFound("Address not found"))
			return
		}

		user := *middleware.CurrentUser(c)
		user.Addresses = append([]models.Address(nil), user.Addresses...)
		if err := user.RemoveAddress(id); err != nil {
			respondError(c, addressError(err))
			return
		}
		h.saveAddresses(c, &user, http.StatusOK)
	}
}

func (h *Users) saveAddresses(c *gin.Context, user *models.User, status int) {
	user.UpdatedAt = h.now()
	if err := h.Store.SaveAddresses(c.Request.Context(), user); err != nil {
		respondError(c, storeError(err, "User not found"))
		return
	}
	addresses := user.Addresses
	if addresses == nil {
		addresses = []models.Address{}
	}
	c.JSON(status, addresses)
}

func addressFromDTO(body dto.AddressDTO, id bson.ObjectID) models.Address {
	return models.Address{
		ID:        id,
		Street:    strings.TrimSpace(body.Street),
		City:      strings.TrimSpace(body.City),
		State:     strings.TrimSpace(body.State),
		Zip:       strings.TrimSpace(body.Zip),
		Country:   strings.TrimSpace(body.Country),
		Phone:     strings.TrimSpace(body.Phone),
		IsDefault: body.IsDefault,
	}
}

func addressError(err error) error {
	switch {
	case errors.Is(err, models.ErrAddressLimit):
		return apperrors.ValidationFailed("You can only save up to 4 addresses")
	case errors.Is(err, models.ErrAddressNotFound):
		return apperrors.NotFound("Address not found")
	default:
		return err
	}
}

// GET /api/users
func (h *Users) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := h.Store.List(c.Request.Context())
		if err != nil {
			respondError(c, apperrors.Persistence(err))
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

// PUT /api/users/:id/status
func (h *Users) SetStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, apperrors.NotFound("User not found"))
			return
		}
		var body dto.UserStatusDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			respondBindError(c, err)
			return
		}

		user, err := h.Store.SetActive(c.Request.Context(), id, *body.IsActive, h.now())
		if err != nil {
			respondError(c, storeError(err, "User not found"))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":       user.ID,
			"name":     user.Name,
			"email":    user.Email,
			"isActive": user.IsActive,
		})
	}
}
