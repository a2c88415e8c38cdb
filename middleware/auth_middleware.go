package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/nirmalhandloom/storebackend/apperrors"
	"github.com/nirmalhandloom/storebackend/database"
	"github.com/nirmalhandloom/storebackend/logger"
	"github.com/nirmalhandloom/storebackend/models"
	"github.com/nirmalhandloom/storebackend/utils"
)

const userKey = "user"

// UserLookup loads the account a token was issued for.
type UserLookup func(ctx context.Context, id bson.ObjectID) (*models.User, error)

type Authenticator struct {
	secret string
	lookup UserLookup
}

func NewAuthenticator(secret string, lookup UserLookup) *Authenticator {
	return &Authenticator{secret: secret, lookup: lookup}
}

// Protect rejects requests without a valid bearer token for an active user.
func (a *Authenticator) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.resolve(c)
		if err != nil {
			abortWith(c, err)
			return
		}
		if user == nil {
			abortWith(c, apperrors.Unauthorized("Not authorized, no token"))
			return
		}
		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous requests through otherwise.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.resolve(c)
		if err == nil && user != nil {
			setUser(c, user)
		}
		c.Next()
	}
}

// AdminOnly must run after Protect.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentUser(c).IsAdmin() {
			abortWith(c, apperrors.Forbidden("Not authorized as an admin"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// resolve returns (nil, nil) when no token was sent.
func (a *Authenticator) resolve(c *gin.Context) (*models.User, error) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return nil, nil
	}

	tokenStr := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	claims, err := utils.ValidateToken(tokenStr, a.secret)
	if err != nil {
		return nil, apperrors.Unauthorized("Not authorized, token failed")
	}
	id, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("Not authorized, token failed")
	}

	ctx := c.Request.Context()
	user, err := a.lookup(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.Unauthorized("Not authorized, user not found")
		}
		logger.FromContext(ctx).ErrorContext(ctx, "auth user lookup failed", slog.String("error", err.Error()))
		return nil, apperrors.Persistence(err)
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized("Account is disabled. Please contact admin.")
	}
	return user, nil
}

func setUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)

	id := user.ID.Hex()
	ctx := logger.WithUserID(c.Request.Context(), id)
	ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("user_id", id)))
	c.Request = c.Request.WithContext(ctx)
}

func abortWith(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"message": apperrors.Message(err)})
}
