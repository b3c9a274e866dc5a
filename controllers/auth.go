package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/carenest/config"
	"github.com/meinhoongagan/carenest/controllers/respond"
	"github.com/meinhoongagan/carenest/db"
	"github.com/meinhoongagan/carenest/middleware"
	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/services"
	"github.com/meinhoongagan/carenest/utils"
)

type authResponse struct {
	utils.TokenPair
	User *models.User `json:"user"`
}

func issue(c *fiber.Ctx, status int, user *models.User) error {
	cfg := config.Get()
	tokens, err := utils.IssueTokens(cfg.JWTSecret, user, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, time.Now())
	if err != nil {
		return respond.Error(c, err)
	}
	return c.Status(status).JSON(authResponse{TokenPair: tokens, User: user})
}

// Register handles user registration
func Register(c *fiber.Ctx) error {
	var input services.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	user, err := services.Register(db.GetDB(), input)
	if err != nil {
		return respond.Error(c, err)
	}
	return issue(c, fiber.StatusCreated, user)
}

// Login handles user authentication
func Login(c *fiber.Ctx) error {
	type LoginInput struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return respond.BadBody(c, err)
	}
	user, err := services.Authenticate(db.GetDB(), input.Email, input.Password, time.Now().UTC())
	if err != nil {
		return respond.Error(c, err)
	}
	return issue(c, fiber.StatusOK, user)
}

// RefreshToken generates a new token pair from a refresh token
func RefreshToken(c *fiber.Ctx) error {
	type RefreshRequest struct {
		RefreshToken string `json:"refreshToken"`
	}

	input := new(RefreshRequest)
	if err := c.BodyParser(input); err != nil {
		return respond.BadBody(c, err)
	}
	userID, err := utils.ParseRefreshToken(config.Get().JWTSecret, input.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{
			Message: "Invalid refresh token",
			Error:   err.Error(),
		})
	}
	user, err := services.ActiveUser(db.GetDB(), userID)
	if err != nil {
		return respond.Error(c, err)
	}
	return issue(c, fiber.StatusOK, user)
}

// Logout doesn't actually invalidate the token as JWTs are stateless
func Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Successfully logged out",
	})
}

// GetMe returns the current user
func GetMe(c *fiber.Ctx) error {
	user, err := services.ActiveUser(db.GetDB(), middleware.CurrentActor(c).ID)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(user)
}

func UpdateMe(c *fiber.Ctx) error {
	var input services.AccountUpdate
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	user, err := services.UpdateAccount(db.GetDB(), middleware.CurrentActor(c).ID, input)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(user)
}

// CheckEmail reports whether an address is already registered.
func CheckEmail(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
			Message: "email query parameter is required",
			Error:   "bad request",
		})
	}
	taken, err := services.EmailTaken(db.GetDB(), email)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{"email": models.NormalizeEmail(email), "exists": taken})
}

// DeactivateUser is admin only.
func DeactivateUser(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	user, err := services.DeactivateUser(db.GetDB(), middleware.CurrentActor(c), id)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(user)
}

// Health reports liveness and database reachability.
func Health(c *fiber.Ctx) error {
	status := "ok"
	conn := db.GetDB()
	if conn == nil {
		status = "degraded"
	} else if sqlDB, err := conn.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
		status = "degraded"
	}
	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{"status": status, "time": time.Now().UTC()})
}
