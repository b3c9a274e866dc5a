package services

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/validation"
)

// MinPasswordLength is enforced at registration.
const MinPasswordLength = 8

type RegisterInput struct {
	Email         string      `json:"email"`
	Password      string      `json:"password"`
	FirstName     string      `json:"first_name"`
	LastName      string      `json:"last_name"`
	Phone         string      `json:"phone"`
	Role          models.Role `json:"user_type"`
	TermsAccepted bool        `json:"terms_accepted"`
}

// Register creates the account and provisions its role profile in one transaction.
func Register(conn *gorm.DB, in RegisterInput) (*models.User, error) {
	in.Email = models.NormalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = models.RoleClient
	}

	v := validation.Violations{}
	validation.Email("email", in.Email, v)
	validation.MinLength("password", in.Password, MinPasswordLength, v)
	if !in.Role.SelfRegistrable() {
		v["user_type"] = "invalid_choice"
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	taken, err := EmailTaken(conn, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, conflict("User with this email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:         in.Email,
		Password:      string(hashed),
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		Phone:         strings.TrimSpace(in.Phone),
		Role:          in.Role,
		IsActive:      true,
		TermsAccepted: in.TermsAccepted,
	}
	err = conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return ProvisionAccount(tx, user)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, conflict("User with this email already exists")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ProvisionAccount creates the role profile and notification preferences for a new user.
func ProvisionAccount(tx *gorm.DB, user *models.User) error {
	switch user.Role {
	case models.RoleCaregiver:
		p := models.CaregiverProfile{UserID: user.ID, FirstName: user.FirstName, LastName: user.LastName}
		if err := tx.Where("user_id = ?", user.ID).FirstOrCreate(&p).Error; err != nil {
			return err
		}
	case models.RoleClient:
		p := models.ClientProfile{UserID: user.ID, FirstName: user.FirstName, LastName: user.LastName, Phone: user.Phone}
		if err := tx.Where("user_id = ?", user.ID).FirstOrCreate(&p).Error; err != nil {
			return err
		}
	}

	prefs := models.NotificationPreference{UserID: user.ID}
	if err := tx.Where("user_id = ?", user.ID).FirstOrCreate(&prefs).Error; err != nil {
		return err
	}

	user.ProfileCompleted = true
	return tx.Model(user).Update("profile_completed", true).Error
}

// Authenticate checks credentials and stamps last_login.
func Authenticate(conn *gorm.DB, email, password string, now time.Time) (*models.User, error) {
	var user models.User
	if err := conn.Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrUnauthorized, "Invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, newError(ErrUnauthorized, "Invalid credentials")
	}
	if !user.IsActive {
		return nil, forbidden("Account is deactivated")
	}

	user.LastLogin = &now
	if err := conn.Model(&user).Update("last_login", now).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ActiveUser loads id, rejecting deactivated accounts.
func ActiveUser(conn *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := conn.First(&user, id).Error; err != nil {
		return nil, lookup(err, "user")
	}
	if !user.IsActive {
		return nil, forbidden("Account is deactivated")
	}
	return &user, nil
}

func EmailTaken(conn *gorm.DB, email string) (bool, error) {
	var count int64
	err := conn.Model(&models.User{}).Where("email = ?", models.NormalizeEmail(email)).Count(&count).Error
	return count > 0, err
}

type AccountUpdate struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

func UpdateAccount(conn *gorm.DB, userID uint, in AccountUpdate) (*models.User, error) {
	user, err := ActiveUser(conn, userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if len(updates) > 0 {
		if err := conn.Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return ActiveUser(conn, userID)
}

// DeactivateUser flips is_active off. Accounts are never deleted.
func DeactivateUser(conn *gorm.DB, actor Actor, userID uint) (*models.User, error) {
	if err := actor.require(models.CapDeactivateUsers, "Only admins can deactivate users"); err != nil {
		return nil, err
	}
	var user models.User
	if err := conn.First(&user, userID).Error; err != nil {
		return nil, lookup(err, "user")
	}
	if user.ID == actor.ID {
		return nil, badRequest("You cannot deactivate your own account")
	}
	if err := conn.Model(&user).Update("is_active", false).Error; err != nil {
		return nil, err
	}
	user.IsActive = false
	return &user, nil
}
