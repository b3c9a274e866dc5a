package utils

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/meinhoongagan/carenest/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenPair is what Login and Refresh hand back to clients.
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// Claims is the identity carried by an access token.
type Claims struct {
	UserID uint
	Email  string
	Role   models.Role
}

// IssueTokens signs an access and a refresh token for user.
func IssueTokens(secret string, user *models.User, accessTTL, refreshTTL time.Duration, now time.Time) (TokenPair, error) {
	access, err := sign(secret, jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"typ":   tokenTypeAccess,
		"iat":   now.Unix(),
		"exp":   now.Add(accessTTL).Unix(),
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := sign(secret, jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"typ":   tokenTypeRefresh,
		"iat":   now.Unix(),
		"exp":   now.Add(refreshTTL).Unix(),
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{Token: access, RefreshToken: refresh}, nil
}

// ParseAccessToken validates an access token and returns its identity.
func ParseAccessToken(secret, raw string) (*Claims, error) {
	claims, err := parse(secret, raw)
	if err != nil {
		return nil, err
	}
	if typ, _ := claims["typ"].(string); typ == tokenTypeRefresh {
		return nil, fmt.Errorf("refresh token cannot be used for access")
	}
	return ClaimsFromMap(claims)
}

// ParseRefreshToken validates a refresh token and returns the user id it names.
func ParseRefreshToken(secret, raw string) (uint, error) {
	claims, err := parse(secret, raw)
	if err != nil {
		return 0, err
	}
	if typ, _ := claims["typ"].(string); typ != tokenTypeRefresh {
		return 0, fmt.Errorf("not a refresh token")
	}
	return ExtractUserID(claims)
}

// ClaimsFromMap reads the identity out of decoded JWT claims.
func ClaimsFromMap(claims jwt.MapClaims) (*Claims, error) {
	userID, err := ExtractUserID(claims)
	if err != nil {
		return nil, err
	}
	role, err := ExtractRole(claims)
	if err != nil {
		return nil, err
	}
	email, _ := claims["email"].(string)
	return &Claims{UserID: userID, Email: email, Role: role}, nil
}

// ExtractUserID handles multiple potential formats of user ID in token
func ExtractUserID(claims jwt.MapClaims) (uint, error) {
	idVal := claims["id"]
	if idVal == nil {
		return 0, fmt.Errorf("no ID found in claims")
	}

	switch v := idVal.(type) {
	case float64:
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse ID string: %v", err)
		}
		return uint(parsed), nil
	case uint:
		return v, nil
	case int:
		return uint(v), nil
	default:
		return 0, fmt.Errorf("unsupported ID type: %T", v)
	}
}

// ExtractRole reads and validates the role claim.
func ExtractRole(claims jwt.MapClaims) (models.Role, error) {
	roleVal, ok := claims["role"].(string)
	if !ok {
		return "", fmt.Errorf("no role found in claims")
	}
	role := models.Role(roleVal)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", roleVal)
	}
	return role, nil
}

func sign(secret string, claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parse(secret, raw string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
