package introspect

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/pbkdf2"
)

// jwtSalt is fixed rather than random: the derived key only needs to
// differ from a plain passphrase, not resist a rainbow-table attack
// against many independently salted secrets — there is exactly one
// secret per daemon instance.
var jwtSalt = []byte("irrecvd-jwt-salt")

// JWTConfig configures bearer-token authentication for
// state-mutating routes (attach/detach a decoder, clear scancodes).
//
// Exactly one of SecretKey or Passphrase should be set. SecretKey is
// used verbatim as the HMAC key; Passphrase is stretched into one via
// PBKDF2-SHA256, letting an operator configure a human-memorable
// string instead of managing a raw key file.
type JWTConfig struct {
	SecretKey  string
	Passphrase string
	Expiration time.Duration
	Issuer     string
	SkipPaths  []string
}

// Claims is the JWT payload minted for an operator session.
type Claims struct {
	OperatorID string `json:"operator_id"`
	jwt.RegisteredClaims
}

func withDefaults(cfg JWTConfig) JWTConfig {
	if cfg.Expiration == 0 {
		cfg.Expiration = 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "irrecvd"
	}
	if cfg.SecretKey == "" && cfg.Passphrase != "" {
		cfg.SecretKey = string(pbkdf2.Key([]byte(cfg.Passphrase), jwtSalt, 100000, 32, sha256.New))
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = "irrecvd-secret-key-change-in-production"
	}
	return cfg
}

// JWTMiddleware gates a route behind a valid bearer token.
func JWTMiddleware(cfg JWTConfig) fiber.Handler {
	cfg = withDefaults(cfg)

	return func(c *fiber.Ctx) error {
		path := c.Path()
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				return c.Next()
			}
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization header format"})
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(cfg.SecretKey), nil
		})
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token: " + err.Error()})
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token claims"})
		}

		c.Locals("operator_id", claims.OperatorID)
		return c.Next()
	}
}

// GenerateToken mints a bearer token for operatorID.
func GenerateToken(operatorID string, cfg JWTConfig) (string, error) {
	cfg = withDefaults(cfg)
	claims := Claims{
		OperatorID: operatorID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.Expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    cfg.Issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.SecretKey))
}

// ValidateToken parses and validates a bearer token, returning its claims.
func ValidateToken(tokenString string, cfg JWTConfig) (*Claims, error) {
	cfg = withDefaults(cfg)
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
