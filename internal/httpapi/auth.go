package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/VCongNam/CinemaGo-sub001/pkg/booking"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	contextKeyActor = "booking_actor"
	bearerPrefix    = "Bearer "
)

var errMissingToken = errors.New("missing bearer token")

// Claims are the JWT claims accepted by the API. Subject carries the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseActor validates an HS256 token and returns the actor it names.
func ParseActor(token string, secret []byte, issuer string) (booking.Actor, error) {
	parserOptions := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(issuer))
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, parserOptions...)
	if err != nil {
		return booking.Actor{}, err
	}
	if !parsed.Valid {
		return booking.Actor{}, jwt.ErrTokenInvalidClaims
	}
	userID, err := booking.NewUserID(claims.Subject)
	if err != nil {
		return booking.Actor{}, err
	}
	role, err := booking.ParseRole(claims.Role)
	if err != nil {
		return booking.Actor{}, err
	}
	return booking.NewActor(userID, role)
}

func authMiddleware(secret []byte, issuer string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", errMissingToken.Error()))
			return
		}
		actor, err := ParseActor(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)), secret, issuer)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "invalid token"))
			return
		}
		ctx.Set(contextKeyActor, actor)
		ctx.Next()
	}
}

func getActor(ctx *gin.Context) (booking.Actor, bool) {
	value, ok := ctx.Get(contextKeyActor)
	if !ok {
		return booking.Actor{}, false
	}
	actor, ok := value.(booking.Actor)
	return actor, ok
}
