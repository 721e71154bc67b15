package jwt

import (
	"context"
	"strconv"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const tokenTypeAccess = "access"

type Service interface {
	GenerateAccessToken(userID int64, username string, role user.Role) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	secretKey                 string
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
	now                       func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		secretKey:                 secretKey,
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                       time.Now,
	}
}

func (j *JWTService) GenerateAccessToken(userID int64, username string, role user.Role) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = j.now().Add(expDuration).Unix()

	claims := map[string]interface{}{
		"user_id":  strconv.FormatInt(userID, 10),
		"username": username,
		"role":     string(role),
		"type":     tokenTypeAccess,
		"exp":      expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID   int64
	Username string
	Role     user.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == user.RoleAdmin
}

// ActorFromContext reads the caller from the verified token in ctx. ok is
// false when there is no token or it is not an access token.
func ActorFromContext(ctx context.Context) (actor Actor, ok bool) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil || claims == nil {
		return Actor{}, false
	}

	if tokenType, _ := claims["type"].(string); tokenType != tokenTypeAccess {
		return Actor{}, false
	}

	rawID, _ := claims["user_id"].(string)
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || userID <= 0 {
		return Actor{}, false
	}

	role, _ := claims["role"].(string)
	username, _ := claims["username"].(string)
	return Actor{UserID: userID, Username: username, Role: user.Role(role)}, true
}

// WithActor returns ctx carrying a signed access token for actor, as the
// Verifier middleware would leave it.
func WithActor(ctx context.Context, svc Service, actor Actor) (context.Context, error) {
	raw, _, err := svc.GenerateAccessToken(actor.UserID, actor.Username, actor.Role)
	if err != nil {
		return ctx, err
	}
	token, err := svc.JWTAuth().Decode(raw)
	if err != nil {
		return ctx, err
	}
	return jwtauth.NewContext(ctx, token, nil), nil
}
