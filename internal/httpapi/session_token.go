package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mbeda/lingua/internal/session"
)

// sessionClaims are the claims in a session-handle token. Signing the handle
// means clients cannot forge or guess another learner's session id, and the
// handle expires together with the registry TTL.
type sessionClaims struct {
	jwt.RegisteredClaims
	ScenarioID string `json:"scenario_id,omitempty"`
}

// mintSessionToken signs a session handle for the client to carry between
// requests.
func (r *Router) mintSessionToken(sess *session.Session) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.ID(),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.cfg.SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		ScenarioID: sess.ScenarioID(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(r.cfg.JWTSecret))
}

// parseSessionToken validates a session token and returns the session id.
func (r *Router) parseSessionToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(r.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid session token")
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("invalid session token claims")
	}
	return claims.Subject, nil
}

// sessionFromRequest resolves the session referenced by the request. The
// token is read from the Authorization header, a session_token form field, or
// a token query parameter (the browser WebSocket API cannot set headers).
func (r *Router) sessionFromRequest(req *http.Request) (*session.Session, error) {
	tokenString := ""
	if auth := req.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		tokenString = strings.TrimPrefix(auth, "Bearer ")
	} else if v := req.FormValue("session_token"); v != "" {
		tokenString = v
	} else if v := req.URL.Query().Get("token"); v != "" {
		tokenString = v
	}
	if tokenString == "" {
		return nil, fmt.Errorf("missing session token")
	}

	id, err := r.parseSessionToken(tokenString)
	if err != nil {
		return nil, err
	}

	sess, ok := r.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("session not found or expired")
	}
	return sess, nil
}
