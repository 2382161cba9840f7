package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here
		r.Get("/health", h.HealthHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/ws", h.HandleWebSocket)

			r.Get("/cards", h.ListCards)
			r.Post("/cards", h.AddCard)
			r.Delete("/cards/{id}", h.DeleteCard)
			r.Post("/cards/{id}/open", h.OpenCard)
			r.Get("/cards/{id}/code.png", h.CardCode)

			r.Post("/session/signout", h.SignOut)
		})
	})
}

// InitAuth sets the HS256 key used to verify user tokens. The user id is
// taken from the sub claim.
func (h *Handler) InitAuth(secret string) {
	h.tokenAuth = jwtauth.New("HS256", []byte(secret), nil)
}

// IssueToken signs a token for user. Used for local testing.
func (h *Handler) IssueToken(user string, claims map[string]interface{}) (string, error) {
	c := map[string]interface{}{"sub": user}
	for k, v := range claims {
		c[k] = v
	}
	_, tokenString, err := h.tokenAuth.Encode(c)
	return tokenString, err
}

func userID(r *http.Request) string {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
