package core

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"ecoshore/internal/types"
)

// trainSecretHeader carries the shared secret that authorizes training runs.
const trainSecretHeader = "X-Train-Secret"

// TrainSecretMiddleware guards the training trigger. The caller presents
// the plaintext secret in the X-Train-Secret header; it is compared against
// the bcrypt hash from configuration, so the secret itself never appears in
// config files or the environment.
func (s *Server) TrainSecretMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get(trainSecretHeader)
		if secret == "" {
			Error(w, r, types.NewAppError(
				types.ErrCodeAuthTrainSecretInvalid,
				"missing "+trainSecretHeader+" header",
				nil,
			))
			return
		}

		hash := []byte(s.Config.Training.SecretHash)
		if err := bcrypt.CompareHashAndPassword(hash, []byte(secret)); err != nil {
			Error(w, r, types.NewAppError(
				types.ErrCodeAuthTrainSecretInvalid,
				"training secret is invalid",
				err,
			))
			return
		}

		next.ServeHTTP(w, r)
	})
}
