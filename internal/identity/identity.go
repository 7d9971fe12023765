// Package identity provides anonymous per-device applicant identity.
//
// Credential verification, OTP and session lifetime live in an external
// identity system; this package only resolves "who is talking" so the
// dialogue can personalize its greeting and bind application records to
// an applicant. A missing or unusable identity degrades to a generic
// greeting rather than an error.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/loangenie/loangenie/internal/domain"
	"github.com/loangenie/loangenie/internal/store"
)

const (
	// AnonCookieName carries the anonymous applicant id between requests.
	AnonCookieName = "loangenie_anon_id"

	anonCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const applicantIDKey contextKey = iota

var anonIDPattern = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)

// ApplicantIDFromContext extracts the applicant ID from the request context.
func ApplicantIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(applicantIDKey).(string); ok {
		return v
	}
	return ""
}

// CurrentApplicant looks up the applicant bound to the request context.
// Returns (nil, nil) when no identity is available; callers must treat
// that as "greet generically", not as a failure.
func CurrentApplicant(ctx context.Context, repo store.Repository) (*domain.Applicant, error) {
	applicantID := ApplicantIDFromContext(ctx)
	if applicantID == "" {
		return nil, nil
	}
	return repo.GetApplicant(ctx, applicantID)
}

func generateAnonID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate anonymous id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

func isValidAnonID(id string) bool {
	return anonIDPattern.MatchString(id)
}

func ensureApplicant(ctx context.Context, repo store.Repository, applicantID string) error {
	applicant, err := repo.GetApplicant(ctx, applicantID)
	if err != nil {
		return err
	}
	if applicant != nil {
		return nil
	}

	// Display name stays empty until the applicant provides one; the
	// dialogue falls back to a generic greeting in the meantime.
	now := time.Now()
	return repo.UpsertApplicant(ctx, &domain.Applicant{
		ApplicantID: applicantID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func getOrCreateAnonID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(AnonCookieName); err == nil && isValidAnonID(c.Value) {
		setAnonCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateAnonID()
	if err != nil {
		return "", err
	}

	setAnonCookie(w, id, isDev)
	return id, nil
}

func setAnonCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(anonCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(anonCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// Middleware injects anonymous per-device applicant identity.
func Middleware(repo store.Repository, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			applicantID, err := getOrCreateAnonID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish anonymous identity"}`, http.StatusInternalServerError)
				return
			}

			if err := ensureApplicant(r.Context(), repo, applicantID); err != nil {
				http.Error(w, `{"error":"failed to initialize applicant"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), applicantIDKey, applicantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
