// Package auth verifies credentials against the directory tables and holds
// the single active session.
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fieldops/nfotrack/pkg/models"
	"github.com/fieldops/nfotrack/pkg/repository"
)

// Verifier checks role-scoped credentials against the directory backend.
// It performs no writes and no normalization of the inputs.
type Verifier struct {
	directory repository.DirectoryRepo
	logger    *slog.Logger
}

func NewVerifier(directory repository.DirectoryRepo, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{directory: directory, logger: logger}
}

// Verify looks up exactly one directory row where username and password
// match. A zero-row result is ErrInvalidCredentials; a failed lookup call is
// ErrBackendUnavailable. The two stay distinct here and in logs even though
// handlers present a uniform message to the user.
func (v *Verifier) Verify(ctx context.Context, role models.Role, username, password string) (*models.Identity, error) {
	switch role {
	case models.RoleEngineer:
		e, err := v.directory.FindEngineer(ctx, username, password)
		if err != nil {
			v.logger.Error("engineer directory lookup failed", slog.String("username", username), slog.Any("err", err))
			return nil, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
		}
		if e == nil || !e.Active {
			return nil, models.ErrInvalidCredentials
		}
		return &models.Identity{
			Role:     models.RoleEngineer,
			Username: e.Username,
			Name:     e.Name,
			Area:     e.HomeLocation,
		}, nil

	case models.RoleManager:
		m, err := v.directory.FindManager(ctx, username, password)
		if err != nil {
			v.logger.Error("manager directory lookup failed", slog.String("username", username), slog.Any("err", err))
			return nil, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
		}
		if m == nil {
			return nil, models.ErrInvalidCredentials
		}
		return &models.Identity{
			Role:     models.RoleManager,
			Username: m.Username,
			Name:     m.Name,
			Area:     m.Area,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrInvalidCredentials, role)
	}
}
