package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/pkg/config"
)

// Handles holds the two connection pools the API uses. Admin is the privileged role
// used by the CMS, moderation and the publish sweep. Public is the restricted role that
// row-level security limits to published articles; it is the same pool as Admin when
// no separate public credentials are configured.
type Handles struct {
	Admin  *Client
	Public *Client
}

type connectFunc func(ctx context.Context, dsn, role string, cfg config.DatabaseConfig) (*Client, error)

// NewHandles connects both roles described by cfg.
func NewHandles(ctx context.Context, cfg *config.Config) (*Handles, error) {
	return newHandles(ctx, cfg.DatabaseDSN(), cfg.PublicDatabaseDSN(), cfg.Database, NewClient)
}

func newHandles(ctx context.Context, adminDSN, publicDSN string, pool config.DatabaseConfig, connect connectFunc) (*Handles, error) {
	admin, err := connect(ctx, adminDSN, "admin", pool)
	if err != nil {
		return nil, fmt.Errorf("failed to connect admin database: %w", err)
	}

	if publicDSN == "" || publicDSN == adminDSN {
		log.Warn().Msg("No separate public database role configured; public reads use the admin pool")
		return &Handles{Admin: admin, Public: admin}, nil
	}

	public, err := connect(ctx, publicDSN, "public", pool)
	if err != nil {
		_ = admin.Close()
		return nil, fmt.Errorf("failed to connect public database: %w", err)
	}
	return &Handles{Admin: admin, Public: public}, nil
}

// Shared reports whether public reads go through the admin pool.
func (h *Handles) Shared() bool {
	return h.Public == h.Admin
}

// Close closes every distinct pool.
func (h *Handles) Close() error {
	var errs []error
	if err := h.Admin.Close(); err != nil {
		errs = append(errs, fmt.Errorf("admin: %w", err))
	}
	if !h.Shared() {
		if err := h.Public.Close(); err != nil {
			errs = append(errs, fmt.Errorf("public: %w", err))
		}
	}
	return errors.Join(errs...)
}
