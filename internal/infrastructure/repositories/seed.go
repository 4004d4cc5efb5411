package repositories

import (
	"context"
	"fmt"
	"os"

	"vodgate/internal/core/domain"
	"vodgate/internal/core/ports"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Seed is a fixture document of users, content items and credentials.
type Seed struct {
	Users       []domain.User               `yaml:"users"`
	Contents    []domain.ContentItem        `yaml:"contents"`
	Credentials []domain.DeliveryCredential `yaml:"credentials"`
}

// ParseSeed decodes a seed document. Items are validated on save, not here.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.UnmarshalStrict(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed yaml: %w", err)
	}
	return &seed, nil
}

// LoadSeedFile writes every record of the file at path into the stores.
// The first invalid record aborts the load. Expiration maps whose roles
// are not monotonic are stored as written and only reported.
func LoadSeedFile(ctx context.Context, path string, contents ports.ContentRepository, users ports.UserRepository, logger *zap.SugaredLogger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return err
	}
	return Apply(ctx, seed, contents, users, logger)
}

// Apply saves the records of a parsed seed.
func Apply(ctx context.Context, seed *Seed, contents ports.ContentRepository, users ports.UserRepository, logger *zap.SugaredLogger) error {
	for i := range seed.Users {
		if err := users.SaveUser(ctx, &seed.Users[i]); err != nil {
			return fmt.Errorf("seed user %s: %w", seed.Users[i].ID, err)
		}
	}

	for i := range seed.Contents {
		item := &seed.Contents[i]
		if err := contents.SaveContent(ctx, item); err != nil {
			return fmt.Errorf("seed %s %s: %w", item.Kind, item.ID, err)
		}
		for _, inversion := range item.CheckMonotonic() {
			logger.Warnw("expiration map is not monotonic",
				"kind", item.Kind,
				"content_id", item.ID,
				"detail", inversion,
			)
		}
	}

	for i := range seed.Credentials {
		cred := &seed.Credentials[i]
		if err := contents.SaveCredential(ctx, cred); err != nil {
			return fmt.Errorf("seed credential %s: %w", cred.ContentID, err)
		}
	}

	logger.Infow("seed loaded",
		"users", len(seed.Users),
		"contents", len(seed.Contents),
		"credentials", len(seed.Credentials),
	)
	return nil
}
