package catalog

import (
	"context"

	"github.com/sanosuguru/go-nearby-events/internal/config"
	"github.com/sanosuguru/go-nearby-events/internal/domain/event"
)

// Disabled はカタログ未設定時に使う空のソース
type Disabled struct{}

var _ event.CatalogSource = Disabled{}

func (Disabled) SearchNearby(context.Context, float64, float64, float64) ([]*event.Event, error) {
	return nil, nil
}

func (Disabled) SearchByCategory(context.Context, float64, float64, float64, event.Category) ([]*event.Event, error) {
	return nil, nil
}

// New は設定に応じてカタログソースを返す
func New(cfg config.CatalogConfig) event.CatalogSource {
	if !cfg.Enabled() {
		return Disabled{}
	}
	return NewClient(cfg)
}
