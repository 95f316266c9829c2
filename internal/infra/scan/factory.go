package scan

import (
	"github.com/cockroachdb/errors"

	"github.com/evhagen/spindle/internal/infra/config"
)

// NewChainFromConfig builds a source chain from the configured source list.
func NewChainFromConfig(cfgs []config.SourceConfig, inspector Inspector) (*Chain, error) {
	if len(cfgs) == 0 {
		return nil, errors.New("no sources configured")
	}

	sources := make([]Source, 0, len(cfgs))
	for i, cfg := range cfgs {
		var (
			src Source
			err error
		)
		switch cfg.Type {
		case "directory":
			src, err = NewDirectorySource(inspector, cfg.Settings)
		case "m3u":
			src, err = NewM3USource(inspector, cfg.Settings)
		default:
			return nil, errors.Newf("unsupported source type: %s (source index %d)", cfg.Type, i)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create source (index %d, type %s)", i, cfg.Type)
		}
		sources = append(sources, src)
	}
	return NewChain(sources...), nil
}
