package driver

import (
	"context"
	"fmt"

	"github.com/reservoir-data/tap-pushbullet/drivers/abstract"
	"github.com/reservoir-data/tap-pushbullet/output"
	"github.com/reservoir-data/tap-pushbullet/types"
	"github.com/reservoir-data/tap-pushbullet/utils/logger"
)

// Pushbullet is the driver for the Pushbullet REST API
type Pushbullet struct {
	config *Config
	client *Client
	state  *types.State
}

// GetConfigRef returns a reference to the configuration
func (p *Pushbullet) GetConfigRef() abstract.Config {
	p.config = &Config{}
	return p.config
}

// Spec returns the configuration specification
func (p *Pushbullet) Spec() any {
	return Config{}
}

// Type returns the API type
func (p *Pushbullet) Type() string {
	return "Pushbullet"
}

func (p *Pushbullet) SetupState(state *types.State) {
	p.state = state
}

func (p *Pushbullet) MaxRetries() int {
	return p.config.MaxRetries
}

// Setup builds the REST client and proves the credentials against the
// current-user endpoint.
func (p *Pushbullet) Setup(ctx context.Context) error {
	if err := p.config.Validate(); err != nil {
		return fmt.Errorf("failed to validate config: %s", err)
	}
	p.client = NewClient(p.config)

	user, err := p.client.UsersMe(ctx)
	if err != nil {
		return err
	}
	logger.Infof("Connected to Pushbullet as user %v", user["iden"])

	return nil
}

func (p *Pushbullet) GetStreamNames(_ context.Context) ([]string, error) {
	declared := resources()
	names := make([]string, 0, len(declared))
	for _, one := range declared {
		names = append(names, one.stream.Name)
	}

	return names, nil
}

func (p *Pushbullet) ProduceSchema(_ context.Context, stream string) (*types.Stream, error) {
	one, err := resourceByName(stream)
	if err != nil {
		return nil, err
	}

	return one.stream, nil
}

// StreamChanges pages through one resource. A nil since syncs from
// start_date; iteration stops on the first page without records, because the
// API keeps returning a cursor past the end.
func (p *Pushbullet) StreamChanges(ctx context.Context, stream types.StreamInterface, since any, processFn abstract.RecordMsgFn) error {
	one, err := resourceByName(stream.Name())
	if err != nil {
		return err
	}

	modifiedAfter := since
	if modifiedAfter == nil && p.config.StartDate > 0 {
		modifiedAfter = p.config.StartDate
	}

	cursor := ""
	pages := 0
	for {
		page, err := p.client.FetchPage(ctx, &PageRequest{
			Path:          one.path,
			Stream:        stream.Name(),
			Cursor:        cursor,
			ModifiedAfter: modifiedAfter,
			Params:        one.params,
		})
		if err != nil {
			return err
		}
		if len(page.Records) == 0 {
			break
		}

		pages++
		for _, record := range page.Records {
			if err := processFn(ctx, record); err != nil {
				return err
			}
		}

		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	logger.Debugf("stream %s drained after %d pages", stream.Name(), pages)
	return nil
}

func (p *Pushbullet) WriterConfig() *types.WriterConfig {
	return p.config.WriterConfig()
}

func (p *Pushbullet) PipelineSettings() *output.Settings {
	return p.config.PipelineSettings()
}

func resourceByName(stream string) (*resource, error) {
	for _, one := range resources() {
		if one.stream.Name == stream {
			return &one, nil
		}
	}

	return nil, fmt.Errorf("unknown stream %s", stream)
}
