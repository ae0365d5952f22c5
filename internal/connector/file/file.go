// Package file reads raw events from local NDJSON or YAML files.
package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/healthguard/internal/connector"
	"github.com/crimson-sun/healthguard/internal/model"
)

const defaultPollInterval = 5 * time.Second

const maxLineSize = 1 << 20

func init() {
	connector.Register("file", func() connector.Connector {
		return &Connector{}
	})
}

// Connector implements connector.Connector over a file path taken from
// cfg.Extra["path"], or cfg.Endpoint when that is empty.
// Files ending in .yaml or .yml hold a YAML sequence of events; anything else
// is read as one JSON event per line.
type Connector struct {
	Logger *zap.Logger
}

func (c *Connector) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func pathFrom(cfg connector.ConnectorConfig) (string, error) {
	p := cfg.Extra["path"]
	if p == "" {
		p = cfg.Endpoint
	}
	if p == "" {
		return "", fmt.Errorf("file connector: missing required config key \"path\" in Extra")
	}
	return p, nil
}

// ReadFile decodes every event in path.
func ReadFile(path string) ([]model.RawEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("file connector: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return decodeYAML(data)
	default:
		return decodeNDJSON(data)
	}
}

func decodeYAML(data []byte) ([]model.RawEvent, error) {
	var evs []model.RawEvent
	if err := yaml.Unmarshal(data, &evs); err != nil {
		return nil, fmt.Errorf("file connector: yaml: %w", err)
	}
	return evs, nil
}

func decodeNDJSON(data []byte) ([]model.RawEvent, error) {
	var evs []model.RawEvent
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var ev model.RawEvent
		if err := json.Unmarshal(b, &ev); err != nil {
			return nil, fmt.Errorf("file connector: line %d: %w", line, err)
		}
		evs = append(evs, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("file connector: %w", err)
	}
	return evs, nil
}

func (c *Connector) Query(ctx context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) ([]model.RawEvent, error) {
	path, err := pathFrom(cfg)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	evs, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return connector.Filter(evs, params), nil
}

// Stream sends the events already in the file, then re-reads it every poll
// interval and sends the events appended since. Read errors are logged and
// retried on the next poll.
func (c *Connector) Stream(ctx context.Context, cfg connector.ConnectorConfig) (<-chan model.RawEvent, error) {
	path, err := pathFrom(cfg)
	if err != nil {
		return nil, err
	}
	pollInterval := connector.PollInterval(cfg, defaultPollInterval)
	log := c.logger().With(zap.String("connector", "file"), zap.String("path", path))

	ch := make(chan model.RawEvent, 64)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		sent := 0
		for {
			evs, err := ReadFile(path)
			if err != nil {
				log.Warn("poll error", zap.Error(err))
			} else if len(evs) > sent {
				for _, ev := range evs[sent:] {
					select {
					case ch <- ev:
						sent++
					case <-ctx.Done():
						return
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return ch, nil
}
