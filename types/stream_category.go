package types

import (
	"fmt"
	"strings"

	"github.com/reservoir-data/tap-pushbullet/utils/logger"
)

type StreamCategories struct {
	SelectedStreams    []string
	IncrementalStreams []StreamInterface
	FullTableStreams   []StreamInterface
}

func StreamsToMap(streams ...*Stream) map[string]*Stream {
	output := make(map[string]*Stream)
	for _, stream := range streams {
		output[stream.ID()] = stream
	}

	return output
}

// IdentifySelectedStreams validates catalog entries against the source
// streams and splits them by replication method. Bookmarks of deselected
// streams stay in the state untouched so they survive round trips.
func IdentifySelectedStreams(catalog *Catalog, streams []*Stream) (*StreamCategories, error) {
	categories := &StreamCategories{
		SelectedStreams:    []string{},
		IncrementalStreams: []StreamInterface{},
		FullTableStreams:   []StreamInterface{},
	}

	sourceStreams := StreamsToMap(streams...)
	for _, elem := range catalog.Streams {
		if !elem.IsSelected() {
			logger.Debugf("Skipping stream %s; not selected in catalog.", elem.ID())
			continue
		}

		source, found := sourceStreams[elem.ID()]
		if !found {
			logger.Warnf("Skipping; configured stream %s not found in source", elem.ID())
			continue
		}

		if err := elem.Validate(source); err != nil {
			logger.Warnf("Skipping; configured stream %s found invalid due to reason: %s", elem.ID(), err)
			continue
		}

		categories.SelectedStreams = append(categories.SelectedStreams, elem.ID())
		switch elem.GetSyncMode() {
		case INCREMENTAL:
			categories.IncrementalStreams = append(categories.IncrementalStreams, elem)
		default:
			categories.FullTableStreams = append(categories.FullTableStreams, elem)
		}
	}

	if len(categories.SelectedStreams) == 0 {
		return nil, fmt.Errorf("no valid streams found in catalog")
	}

	logger.Infof("Valid selected streams are %s", strings.Join(categories.SelectedStreams, ", "))
	return categories, nil
}
