// Package ros bridges navgoal and ROS: message shapes as they appear on the wire and in bags.
package ros

import (
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ReadBag reads the contents of a rosbag into a gobag data structure.
func ReadBag(filename string) (*rosbag.RosBag, error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	rb := rosbag.NewRosBag()

	if err := rb.Read(f); err != nil {
		return nil, errors.Wrapf(err, "unable to create ros bag, error")
	}

	return rb, nil
}

// A BagMessage is one recorded message, with the time it was recorded.
type BagMessage struct {
	Topic string
	Stamp time.Time
	Data  json.RawMessage
}

type bagLine struct {
	Meta Time            `json:"meta"`
	Data json.RawMessage `json:"data"`
}

// topicKey is the name gobag files a topic's messages under.
func topicKey(topic string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(topic, "/"), "/", "_"))
}

// MessagesForTopics returns every message recorded on the given topics, ordered by record time.
// Messages recorded at the same instant keep the order of topics.
func MessagesForTopics(rb *rosbag.RosBag, topics ...string) ([]BagMessage, error) {
	wanted := map[string]string{}
	for _, topic := range topics {
		wanted[topicKey(topic)] = topic
	}
	if len(wanted) == 0 {
		return nil, errors.New("no topics requested")
	}

	if err := rb.ParseTopicsToJSON(
		"",
		func(int64) bool { return true },
		func(t string) bool { _, ok := wanted[topicKey(t)]; return ok },
		false,
	); err != nil {
		return nil, errors.Wrapf(err, "error while parsing bag to JSON")
	}

	var all []BagMessage
	seen := map[string]bool{}
	for _, topic := range topics {
		key := topicKey(topic)
		if seen[key] {
			continue
		}
		seen[key] = true

		msgs := rb.TopicsAsJSON[key]
		if msgs == nil {
			continue
		}
		for {
			data, err := msgs.ReadBytes('\n')
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, err
			}
			var line bagLine
			if err := json.Unmarshal(data, &line); err != nil {
				return nil, errors.Wrapf(err, "malformed message on topic %s", topic)
			}
			all = append(all, BagMessage{
				Topic: topic,
				Stamp: line.Meta.Time(),
				Data:  line.Data,
			})
		}
	}
	if len(all) == 0 {
		return nil, errors.Errorf("no messages for topics %v", topics)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Stamp.Before(all[j].Stamp)
	})
	return all, nil
}
