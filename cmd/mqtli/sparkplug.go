package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kaans/mqtli/internal/config"
	"github.com/kaans/mqtli/internal/payload"
	"github.com/kaans/mqtli/internal/sparkplug"
)

func newSparkplugCmd(flags *globalFlags) *cobra.Command {
	var (
		qos                    int
		includeGroups          []string
		includeTopicsFromFile string
	)

	cmd := &cobra.Command{
		Use:   "sparkplug",
		Short: "monitor a Sparkplug B network's edge nodes, devices and host applications",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(flags)
			if err != nil {
				return err
			}

			groups := includeGroups
			if len(groups) == 0 {
				groups = []string{"+"}
			}

			for _, group := range groups {
				cfg.Topics = append(cfg.Topics, config.Topic{
					Topic:        sparkplug.TopicVersion + "/" + group + "/#",
					PayloadType:  payload.KindSparkplug,
					ProtoMessage: sparkplug.PayloadMessage,
					Subscription: &config.Subscription{
						Enabled: true,
						Qos:     config.Qos(qos),
						Outputs: []config.Output{{Format: payload.KindSparkplugJson, Target: config.OutputTarget{Console: &struct{}{}}}},
					},
				})
			}

			cfg.Topics = append(cfg.Topics, config.Topic{
				Topic:       sparkplug.TopicVersion + "/STATE/+",
				PayloadType: payload.KindText,
				Subscription: &config.Subscription{
					Enabled: true,
					Qos:     config.Qos(qos),
					Outputs: []config.Output{{Format: payload.KindText, Target: config.OutputTarget{Console: &struct{}{}}}},
				},
			})

			extraTopics, err := readTopicsFromFile(includeTopicsFromFile)
			if err != nil {
				return err
			}
			for _, t := range extraTopics {
				cfg.Topics = append(cfg.Topics, config.Topic{
					Topic:        t,
					PayloadType:  payload.KindSparkplug,
					ProtoMessage: sparkplug.PayloadMessage,
					Subscription: &config.Subscription{
						Enabled: true,
						Qos:     config.Qos(qos),
						Outputs: []config.Output{{Format: payload.KindSparkplugJson, Target: config.OutputTarget{Console: &struct{}{}}}},
					},
				})
			}

			return runUntilSignal(cfg, flags.metricsAddr)
		},
	}

	f := cmd.Flags()
	f.IntVar(&qos, "qos", 0, "qos level to subscribe with")
	f.StringSliceVar(&includeGroups, "include-group", nil, "group ids to monitor; defaults to all groups")
	f.StringVar(&includeTopicsFromFile, "include-topics-from-file", "", "path to a file listing additional topic filters to subscribe to, one per line")

	return cmd
}

// readTopicsFromFile reads one topic filter per line, ignoring blank lines.
// A blank path yields no additional topics.
func readTopicsFromFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var topics []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			topics = append(topics, line)
		}
	}
	return topics, nil
}
