package main

import (
	"github.com/spf13/cobra"

	"github.com/kaans/mqtli/internal/config"
	"github.com/kaans/mqtli/internal/payload"
)

func newSubCmd(flags *globalFlags) *cobra.Command {
	var (
		topic        string
		qos          int
		topicType    string
		outputType   string
		outputPath   string
		outputOverwrite bool
		outputTopic  string
		outputQos    int
		outputRetain bool
	)

	cmd := &cobra.Command{
		Use:   "sub",
		Short: "subscribe to a topic and route matching messages to an output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(flags)
			if err != nil {
				return err
			}

			target := config.OutputTarget{Console: &struct{}{}}
			switch outputType {
			case "file":
				target = config.OutputTarget{File: &config.OutputTargetFile{Path: outputPath, Overwrite: outputOverwrite}}
			case "topic":
				target = config.OutputTarget{Topic: &config.OutputTargetTopic{Topic: outputTopic, Qos: config.Qos(outputQos), Retain: outputRetain}}
			}

			cfg.Topics = append(cfg.Topics, config.Topic{
				Topic:       topic,
				PayloadType: payload.Kind(topicType),
				Subscription: &config.Subscription{
					Enabled: true,
					Qos:     config.Qos(qos),
					Outputs: []config.Output{{Format: payload.Kind(topicType), Target: target}},
				},
			})

			return runUntilSignal(cfg, flags.metricsAddr)
		},
	}

	f := cmd.Flags()
	f.StringVar(&topic, "topic", "", "topic filter to subscribe to")
	f.IntVar(&qos, "qos", 0, "qos level: 0, 1 or 2")
	f.StringVar(&topicType, "topic-type", string(payload.KindText), "payload format to decode incoming messages as")
	f.StringVar(&outputType, "output-type", "console", "console, file or topic")
	f.StringVar(&outputPath, "output-path", "", "file path for output-file")
	f.BoolVar(&outputOverwrite, "output-overwrite", false, "overwrite instead of append for output-file")
	f.StringVar(&outputTopic, "output-topic", "", "republish target topic for output-topic")
	f.IntVar(&outputQos, "output-qos", 0, "qos for output-topic")
	f.BoolVar(&outputRetain, "output-retain", false, "retain flag for output-topic")
	_ = cmd.MarkFlagRequired("topic")

	return cmd
}
