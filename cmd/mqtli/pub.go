package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/kaans/mqtli/internal/config"
	"github.com/kaans/mqtli/internal/payload"
)

func newPubCmd(flags *globalFlags) *cobra.Command {
	var (
		topic       string
		qos         int
		retain      bool
		messageType string
		topicType   string
		message     string
		nullMessage bool
		file        string
		interval    time.Duration
		repeat      int
	)

	cmd := &cobra.Command{
		Use:   "pub",
		Short: "publish a message to a topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(flags)
			if err != nil {
				return err
			}

			input := payload.PublishInput{Kind: payload.Kind(messageType)}
			switch {
			case nullMessage:
				input.Kind = payload.KindText
			case file != "":
				input.Path = file
			default:
				input.Content = message
			}

			trigger := config.PublishTrigger{
				Periodic: &config.PublishTriggerPeriodic{
					Interval:     interval,
					InitialDelay: 0,
				},
			}
			if repeat != 0 {
				count := uint32(repeat)
				trigger.Periodic.Count = &count
			}
			// repeat == 0 leaves Count nil, which the scheduler treats as
			// repeat-forever.

			cfg.Topics = append(cfg.Topics, config.Topic{
				Topic:       topic,
				PayloadType: payload.Kind(topicType),
				Publish: &config.Publish{
					Enabled: true,
					Qos:     config.Qos(qos),
					Retain:  retain,
					Trigger: []config.PublishTrigger{trigger},
					Input:   input,
				},
			})

			return runUntilSignal(cfg, flags.metricsAddr)
		},
	}

	f := cmd.Flags()
	f.StringVar(&topic, "topic", "", "topic to publish to")
	f.IntVar(&qos, "qos", 0, "qos level: 0, 1 or 2")
	f.BoolVar(&retain, "retain", false, "set the retain flag")
	f.StringVar(&messageType, "message-type", string(payload.KindText), "format of --message/--file content")
	f.StringVar(&topicType, "topic-type", string(payload.KindText), "wire format to publish as")
	f.StringVar(&message, "message", "", "inline message content")
	f.BoolVar(&nullMessage, "null-message", false, "publish an empty message")
	f.StringVar(&file, "file", "", "read message content from this file")
	f.DurationVar(&interval, "interval", 0, "repeat interval between publishes")
	f.IntVar(&repeat, "repeat", 1, "number of times to publish; 0 repeats forever")
	_ = cmd.MarkFlagRequired("topic")

	return cmd
}
