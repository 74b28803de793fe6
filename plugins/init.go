// Package plugins registers all built-in plugins.
package plugins

import (
	"firestige.xyz/pktsnap/pkg/plugin"
	"firestige.xyz/pktsnap/plugins/reporter/console"
	"firestige.xyz/pktsnap/plugins/reporter/kafka"
)

func init() {
	// Register reporter plugins
	plugin.RegisterReporter("console", console.NewConsoleReporter)
	plugin.RegisterReporter("kafka", kafka.NewKafkaReporter)
}
