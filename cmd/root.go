package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "callcal",
	Short: "Call calendar reminder scheduling service",
	Long:  `Schedules reminder slots for calendar calls, provisions linked documents and derives post-call copy review events`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
